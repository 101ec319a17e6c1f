// Package export serializes collected records to CSV, JSONL, and XLSX files
// with a fixed column order.
package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/dealer-scout/internal/model"
)

// columns is the fixed tabular column order for CSV and XLSX output.
var columns = []string{
	"name", "street", "postal_code", "city", "phone",
	"website", "opening_hours", "category", "source_postal_code",
}

func rowValues(rec *model.Record) []string {
	str := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	return []string{
		str(rec.Name), str(rec.Street), str(rec.PostalCode), str(rec.City),
		str(rec.Phone), str(rec.Website), str(rec.OpeningHours),
		str(rec.Category), rec.SourcePostalCode,
	}
}

// WriteCSV writes a header row plus one row per record. Nil fields become
// empty cells.
func WriteCSV(w io.Writer, records []*model.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, rec := range records {
		if err := cw.Write(rowValues(rec)); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteJSONL writes one JSON object per line. Unlike the tabular formats,
// JSONL keeps the full record schema including explicit nulls.
func WriteJSONL(w io.Writer, records []*model.Record) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return eris.Wrap(err, "export: encode jsonl record")
		}
	}
	return eris.Wrap(bw.Flush(), "export: flush jsonl")
}

// WriteXLSX writes a single-sheet workbook to path.
func WriteXLSX(path string, records []*model.Record) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Dealers")
	if err != nil {
		return eris.Wrap(err, "export: add xlsx sheet")
	}

	header := sheet.AddRow()
	for _, col := range columns {
		header.AddCell().Value = col
	}
	for _, rec := range records {
		row := sheet.AddRow()
		for _, v := range rowValues(rec) {
			row.AddCell().Value = v
		}
	}

	return eris.Wrapf(f.Save(path), "export: save xlsx %s", path)
}

// Result names the files one export run produced.
type Result struct {
	CSV   string
	JSONL string
	XLSX  string
	Count int
}

// All writes every format into dir using a shared timestamped base name,
// creating dir if needed.
func All(dir string, records []*model.Record) (*Result, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create dir %s", dir)
	}

	base := fmt.Sprintf("dealers_%s", time.Now().UTC().Format("20060102_150405"))
	res := &Result{
		CSV:   filepath.Join(dir, base+".csv"),
		JSONL: filepath.Join(dir, base+".jsonl"),
		XLSX:  filepath.Join(dir, base+".xlsx"),
		Count: len(records),
	}

	if err := writeFile(res.CSV, func(w io.Writer) error { return WriteCSV(w, records) }); err != nil {
		return nil, err
	}
	if err := writeFile(res.JSONL, func(w io.Writer) error { return WriteJSONL(w, records) }); err != nil {
		return nil, err
	}
	if err := WriteXLSX(res.XLSX, records); err != nil {
		return nil, err
	}
	return res, nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}
