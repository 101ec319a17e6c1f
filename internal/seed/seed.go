// Package seed loads the postal-code list a scan iterates over.
package seed

import (
	"bufio"
	_ "embed"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// fallbackCodes covers a handful of large cities so a scan without a seed
// file still produces output.
//
//go:embed codes.txt
var fallbackCodes string

// Load reads one postal code per line from path. A missing or empty file
// falls back to the embedded list; the run proceeds either way. Codes are
// zero-padded to five digits, matching the site's zip format.
func Load(path string) ([]string, error) {
	if path != "" {
		f, err := os.Open(path)
		if err == nil {
			defer f.Close()
			codes, err := parse(f)
			if err != nil {
				return nil, eris.Wrapf(err, "seed: read %s", path)
			}
			if len(codes) > 0 {
				return codes, nil
			}
			zap.L().Warn("seed file is empty, using embedded fallback", zap.String("path", path))
		} else if !os.IsNotExist(err) {
			return nil, eris.Wrapf(err, "seed: open %s", path)
		} else {
			zap.L().Warn("seed file not found, using embedded fallback", zap.String("path", path))
		}
	}

	codes, err := parse(strings.NewReader(fallbackCodes))
	if err != nil {
		return nil, eris.Wrap(err, "seed: parse embedded codes")
	}
	return codes, nil
}

// Window applies startIndex/limit to codes. Out-of-range values clamp
// rather than error.
func Window(codes []string, startIndex, limit int) []string {
	if startIndex < 0 {
		startIndex = 0
	}
	if startIndex >= len(codes) {
		return nil
	}
	out := codes[startIndex:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func parse(r io.Reader) ([]string, error) {
	var codes []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		codes = append(codes, pad(line))
	}
	return codes, sc.Err()
}

// pad zero-fills short numeric codes; "1067" is Dresden's "01067".
func pad(code string) string {
	if len(code) >= 5 {
		return code
	}
	return strings.Repeat("0", 5-len(code)) + code
}
