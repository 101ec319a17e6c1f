package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealer-scout/internal/export"
	"github.com/sells-group/dealer-scout/internal/store"
)

var (
	exportRunID string
	exportDir   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored records to CSV, JSONL, and XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		records, err := st.ListRecords(ctx, exportRunID)
		if err != nil {
			return eris.Wrap(err, "list records")
		}

		dir := cfg.Export.Dir
		if exportDir != "" {
			dir = exportDir
		}

		res, err := export.All(dir, records)
		if err != nil {
			return err
		}

		zap.L().Info("export written",
			zap.Int("records", res.Count),
			zap.String("csv", res.CSV),
			zap.String("jsonl", res.JSONL),
			zap.String("xlsx", res.XLSX),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportRunID, "run", "", "export only this run's records (default: all)")
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "output directory (default: export.dir config)")
	rootCmd.AddCommand(exportCmd)
}
