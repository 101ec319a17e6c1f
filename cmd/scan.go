package main

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealer-scout/internal/browser"
	"github.com/sells-group/dealer-scout/internal/diag"
	"github.com/sells-group/dealer-scout/internal/export"
	"github.com/sells-group/dealer-scout/internal/locate"
	"github.com/sells-group/dealer-scout/internal/model"
	"github.com/sells-group/dealer-scout/internal/run"
	"github.com/sells-group/dealer-scout/internal/seed"
	"github.com/sells-group/dealer-scout/internal/site"
	"github.com/sells-group/dealer-scout/internal/store"
)

var (
	scanCodes      string
	scanStartIndex int
	scanLimit      int
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the directory for every postal code in the seed list",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		codes, err := resolveCodes()
		if err != nil {
			return err
		}
		if len(codes) == 0 {
			return eris.New("scan: no postal codes to process")
		}

		categories, err := resolveCategories()
		if err != nil {
			return err
		}

		st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		runRow, err := st.CreateRun(ctx)
		if err != nil {
			return eris.Wrap(err, "create run")
		}

		sess, err := browser.NewSession(ctx, browser.Config{
			Headless:  cfg.Browser.Headless,
			UserAgent: cfg.Browser.UserAgent,
			OpTimeout: cfg.Browser.OpTimeout,
		})
		if err != nil {
			return eris.Wrap(err, "start browser")
		}
		defer sess.Close()

		resolver := locate.NewResolver(locate.DefaultCatalog())
		controller := site.NewController(sess, resolver, cfg.Target.BaseURL, time.Duration(cfg.Scan.SettleSecs)*time.Second)

		var fetcher site.DetailFetcher
		detailPool := 0
		if cfg.Scan.DetailPages {
			fetcher = sess
			detailPool = cfg.Scan.DetailPool
		}
		discovery := site.NewDiscovery(sess, resolver, fetcher, site.DiscoveryConfig{
			MaxLoadMore:    cfg.Scan.MaxLoadMore,
			DetailPoolSize: detailPool,
			DetailTimeout:  cfg.Browser.OpTimeout,
		})

		engine := site.NewEngine(sess, controller, discovery, site.NewExtractor(resolver))

		var snap run.Snapshotter
		if cfg.Snapshot.Enabled {
			capturer, err := diag.NewCapturer(cfg.Snapshot.Dir, sess)
			if err != nil {
				return err
			}
			snap = capturer
		}

		sink := run.SinkFunc(func(batchCtx context.Context, records []*model.Record) error {
			return st.PushBatch(batchCtx, runRow.ID, records)
		})

		coord := run.NewCoordinator(engine, sink, snap, run.Config{
			RadiusKm:   cfg.Scan.RadiusKm,
			Categories: categories,
			BatchSize:  cfg.Scan.BatchSize,
			Pace:       cfg.Scan.Pace,
		})

		zap.L().Info("scan starting",
			zap.String("run_id", runRow.ID),
			zap.Int("codes", len(codes)),
			zap.String("base_url", cfg.Target.BaseURL),
		)

		stats, runErr := coord.Run(ctx, codes)

		if err := st.FinishRun(ctx, runRow.ID, store.RunStats{
			Codes:      stats.Codes,
			Failed:     stats.Failed,
			Units:      stats.Units,
			Saved:      stats.Saved,
			Duplicates: stats.Duplicates,
		}); err != nil {
			zap.L().Warn("finish run failed", zap.Error(err))
		}

		if runErr != nil {
			return eris.Wrap(runErr, "scan run")
		}

		if cfg.Export.Enabled {
			records, err := st.ListRecords(ctx, runRow.ID)
			if err != nil {
				return eris.Wrap(err, "list records for export")
			}
			res, err := export.All(cfg.Export.Dir, records)
			if err != nil {
				return err
			}
			zap.L().Info("export written",
				zap.Int("records", res.Count),
				zap.String("csv", res.CSV),
				zap.String("jsonl", res.JSONL),
				zap.String("xlsx", res.XLSX),
			)
		}

		return nil
	},
}

// resolveCodes merges the three seed sources: --codes flag, config list,
// seed file (with embedded fallback), then applies the scan window.
func resolveCodes() ([]string, error) {
	var codes []string
	switch {
	case scanCodes != "":
		for _, c := range strings.Split(scanCodes, ",") {
			if c = strings.TrimSpace(c); c != "" {
				codes = append(codes, c)
			}
		}
	case len(cfg.Seed.Codes) > 0:
		codes = cfg.Seed.Codes
	default:
		var err error
		codes, err = seed.Load(cfg.Seed.File)
		if err != nil {
			return nil, err
		}
	}

	startIndex := cfg.Scan.StartIndex
	if scanStartIndex > 0 {
		startIndex = scanStartIndex
	}
	limit := cfg.Scan.Limit
	if scanLimit > 0 {
		limit = scanLimit
	}
	return seed.Window(codes, startIndex, limit), nil
}

func resolveCategories() ([]model.Category, error) {
	var categories []model.Category
	for _, name := range cfg.Scan.Categories {
		cat, ok := model.ParseCategory(name)
		if !ok {
			return nil, eris.Errorf("scan: unknown category %q", name)
		}
		categories = append(categories, cat)
	}
	return categories, nil
}

func init() {
	scanCmd.Flags().StringVar(&scanCodes, "codes", "", "comma-separated postal codes (overrides seed list)")
	scanCmd.Flags().IntVar(&scanStartIndex, "start-index", 0, "skip the first N postal codes")
	scanCmd.Flags().IntVar(&scanLimit, "limit", 0, "process at most N postal codes")
	rootCmd.AddCommand(scanCmd)
}
