package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadsnap/internal/company"
	"github.com/sells-group/leadsnap/internal/enrich"
	"github.com/sells-group/leadsnap/internal/extract"
	"github.com/sells-group/leadsnap/internal/ocr"
	"github.com/sells-group/leadsnap/internal/photo"
	"github.com/sells-group/leadsnap/internal/queue"
	"github.com/sells-group/leadsnap/internal/resilience"
	anthropicpkg "github.com/sells-group/leadsnap/pkg/anthropic"
	"github.com/sells-group/leadsnap/pkg/geocode"
	"github.com/sells-group/leadsnap/pkg/zoominfo"
)

var workOnce bool

var workCmd = &cobra.Command{
	Use:   "work",
	Short: "Run pipeline workers",
}

var workExtractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run the photo extraction worker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("extract"); err != nil {
			return err
		}

		pool, err := dbPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		objects, err := objectStore()
		if err != nil {
			return err
		}

		textExtractor, err := ocr.NewExtractor(cfg.OCR)
		if err != nil {
			return err
		}

		parser := extract.NewParser(anthropicpkg.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model)

		worker := extract.NewWorker(extract.Deps{
			Queue:     queue.New(pool),
			Photos:    photo.NewPostgresStore(pool),
			Companies: company.NewPostgresStore(pool),
			Objects:   objects,
			OCR:       textExtractor,
			Parser:    parser,
			Geocoder:  geocode.NewPlacesGeocoder(pool),
			Journal:   resilience.NewJournal(pool),
		}, cfg.Queues, cfg.Extract)

		if workOnce {
			stats, err := worker.RunOnce(ctx)
			if err != nil {
				return err
			}
			zap.L().Info("extract pass complete",
				zap.Int("read", stats.Read),
				zap.Int64("succeeded", stats.Succeeded),
				zap.Int64("failed", stats.Failed),
			)
			return nil
		}
		return worker.Run(ctx)
	},
}

var workEnrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run the contact enrichment worker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("enrich"); err != nil {
			return err
		}

		pool, err := dbPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		vendor := zoominfo.NewClient(cfg.ZoomInfo.Username, cfg.ZoomInfo.Password,
			zoominfo.WithBaseURL(cfg.ZoomInfo.BaseURL),
			zoominfo.WithRateLimit(cfg.ZoomInfo.RequestsPerSec),
		)

		cascade, err := loadCascade(cfg.Enrich.CascadePath)
		if err != nil {
			return err
		}

		worker := enrich.NewWorker(enrich.Deps{
			Queue:     queue.New(pool),
			Companies: company.NewPostgresStore(pool),
			Vendor:    enrich.GuardVendor(vendor),
			Journal:   resilience.NewJournal(pool),
		}, cfg.Queues, cfg.Enrich, cascade)

		if workOnce {
			stats, err := worker.RunOnce(ctx)
			if err != nil {
				return err
			}
			zap.L().Info("enrich pass complete",
				zap.Int("read", stats.Read),
				zap.Int64("succeeded", stats.Succeeded),
				zap.Int64("failed", stats.Failed),
			)
			return nil
		}
		return worker.Run(ctx)
	},
}

// loadCascade reads the title cascade file; an unset path keeps the built-in
// default.
func loadCascade(path string) (*enrich.Cascade, error) {
	if path == "" {
		return nil, nil
	}
	return enrich.LoadCascade(path)
}

func init() {
	workCmd.PersistentFlags().BoolVar(&workOnce, "once", false, "process one batch and exit")
	workCmd.AddCommand(workExtractCmd)
	workCmd.AddCommand(workEnrichCmd)
	rootCmd.AddCommand(workCmd)
}
