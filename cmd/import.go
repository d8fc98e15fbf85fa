package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadsnap/internal/company"
	"github.com/sells-group/leadsnap/internal/sheet"
)

var importFilePath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a company sheet through the dedup engine",
	Long:  "Reads an xlsx or csv company list and upserts every row, so bulk intake follows the same matching cascade and sent-skip rule as photo extractions.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("import"); err != nil {
			return err
		}

		pool, err := dbPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		stats, err := sheet.Import(ctx, company.NewPostgresStore(pool), importFilePath)
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.String("file", importFilePath),
			zap.Int("rows", stats.Rows),
			zap.Int("inserted", stats.Inserted),
			zap.Int("merged", stats.Merged),
			zap.Int("skipped", stats.Skipped),
			zap.Int("invalid", stats.Invalid),
			zap.Int("failed", stats.Failed),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFilePath, "file", "", "path to xlsx or csv sheet (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
