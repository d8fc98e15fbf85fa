package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadsnap/internal/company"
	sfpkg "github.com/sells-group/leadsnap/pkg/salesforce"
)

var crmSyncSince string

var crmCmd = &cobra.Command{
	Use:   "crm",
	Short: "Salesforce synchronization",
}

var crmSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Freeze companies the sales team already contacted",
	Long: `Queries Salesforce for account names and marks the matching pipeline
companies as sent, so later photo sightings skip them instead of merging.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("crmsync"); err != nil {
			return err
		}

		since, err := parseSince(crmSyncSince)
		if err != nil {
			return err
		}

		client, err := initSalesforce()
		if err != nil {
			return err
		}

		pool, err := dbPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		found, marked, err := runCRMSync(ctx, client, company.NewPostgresStore(pool), since)
		if err != nil {
			return err
		}

		zap.L().Info("crm sync complete",
			zap.Int("accounts", found),
			zap.Int64("marked_sent", marked),
		)
		return nil
	},
}

// sentMarker is the slice of the company store the sync writes through.
type sentMarker interface {
	MarkSentByNormalizedNames(ctx context.Context, names []string) (int64, error)
}

// runCRMSync pulls CRM account names, normalizes them with the same rules the
// dedup engine matches on, and freezes the corresponding companies at sent.
func runCRMSync(ctx context.Context, client sfpkg.Client, marker sentMarker, since time.Time) (int, int64, error) {
	names, err := sfpkg.ContactedAccountNames(ctx, client, since)
	if err != nil {
		return 0, 0, err
	}

	normalized := make([]string, 0, len(names))
	for _, n := range names {
		if nn := company.NormalizeName(n); nn != "" {
			normalized = append(normalized, nn)
		}
	}

	marked, err := marker.MarkSentByNormalizedNames(ctx, normalized)
	if err != nil {
		return len(names), 0, err
	}
	return len(names), marked, nil
}

// parseSince accepts an empty string (no restriction) or a YYYY-MM-DD date.
func parseSince(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, eris.Errorf("invalid --since date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

func init() {
	crmSyncCmd.Flags().StringVar(&crmSyncSince, "since", "", "only consider accounts created on or after this date (YYYY-MM-DD)")
	crmCmd.AddCommand(crmSyncCmd)
	rootCmd.AddCommand(crmCmd)
}
