package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/leadsnap/internal/monitoring"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline status",
	Long:  "Displays row counts per lifecycle status, queue depths, and dead-letter volume.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("status"); err != nil {
			return err
		}

		pool, err := dbPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		snap, err := newCollector(pool).Collect(ctx)
		if err != nil {
			return err
		}

		if statusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}

		formatSnapshot(os.Stdout, snap)
		return nil
	},
}

// formatSnapshot writes a tabular representation of the pipeline snapshot.
func formatSnapshot(out io.Writer, snap *monitoring.Snapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "collected at %s\n\n", snap.CollectedAt.Format("2006-01-02 15:04:05"))

	writeCounts := func(title string, counts map[string]int64) {
		_, _ = fmt.Fprintf(w, "%s\n", title)
		for _, status := range sortedKeys(counts) {
			_, _ = fmt.Fprintf(w, "  %s\t%d\n", status, counts[status])
		}
		if len(counts) == 0 {
			_, _ = fmt.Fprintln(w, "  (none)")
		}
		_, _ = fmt.Fprintln(w)
	}

	writeCounts("PHOTOS", snap.Photos)
	writeCounts("COMPANIES", snap.Companies)
	writeCounts("CONTACTS", snap.Contacts)

	_, _ = fmt.Fprintln(w, "QUEUE\tVISIBLE\tIN-FLIGHT\tARCHIVED\tDLQ")
	for _, name := range sortedQueueNames(snap) {
		m := snap.Queues[name]
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n",
			name, m.Visible, m.Invisible, m.Archived, snap.DLQ[name])
	}

	_ = w.Flush()
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedQueueNames(snap *monitoring.Snapshot) []string {
	names := make([]string, 0, len(snap.Queues))
	for name := range snap.Queues {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "emit the snapshot as JSON")
	rootCmd.AddCommand(statusCmd)
}
