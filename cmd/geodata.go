package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadsnap/internal/geodata"
)

var geodataCmd = &cobra.Command{
	Use:   "geodata",
	Short: "Manage reverse-geocoding reference data",
}

var geodataLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load Census TIGER place boundaries",
	Long: `Downloads TIGER/Line PLACE shapefiles and loads them into the geo_places
table backing the reverse geocoder. By default loads all 50 states + DC;
use --states to restrict.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("geodata"); err != nil {
			return err
		}

		pool, err := dbPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		statesStr, _ := cmd.Flags().GetString("states")
		year, _ := cmd.Flags().GetInt("year")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		opts := geodata.LoadOptions{
			Year:        year,
			Concurrency: concurrency,
			DryRun:      dryRun,
		}
		if statesStr != "" {
			opts.States = toUpper(splitAndTrim(statesStr))
		}

		zap.L().Info("starting place boundary load",
			zap.Int("year", opts.Year),
			zap.Strings("states", opts.States),
			zap.Bool("dry_run", opts.DryRun),
		)

		total, err := geodata.Load(ctx, pool, opts)
		if err != nil {
			return err
		}

		fmt.Printf("loaded %d places\n", total)
		return nil
	},
}

// splitAndTrim splits a comma-separated flag value and trims whitespace.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// toUpper uppercases all strings in a slice.
func toUpper(ss []string) []string {
	for i, s := range ss {
		ss[i] = strings.ToUpper(s)
	}
	return ss
}

func init() {
	geodataLoadCmd.Flags().String("states", "", "comma-separated state abbreviations (default: all 50 + DC)")
	geodataLoadCmd.Flags().Int("year", 0, "TIGER/Line year (default 2025)")
	geodataLoadCmd.Flags().Int("concurrency", 0, "parallel state downloads (default 3)")
	geodataLoadCmd.Flags().Bool("dry-run", false, "download and parse without loading")
	geodataCmd.AddCommand(geodataLoadCmd)
	rootCmd.AddCommand(geodataCmd)
}
