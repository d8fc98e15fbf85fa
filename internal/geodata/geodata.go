// Package geodata loads Census TIGER/Line place boundaries into the
// geo_places table that backs the reverse geocoder.
package geodata

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadsnap/internal/db"
)

const defaultBatchSize = 5000

// placeColumns matches the geo_places table, geometry last.
var placeColumns = []string{
	"geoid", "name", "state", "lat", "lon",
	"min_lat", "min_lon", "max_lat", "max_lon", "geom",
}

// Place is one parsed census place record.
type Place struct {
	GeoID  string
	Name   string
	State  string // USPS abbreviation
	Lat    float64
	Lon    float64
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
	Geom   []byte // EWKB multipolygon, nil when the record has no boundary
}

// LoadOptions configures a place-boundary load.
type LoadOptions struct {
	Year        int          // TIGER/Line data year (default 2025)
	States      []string     // USPS abbreviations; empty = all 50 + DC
	TempDir     string       // download cache directory
	Concurrency int          // parallel state loads (default 3)
	BatchSize   int          // COPY batch size (default 5,000)
	DryRun      bool         // download and parse without loading
	Client      *http.Client // nil = http.DefaultClient
}

// Load downloads, parses, and loads place boundaries for the given states.
// Each state's rows are replaced wholesale, so reruns are safe.
func Load(ctx context.Context, pool db.Pool, opts LoadOptions) (int64, error) {
	if opts.Year == 0 {
		opts.Year = 2025
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 3
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.TempDir == "" {
		opts.TempDir = filepath.Join(os.TempDir(), "leadsnap-tiger")
	}

	states := opts.States
	if len(states) == 0 {
		states = allStates()
	}
	for i, st := range states {
		states[i] = strings.ToUpper(strings.TrimSpace(st))
		if _, ok := stateFIPS[states[i]]; !ok {
			return 0, eris.Errorf("geodata: unknown state %q", st)
		}
	}

	log := zap.L().With(
		zap.String("component", "geodata"),
		zap.Int("year", opts.Year),
	)

	var total atomic.Int64
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for _, st := range states {
		abbr := st
		g.Go(func() error {
			n, err := loadState(gCtx, pool, abbr, opts)
			if err != nil {
				return eris.Wrapf(err, "geodata: load %s", abbr)
			}
			total.Add(n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return total.Load(), err
	}

	log.Info("place boundaries loaded",
		zap.Int("states", len(states)),
		zap.Int64("rows", total.Load()),
	)
	return total.Load(), nil
}

// loadState fetches and loads one state's PLACE shapefile.
func loadState(ctx context.Context, pool db.Pool, abbr string, opts LoadOptions) (int64, error) {
	fips := stateFIPS[abbr]
	log := zap.L().With(
		zap.String("component", "geodata"),
		zap.String("state", abbr),
	)

	shpPath, err := fetchShapefile(ctx, opts.Client, placeURL(opts.Year, fips), filepath.Join(opts.TempDir, fips))
	if err != nil {
		return 0, err
	}

	places, err := parsePlaces(shpPath)
	if err != nil {
		return 0, err
	}
	log.Info("place shapefile parsed", zap.Int("places", len(places)))

	if opts.DryRun {
		log.Info("dry run, skipping load")
		return int64(len(places)), nil
	}

	return replaceState(ctx, pool, abbr, places, opts.BatchSize)
}

// replaceState swaps in a state's place rows: old rows are cleared first so
// renamed or dissolved places do not linger.
func replaceState(ctx context.Context, pool db.Pool, abbr string, places []Place, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	if _, err := pool.Exec(ctx, "DELETE FROM geo_places WHERE state = $1", abbr); err != nil {
		return 0, eris.Wrapf(err, "geodata: clear %s places", abbr)
	}

	var total int64
	for start := 0; start < len(places); start += batchSize {
		end := start + batchSize
		if end > len(places) {
			end = len(places)
		}

		rows := make([][]any, 0, end-start)
		for _, p := range places[start:end] {
			rows = append(rows, []any{
				p.GeoID, p.Name, p.State, p.Lat, p.Lon,
				p.MinLat, p.MinLon, p.MaxLat, p.MaxLon, p.Geom,
			})
		}

		n, err := db.CopyFrom(ctx, pool, "geo_places", placeColumns, rows)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
