// Package sheet reads company spreadsheets (xlsx or csv) and feeds each row
// through the deduplication engine, so bulk lists land in the same canonical
// companies table as photo extractions.
package sheet

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadsnap/internal/company"
)

// Upserter resolves candidates into the canonical companies table.
type Upserter interface {
	Upsert(ctx context.Context, cand company.Candidate) (*company.Company, company.Outcome, error)
}

// Stats tallies what one import run did with the sheet's data rows.
type Stats struct {
	Rows     int `json:"rows"`
	Inserted int `json:"inserted"`
	Merged   int `json:"merged"`
	Skipped  int `json:"skipped"`
	Invalid  int `json:"invalid"`
	Failed   int `json:"failed"`
}

// Read loads a sheet and splits it into the header row and data rows. The
// format is picked by file extension.
func Read(path string) ([]string, [][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return readXLSX(path)
	case ".csv":
		return readCSV(path)
	default:
		return nil, nil, eris.Errorf("sheet: unsupported file type %q", filepath.Ext(path))
	}
}

// Import reads a company sheet and upserts every data row. Rows missing all
// three match keys (name, email, phone) are counted invalid; upsert failures
// are logged and counted without stopping the run.
func Import(ctx context.Context, up Upserter, path string) (Stats, error) {
	header, rows, err := Read(path)
	if err != nil {
		return Stats{}, err
	}

	cols, err := classifyHeaders(header)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for i, row := range rows {
		if ctx.Err() != nil {
			return stats, eris.Wrap(ctx.Err(), "sheet: import cancelled")
		}
		stats.Rows++

		cand := mapRow(cols, row)
		if cand.Name == "" && cand.Email == "" && cand.Phone == "" {
			stats.Invalid++
			continue
		}

		_, outcome, err := up.Upsert(ctx, cand)
		if err != nil {
			stats.Failed++
			zap.L().Warn("sheet: upsert row failed",
				zap.Int("row", i+2), // 1-based file line, header included
				zap.String("name", cand.Name),
				zap.Error(err),
			)
			continue
		}

		switch outcome {
		case company.OutcomeInserted:
			stats.Inserted++
		case company.OutcomeMerged:
			stats.Merged++
		case company.OutcomeSkipped:
			stats.Skipped++
		}
	}

	zap.L().Info("sheet: import complete",
		zap.String("path", path),
		zap.Int("rows", stats.Rows),
		zap.Int("inserted", stats.Inserted),
		zap.Int("merged", stats.Merged),
		zap.Int("skipped", stats.Skipped),
		zap.Int("invalid", stats.Invalid),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}
