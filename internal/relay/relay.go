// Package relay drains camera FTP drops into the gateway. It lists the drop
// directory, skips files already in its local ledger, and submits the rest
// as signed uploads; a file enters the ledger only after the gateway accepts
// it, so failures retry on the next run.
package relay

import (
	"context"
	"path"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Source lists and retrieves remote drop files.
type Source interface {
	List(ctx context.Context) ([]Entry, error)
	Fetch(ctx context.Context, remotePath string) ([]byte, error)
}

// SubmissionLog is the dedupe ledger consulted before each submission.
type SubmissionLog interface {
	Seen(ctx context.Context, remotePath string) (bool, error)
	Record(ctx context.Context, remotePath string, sizeBytes int64, gatewayPath string) error
}

// Gateway submits one file to the ingestion endpoint.
type Gateway interface {
	Submit(ctx context.Context, filename string, data []byte) ([]string, error)
}

// Stats summarizes one relay run.
type Stats struct {
	Listed    int
	Skipped   int
	Submitted int
	Failed    int
}

// Runner wires the source, ledger, and gateway for one relay pass.
type Runner struct {
	source Source
	ledger SubmissionLog
	gw     Gateway
}

// NewRunner creates a relay runner.
func NewRunner(source Source, ledger SubmissionLog, gw Gateway) *Runner {
	return &Runner{source: source, ledger: ledger, gw: gw}
}

// Run performs one relay pass. Per-file fetch and submit failures are logged
// and counted but do not stop the pass; those files retry next run because
// they never reach the ledger.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	entries, err := r.source.List(ctx)
	if err != nil {
		return Stats{}, eris.Wrap(err, "relay: list drop directory")
	}

	log := zap.L().With(zap.String("component", "relay"))
	stats := Stats{Listed: len(entries)}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		seen, err := r.ledger.Seen(ctx, e.Path)
		if err != nil {
			return stats, err
		}
		if seen {
			stats.Skipped++
			continue
		}

		data, err := r.source.Fetch(ctx, e.Path)
		if err != nil {
			log.Warn("relay: fetch failed", zap.String("path", e.Path), zap.Error(err))
			stats.Failed++
			continue
		}

		paths, err := r.gw.Submit(ctx, path.Base(e.Path), data)
		if err != nil {
			log.Warn("relay: submit failed", zap.String("path", e.Path), zap.Error(err))
			stats.Failed++
			continue
		}

		gatewayPath := ""
		if len(paths) > 0 {
			gatewayPath = paths[0]
		}
		if err := r.ledger.Record(ctx, e.Path, int64(len(data)), gatewayPath); err != nil {
			// The upload is already accepted; a missed ledger write costs at
			// most one duplicate submission next run.
			log.Warn("relay: ledger record failed", zap.String("path", e.Path), zap.Error(err))
		}
		stats.Submitted++

		log.Info("relay: submitted",
			zap.String("path", e.Path),
			zap.String("stored_as", gatewayPath),
			zap.Int("bytes", len(data)),
		)
	}

	log.Info("relay run complete",
		zap.Int("listed", stats.Listed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("submitted", stats.Submitted),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}
