package relay

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Ledger records which remote drop files have already been submitted, so
// relay runs are idempotent across restarts. It lives next to the relay
// process as a SQLite file.
type Ledger struct {
	db *sql.DB
}

const ledgerMigration = `
CREATE TABLE IF NOT EXISTS submissions (
	remote_path  TEXT PRIMARY KEY,
	size_bytes   INTEGER NOT NULL,
	gateway_path TEXT,
	submitted_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_submissions_submitted_at ON submissions(submitted_at);
`

// OpenLedger opens (creating if needed) the submission ledger at path and
// configures WAL mode.
func OpenLedger(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "relay: open ledger")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "relay: exec %s", pragma)
		}
	}
	if _, err := db.Exec(ledgerMigration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "relay: migrate ledger")
	}
	return &Ledger{db: db}, nil
}

// Seen reports whether a remote file was already submitted.
func (l *Ledger) Seen(ctx context.Context, remotePath string) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx,
		`SELECT 1 FROM submissions WHERE remote_path = ?`, remotePath,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "relay: check ledger for %s", remotePath)
	}
	return true, nil
}

// Record marks a remote file as submitted and stores the gateway object key
// it landed under.
func (l *Ledger) Record(ctx context.Context, remotePath string, sizeBytes int64, gatewayPath string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO submissions (remote_path, size_bytes, gateway_path, submitted_at)
		 VALUES (?, ?, ?, ?)`,
		remotePath, sizeBytes, gatewayPath, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "relay: record %s", remotePath)
	}
	return nil
}

// Count returns the number of ledgered submissions.
func (l *Ledger) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "relay: count submissions")
	}
	return n, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
