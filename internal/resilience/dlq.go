package resilience

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadsnap/internal/db"
)

// DLQEntry is a journal row for a queue message that permanently failed
// processing. Entries are diagnostic: operators inspect them and re-enqueue
// by hand.
type DLQEntry struct {
	ID        int64     `json:"id" db:"id"`
	Queue     string    `json:"queue" db:"queue"`
	MsgID     int64     `json:"msg_id" db:"msg_id"`
	Payload   []byte    `json:"payload" db:"payload"`
	Error     string    `json:"error" db:"error"`
	ErrorKind string    `json:"error_kind" db:"error_kind"` // "transient" or "permanent"
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ClassifyError categorizes an error as "transient" or "permanent".
func ClassifyError(err error) string {
	if IsTransient(err) {
		return "transient"
	}
	return "permanent"
}

// Journal records permanently failed queue messages in pipeline_dlq.
type Journal struct {
	pool db.Pool
}

// NewJournal creates a DLQ journal over the shared pool.
func NewJournal(pool db.Pool) *Journal {
	return &Journal{pool: pool}
}

// Record writes a journal row for a failed message. Write failures are
// logged, never returned: the journal is best-effort and must not mask the
// original processing error.
func (j *Journal) Record(ctx context.Context, queue string, msgID int64, payload []byte, procErr error) {
	_, err := j.pool.Exec(ctx,
		`INSERT INTO pipeline_dlq (queue, msg_id, payload, error, error_kind)
		 VALUES ($1, $2, $3, $4, $5)`,
		queue, msgID, payload, procErr.Error(), ClassifyError(procErr),
	)
	if err != nil {
		zap.L().Error("resilience: record dlq entry",
			zap.String("queue", queue),
			zap.Int64("msg_id", msgID),
			zap.Error(err),
		)
	}
}

// Count returns the number of journal rows, across all queues when queue is
// empty.
func (j *Journal) Count(ctx context.Context, queue string) (int64, error) {
	var n int64
	var err error
	if queue == "" {
		err = j.pool.QueryRow(ctx, `SELECT count(*) FROM pipeline_dlq`).Scan(&n)
	} else {
		err = j.pool.QueryRow(ctx, `SELECT count(*) FROM pipeline_dlq WHERE queue = $1`, queue).Scan(&n)
	}
	if err != nil {
		return 0, eris.Wrap(err, "resilience: count dlq entries")
	}
	return n, nil
}

// List returns the most recent entries for a queue, newest first.
func (j *Journal) List(ctx context.Context, queue string, limit int) ([]DLQEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.pool.Query(ctx,
		`SELECT id, queue, msg_id, payload, error, error_kind, created_at
		 FROM pipeline_dlq WHERE queue = $1 ORDER BY created_at DESC LIMIT $2`,
		queue, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "resilience: list dlq entries")
	}
	defer rows.Close()

	var entries []DLQEntry
	for rows.Next() {
		var e DLQEntry
		if err := rows.Scan(&e.ID, &e.Queue, &e.MsgID, &e.Payload, &e.Error, &e.ErrorKind, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "resilience: scan dlq entry")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "resilience: iterate dlq entries")
	}
	return entries, nil
}
