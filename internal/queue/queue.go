// Package queue implements the persistent work queue backing the pipeline
// workers. Each named queue is a pair of Postgres tables: a live table
// (q_<name>) and an archive table (a_<name>) retained for auditing. Delivery
// is at-least-once: a read hides a message behind a visibility timeout, and a
// consumer crash simply lets the timeout lapse and the message reappear.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadsnap/internal/db"
)

// Message is one delivered queue entry. Payload is the opaque JSON the
// producer enqueued; ReadCount starts at 1 on first delivery.
type Message struct {
	ID         int64           `json:"msg_id"`
	ReadCount  int64           `json:"read_ct"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	VisibleAt  time.Time       `json:"vt"`
	Payload    json.RawMessage `json:"message"`
}

// Metrics reports the state of one queue for observability.
type Metrics struct {
	Visible   int64 `json:"visible"`
	Invisible int64 `json:"invisible"`
	Archived  int64 `json:"archived"`
}

// Queue issues send/read/delete/archive operations against named queues
// sharing one database pool. Consumers must treat delivery as idempotent.
type Queue struct {
	pool db.Pool
}

// New creates a Queue over the given pool.
func New(pool db.Pool) *Queue {
	return &Queue{pool: pool}
}

// validName restricts queue names to safe identifier characters since they
// are interpolated into table names.
var validName = regexp.MustCompile(`^[a-z][a-z0-9_]{0,46}$`)

func tableNames(name string) (live, archive string, err error) {
	if !validName.MatchString(name) {
		return "", "", eris.Errorf("queue: invalid queue name %q", name)
	}
	return pgx.Identifier{"q_" + name}.Sanitize(), pgx.Identifier{"a_" + name}.Sanitize(), nil
}

// Create provisions the live and archive tables for a queue. Safe to call
// repeatedly.
func (q *Queue) Create(ctx context.Context, name string) error {
	live, archive, err := tableNames(name)
	if err != nil {
		return err
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			msg_id      BIGSERIAL PRIMARY KEY,
			read_ct     BIGINT NOT NULL DEFAULT 0,
			enqueued_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			vt          TIMESTAMPTZ NOT NULL,
			message     JSONB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS %[3]s ON %[1]s (vt);
		CREATE TABLE IF NOT EXISTS %[2]s (
			msg_id      BIGINT PRIMARY KEY,
			read_ct     BIGINT NOT NULL,
			enqueued_at TIMESTAMPTZ NOT NULL,
			archived_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			message     JSONB NOT NULL
		);`,
		live, archive, pgx.Identifier{"q_" + name + "_vt_idx"}.Sanitize(),
	)
	if _, err := q.pool.Exec(ctx, ddl); err != nil {
		return eris.Wrapf(err, "queue: create %s", name)
	}
	return nil
}

// Send enqueues one payload, optionally delayed, and returns its message id.
func (q *Queue) Send(ctx context.Context, name string, payload any, delay time.Duration) (int64, error) {
	ids, err := q.SendBatch(ctx, name, []any{payload}, delay)
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// SendBatch enqueues several payloads in one statement and returns their ids
// in input order.
func (q *Queue) SendBatch(ctx context.Context, name string, payloads []any, delay time.Duration) ([]int64, error) {
	if len(payloads) == 0 {
		return nil, nil
	}
	live, _, err := tableNames(name)
	if err != nil {
		return nil, err
	}

	encoded := make([][]byte, len(payloads))
	for i, p := range payloads {
		b, err := json.Marshal(p)
		if err != nil {
			return nil, eris.Wrapf(err, "queue: marshal payload %d for %s", i, name)
		}
		encoded[i] = b
	}

	sql := fmt.Sprintf(`
		INSERT INTO %s (vt, message)
		SELECT clock_timestamp() + make_interval(secs => $1), unnest($2::jsonb[])
		RETURNING msg_id`,
		live,
	)
	rows, err := q.pool.Query(ctx, sql, delay.Seconds(), encoded)
	if err != nil {
		return nil, eris.Wrapf(err, "queue: send to %s", name)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrapf(err, "queue: scan send result for %s", name)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "queue: send to %s", name)
	}
	return ids, nil
}

// Read claims up to limit visible messages and hides each behind the
// visibility timeout. The claim and the hide happen in one statement so
// concurrent readers never receive the same message inside a window.
func (q *Queue) Read(ctx context.Context, name string, vt time.Duration, limit int) ([]Message, error) {
	live, _, err := tableNames(name)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 1
	}

	sql := fmt.Sprintf(`
		WITH claimed AS (
			SELECT msg_id
			FROM %[1]s
			WHERE vt <= clock_timestamp()
			ORDER BY msg_id
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE %[1]s t
		SET vt = clock_timestamp() + make_interval(secs => $2),
		    read_ct = read_ct + 1
		FROM claimed
		WHERE t.msg_id = claimed.msg_id
		RETURNING t.msg_id, t.read_ct, t.enqueued_at, t.vt, t.message`,
		live,
	)
	rows, err := q.pool.Query(ctx, sql, limit, vt.Seconds())
	if err != nil {
		return nil, eris.Wrapf(err, "queue: read from %s", name)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ReadCount, &m.EnqueuedAt, &m.VisibleAt, &m.Payload); err != nil {
			return nil, eris.Wrapf(err, "queue: scan message from %s", name)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "queue: read from %s", name)
	}
	return msgs, nil
}

// Delete permanently removes a message. Returns false when the message id is
// unknown (already deleted or archived).
func (q *Queue) Delete(ctx context.Context, name string, msgID int64) (bool, error) {
	live, _, err := tableNames(name)
	if err != nil {
		return false, err
	}

	tag, err := q.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE msg_id = $1`, live), msgID)
	if err != nil {
		return false, eris.Wrapf(err, "queue: delete %d from %s", msgID, name)
	}
	return tag.RowsAffected() > 0, nil
}

// Archive moves a message into the queue's audit table instead of deleting
// it. Returns false when the message id is unknown.
func (q *Queue) Archive(ctx context.Context, name string, msgID int64) (bool, error) {
	live, archive, err := tableNames(name)
	if err != nil {
		return false, err
	}

	sql := fmt.Sprintf(`
		WITH moved AS (
			DELETE FROM %s WHERE msg_id = $1
			RETURNING msg_id, read_ct, enqueued_at, message
		)
		INSERT INTO %s (msg_id, read_ct, enqueued_at, message)
		SELECT msg_id, read_ct, enqueued_at, message FROM moved`,
		live, archive,
	)
	tag, err := q.pool.Exec(ctx, sql, msgID)
	if err != nil {
		return false, eris.Wrapf(err, "queue: archive %d from %s", msgID, name)
	}
	return tag.RowsAffected() > 0, nil
}

// CollectMetrics counts visible, in-flight, and archived messages for a queue.
func (q *Queue) CollectMetrics(ctx context.Context, name string) (*Metrics, error) {
	live, archive, err := tableNames(name)
	if err != nil {
		return nil, err
	}

	var m Metrics
	sql := fmt.Sprintf(`
		SELECT
			(SELECT count(*) FROM %[1]s WHERE vt <= clock_timestamp()),
			(SELECT count(*) FROM %[1]s WHERE vt > clock_timestamp()),
			(SELECT count(*) FROM %[2]s)`,
		live, archive,
	)
	if err := q.pool.QueryRow(ctx, sql).Scan(&m.Visible, &m.Invisible, &m.Archived); err != nil {
		return nil, eris.Wrapf(err, "queue: metrics for %s", name)
	}
	return &m, nil
}
