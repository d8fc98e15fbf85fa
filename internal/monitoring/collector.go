// Package monitoring aggregates pipeline state for the status endpoint and
// the status command: row counts per lifecycle status, queue depths, and
// dead-letter volume.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadsnap/internal/db"
	"github.com/sells-group/leadsnap/internal/queue"
)

// Snapshot holds a point-in-time view of the pipeline.
type Snapshot struct {
	Photos    map[string]int64         `json:"photos_by_status"`
	Companies map[string]int64         `json:"companies_by_status"`
	Contacts  map[string]int64         `json:"contacts_by_status"`
	Queues    map[string]queue.Metrics `json:"queues"`
	DLQ       map[string]int64         `json:"dlq_by_queue"`

	CollectedAt time.Time `json:"collected_at"`
}

// QueueMetrics abstracts the queue stats call so tests can stub it.
type QueueMetrics interface {
	CollectMetrics(ctx context.Context, name string) (*queue.Metrics, error)
}

// DLQCounter abstracts the dead-letter journal depth call.
type DLQCounter interface {
	Count(ctx context.Context, queue string) (int64, error)
}

// Collector gathers a Snapshot from the database and the queues.
type Collector struct {
	pool       db.Pool
	queues     QueueMetrics
	dlq        DLQCounter
	queueNames []string
}

// NewCollector creates a collector over the shared pool. queueNames lists
// every queue to report on.
func NewCollector(pool db.Pool, queues QueueMetrics, dlq DLQCounter, queueNames []string) *Collector {
	return &Collector{pool: pool, queues: queues, dlq: dlq, queueNames: queueNames}
}

// Collect gathers the snapshot. Queue tables that do not exist yet (fresh
// database before migrate) surface as errors; callers decide severity.
func (c *Collector) Collect(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		Queues:      make(map[string]queue.Metrics, len(c.queueNames)),
		DLQ:         make(map[string]int64, len(c.queueNames)),
		CollectedAt: time.Now().UTC(),
	}

	var err error
	if snap.Photos, err = c.countByStatus(ctx, "photos"); err != nil {
		return nil, err
	}
	if snap.Companies, err = c.countByStatus(ctx, "companies"); err != nil {
		return nil, err
	}
	if snap.Contacts, err = c.countByStatus(ctx, "contacts"); err != nil {
		return nil, err
	}

	for _, name := range c.queueNames {
		m, err := c.queues.CollectMetrics(ctx, name)
		if err != nil {
			return nil, eris.Wrapf(err, "monitoring: queue metrics %s", name)
		}
		snap.Queues[name] = *m

		depth, err := c.dlq.Count(ctx, name)
		if err != nil {
			return nil, eris.Wrapf(err, "monitoring: dlq depth %s", name)
		}
		snap.DLQ[name] = depth
	}

	return snap, nil
}

// statusTables whitelists the GROUP BY targets; table names cannot be bound
// as parameters.
var statusTables = map[string]string{
	"photos":    "SELECT status, COUNT(*) FROM photos GROUP BY status",
	"companies": "SELECT status, COUNT(*) FROM companies GROUP BY status",
	"contacts":  "SELECT status, COUNT(*) FROM contacts GROUP BY status",
}

func (c *Collector) countByStatus(ctx context.Context, table string) (map[string]int64, error) {
	q, ok := statusTables[table]
	if !ok {
		return nil, eris.Errorf("monitoring: unknown table %s", table)
	}

	rows, err := c.pool.Query(ctx, q)
	if err != nil {
		return nil, eris.Wrapf(err, "monitoring: count %s", table)
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrapf(err, "monitoring: scan %s counts", table)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "monitoring: iterate %s counts", table)
	}
	return counts, nil
}
