// Package extract drains the photo_proc queue: OCR each stored image,
// LLM-parse the text into a company candidate, and hand it to the dedup
// engine.
package extract

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadsnap/internal/company"
	"github.com/sells-group/leadsnap/internal/config"
	"github.com/sells-group/leadsnap/internal/ocr"
	"github.com/sells-group/leadsnap/internal/photo"
	"github.com/sells-group/leadsnap/internal/queue"
	"github.com/sells-group/leadsnap/internal/resilience"
	"github.com/sells-group/leadsnap/internal/storage"
	"github.com/sells-group/leadsnap/pkg/geocode"
)

// maxDeliveries caps redeliveries of a job whose failures look transient.
// Past this the failure is treated as terminal so a poison message cannot
// cycle forever.
const maxDeliveries = 3

// Job is the photo_proc payload: the object key the gateway stored the
// image under.
type Job struct {
	ImagePath string `json:"image_path"`
}

// enrichmentJob is the contact_enrich payload produced for new companies.
type enrichmentJob struct {
	CompanyID int64 `json:"company_id"`
}

// JobQueue is the slice of queue operations the worker uses.
type JobQueue interface {
	Read(ctx context.Context, name string, vt time.Duration, limit int) ([]queue.Message, error)
	Send(ctx context.Context, name string, payload any, delay time.Duration) (int64, error)
	Delete(ctx context.Context, name string, msgID int64) (bool, error)
	Archive(ctx context.Context, name string, msgID int64) (bool, error)
}

// FailureJournal records terminally failed jobs for manual review.
type FailureJournal interface {
	Record(ctx context.Context, queue string, msgID int64, payload []byte, procErr error)
}

// Deps bundles the collaborators the worker needs. Geocoder and Journal are
// optional; a nil geocoder skips the GPS fallback.
type Deps struct {
	Queue     JobQueue
	Photos    photo.Store
	Companies company.Store
	Objects   storage.ObjectStore
	OCR       ocr.Extractor
	Parser    *Parser
	Geocoder  geocode.ReverseGeocoder
	Journal   FailureJournal
}

// BatchStats summarizes one RunOnce pass.
type BatchStats struct {
	Read      int
	Succeeded int64
	Failed    int64
}

// Worker consumes photo_proc messages in settle-all batches.
type Worker struct {
	deps   Deps
	queues config.QueueConfig
	cfg    config.ExtractConfig
}

// NewWorker creates an extraction worker.
func NewWorker(deps Deps, queues config.QueueConfig, cfg config.ExtractConfig) *Worker {
	return &Worker{deps: deps, queues: queues, cfg: cfg}
}

// readGPS is swapped in tests; crafting valid EXIF blobs by hand is not
// worth the brittleness.
var readGPS = gpsCoordinates

// Run processes batches until ctx is cancelled, sleeping the poll interval
// whenever the queue comes up empty.
func (w *Worker) Run(ctx context.Context) error {
	interval := time.Duration(w.cfg.PollIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}

	log := zap.L().With(zap.String("component", "extract.worker"))
	log.Info("starting extraction worker",
		zap.Int("batch_size", w.batchSize()),
		zap.Duration("poll_interval", interval),
	)

	for {
		stats, err := w.RunOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("extraction worker stopped")
				return nil
			}
			log.Error("batch read failed", zap.Error(err))
		}
		if err == nil && stats.Read > 0 {
			continue // drain while work remains
		}

		select {
		case <-ctx.Done():
			log.Info("extraction worker stopped")
			return nil
		case <-time.After(interval):
		}
	}
}

// RunOnce reads one batch and settles every message in it. Per-job errors
// are counted, not returned; the error covers batch-level failures only.
func (w *Worker) RunOnce(ctx context.Context) (BatchStats, error) {
	msgs, err := w.deps.Queue.Read(ctx, w.queues.PhotoProc, w.visibility(), w.batchSize())
	if err != nil {
		return BatchStats{}, eris.Wrap(err, "extract: read batch")
	}

	stats := BatchStats{Read: len(msgs)}
	if len(msgs) == 0 {
		return stats, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency())

	var succeeded, failed atomic.Int64

	for _, msg := range msgs {
		g.Go(func() error {
			if err := w.process(gctx, msg); err != nil {
				failed.Add(1)
				zap.L().Error("extract: job failed",
					zap.Int64("msg_id", msg.ID),
					zap.Int64("read_ct", msg.ReadCount),
					zap.Error(err),
				)
				return nil // don't abort batch on individual failure
			}
			succeeded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	stats.Succeeded = succeeded.Load()
	stats.Failed = failed.Load()
	zap.L().Info("extract: batch complete",
		zap.Int("read", stats.Read),
		zap.Int64("succeeded", stats.Succeeded),
		zap.Int64("failed", stats.Failed),
	)
	return stats, nil
}

// process settles one message. Returning an error without deleting the
// message leaves it to the visibility timeout for redelivery.
func (w *Worker) process(ctx context.Context, msg queue.Message) error {
	var job Job
	if err := json.Unmarshal(msg.Payload, &job); err != nil || job.ImagePath == "" {
		if err == nil {
			err = eris.New("extract: payload missing image_path")
		}
		// A malformed payload can never succeed; journal it and settle.
		w.journal(ctx, msg, err)
		w.deleteMessage(ctx, msg.ID)
		return eris.Wrap(err, "extract: malformed payload")
	}

	log := zap.L().With(
		zap.Int64("msg_id", msg.ID),
		zap.String("image_path", job.ImagePath),
	)

	ph, err := w.deps.Photos.GetByObjectKey(ctx, job.ImagePath)
	if err != nil {
		return eris.Wrap(err, "extract: load photo")
	}
	if ph == nil {
		log.Warn("no photo row for queued path, archiving message")
		if _, err := w.deps.Queue.Archive(ctx, w.queues.PhotoProc, msg.ID); err != nil {
			return eris.Wrap(err, "extract: archive orphan message")
		}
		return nil
	}

	// Redelivery after a completed run: the work is done, settle quietly.
	if ph.Status == photo.StatusProcessed && ph.CompanyID != nil {
		log.Debug("photo already processed, settling redelivery")
		w.deleteMessage(ctx, msg.ID)
		return nil
	}

	if err := w.deps.Photos.SetStatus(ctx, ph.ID, photo.StatusProcessing); err != nil {
		return eris.Wrap(err, "extract: mark processing")
	}

	companyID, err := w.extract(ctx, ph, log)
	if err != nil {
		if resilience.IsTransient(err) && msg.ReadCount < maxDeliveries {
			return err // leave the message; vt expiry redelivers
		}
		if mErr := w.deps.Photos.MarkFailed(ctx, ph.ID, failReason(err)); mErr != nil {
			log.Error("mark failed errored", zap.Error(mErr))
		}
		w.journal(ctx, msg, err)
		w.deleteMessage(ctx, msg.ID)
		return err
	}

	if err := w.deps.Photos.MarkProcessed(ctx, ph.ID, companyID); err != nil {
		return eris.Wrap(err, "extract: mark processed")
	}
	w.deleteMessage(ctx, msg.ID)
	return nil
}

// extract runs the OCR → parse → geocode-fallback → upsert pipeline for one
// photo and returns the company it landed on.
func (w *Worker) extract(ctx context.Context, ph *photo.Photo, log *zap.Logger) (int64, error) {
	data, err := w.deps.Objects.Get(ctx, ph.ObjectKey)
	if err != nil {
		return 0, eris.Wrap(err, "extract: fetch object")
	}

	text, err := w.deps.OCR.ExtractText(ctx, data, ph.ContentType)
	if err != nil {
		return 0, eris.Wrap(err, "extract: ocr")
	}

	cand, err := w.deps.Parser.Parse(ctx, text)
	if err != nil {
		return 0, err
	}

	if cand.City == "" || cand.State == "" {
		w.fillLocation(ctx, data, &cand)
	}

	comp, outcome, err := w.deps.Companies.Upsert(ctx, cand)
	if err != nil {
		return 0, eris.Wrap(err, "extract: upsert company")
	}
	log.Info("company resolved",
		zap.Int64("company_id", comp.ID),
		zap.String("outcome", string(outcome)),
		zap.String("company", cand.Name),
	)

	if outcome == company.OutcomeInserted {
		if _, err := w.deps.Queue.Send(ctx, w.queues.ContactEnrich, enrichmentJob{CompanyID: comp.ID}, 0); err != nil {
			return 0, eris.Wrap(err, "extract: enqueue enrichment")
		}
	}
	return comp.ID, nil
}

// fillLocation fills empty city/state from EXIF GPS when the image has a
// fix. Best effort: any failure leaves the candidate unchanged.
func (w *Worker) fillLocation(ctx context.Context, image []byte, cand *company.Candidate) {
	if w.deps.Geocoder == nil {
		return
	}

	lat, lon, ok := readGPS(image)
	if !ok {
		return
	}

	res, err := w.deps.Geocoder.Reverse(ctx, lat, lon)
	if err != nil {
		zap.L().Debug("extract: reverse geocode failed",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err),
		)
		return
	}
	if res == nil {
		return
	}

	if cand.City == "" {
		cand.City = res.City
	}
	if cand.State == "" {
		cand.State = res.State
	}
}

func (w *Worker) journal(ctx context.Context, msg queue.Message, procErr error) {
	if w.deps.Journal == nil {
		return
	}
	w.deps.Journal.Record(ctx, w.queues.PhotoProc, msg.ID, msg.Payload, procErr)
}

func (w *Worker) deleteMessage(ctx context.Context, msgID int64) {
	if _, err := w.deps.Queue.Delete(ctx, w.queues.PhotoProc, msgID); err != nil {
		zap.L().Warn("extract: delete message failed",
			zap.Int64("msg_id", msgID),
			zap.Error(err),
		)
	}
}

func (w *Worker) batchSize() int {
	if w.cfg.BatchSize > 0 {
		return w.cfg.BatchSize
	}
	return 5
}

func (w *Worker) visibility() time.Duration {
	if w.cfg.VisibilitySecs > 0 {
		return time.Duration(w.cfg.VisibilitySecs) * time.Second
	}
	return time.Minute
}

func (w *Worker) concurrency() int {
	if w.cfg.MaxConcurrentJobs > 0 {
		return w.cfg.MaxConcurrentJobs
	}
	return 5
}

// failReason flattens an error chain into a column-sized diagnostic.
func failReason(err error) string {
	msg := err.Error()
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
