// Package enrich drains the contact_enrich queue: resolve each company
// against the enrichment vendor, pull and classify its contacts, enrich the
// executives, and settle the company on a terminal status.
package enrich

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nyaruka/phonenumbers"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadsnap/internal/company"
	"github.com/sells-group/leadsnap/internal/config"
	"github.com/sells-group/leadsnap/internal/queue"
	"github.com/sells-group/leadsnap/internal/resilience"
	"github.com/sells-group/leadsnap/pkg/zoominfo"
)

// maxDeliveries caps redeliveries of a job whose failures look transient.
const maxDeliveries = 3

// Job is the contact_enrich payload. ZoomInfoID is optional; when present
// (sheet imports that already carry vendor ids) the search cascade is
// skipped.
type Job struct {
	CompanyID  int64  `json:"company_id"`
	ZoomInfoID string `json:"zoominfo_id,omitempty"`
}

// msgGenJob is the downstream message-generation payload, keyed by vendor
// contact id.
type msgGenJob struct {
	ContactZoomInfoID string `json:"contact_zoominfo_id"`
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

// Deps bundles the collaborators the worker needs. Journal is optional.
type Deps struct {
	Queue     JobQueue
	Companies company.Store
	Vendor    zoominfo.Client
	Journal   FailureJournal
}

// BatchStats summarizes one RunOnce pass.
type BatchStats struct {
	Read      int
	Succeeded int64
	Failed    int64
}

// Worker consumes contact_enrich messages in settle-all batches.
type Worker struct {
	deps    Deps
	queues  config.QueueConfig
	cfg     config.EnrichConfig
	cascade *Cascade
}

// NewWorker creates an enrichment worker. A nil cascade falls back to the
// built-in default.
func NewWorker(deps Deps, queues config.QueueConfig, cfg config.EnrichConfig, cascade *Cascade) *Worker {
	if cascade == nil {
		cascade = DefaultCascade()
	}
	return &Worker{deps: deps, queues: queues, cfg: cfg, cascade: cascade}
}

// Run processes batches until ctx is cancelled, sleeping the poll interval
// whenever the queue comes up empty.
func (w *Worker) Run(ctx context.Context) error {
	interval := time.Duration(w.cfg.PollIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}

	log := zap.L().With(zap.String("component", "enrich.worker"))
	log.Info("starting enrichment worker",
		zap.Int("batch_size", w.batchSize()),
		zap.Duration("poll_interval", interval),
		zap.Float64("min_revenue", w.minRevenue()),
	)

	for {
		stats, err := w.RunOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("enrichment worker stopped")
				return nil
			}
			log.Error("batch read failed", zap.Error(err))
		}
		if err == nil && stats.Read > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			log.Info("enrichment worker stopped")
			return nil
		case <-time.After(interval):
		}
	}
}

// RunOnce reads one batch and settles every message in it. One company's
// failure never aborts the batch.
func (w *Worker) RunOnce(ctx context.Context) (BatchStats, error) {
	msgs, err := w.deps.Queue.Read(ctx, w.queues.ContactEnrich, w.visibility(), w.batchSize())
	if err != nil {
		return BatchStats{}, eris.Wrap(err, "enrich: read batch")
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
				zap.L().Error("enrich: job failed",
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
	zap.L().Info("enrich: batch complete",
		zap.Int("read", stats.Read),
		zap.Int64("succeeded", stats.Succeeded),
		zap.Int64("failed", stats.Failed),
	)
	return stats, nil
}

// process settles one message. Unexpected errors park the company on
// status=error and archive the message for audit.
func (w *Worker) process(ctx context.Context, msg queue.Message) error {
	var job Job
	if err := json.Unmarshal(msg.Payload, &job); err != nil || job.CompanyID == 0 {
		if err == nil {
			err = eris.New("enrich: payload missing company_id")
		}
		w.journal(ctx, msg, err)
		w.deleteMessage(ctx, msg.ID)
		return eris.Wrap(err, "enrich: malformed payload")
	}

	log := zap.L().With(
		zap.Int64("msg_id", msg.ID),
		zap.Int64("company_id", job.CompanyID),
	)

	comp, err := w.deps.Companies.GetCompany(ctx, job.CompanyID)
	if err != nil {
		return eris.Wrap(err, "enrich: load company")
	}
	if comp == nil {
		log.Warn("no company row for queued id, archiving message")
		if _, err := w.deps.Queue.Archive(ctx, w.queues.ContactEnrich, msg.ID); err != nil {
			return eris.Wrap(err, "enrich: archive orphan message")
		}
		return nil
	}

	// Redelivery after the company already settled: nothing left to do.
	if comp.Status != company.StatusEnriching && comp.Status != company.StatusError {
		log.Debug("company already settled, dropping redelivery",
			zap.String("status", comp.Status))
		w.deleteMessage(ctx, msg.ID)
		return nil
	}

	if err := w.enrich(ctx, comp, job, log); err != nil {
		if resilience.IsTransient(err) && msg.ReadCount < maxDeliveries {
			return err // leave the message; vt expiry redelivers
		}
		if sErr := w.deps.Companies.SetStatus(ctx, comp.ID, company.StatusError); sErr != nil {
			log.Error("set error status failed", zap.Error(sErr))
		}
		w.journal(ctx, msg, err)
		if _, aErr := w.deps.Queue.Archive(ctx, w.queues.ContactEnrich, msg.ID); aErr != nil {
			log.Warn("archive failed message errored", zap.Error(aErr))
		}
		return err
	}

	w.deleteMessage(ctx, msg.ID)
	return nil
}

// enrich walks one company through the vendor: resolve, fetch contacts,
// classify, bulk-enrich executives, persist financials, queue messaging.
// Dead ends (not found, no contacts, no executives) settle the company on
// the matching status and return nil.
func (w *Worker) enrich(ctx context.Context, comp *company.Company, job Job, log *zap.Logger) error {
	vendorID, err := w.resolveVendorID(ctx, comp, job)
	if err != nil {
		if eris.Is(err, zoominfo.ErrNotFound) {
			return w.finish(ctx, comp.ID, company.StatusNotFound, log)
		}
		return err
	}
	log = log.With(zap.Int64("vendor_id", vendorID))

	contacts, err := w.deps.Vendor.SearchContacts(ctx, vendorID)
	if err != nil {
		return eris.Wrap(err, "enrich: search contacts")
	}
	if len(contacts) == 0 {
		return w.finish(ctx, comp.ID, company.StatusContactsFailed, log)
	}

	execs, nonExecs := splitExecutives(comp.ID, contacts)
	if len(nonExecs) > 0 {
		if _, err := w.deps.Companies.InsertContacts(ctx, nonExecs); err != nil {
			return eris.Wrap(err, "enrich: store non-executives")
		}
	}
	if len(execs) == 0 {
		return w.finish(ctx, comp.ID, company.StatusNoExecs, log)
	}

	ids := make([]int64, len(execs))
	for i, e := range execs {
		ids[i] = e.ID
	}
	enriched, err := w.deps.Vendor.EnrichContacts(ctx, ids, zoominfo.DefaultOutputFields)
	if err != nil {
		return eris.Wrap(err, "enrich: enrich contacts")
	}
	if len(enriched) == 0 {
		log.Warn("vendor matched no executives on enrich",
			zap.Int("requested", len(ids)))
		return w.finish(ctx, comp.ID, company.StatusContactsFailed, log)
	}

	var queued []string
	for _, ec := range enriched {
		contact := contactFromEnriched(comp.ID, ec)
		if err := w.deps.Companies.UpsertContact(ctx, &contact); err != nil {
			return eris.Wrap(err, "enrich: upsert contact")
		}
		if contact.Status == company.ContactGeneratingMessage {
			queued = append(queued, contact.ZoomInfoID)
		}
	}

	enr := enrichmentFromVendor(vendorID, enriched)
	if err := w.deps.Companies.SetEnrichment(ctx, comp.ID, enr); err != nil {
		return eris.Wrap(err, "enrich: persist enrichment")
	}

	status := company.StatusProcessed
	if enr.Revenue != nil && *enr.Revenue < w.minRevenue() {
		status = company.StatusLowRevenue
	}

	for _, contactID := range queued {
		if _, err := w.deps.Queue.Send(ctx, w.queues.MsgGen, msgGenJob{ContactZoomInfoID: contactID}, 0); err != nil {
			return eris.Wrap(err, "enrich: enqueue message generation")
		}
	}

	log.Info("company enriched",
		zap.String("status", status),
		zap.Int("executives", len(execs)),
		zap.Int("non_executives", len(nonExecs)),
		zap.Int("messages_queued", len(queued)),
	)
	return w.finish(ctx, comp.ID, status, log)
}

// resolveVendorID prefers ids already known (job payload, then the company
// row from a previous pass) before spending a search cascade.
func (w *Worker) resolveVendorID(ctx context.Context, comp *company.Company, job Job) (int64, error) {
	for _, raw := range []string{job.ZoomInfoID, comp.ZoomInfoID} {
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			zap.L().Warn("enrich: ignoring malformed vendor id",
				zap.Int64("company_id", comp.ID),
				zap.String("zoominfo_id", raw),
			)
			continue
		}
		return id, nil
	}
	return w.cascade.Resolve(ctx, w.deps.Vendor, comp)
}

// finish records a terminal status reached without error.
func (w *Worker) finish(ctx context.Context, companyID int64, status string, log *zap.Logger) error {
	if err := w.deps.Companies.SetStatus(ctx, companyID, status); err != nil {
		return eris.Wrapf(err, "enrich: set status %s", status)
	}
	log.Info("company settled", zap.String("status", status))
	return nil
}

// splitExecutives partitions a contact list by title. Non-executives come
// back as rows ready to insert.
func splitExecutives(companyID int64, contacts []zoominfo.ContactResult) ([]zoominfo.ContactResult, []company.Contact) {
	var execs []zoominfo.ContactResult
	var nonExecs []company.Contact

	for _, c := range contacts {
		if IsExecutive(c.JobTitle) {
			execs = append(execs, c)
			continue
		}
		nonExecs = append(nonExecs, company.Contact{
			CompanyID:  companyID,
			FirstName:  c.FirstName,
			MiddleName: c.MiddleName,
			LastName:   c.LastName,
			Title:      c.JobTitle,
			ZoomInfoID: strconv.FormatInt(c.ID, 10),
			Status:     company.ContactNonExecutive,
		})
	}
	return execs, nonExecs
}

// contactFromEnriched maps a vendor person record onto a contact row,
// deriving reachability status from the channels present.
func contactFromEnriched(companyID int64, ec zoominfo.EnrichedContact) company.Contact {
	phone := formatE164(ec.Phone)
	if phone == "" {
		phone = formatE164(ec.MobilePhone)
	}

	status := company.ContactGeneratingMessage
	if ec.Email == "" && phone == "" {
		status = company.ContactNoContact
	}

	return company.Contact{
		CompanyID:  companyID,
		FirstName:  ec.FirstName,
		MiddleName: ec.MiddleName,
		LastName:   ec.LastName,
		Title:      ec.JobTitle,
		Email:      strings.ToLower(strings.TrimSpace(ec.Email)),
		Phone:      phone,
		ZoomInfoID: strconv.FormatInt(ec.ID, 10),
		Status:     status,
	}
}

// formatE164 normalizes a vendor phone to E.164, defaulting to US numbering.
// Unparseable values pass through trimmed rather than being dropped.
func formatE164(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	num, err := phonenumbers.Parse(raw, "US")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return raw
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

// enrichmentFromVendor extracts the company-level facts from the employer
// block of the enriched contacts. primary_industry is the label of the
// longest (most specific) NAICS code.
func enrichmentFromVendor(vendorID int64, enriched []zoominfo.EnrichedContact) company.Enrichment {
	var block zoominfo.EnrichedCompany
	for _, ec := range enriched {
		if ec.Company.ID == vendorID {
			block = ec.Company
			break
		}
	}
	if block.ID == 0 {
		block = enriched[0].Company
	}

	e := company.Enrichment{ZoomInfoID: strconv.FormatInt(vendorID, 10)}
	if block.Revenue > 0 {
		rev := block.Revenue
		e.Revenue = &rev
	}

	for _, code := range block.SICCodes {
		e.SICCodes = append(e.SICCodes, code.ID)
	}

	var primary zoominfo.IndustryCode
	for _, code := range block.NAICSCodes {
		e.NAICSCodes = append(e.NAICSCodes, code.ID)
		if len(code.ID) > len(primary.ID) {
			primary = code
		}
	}
	e.PrimaryIndustry = primary.Name
	return e
}

func (w *Worker) journal(ctx context.Context, msg queue.Message, procErr error) {
	if w.deps.Journal == nil {
		return
	}
	w.deps.Journal.Record(ctx, w.queues.ContactEnrich, msg.ID, msg.Payload, procErr)
}

func (w *Worker) deleteMessage(ctx context.Context, msgID int64) {
	if _, err := w.deps.Queue.Delete(ctx, w.queues.ContactEnrich, msgID); err != nil {
		zap.L().Warn("enrich: delete message failed",
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
	return 5 * time.Minute
}

func (w *Worker) concurrency() int {
	if w.cfg.MaxConcurrentJobs > 0 {
		return w.cfg.MaxConcurrentJobs
	}
	return 5
}

func (w *Worker) minRevenue() float64 {
	if w.cfg.MinRevenue > 0 {
		return w.cfg.MinRevenue
	}
	return 2_000_000
}
