package enrich

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadsnap/internal/company"
	"github.com/sells-group/leadsnap/internal/config"
	"github.com/sells-group/leadsnap/internal/queue"
	"github.com/sells-group/leadsnap/internal/resilience"
	"github.com/sells-group/leadsnap/pkg/zoominfo"
)

type sentPayload struct {
	queue   string
	payload any
}

type fakeQueue struct {
	msgs     []queue.Message
	deleted  []int64
	archived []int64
	sent     []sentPayload
}

func (f *fakeQueue) Read(context.Context, string, time.Duration, int) ([]queue.Message, error) {
	return f.msgs, nil
}

func (f *fakeQueue) Send(_ context.Context, name string, payload any, _ time.Duration) (int64, error) {
	f.sent = append(f.sent, sentPayload{queue: name, payload: payload})
	return int64(len(f.sent)), nil
}

func (f *fakeQueue) Delete(_ context.Context, _ string, msgID int64) (bool, error) {
	f.deleted = append(f.deleted, msgID)
	return true, nil
}

func (f *fakeQueue) Archive(_ context.Context, _ string, msgID int64) (bool, error) {
	f.archived = append(f.archived, msgID)
	return true, nil
}

type fakeStore struct {
	companies  map[int64]*company.Company
	statuses   map[int64]string
	enrichment map[int64]company.Enrichment
	inserted   []company.Contact
	upserted   []company.Contact
}

func newFakeStore(companies ...*company.Company) *fakeStore {
	f := &fakeStore{
		companies:  map[int64]*company.Company{},
		statuses:   map[int64]string{},
		enrichment: map[int64]company.Enrichment{},
	}
	for _, c := range companies {
		f.companies[c.ID] = c
	}
	return f
}

func (f *fakeStore) Upsert(context.Context, company.Candidate) (*company.Company, company.Outcome, error) {
	return nil, "", nil
}

func (f *fakeStore) GetCompany(_ context.Context, id int64) (*company.Company, error) {
	return f.companies[id], nil
}

func (f *fakeStore) SetStatus(_ context.Context, id int64, status string) error {
	f.statuses[id] = status
	return nil
}

func (f *fakeStore) SetEnrichment(_ context.Context, id int64, e company.Enrichment) error {
	f.enrichment[id] = e
	return nil
}

func (f *fakeStore) MarkSentByNormalizedNames(context.Context, []string) (int64, error) {
	return 0, nil
}

func (f *fakeStore) UpsertContact(_ context.Context, c *company.Contact) error {
	f.upserted = append(f.upserted, *c)
	return nil
}

func (f *fakeStore) InsertContacts(_ context.Context, contacts []company.Contact) (int64, error) {
	f.inserted = append(f.inserted, contacts...)
	return int64(len(contacts)), nil
}

func (f *fakeStore) GetContacts(context.Context, int64) ([]company.Contact, error) {
	return nil, nil
}

type journalEntry struct {
	queue string
	msgID int64
}

type fakeJournal struct {
	entries []journalEntry
}

func (f *fakeJournal) Record(_ context.Context, queue string, msgID int64, _ []byte, _ error) {
	f.entries = append(f.entries, journalEntry{queue: queue, msgID: msgID})
}

func enrichMessage(id, readCount, companyID int64) queue.Message {
	payload, _ := json.Marshal(Job{CompanyID: companyID})
	return queue.Message{ID: id, ReadCount: readCount, Payload: payload}
}

func testQueues() config.QueueConfig {
	return config.QueueConfig{PhotoProc: "photo_proc", ContactEnrich: "contact_enrich", MsgGen: "msg_gen"}
}

func newTestWorker(q *fakeQueue, store *fakeStore, vendor *fakeVendor, j *fakeJournal) *Worker {
	deps := Deps{Queue: q, Companies: store, Vendor: vendor, Journal: j}
	cfg := config.EnrichConfig{BatchSize: 5, VisibilitySecs: 300, MaxConcurrentJobs: 2, MinRevenue: 2_000_000}
	return NewWorker(deps, testQueues(), cfg, nil)
}

func enrichedOwner(personID, vendorID int64, revenue float64) zoominfo.EnrichedContact {
	return zoominfo.EnrichedContact{
		ID:        personID,
		FirstName: "Pat",
		LastName:  "Acme",
		JobTitle:  "Owner",
		Email:     "pat@acmeplumbing.com",
		Phone:     "(503) 234-5678",
		Company: zoominfo.EnrichedCompany{
			ID:      vendorID,
			Name:    "Acme Plumbing Inc",
			Revenue: revenue,
			SICCodes: []zoominfo.IndustryCode{
				{ID: "1711", Name: "Plumbing, Heating and Air-Conditioning"},
			},
			NAICSCodes: []zoominfo.IndustryCode{
				{ID: "23", Name: "Construction"},
				{ID: "238220", Name: "Plumbing, Heating, and Air-Conditioning Contractors"},
			},
		},
	}
}

func TestRunOnce_EnrichesCompanyEndToEnd(t *testing.T) {
	store := newFakeStore(fullCompany())
	vendor := &fakeVendor{
		searchResults: [][]zoominfo.CompanyResult{{{ID: 9001}}},
		contacts: []zoominfo.ContactResult{
			{ID: 1, FirstName: "Pat", LastName: "Acme", JobTitle: "Owner"},
			{ID: 2, FirstName: "Sam", LastName: "Field", JobTitle: "Technician"},
		},
		enriched: []zoominfo.EnrichedContact{enrichedOwner(1, 9001, 5_000_000)},
	}
	q := &fakeQueue{msgs: []queue.Message{enrichMessage(11, 1, 42)}}
	journal := &fakeJournal{}

	w := newTestWorker(q, store, vendor, journal)
	stats, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchStats{Read: 1, Succeeded: 1, Failed: 0}, stats)

	// Non-executive stored as-is.
	require.Len(t, store.inserted, 1)
	assert.Equal(t, "Technician", store.inserted[0].Title)
	assert.Equal(t, company.ContactNonExecutive, store.inserted[0].Status)
	assert.Equal(t, "2", store.inserted[0].ZoomInfoID)

	// Executive enriched, phone in E.164, eligible for messaging.
	require.Len(t, store.upserted, 1)
	exec := store.upserted[0]
	assert.Equal(t, company.ContactGeneratingMessage, exec.Status)
	assert.Equal(t, "+15032345678", exec.Phone)
	assert.Equal(t, "pat@acmeplumbing.com", exec.Email)
	assert.Equal(t, "1", exec.ZoomInfoID)

	// Company-level facts persisted; most specific NAICS wins.
	enr := store.enrichment[42]
	assert.Equal(t, "9001", enr.ZoomInfoID)
	require.NotNil(t, enr.Revenue)
	assert.Equal(t, 5_000_000.0, *enr.Revenue)
	assert.Equal(t, []string{"1711"}, enr.SICCodes)
	assert.Equal(t, []string{"23", "238220"}, enr.NAICSCodes)
	assert.Equal(t, "Plumbing, Heating, and Air-Conditioning Contractors", enr.PrimaryIndustry)

	assert.Equal(t, company.StatusProcessed, store.statuses[42])

	// Downstream message generation queued per reachable executive.
	require.Len(t, q.sent, 1)
	assert.Equal(t, "msg_gen", q.sent[0].queue)
	assert.Equal(t, msgGenJob{ContactZoomInfoID: "1"}, q.sent[0].payload)

	assert.Equal(t, []int64{11}, q.deleted)
	assert.Empty(t, q.archived)
	assert.Empty(t, journal.entries)
}

func TestRunOnce_LowRevenueStillQueuesMessages(t *testing.T) {
	store := newFakeStore(fullCompany())
	vendor := &fakeVendor{
		searchResults: [][]zoominfo.CompanyResult{{{ID: 9001}}},
		contacts:      []zoominfo.ContactResult{{ID: 1, JobTitle: "Owner"}},
		enriched:      []zoominfo.EnrichedContact{enrichedOwner(1, 9001, 750_000)},
	}
	q := &fakeQueue{msgs: []queue.Message{enrichMessage(11, 1, 42)}}

	w := newTestWorker(q, store, vendor, &fakeJournal{})
	_, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, company.StatusLowRevenue, store.statuses[42])
	require.NotNil(t, store.enrichment[42].Revenue, "financials persisted on the low-revenue branch too")
	assert.Len(t, q.sent, 1)
}

func TestRunOnce_VendorNotFound(t *testing.T) {
	store := newFakeStore(fullCompany())
	vendor := &fakeVendor{} // every search stage misses
	q := &fakeQueue{msgs: []queue.Message{enrichMessage(11, 1, 42)}}

	w := newTestWorker(q, store, vendor, &fakeJournal{})
	stats, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Succeeded)

	assert.Equal(t, company.StatusNotFound, store.statuses[42])
	assert.Equal(t, []int64{11}, q.deleted)
}

func TestRunOnce_NoContacts(t *testing.T) {
	store := newFakeStore(fullCompany())
	vendor := &fakeVendor{searchResults: [][]zoominfo.CompanyResult{{{ID: 9001}}}}
	q := &fakeQueue{msgs: []queue.Message{enrichMessage(11, 1, 42)}}

	w := newTestWorker(q, store, vendor, &fakeJournal{})
	_, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, company.StatusContactsFailed, store.statuses[42])
	assert.Equal(t, []int64{11}, q.deleted)
	assert.Empty(t, q.sent, "nothing reaches msg_gen without contacts")
}

func TestRunOnce_NoExecutives(t *testing.T) {
	store := newFakeStore(fullCompany())
	vendor := &fakeVendor{
		searchResults: [][]zoominfo.CompanyResult{{{ID: 9001}}},
		contacts: []zoominfo.ContactResult{
			{ID: 2, JobTitle: "Technician"},
			{ID: 3, JobTitle: "Vice President"},
		},
	}
	q := &fakeQueue{msgs: []queue.Message{enrichMessage(11, 1, 42)}}

	w := newTestWorker(q, store, vendor, &fakeJournal{})
	_, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, company.StatusNoExecs, store.statuses[42])
	assert.Len(t, store.inserted, 2, "non-executives are still recorded")
	assert.Empty(t, store.upserted)
	assert.Empty(t, q.sent)
}

func TestRunOnce_UnreachableExecutiveGetsNoContactStatus(t *testing.T) {
	store := newFakeStore(fullCompany())
	unreachable := enrichedOwner(1, 9001, 5_000_000)
	unreachable.Email = ""
	unreachable.Phone = ""
	unreachable.MobilePhone = ""

	vendor := &fakeVendor{
		searchResults: [][]zoominfo.CompanyResult{{{ID: 9001}}},
		contacts:      []zoominfo.ContactResult{{ID: 1, JobTitle: "Owner"}},
		enriched:      []zoominfo.EnrichedContact{unreachable},
	}
	q := &fakeQueue{msgs: []queue.Message{enrichMessage(11, 1, 42)}}

	w := newTestWorker(q, store, vendor, &fakeJournal{})
	_, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, store.upserted, 1)
	assert.Equal(t, company.ContactNoContact, store.upserted[0].Status)
	assert.Empty(t, q.sent, "unreachable contacts never hit msg_gen")
	assert.Equal(t, company.StatusProcessed, store.statuses[42])
}

func TestRunOnce_MissingCompanyArchives(t *testing.T) {
	q := &fakeQueue{msgs: []queue.Message{enrichMessage(11, 1, 404)}}
	w := newTestWorker(q, newFakeStore(), &fakeVendor{}, &fakeJournal{})

	stats, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Succeeded)
	assert.Equal(t, []int64{11}, q.archived)
	assert.Empty(t, q.deleted)
}

func TestRunOnce_SettledCompanyDropsRedelivery(t *testing.T) {
	comp := fullCompany()
	comp.Status = company.StatusProcessed
	store := newFakeStore(comp)
	vendor := &fakeVendor{}
	q := &fakeQueue{msgs: []queue.Message{enrichMessage(11, 2, 42)}}

	w := newTestWorker(q, store, vendor, &fakeJournal{})
	_, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Empty(t, vendor.searchInputs, "no vendor spend on settled companies")
	assert.Equal(t, []int64{11}, q.deleted)
}

func TestRunOnce_UnexpectedErrorParksCompanyOnError(t *testing.T) {
	store := newFakeStore(fullCompany())
	vendor := &fakeVendor{
		searchResults: [][]zoominfo.CompanyResult{{{ID: 9001}}},
		contactsErr:   eris.New("zoominfo: contact search: status 400"),
	}
	q := &fakeQueue{msgs: []queue.Message{enrichMessage(11, 1, 42)}}
	journal := &fakeJournal{}

	w := newTestWorker(q, store, vendor, journal)
	stats, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Failed)

	assert.Equal(t, company.StatusError, store.statuses[42])
	assert.Equal(t, []int64{11}, q.archived, "errors archive for audit, never delete")
	assert.Empty(t, q.deleted)
	require.Len(t, journal.entries, 1)
	assert.Equal(t, journalEntry{queue: "contact_enrich", msgID: 11}, journal.entries[0])
}

func TestRunOnce_TransientErrorLeavesMessageForRedelivery(t *testing.T) {
	store := newFakeStore(fullCompany())
	vendor := &fakeVendor{
		searchErr: resilience.NewTransientError(eris.New("zoominfo: 503"), 503),
	}
	q := &fakeQueue{msgs: []queue.Message{enrichMessage(11, 1, 42)}}
	journal := &fakeJournal{}

	w := newTestWorker(q, store, vendor, journal)
	stats, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Failed)

	assert.Empty(t, q.deleted)
	assert.Empty(t, q.archived)
	assert.Empty(t, journal.entries)
	assert.NotEqual(t, company.StatusError, store.statuses[42])
}

func TestRunOnce_SuppliedVendorIDSkipsSearch(t *testing.T) {
	store := newFakeStore(fullCompany())
	vendor := &fakeVendor{
		contacts: []zoominfo.ContactResult{{ID: 1, JobTitle: "Owner"}},
		enriched: []zoominfo.EnrichedContact{enrichedOwner(1, 9001, 5_000_000)},
	}
	payload, _ := json.Marshal(Job{CompanyID: 42, ZoomInfoID: "9001"})
	q := &fakeQueue{msgs: []queue.Message{{ID: 11, ReadCount: 1, Payload: payload}}}

	w := newTestWorker(q, store, vendor, &fakeJournal{})
	_, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Empty(t, vendor.searchInputs, "supplied vendor id bypasses the cascade")
	assert.Equal(t, company.StatusProcessed, store.statuses[42])
}

func TestRunOnce_MalformedPayloadIsJournaledAndSettled(t *testing.T) {
	q := &fakeQueue{msgs: []queue.Message{{ID: 3, ReadCount: 1, Payload: json.RawMessage(`{}`)}}}
	journal := &fakeJournal{}

	w := newTestWorker(q, newFakeStore(), &fakeVendor{}, journal)
	stats, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Len(t, journal.entries, 1)
	assert.Equal(t, []int64{3}, q.deleted)
}

func TestFormatE164(t *testing.T) {
	assert.Equal(t, "+15032345678", formatE164("(503) 234-5678"))
	assert.Equal(t, "+15032345678", formatE164("503.234.5678"))
	assert.Equal(t, "+15032345678", formatE164("+1 503-234-5678"))
	assert.Equal(t, "", formatE164("   "))
	assert.Equal(t, "N/A", formatE164("N/A"), "unparseable values pass through")
}

func TestEnrichmentFromVendor_PicksEmployerBlockByVendorID(t *testing.T) {
	other := enrichedOwner(2, 7777, 1_000_000)
	match := enrichedOwner(1, 9001, 5_000_000)

	e := enrichmentFromVendor(9001, []zoominfo.EnrichedContact{other, match})
	assert.Equal(t, "9001", e.ZoomInfoID)
	require.NotNil(t, e.Revenue)
	assert.Equal(t, 5_000_000.0, *e.Revenue)
}

func TestEnrichmentFromVendor_NoRevenueLeavesNil(t *testing.T) {
	ec := enrichedOwner(1, 9001, 0)
	e := enrichmentFromVendor(9001, []zoominfo.EnrichedContact{ec})
	assert.Nil(t, e.Revenue)
	assert.Equal(t, "Plumbing, Heating, and Air-Conditioning Contractors", e.PrimaryIndustry)
}
