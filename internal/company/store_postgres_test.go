package company

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresStore(mock), mock
}

var companyCols = []string{
	"id", "name", "normalized_name", "emails", "phones", "industries",
	"city", "state", "website", "revenue", "sic_codes", "naics_codes",
	"primary_industry", "zoominfo_id", "status", "created_at", "updated_at",
}

func companyMockRows(c Company) *pgxmock.Rows {
	return pgxmock.NewRows(companyCols).AddRow(
		c.ID, c.Name, c.NormalizedName, c.Emails, c.Phones, c.Industries,
		c.City, c.State, c.Website, c.Revenue, c.SICCodes, c.NAICSCodes,
		c.PrimaryIndustry, c.ZoomInfoID, c.Status, c.CreatedAt, c.UpdatedAt,
	)
}

func TestGetCompany(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM companies WHERE id=\$1`).
		WithArgs(int64(7)).
		WillReturnRows(companyMockRows(Company{
			ID: 7, Name: "Acme Plumbing", NormalizedName: "acme plumbing",
			Emails: []string{"info@acme.com"}, Phones: []string{}, Industries: []string{},
			SICCodes: []string{}, NAICSCodes: []string{}, Status: StatusEnriching,
			CreatedAt: now, UpdatedAt: now,
		}))

	c, err := store.GetCompany(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, int64(7), c.ID)
	assert.Equal(t, "acme plumbing", c.NormalizedName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCompany_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM companies WHERE id=\$1`).
		WithArgs(int64(99)).
		WillReturnError(pgx.ErrNoRows)

	c, err := store.GetCompany(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetStatus(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE companies SET status=\$2, updated_at=now\(\) WHERE id=\$1`).
		WithArgs(int64(3), StatusProcessed).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.SetStatus(context.Background(), 3, StatusProcessed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetEnrichment(t *testing.T) {
	store, mock := newMockStore(t)
	revenue := 3_500_000.0

	mock.ExpectExec(`UPDATE companies SET`).
		WithArgs(int64(3), "zi-123", &revenue, []string{"1711"}, []string{"238220"}, "Plumbing Contractors").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := store.SetEnrichment(context.Background(), 3, Enrichment{
		ZoomInfoID:      "zi-123",
		Revenue:         &revenue,
		SICCodes:        []string{"1711"},
		NAICSCodes:      []string{"238220"},
		PrimaryIndustry: "Plumbing Contractors",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetEnrichment_NilSlicesBecomeEmptyArrays(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE companies SET`).
		WithArgs(int64(3), "zi-123", (*float64)(nil), []string{}, []string{}, "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := store.SetEnrichment(context.Background(), 3, Enrichment{ZoomInfoID: "zi-123"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSentByNormalizedNames(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE companies SET status=\$2`).
		WithArgs([]string{"acme plumbing", "smith and jones"}, StatusSent).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	n, err := store.MarkSentByNormalizedNames(context.Background(),
		[]string{"acme plumbing", "smith and jones"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSentByNormalizedNames_Empty(t *testing.T) {
	store, mock := newMockStore(t)

	n, err := store.MarkSentByNormalizedNames(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertContact(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO contacts`).
		WithArgs(int64(3), "Pat", "", "Riley", "Owner",
			"pat@acme.com", "+15035550100", "zi-c-9", ContactGeneratingMessage).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(41), now, now))

	c := &Contact{
		CompanyID: 3, FirstName: "Pat", LastName: "Riley", Title: "Owner",
		Email: "pat@acme.com", Phone: "+15035550100", ZoomInfoID: "zi-c-9",
		Status: ContactGeneratingMessage,
	}
	require.NoError(t, store.UpsertContact(context.Background(), c))
	assert.Equal(t, int64(41), c.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertContacts_Empty(t *testing.T) {
	store, mock := newMockStore(t)

	n, err := store.InsertContacts(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertContacts_BulkPath(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_staging_contacts"`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_staging_contacts"}, []string{
		"company_id", "first_name", "middle_name", "last_name", "title",
		"email", "phone", "zoominfo_id", "status",
	}).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "contacts" .+ ON CONFLICT \("zoominfo_id"\) DO UPDATE SET`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := store.InsertContacts(context.Background(), []Contact{
		{CompanyID: 3, FirstName: "A", ZoomInfoID: "zi-1", Status: ContactNonExecutive},
		{CompanyID: 3, FirstName: "B", ZoomInfoID: "zi-2", Status: ContactNonExecutive},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetContacts(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM contacts WHERE company_id=\$1`).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "company_id", "first_name", "middle_name", "last_name", "title",
			"email", "phone", "zoominfo_id", "status", "email_subject", "email_body",
			"created_at", "updated_at",
		}).
			AddRow(int64(1), int64(3), "Pat", "", "Riley", "Owner",
				"pat@acme.com", "+15035550100", "zi-c-9", ContactGeneratingMessage, "", "", now, now).
			AddRow(int64(2), int64(3), "Lee", "", "Park", "Dispatcher",
				"", "", "zi-c-10", ContactNonExecutive, "", "", now, now))

	contacts, err := store.GetContacts(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "Pat", contacts[0].FirstName)
	assert.Equal(t, ContactNonExecutive, contacts[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
