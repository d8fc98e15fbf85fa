package company

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadsnap/internal/db"
)

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// GetCompany fetches a company by ID.
func (s *PostgresStore) GetCompany(ctx context.Context, id int64) (*Company, error) {
	c := &Company{}
	err := s.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id=$1`, id).
		Scan(companyDests(c)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "company: get %d", id)
	}
	return c, nil
}

// SetStatus moves a company to a lifecycle status.
func (s *PostgresStore) SetStatus(ctx context.Context, id int64, status string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE companies SET status=$2, updated_at=now() WHERE id=$1`, id, status)
	if err != nil {
		return eris.Wrapf(err, "company: set status %d", id)
	}
	return nil
}

// SetEnrichment writes the vendor enrichment fields onto a company.
func (s *PostgresStore) SetEnrichment(ctx context.Context, id int64, e Enrichment) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE companies SET
			zoominfo_id=$2, revenue=$3, sic_codes=$4, naics_codes=$5, primary_industry=$6,
			updated_at=now()
		WHERE id=$1`,
		id, e.ZoomInfoID, e.Revenue, emptyIfNil(e.SICCodes), emptyIfNil(e.NAICSCodes), e.PrimaryIndustry)
	if err != nil {
		return eris.Wrapf(err, "company: set enrichment %d", id)
	}
	return nil
}

// MarkSentByNormalizedNames freezes companies that already received outreach
// so later sightings skip instead of merging. Returns the number of rows
// transitioned.
func (s *PostgresStore) MarkSentByNormalizedNames(ctx context.Context, names []string) (int64, error) {
	if len(names) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE companies SET status=$2, updated_at=now()
		WHERE normalized_name = ANY($1) AND status <> $2`,
		names, StatusSent)
	if err != nil {
		return 0, eris.Wrap(err, "company: mark sent")
	}
	return tag.RowsAffected(), nil
}

// UpsertContact inserts or updates a contact keyed by its vendor id, so
// enrichment re-runs converge instead of duplicating people.
func (s *PostgresStore) UpsertContact(ctx context.Context, c *Contact) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO contacts (company_id, first_name, middle_name, last_name, title,
			email, phone, zoominfo_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (zoominfo_id) DO UPDATE SET
			company_id=EXCLUDED.company_id, first_name=EXCLUDED.first_name,
			middle_name=EXCLUDED.middle_name, last_name=EXCLUDED.last_name,
			title=EXCLUDED.title, email=EXCLUDED.email, phone=EXCLUDED.phone,
			status=EXCLUDED.status, updated_at=now()
		RETURNING id, created_at, updated_at`,
		c.CompanyID, c.FirstName, c.MiddleName, c.LastName, c.Title,
		c.Email, c.Phone, c.ZoomInfoID, c.Status,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return eris.Wrap(err, "company: upsert contact")
	}
	return nil
}

// InsertContacts bulk-upserts contacts through a staging table. Used for
// non-executive batches where per-row round trips add up.
func (s *PostgresStore) InsertContacts(ctx context.Context, contacts []Contact) (int64, error) {
	if len(contacts) == 0 {
		return 0, nil
	}
	rows := make([][]any, 0, len(contacts))
	for _, c := range contacts {
		rows = append(rows, []any{
			c.CompanyID, c.FirstName, c.MiddleName, c.LastName, c.Title,
			c.Email, c.Phone, c.ZoomInfoID, c.Status,
		})
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table: "contacts",
		Columns: []string{
			"company_id", "first_name", "middle_name", "last_name", "title",
			"email", "phone", "zoominfo_id", "status",
		},
		ConflictKeys: []string{"zoominfo_id"},
		UpdateCols: []string{
			"company_id", "first_name", "middle_name", "last_name", "title",
			"email", "phone", "status",
		},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "company: bulk insert contacts")
	}
	return n, nil
}

// GetContacts returns all contacts for a company.
func (s *PostgresStore) GetContacts(ctx context.Context, companyID int64) ([]Contact, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+contactColumns+`
		FROM contacts WHERE company_id=$1 ORDER BY last_name, first_name`, companyID)
	if err != nil {
		return nil, eris.Wrap(err, "company: query contacts")
	}
	defer rows.Close()
	return scanContacts(rows)
}

// companyColumns is the standard column list for company queries.
const companyColumns = `id, name, normalized_name, emails, phones, industries,
	city, state, website, revenue, sic_codes, naics_codes,
	primary_industry, zoominfo_id, status, created_at, updated_at`

// companyDests returns scan destinations for a Company.
func companyDests(c *Company) []any {
	return []any{
		&c.ID, &c.Name, &c.NormalizedName, &c.Emails, &c.Phones, &c.Industries,
		&c.City, &c.State, &c.Website, &c.Revenue, &c.SICCodes, &c.NAICSCodes,
		&c.PrimaryIndustry, &c.ZoomInfoID, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	}
}

// contactColumns is the standard column list for contact queries.
const contactColumns = `id, company_id, first_name, middle_name, last_name, title,
	email, phone, zoominfo_id, status, email_subject, email_body, created_at, updated_at`

func contactDests(c *Contact) []any {
	return []any{
		&c.ID, &c.CompanyID, &c.FirstName, &c.MiddleName, &c.LastName, &c.Title,
		&c.Email, &c.Phone, &c.ZoomInfoID, &c.Status, &c.EmailSubject, &c.EmailBody,
		&c.CreatedAt, &c.UpdatedAt,
	}
}

func scanContacts(rows pgx.Rows) ([]Contact, error) {
	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(contactDests(&c)...); err != nil {
			return nil, eris.Wrap(err, "company: scan contact")
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func emptyIfNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
