package photo

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

// Create inserts a new photo at StatusUploaded and sets its ID.
func (s *PostgresStore) Create(ctx context.Context, p *Photo) error {
	if p.Status == "" {
		p.Status = StatusUploaded
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO photos (object_key, content_type, size_bytes, sender_email, location, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		p.ObjectKey, p.ContentType, p.SizeBytes, p.SenderEmail, p.Location, p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return eris.Wrap(err, "photo: create")
	}
	return nil
}

// GetByObjectKey fetches a photo by its bucket path.
func (s *PostgresStore) GetByObjectKey(ctx context.Context, key string) (*Photo, error) {
	p := &Photo{}
	err := s.pool.QueryRow(ctx, `SELECT `+photoColumns+` FROM photos WHERE object_key=$1`, key).
		Scan(photoDests(p)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "photo: get by key %s", key)
	}
	return p, nil
}

// SetStatus moves a photo to a lifecycle status.
func (s *PostgresStore) SetStatus(ctx context.Context, id int64, status string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE photos SET status=$2, updated_at=now() WHERE id=$1`, id, status)
	if err != nil {
		return eris.Wrapf(err, "photo: set status %d", id)
	}
	return nil
}

// MarkProcessed finishes a photo and links it to the company it resolved to.
func (s *PostgresStore) MarkProcessed(ctx context.Context, id, companyID int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE photos SET status=$2, company_id=$3, fail_reason='', updated_at=now()
		WHERE id=$1`,
		id, StatusProcessed, companyID)
	if err != nil {
		return eris.Wrapf(err, "photo: mark processed %d", id)
	}
	return nil
}

// MarkFailed finishes a photo with a terminal failure reason.
func (s *PostgresStore) MarkFailed(ctx context.Context, id int64, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE photos SET status=$2, fail_reason=$3, updated_at=now()
		WHERE id=$1`,
		id, StatusFailed, reason)
	if err != nil {
		return eris.Wrapf(err, "photo: mark failed %d", id)
	}
	return nil
}

// photoColumns is the standard column list for photo queries.
const photoColumns = `id, object_key, content_type, size_bytes, sender_email,
	location, status, fail_reason, company_id, created_at, updated_at`

func photoDests(p *Photo) []any {
	return []any{
		&p.ID, &p.ObjectKey, &p.ContentType, &p.SizeBytes, &p.SenderEmail,
		&p.Location, &p.Status, &p.FailReason, &p.CompanyID, &p.CreatedAt, &p.UpdatedAt,
	}
}
