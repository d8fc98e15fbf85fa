package company

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Upsert resolves a candidate into the canonical companies table. Matching
// cascades normalized name, then email, then phone; the first hit merges,
// no hit inserts a fresh row at StatusEnriching. Companies already at
// StatusSent are returned untouched with OutcomeSkipped.
//
// The whole resolve runs in one transaction holding an advisory lock on the
// candidate's first non-empty match key, so two photos of the same vehicle
// processed concurrently cannot race into duplicate rows.
func (s *PostgresStore) Upsert(ctx context.Context, cand Candidate) (*Company, Outcome, error) {
	name := NormalizeName(cand.Name)
	email := NormalizeEmail(cand.Email)
	phone := NormalizePhone(cand.Phone)

	lockKey := name
	if lockKey == "" {
		lockKey = email
	}
	if lockKey == "" {
		lockKey = phone
	}
	if lockKey == "" {
		return nil, "", eris.New("company: candidate has no usable match key")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, "", eris.Wrap(err, "company: begin upsert")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
		return nil, "", eris.Wrap(err, "company: acquire match lock")
	}

	existing, err := findMatch(ctx, tx, name, email, phone)
	if err != nil {
		return nil, "", err
	}

	if existing == nil {
		c := &Company{
			Name:           strings.TrimSpace(cand.Name),
			NormalizedName: name,
			Status:         StatusEnriching,
		}
		Merge(c, cand)
		err := tx.QueryRow(ctx, `
			INSERT INTO companies (name, normalized_name, emails, phones, industries,
				city, state, website, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at, updated_at`,
			c.Name, c.NormalizedName, emptyIfNil(c.Emails), emptyIfNil(c.Phones),
			emptyIfNil(c.Industries), c.City, c.State, c.Website, c.Status,
		).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, "", eris.Wrap(err, "company: insert")
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, "", eris.Wrap(err, "company: commit insert")
		}
		zap.L().Info("company: inserted",
			zap.Int64("company_id", c.ID),
			zap.String("normalized_name", c.NormalizedName),
		)
		return c, OutcomeInserted, nil
	}

	if existing.Status == StatusSent {
		if err := tx.Commit(ctx); err != nil {
			return nil, "", eris.Wrap(err, "company: commit skip")
		}
		zap.L().Debug("company: skipped, already contacted",
			zap.Int64("company_id", existing.ID),
		)
		return existing, OutcomeSkipped, nil
	}

	if Merge(existing, cand) {
		if _, err := tx.Exec(ctx, `
			UPDATE companies SET
				emails=$2, phones=$3, industries=$4, city=$5, state=$6, website=$7,
				updated_at=now()
			WHERE id=$1`,
			existing.ID, emptyIfNil(existing.Emails), emptyIfNil(existing.Phones),
			emptyIfNil(existing.Industries), existing.City, existing.State, existing.Website,
		); err != nil {
			return nil, "", eris.Wrapf(err, "company: merge %d", existing.ID)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, "", eris.Wrap(err, "company: commit merge")
	}
	zap.L().Debug("company: merged", zap.Int64("company_id", existing.ID))
	return existing, OutcomeMerged, nil
}

// findMatch runs the match cascade inside the upsert transaction. Empty keys
// skip their pass; ORDER BY id makes the oldest row win when several match.
func findMatch(ctx context.Context, tx pgx.Tx, name, email, phone string) (*Company, error) {
	passes := []struct {
		label string
		sql   string
		key   string
	}{
		{"normalized_name", `SELECT ` + companyColumns + ` FROM companies WHERE normalized_name=$1`, name},
		{"email", `SELECT ` + companyColumns + ` FROM companies WHERE $1 = ANY(emails)`, email},
		{"phone", `SELECT ` + companyColumns + ` FROM companies WHERE $1 = ANY(phones)`, phone},
	}
	for _, p := range passes {
		if p.key == "" {
			continue
		}
		c := &Company{}
		err := tx.QueryRow(ctx, p.sql+` ORDER BY id LIMIT 1`, p.key).Scan(companyDests(c)...)
		if err == pgx.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, eris.Wrapf(err, "company: match by %s", p.label)
		}
		zap.L().Debug("company: matched",
			zap.String("pass", p.label),
			zap.Int64("company_id", c.ID),
		)
		return c, nil
	}
	return nil, nil
}
