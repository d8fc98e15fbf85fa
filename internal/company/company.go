// Package company owns the canonical business entities extracted from
// vehicle photos and the deduplication/merge engine that keeps one row per
// real-world company.
package company

import (
	"time"
)

// Company is the canonical record a photo extraction resolves into. The
// emails, phones, and industries sets hold normalized values and grow by
// union as duplicate sightings merge in.
type Company struct {
	ID              int64     `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	NormalizedName  string    `json:"normalized_name" db:"normalized_name"`
	Emails          []string  `json:"emails" db:"emails"`
	Phones          []string  `json:"phones" db:"phones"`
	Industries      []string  `json:"industries" db:"industries"`
	City            string    `json:"city,omitempty" db:"city"`
	State           string    `json:"state,omitempty" db:"state"`
	Website         string    `json:"website,omitempty" db:"website"`
	Revenue         *float64  `json:"revenue,omitempty" db:"revenue"`
	SICCodes        []string  `json:"sic_codes,omitempty" db:"sic_codes"`
	NAICSCodes      []string  `json:"naics_codes,omitempty" db:"naics_codes"`
	PrimaryIndustry string    `json:"primary_industry,omitempty" db:"primary_industry"`
	ZoomInfoID      string    `json:"zoominfo_id,omitempty" db:"zoominfo_id"`
	Status          string    `json:"status" db:"status"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// Company lifecycle statuses. New rows start at StatusEnriching; the
// enrichment worker moves them to exactly one terminal status. StatusSent is
// set administratively once outreach has gone out and freezes the row
// against further merges.
const (
	StatusEnriching      = "enriching"
	StatusNotFound       = "not_found"
	StatusNoExecs        = "no_execs"
	StatusContactsFailed = "contacts_failed"
	StatusLowRevenue     = "low_revenue"
	StatusProcessed      = "processed"
	StatusError          = "error"
	StatusSent           = "sent"
)

// Contact is a person at a company, keyed by the vendor's contact id so
// enrichment re-runs update in place instead of duplicating.
type Contact struct {
	ID           int64     `json:"id" db:"id"`
	CompanyID    int64     `json:"company_id" db:"company_id"`
	FirstName    string    `json:"first_name,omitempty" db:"first_name"`
	MiddleName   string    `json:"middle_name,omitempty" db:"middle_name"`
	LastName     string    `json:"last_name,omitempty" db:"last_name"`
	Title        string    `json:"title,omitempty" db:"title"`
	Email        string    `json:"email,omitempty" db:"email"`
	Phone        string    `json:"phone,omitempty" db:"phone"`
	ZoomInfoID   string    `json:"zoominfo_id" db:"zoominfo_id"`
	Status       string    `json:"status" db:"status"`
	EmailSubject string    `json:"email_subject,omitempty" db:"email_subject"`
	EmailBody    string    `json:"email_body,omitempty" db:"email_body"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Contact statuses. Non-executives are stored as-is and never enriched;
// executives end up either with no reachable channel or eligible for
// message generation.
const (
	ContactNonExecutive      = "non-executive"
	ContactNoContact         = "no_contact"
	ContactGeneratingMessage = "generating_message"
)

// Candidate is the field set extraction proposes for upsert. Missing fields
// are empty strings or empty slices, never fabricated placeholders.
type Candidate struct {
	Name       string   `json:"name"`
	Industries []string `json:"industry"`
	Email      string   `json:"email"`
	Phone      string   `json:"phone"`
	City       string   `json:"city"`
	State      string   `json:"state"`
	Website    string   `json:"website"`
}

// Outcome reports what Upsert did with a candidate.
type Outcome string

// Upsert outcomes.
const (
	OutcomeInserted Outcome = "inserted"
	OutcomeMerged   Outcome = "merged"
	OutcomeSkipped  Outcome = "skipped"
)
