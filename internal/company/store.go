package company

import "context"

// Enrichment carries the vendor fields the enrichment worker writes back
// onto a company.
type Enrichment struct {
	ZoomInfoID      string
	Revenue         *float64
	SICCodes        []string
	NAICSCodes      []string
	PrimaryIndustry string
}

// Store defines persistence operations for companies and their contacts.
type Store interface {
	// Companies
	Upsert(ctx context.Context, cand Candidate) (*Company, Outcome, error)
	GetCompany(ctx context.Context, id int64) (*Company, error)
	SetStatus(ctx context.Context, id int64, status string) error
	SetEnrichment(ctx context.Context, id int64, e Enrichment) error
	MarkSentByNormalizedNames(ctx context.Context, names []string) (int64, error)

	// Contacts
	UpsertContact(ctx context.Context, c *Contact) error
	InsertContacts(ctx context.Context, contacts []Contact) (int64, error)
	GetContacts(ctx context.Context, companyID int64) ([]Contact, error)
}
