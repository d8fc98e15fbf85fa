// Package photo tracks uploaded vehicle photos through the extraction
// lifecycle.
package photo

import "time"

// Photo is one stored attachment. ObjectKey is the bucket path and doubles
// as the queue payload reference, so it is unique.
type Photo struct {
	ID          int64     `json:"id" db:"id"`
	ObjectKey   string    `json:"object_key" db:"object_key"`
	ContentType string    `json:"content_type" db:"content_type"`
	SizeBytes   int64     `json:"size_bytes" db:"size_bytes"`
	SenderEmail string    `json:"sender_email,omitempty" db:"sender_email"`
	Location    string    `json:"location,omitempty" db:"location"`
	Status      string    `json:"status" db:"status"`
	FailReason  string    `json:"fail_reason,omitempty" db:"fail_reason"`
	CompanyID   *int64    `json:"company_id,omitempty" db:"company_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Photo lifecycle statuses. A photo moves uploaded → processing and then to
// exactly one of processed or failed.
const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusFailed     = "failed"
)
