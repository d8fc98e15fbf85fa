package photo

import "context"

// Store defines persistence operations for photos.
type Store interface {
	Create(ctx context.Context, p *Photo) error
	GetByObjectKey(ctx context.Context, key string) (*Photo, error)
	SetStatus(ctx context.Context, id int64, status string) error
	MarkProcessed(ctx context.Context, id, companyID int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error
}
