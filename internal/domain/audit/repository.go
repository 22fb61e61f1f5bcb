package audit

import (
	"context"
)

// Repository appends and reads audit entries. Entries are never updated or
// deleted by workflow operations.
type Repository interface {
	Append(ctx context.Context, entry Entry) (Entry, error)
	ListByEntity(ctx context.Context, entityType EntityType, entityID string, limit, offset int) ([]Entry, error)
}
