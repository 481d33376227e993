package auditlog

import (
	"context"

	"github.com/google/uuid"
)

// Store is the append-only log. It deliberately has no update or delete.
type Store interface {
	// Append persists a new entry.
	Append(ctx context.Context, entry *Entry) error

	// ListByRequest returns a request's entries in createdAt order,
	// optionally limited to the given actions.
	ListByRequest(ctx context.Context, requestID uuid.UUID, actions ...Action) ([]*Entry, error)
}
