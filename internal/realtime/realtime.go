// Package realtime pushes booking status changes to connected clients.
//
// Delivery is best effort. A subscriber that misses an event recovers by
// re-fetching the booking, so a slow consumer only ever loses intermediate
// states, never the latest one it asks for.
package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tourdesk/service-booking/internal/domain/booking"
)

// StatusUpdate is the event published after a committed status change.
type StatusUpdate struct {
	ID        uuid.UUID      `json:"id"`
	Status    booking.Status `json:"status"`
	Version   int64          `json:"version"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// FromBooking builds the update for b's current state.
func FromBooking(b *booking.BookingRequest) StatusUpdate {
	return StatusUpdate{
		ID:        b.ID(),
		Status:    b.Status(),
		Version:   b.Version(),
		UpdatedAt: b.UpdatedAt(),
	}
}

// Publisher fans a status update out to subscribers.
type Publisher interface {
	Publish(ctx context.Context, update StatusUpdate) error
}

// Subscriber opens a stream of updates for one booking request. Only updates
// with a version greater than afterVersion are delivered, and each stream's
// versions strictly increase. The channel is closed when ctx ends.
type Subscriber interface {
	Subscribe(ctx context.Context, id uuid.UUID, afterVersion int64) (<-chan StatusUpdate, error)
}

// Channel is both ends of the realtime bus.
type Channel interface {
	Publisher
	Subscriber
}
