// Package notification delivers booking events to customers and staff outside
// the request path. Delivery failures never roll back or fail a booking
// operation; they are retried, then logged and counted.
package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tourdesk/service-booking/internal/domain/booking"
)

// EventType names the lifecycle moment being announced.
type EventType string

const (
	EventCreated               EventType = "booking.created"
	EventStatusChanged         EventType = "booking.status_changed"
	EventModificationRequested EventType = "booking.modification_requested"
)

// Event is the payload handed to every sender.
type Event struct {
	Type           EventType            `json:"type"`
	BookingID      uuid.UUID            `json:"booking_id"`
	Customer       booking.CustomerInfo `json:"customer"`
	ActorContact   string               `json:"actor_contact"`
	Date           string               `json:"date"`
	Status         booking.Status       `json:"status"`
	PreviousStatus booking.Status       `json:"previous_status,omitempty"`
	Reason         string               `json:"reason,omitempty"`
	Notes          string               `json:"notes,omitempty"`
	OccurredAt     time.Time            `json:"occurred_at"`
}

// NewEvent fills the fields shared by every event type from b.
func NewEvent(t EventType, b *booking.BookingRequest, now time.Time) Event {
	return Event{
		Type:         t,
		BookingID:    b.ID(),
		Customer:     b.Customer(),
		ActorContact: b.Customer().Contact(),
		Date:         b.Date(),
		Status:       b.Status(),
		OccurredAt:   now.UTC(),
	}
}

// Notifier delivers an event. Implementations may block on the network.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Render returns a short subject and body describing event for a customer.
func Render(event Event) (string, string) {
	id := event.BookingID.String()[:8]
	switch event.Type {
	case EventCreated:
		return fmt.Sprintf("[투어 예약] 예약 요청 접수 (%s)", id),
			fmt.Sprintf("%s님, %s 투어 예약 요청이 접수되었습니다. 확인 후 연락드리겠습니다.",
				event.Customer.Name, event.Date)
	case EventStatusChanged:
		body := fmt.Sprintf("%s님, %s 투어 예약 상태가 '%s'(으)로 변경되었습니다.",
			event.Customer.Name, event.Date, event.Status.LabelKO())
		if event.Reason != "" {
			body += "\n사유: " + event.Reason
		}
		return fmt.Sprintf("[투어 예약] %s (%s)", event.Status.LabelKO(), id), body
	case EventModificationRequested:
		return fmt.Sprintf("[투어 예약] 변경 요청 접수 (%s)", id),
			fmt.Sprintf("%s님, %s 투어 예약 변경 요청이 접수되었습니다.\n요청 내용: %s",
				event.Customer.Name, event.Date, event.Notes)
	default:
		return fmt.Sprintf("[투어 예약] %s", id), string(event.Type)
	}
}
