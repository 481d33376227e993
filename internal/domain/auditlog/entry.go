// Package auditlog models the append-only history of actions taken on a
// booking request.
package auditlog

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tourdesk/service-booking/internal/common/domain"
)

// Action is the kind of log entry.
type Action string

const (
	ActionStatusChange        Action = "status_change"
	ActionAdminMemo           Action = "admin_memo"
	ActionModificationRequest Action = "modification_request"
)

// IsValid returns true if the action is recognized.
func (a Action) IsValid() bool {
	switch a {
	case ActionStatusChange, ActionAdminMemo, ActionModificationRequest:
		return true
	}
	return false
}

// ParseAction converts a string to an Action.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.IsValid() {
		return "", domain.NewValidationError(fmt.Sprintf("invalid log action: %s", s))
	}
	return a, nil
}

// Entry is one immutable log record. There are no setters.
type Entry struct {
	id        uuid.UUID
	requestID uuid.UUID
	action    Action
	notes     string
	actor     string
	createdAt time.Time
}

// newEntry stamps a time-ordered UUIDv7 so that entries written within the
// same timestamp still sort in insertion order.
func newEntry(requestID uuid.UUID, action Action, notes, actor string, now time.Time) (*Entry, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate log id: %w", err)
	}
	return &Entry{
		id:        id,
		requestID: requestID,
		action:    action,
		notes:     notes,
		actor:     actor,
		createdAt: now.UTC(),
	}, nil
}

// NewStatusChange records a transition as "<old> -> <new>", followed by the
// reason when one was given.
func NewStatusChange(requestID uuid.UUID, from, to, reason, actor string, now time.Time) (*Entry, error) {
	notes := from + " -> " + to
	if r := strings.TrimSpace(reason); r != "" {
		notes += ": " + r
	}
	return newEntry(requestID, ActionStatusChange, notes, actor, now)
}

// NewMemo records a staff memo.
func NewMemo(requestID uuid.UUID, notes, actor string, now time.Time) (*Entry, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, domain.NewValidationError("memo notes are required")
	}
	return newEntry(requestID, ActionAdminMemo, notes, actor, now)
}

// NewModificationRequest records a customer's request to change a booking.
func NewModificationRequest(requestID uuid.UUID, notes, actor string, now time.Time) (*Entry, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, domain.NewValidationError("modification details are required")
	}
	return newEntry(requestID, ActionModificationRequest, notes, actor, now)
}

// Reconstruct rebuilds an Entry from persistence.
func Reconstruct(id, requestID uuid.UUID, action Action, notes, actor string, createdAt time.Time) *Entry {
	return &Entry{
		id:        id,
		requestID: requestID,
		action:    action,
		notes:     notes,
		actor:     actor,
		createdAt: createdAt,
	}
}

// Getters.
func (e *Entry) ID() uuid.UUID        { return e.id }
func (e *Entry) RequestID() uuid.UUID { return e.requestID }
func (e *Entry) Action() Action       { return e.action }
func (e *Entry) Notes() string        { return e.notes }
func (e *Entry) Actor() string        { return e.actor }
func (e *Entry) CreatedAt() time.Time { return e.createdAt }

// Less orders entries by createdAt, then by id.
func Less(a, b *Entry) bool {
	if !a.createdAt.Equal(b.createdAt) {
		return a.createdAt.Before(b.createdAt)
	}
	return a.id.String() < b.id.String()
}

// Filter keeps entries whose action is in actions, preserving order. An empty
// actions list keeps everything.
func Filter(entries []*Entry, actions ...Action) []*Entry {
	if len(actions) == 0 {
		return entries
	}
	keep := make(map[Action]bool, len(actions))
	for _, a := range actions {
		keep[a] = true
	}
	out := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if keep[e.action] {
			out = append(out, e)
		}
	}
	return out
}
