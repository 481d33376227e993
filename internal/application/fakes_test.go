package application

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/tourdesk/service-booking/internal/common/domain"
	"github.com/tourdesk/service-booking/internal/domain/auditlog"
	bookingDomain "github.com/tourdesk/service-booking/internal/domain/booking"
	"github.com/tourdesk/service-booking/internal/domain/product"
	"github.com/tourdesk/service-booking/internal/notification"
	"github.com/tourdesk/service-booking/internal/realtime"
)

// memoryStore implements both booking.Repository and auditlog.Store. One
// mutex covers both maps so UpdateStatus is atomic the way the SQL
// transaction is.
type memoryStore struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*bookingDomain.BookingRequest
	entries  []*auditlog.Entry

	updateErrs []error // returned, in order, by the next UpdateStatus calls
	commitErr  error   // returned once by the next UpdateStatus that commits
	interleave func()  // runs under the lock after an injected error
	updates    int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{requests: make(map[uuid.UUID]*bookingDomain.BookingRequest)}
}

func (m *memoryStore) FindByID(_ context.Context, id uuid.UUID) (*bookingDomain.BookingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.requests[id]
	if !ok {
		return nil, domain.NewNotFoundError("BookingRequest", id.String())
	}
	return b.Clone(), nil
}

func (m *memoryStore) FindByPhone(_ context.Context, phone string) ([]*bookingDomain.BookingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*bookingDomain.BookingRequest
	for _, b := range m.requests {
		if b.Customer().Phone == phone {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().After(out[j].CreatedAt()) })
	return out, nil
}

func (m *memoryStore) FindByDateRange(_ context.Context, from, to string) ([]*bookingDomain.BookingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*bookingDomain.BookingRequest
	for _, b := range m.requests {
		if b.Date() >= from && b.Date() <= to {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date() < out[j].Date() })
	return out, nil
}

func (m *memoryStore) List(_ context.Context, filter bookingDomain.ListFilter, page, limit int) ([]*bookingDomain.BookingRequest, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*bookingDomain.BookingRequest
	for _, b := range m.requests {
		if filter.Status != "" && b.Status() != filter.Status {
			continue
		}
		all = append(all, b.Clone())
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt().After(all[j].CreatedAt()) })
	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (m *memoryStore) CountByStatus(_ context.Context) (map[bookingDomain.Status]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[bookingDomain.Status]int64)
	for _, b := range m.requests {
		counts[b.Status()]++
	}
	return counts, nil
}

func (m *memoryStore) Save(_ context.Context, b *bookingDomain.BookingRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[b.ID()] = b.Clone()
	return nil
}

func (m *memoryStore) UpdateStatus(_ context.Context, b *bookingDomain.BookingRequest, expectedVersion int64, entry *auditlog.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	if len(m.updateErrs) > 0 {
		err := m.updateErrs[0]
		m.updateErrs = m.updateErrs[1:]
		if err != nil {
			if m.interleave != nil {
				m.interleave()
				m.interleave = nil
			}
			return err
		}
	}
	current, ok := m.requests[b.ID()]
	if !ok || current.Version() != expectedVersion {
		return domain.NewConflictError("booking request was modified by another transaction")
	}
	m.requests[b.ID()] = b.Clone()
	if entry != nil {
		m.entries = append(m.entries, entry)
	}
	if err := m.commitErr; err != nil {
		m.commitErr = nil
		return err
	}
	return nil
}

func (m *memoryStore) Append(_ context.Context, e *auditlog.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memoryStore) ListByRequest(_ context.Context, id uuid.UUID, actions ...auditlog.Action) ([]*auditlog.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*auditlog.Entry
	for _, e := range m.entries {
		if e.RequestID() == id {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return auditlog.Less(out[i], out[j]) })
	return auditlog.Filter(out, actions...), nil
}

type fakePrices map[uuid.UUID]product.UnitPrices

func (f fakePrices) GetUnitPrices(_ context.Context, id uuid.UUID) (product.UnitPrices, error) {
	p, ok := f[id]
	if !ok {
		return product.UnitPrices{}, domain.NewNotFoundError("Product", id.String())
	}
	return p, nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	updates []realtime.StatusUpdate
	err     error
}

func (r *recordingPublisher) Publish(_ context.Context, u realtime.StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
	return r.err
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification.Event
}

func (r *recordingNotifier) Notify(_ context.Context, e notification.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingNotifier) types() []notification.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notification.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

var errTransient = errors.New("connection reset by peer")
