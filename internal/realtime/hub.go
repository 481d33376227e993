package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tourdesk/service-booking/internal/common/domain"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 16

type subscription struct {
	ch          chan StatusUpdate
	lastVersion int64
}

// Hub is the in-process Channel. Sends never block the publisher: an update
// that does not fit a subscriber's buffer is dropped for that subscriber.
type Hub struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]map[*subscription]struct{}
	buffer int
	closed bool
	logger *zap.Logger
}

// NewHub creates a Hub whose subscriber channels hold buffer updates.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[uuid.UUID]map[*subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe implements Subscriber.
func (h *Hub) Subscribe(ctx context.Context, id uuid.UUID, afterVersion int64) (<-chan StatusUpdate, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, domain.NewExternalServiceError("realtime", errHubClosed)
	}

	sub := &subscription{ch: make(chan StatusUpdate, h.buffer), lastVersion: afterVersion}
	if h.subs[id] == nil {
		h.subs[id] = make(map[*subscription]struct{})
	}
	h.subs[id][sub] = struct{}{}

	go func() {
		<-ctx.Done()
		h.remove(id, sub)
	}()

	return sub.ch, nil
}

// Publish implements Publisher. Out-of-order updates, whose version is not
// above what a subscriber already received, are skipped for that subscriber.
func (h *Hub) Publish(_ context.Context, update StatusUpdate) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[update.ID] {
		if update.Version <= sub.lastVersion {
			continue
		}
		select {
		case sub.ch <- update:
			sub.lastVersion = update.Version
		default:
			h.logger.Warn("realtime subscriber buffer full, dropping update",
				zap.String("booking_request_id", update.ID.String()),
				zap.Int64("version", update.Version),
			)
		}
	}
	return nil
}

// SubscriberCount returns the number of open streams for id.
func (h *Hub) SubscriberCount(id uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[id])
}

// Close ends every open stream. Later subscriptions fail.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, set := range h.subs {
		for sub := range set {
			close(sub.ch)
		}
		delete(h.subs, id)
	}
}

func (h *Hub) remove(id uuid.UUID, sub *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[id]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.ch)
	if len(set) == 0 {
		delete(h.subs, id)
	}
}
