package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tourdesk/service-booking/internal/common/domain"
	"github.com/tourdesk/service-booking/internal/metrics"
)

// DispatcherConfig tunes the async dispatcher.
type DispatcherConfig struct {
	Workers      int
	QueueSize    int
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	return c
}

var errQueueClosed = errors.New("notification queue closed")
var errQueueFull = errors.New("notification queue full")

// AsyncDispatcher queues events and delivers them through next on a pool of
// workers, retrying each event with exponential backoff. Notify never blocks.
type AsyncDispatcher struct {
	next   Notifier
	cfg    DispatcherConfig
	logger *zap.Logger

	queue  chan Event
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncDispatcher creates a dispatcher. Call Start before Notify.
func NewAsyncDispatcher(next Notifier, cfg DispatcherConfig, logger *zap.Logger) *AsyncDispatcher {
	cfg = cfg.withDefaults()
	return &AsyncDispatcher{
		next:   next,
		cfg:    cfg,
		logger: logger,
		queue:  make(chan Event, cfg.QueueSize),
	}
}

// Start launches the workers. Cancelling ctx aborts in-flight retries.
func (d *AsyncDispatcher) Start(ctx context.Context) {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for event := range d.queue {
				d.deliver(ctx, event)
			}
		}()
	}
}

// Notify enqueues event. A full or closed queue drops the event and returns
// an ExternalServiceError; the caller is expected to log and move on.
func (d *AsyncDispatcher) Notify(_ context.Context, event Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return domain.NewExternalServiceError("notification", errQueueClosed)
	}
	select {
	case d.queue <- event:
		return nil
	default:
		metrics.IncNotification(string(event.Type), "dropped")
		d.logger.Warn("notification queue full, dropping event",
			zap.String("type", string(event.Type)),
			zap.String("booking_request_id", event.BookingID.String()),
		)
		return domain.NewExternalServiceError("notification", errQueueFull)
	}
}

// Close stops accepting events and waits for queued ones to be processed.
func (d *AsyncDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *AsyncDispatcher) deliver(ctx context.Context, event Event) {
	delay := d.cfg.InitialDelay
	var err error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		if err = d.next.Notify(ctx, event); err == nil {
			metrics.IncNotification(string(event.Type), "sent")
			return
		}
		if attempt == d.cfg.MaxAttempts {
			break
		}

		d.logger.Debug("notification attempt failed, retrying",
			zap.String("type", string(event.Type)),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		if !wait(ctx, delay) {
			err = ctx.Err()
			break
		}

		delay *= 2
		if delay > d.cfg.MaxDelay {
			delay = d.cfg.MaxDelay
		}
	}

	metrics.IncNotification(string(event.Type), "failed")
	d.logger.Error("notification delivery failed",
		zap.String("type", string(event.Type)),
		zap.String("booking_request_id", event.BookingID.String()),
		zap.Error(domain.NewExternalServiceError("notification", err)),
	)
}

// wait sleeps for delay and reports false if ctx ended first.
func wait(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
