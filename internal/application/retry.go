package application

import (
	"context"
	"time"

	"github.com/tourdesk/service-booking/internal/common/domain"
)

// retryPolicy retries operations that fail with infrastructure errors.
// Domain errors, including conflicts, are final. A retried write whose first
// attempt actually committed hits the version check, so callers must resolve
// such conflicts against the stored state.
type retryPolicy struct {
	attempts int
	delay    time.Duration
}

var defaultRetryPolicy = retryPolicy{attempts: 3, delay: 50 * time.Millisecond}

func (p retryPolicy) do(ctx context.Context, fn func() error) error {
	delay := p.delay
	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil || domain.IsDomain(err) || attempt >= p.attempts {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
		delay *= 2
	}
}
