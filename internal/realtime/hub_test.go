package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tourdesk/service-booking/internal/domain/booking"
)

func update(id uuid.UUID, status booking.Status, version int64) StatusUpdate {
	return StatusUpdate{ID: id, Status: status, Version: version, UpdatedAt: time.Now().UTC()}
}

func receive(t *testing.T, ch <-chan StatusUpdate) StatusUpdate {
	t.Helper()
	select {
	case u := <-ch:
		return u
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for update")
		return StatusUpdate{}
	}
}

func assertEmpty(t *testing.T, ch <-chan StatusUpdate) {
	t.Helper()
	select {
	case u := <-ch:
		t.Fatalf("unexpected update %+v", u)
	default:
	}
}

func TestHub_DeliversToSubscribersOfSameID(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(4, zap.NewNop())

	id := uuid.New()
	a, err := hub.Subscribe(ctx, id, 1)
	require.NoError(t, err)
	b, err := hub.Subscribe(ctx, id, 1)
	require.NoError(t, err)
	other, err := hub.Subscribe(ctx, uuid.New(), 0)
	require.NoError(t, err)

	require.NoError(t, hub.Publish(ctx, update(id, booking.StatusConfirmed, 2)))

	assert.Equal(t, booking.StatusConfirmed, receive(t, a).Status)
	assert.Equal(t, int64(2), receive(t, b).Version)
	assertEmpty(t, other)
}

func TestHub_VersionsNeverGoBackwards(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(8, zap.NewNop())

	id := uuid.New()
	ch, err := hub.Subscribe(ctx, id, 2)
	require.NoError(t, err)

	require.NoError(t, hub.Publish(ctx, update(id, booking.StatusInquiring, 2)))
	require.NoError(t, hub.Publish(ctx, update(id, booking.StatusPaid, 4)))
	require.NoError(t, hub.Publish(ctx, update(id, booking.StatusPendingPayment, 3)))
	require.NoError(t, hub.Publish(ctx, update(id, booking.StatusPaid, 4)))
	require.NoError(t, hub.Publish(ctx, update(id, booking.StatusConfirmed, 5)))

	assert.Equal(t, int64(4), receive(t, ch).Version)
	assert.Equal(t, int64(5), receive(t, ch).Version)
	assertEmpty(t, ch)
}

func TestHub_FullBufferDropsWithoutBlocking(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(1, zap.NewNop())

	id := uuid.New()
	ch, err := hub.Subscribe(ctx, id, 0)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for v := int64(1); v <= 5; v++ {
			_ = hub.Publish(ctx, update(id, booking.StatusInquiring, v))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	assert.Equal(t, int64(1), receive(t, ch).Version)
	assertEmpty(t, ch)

	// The dropped versions do not block a later, newer one.
	require.NoError(t, hub.Publish(ctx, update(id, booking.StatusConfirmed, 6)))
	assert.Equal(t, int64(6), receive(t, ch).Version)
}

func TestHub_ContextCancelClosesStream(t *testing.T) {
	hub := NewHub(1, zap.NewNop())
	id := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := hub.Subscribe(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, hub.SubscriberCount(id))

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("stream not closed after cancel")
	}
	assert.Equal(t, 0, hub.SubscriberCount(id))
}

func TestHub_CloseEndsStreams(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(1, zap.NewNop())

	ch, err := hub.Subscribe(ctx, uuid.New(), 0)
	require.NoError(t, err)

	hub.Close()
	_, ok := <-ch
	assert.False(t, ok)

	_, err = hub.Subscribe(ctx, uuid.New(), 0)
	assert.Error(t, err)
}

func TestDecodeUpdate(t *testing.T) {
	id := uuid.New()
	payload, err := json.Marshal(update(id, booking.StatusPaid, 3))
	require.NoError(t, err)

	got, err := decodeUpdate(ChannelName(id), string(payload))
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, booking.StatusPaid, got.Status)

	_, err = decodeUpdate(ChannelName(uuid.New()), string(payload))
	assert.Error(t, err)

	_, err = decodeUpdate(ChannelName(id), "{not json")
	assert.Error(t, err)
}

func TestChannelName(t *testing.T) {
	id := uuid.MustParse("0194a3b2-7c00-7000-8000-000000000001")
	assert.Equal(t, "booking:status:0194a3b2-7c00-7000-8000-000000000001", ChannelName(id))
}
