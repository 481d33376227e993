package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tourdesk/service-booking/internal/application"
	"github.com/tourdesk/service-booking/internal/common/domain"
	"github.com/tourdesk/service-booking/internal/common/kafka"
)

type fakeCapturer struct {
	calls []uuid.UUID
	err   error
}

func (f *fakeCapturer) CapturePayment(_ context.Context, id uuid.UUID) (*application.BookingRequestDTO, error) {
	f.calls = append(f.calls, id)
	if f.err != nil {
		return nil, f.err
	}
	return &application.BookingRequestDTO{ID: id, Status: "paid", Version: 3}, nil
}

func message(t *testing.T, eventType string, data any) kafkago.Message {
	t.Helper()
	ce, err := kafka.NewCloudEvent("service-payment", eventType, data)
	require.NoError(t, err)
	value, err := json.Marshal(ce)
	require.NoError(t, err)
	return kafkago.Message{Topic: "payment.events", Value: value}
}

func newTestConsumer(svc PaymentCapturer) *PaymentEventConsumer {
	return &PaymentEventConsumer{service: svc, logger: zap.NewNop()}
}

func TestHandleMessage_PaymentCaptured(t *testing.T) {
	svc := &fakeCapturer{}
	c := newTestConsumer(svc)
	id := uuid.New()

	err := c.handleMessage(context.Background(), message(t, PaymentCaptured, PaymentCapturedEvent{
		BookingRequestID: id, PaymentID: "pay_1", Amount: 160000,
	}))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, svc.calls)
}

func TestHandleMessage_AcknowledgesUnrecoverable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"already cancelled", domain.NewInvalidTransitionError("cancelled", "paid", "cancelled is terminal")},
		{"unknown request", domain.NewNotFoundError("BookingRequest", "x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestConsumer(&fakeCapturer{err: tt.err})
			err := c.handleMessage(context.Background(), message(t, PaymentCaptured, PaymentCapturedEvent{BookingRequestID: uuid.New()}))
			assert.NoError(t, err)
		})
	}
}

func TestHandleMessage_RedeliversTransientFailures(t *testing.T) {
	c := newTestConsumer(&fakeCapturer{err: errors.New("db down")})
	err := c.handleMessage(context.Background(), message(t, PaymentCaptured, PaymentCapturedEvent{BookingRequestID: uuid.New()}))
	assert.Error(t, err)

	c = newTestConsumer(&fakeCapturer{err: domain.NewConflictError("still racing")})
	err = c.handleMessage(context.Background(), message(t, PaymentCaptured, PaymentCapturedEvent{BookingRequestID: uuid.New()}))
	assert.Error(t, err)
}

func TestHandleMessage_IgnoresMalformedAndOtherTypes(t *testing.T) {
	svc := &fakeCapturer{}
	c := newTestConsumer(svc)

	assert.NoError(t, c.handleMessage(context.Background(), kafkago.Message{Value: []byte("{broken")}))
	assert.NoError(t, c.handleMessage(context.Background(), message(t, "payment.refunded", map[string]string{"x": "y"})))
	assert.NoError(t, c.handleMessage(context.Background(), message(t, PaymentCaptured, map[string]string{"payment_id": "p"})))
	assert.Empty(t, svc.calls)
}
