package events

import (
	"context"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/tourdesk/service-booking/internal/application"
	"github.com/tourdesk/service-booking/internal/common/domain"
	"github.com/tourdesk/service-booking/internal/common/kafka"
)

// PaymentCaptured is the CloudEvent type emitted by the payment service once
// a customer's payment has been taken.
const PaymentCaptured = "payment.captured"

// PaymentCapturedEvent is the data of a payment.captured event.
type PaymentCapturedEvent struct {
	BookingRequestID uuid.UUID `json:"booking_request_id"`
	PaymentID        string    `json:"payment_id"`
	Amount           int64     `json:"amount"`
}

// PaymentCapturer is the subset of application.BookingService used here.
type PaymentCapturer interface {
	CapturePayment(ctx context.Context, id uuid.UUID) (*application.BookingRequestDTO, error)
}

// PaymentEventConsumer listens to payment events and marks requests paid.
type PaymentEventConsumer struct {
	consumer *kafka.Consumer
	service  PaymentCapturer
	logger   *zap.Logger
}

// NewPaymentEventConsumer creates a new PaymentEventConsumer.
func NewPaymentEventConsumer(
	brokers []string,
	groupID string,
	topic string,
	service PaymentCapturer,
	logger *zap.Logger,
) *PaymentEventConsumer {
	return &PaymentEventConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, topic, logger),
		service:  service,
		logger:   logger,
	}
}

// Start begins consuming payment events. This blocks until the context is cancelled.
func (c *PaymentEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *PaymentEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *PaymentEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from payment topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case PaymentCaptured:
		return c.handlePaymentCaptured(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled payment event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *PaymentEventConsumer) handlePaymentCaptured(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt PaymentCapturedEvent
	if err := cloudEvent.ParseData(&evt); err != nil || evt.BookingRequestID == uuid.Nil {
		c.logger.Error("failed to parse PaymentCapturedEvent data",
			zap.String("event_id", cloudEvent.ID),
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	c.logger.Info("processing payment captured event",
		zap.String("booking_request_id", evt.BookingRequestID.String()),
		zap.String("payment_id", evt.PaymentID),
	)

	result, err := c.service.CapturePayment(ctx, evt.BookingRequestID)
	if err != nil {
		// A request that was cancelled or rejected meanwhile, or never
		// existed, will not change on redelivery.
		if domain.IsInvalidTransition(err) || domain.IsNotFound(err) || domain.IsValidation(err) {
			c.logger.Warn("payment captured for a request that cannot be marked paid",
				zap.String("booking_request_id", evt.BookingRequestID.String()),
				zap.String("payment_id", evt.PaymentID),
				zap.Error(err),
			)
			return nil
		}
		c.logger.Error("failed to mark booking request paid",
			zap.String("booking_request_id", evt.BookingRequestID.String()),
			zap.Error(err),
		)
		return err
	}

	c.logger.Info("booking request marked paid",
		zap.String("booking_request_id", evt.BookingRequestID.String()),
		zap.Int64("version", result.Version),
	)
	return nil
}
