package notification

import (
	"context"

	"github.com/tourdesk/service-booking/internal/common/domain"
	"github.com/tourdesk/service-booking/internal/common/kafka"
)

// EventPublisher is the subset of kafka.Producer used here.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, ce kafka.CloudEvent) error
}

// KafkaNotifier publishes events as CloudEvents for downstream consumers such
// as the staff console and the messaging gateway.
type KafkaNotifier struct {
	producer EventPublisher
	topic    string
	source   string
}

// NewKafkaNotifier creates a KafkaNotifier writing to topic.
func NewKafkaNotifier(producer EventPublisher, topic, source string) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topic, source: source}
}

// Notify implements Notifier.
func (n *KafkaNotifier) Notify(ctx context.Context, event Event) error {
	ce, err := kafka.NewCloudEvent(n.source, string(event.Type), event)
	if err != nil {
		return err
	}
	ce.Subject = event.BookingID.String()

	if err := n.producer.PublishEvent(ctx, n.topic, ce); err != nil {
		return domain.NewExternalServiceError("kafka", err)
	}
	return nil
}
