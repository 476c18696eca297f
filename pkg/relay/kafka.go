package relay

import (
	"context"
	"fmt"

	"github.com/Shopify/sarama"
)

// Kafka publishes deliveries to a Kafka topic.
type Kafka struct {
	Producer sarama.SyncProducer
	Topic    string
}

// Publish sends the delivery synchronously.
func (k *Kafka) Publish(_ context.Context, d Delivery) error {
	msg := &sarama.ProducerMessage{
		Topic: k.Topic,
		Value: sarama.ByteEncoder(d.Payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event"), Value: []byte(d.Event)},
		},
	}
	if d.ID != "" {
		msg.Key = sarama.StringEncoder(d.ID)
		msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte("delivery"), Value: []byte(d.ID)})
	}
	if _, _, err := k.Producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to send delivery to Kafka: %w", err)
	}
	return nil
}
