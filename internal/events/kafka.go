package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Skotchmaster/storefront/pkg/logging"
)

// KafkaBridge mirrors bus events to a Kafka topic and feeds events written
// by other processes back into the local bus.
type KafkaBridge struct {
	brokers []string
	topic   string
	writer  *kafka.Writer
}

func NewKafkaBridge(brokers []string, topic string) (*KafkaBridge, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	if topic == "" {
		return nil, errors.New("kafka: empty topic")
	}
	return &KafkaBridge{
		brokers: brokers,
		topic:   topic,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			BatchTimeout:           10 * time.Millisecond,
			WriteTimeout:           5 * time.Second,
			AllowAutoTopicCreation: true,
		},
	}, nil
}

func (k *KafkaBridge) Forward(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(ev.Topic), Value: data}); err != nil {
		return fmt.Errorf("kafka: write failed: %w", err)
	}
	return nil
}

// Consume reads the topic from its current end and republishes foreign
// events on bus until ctx is done.
func (k *KafkaBridge) Consume(ctx context.Context, bus *Bus) error {
	l := logging.FromContext(ctx).With("component", "kafka_bridge")

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     k.brokers,
		Topic:       k.topic,
		Partition:   0,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     time.Second,
		StartOffset: kafka.LastOffset,
	})
	defer r.Close()

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka: read failed: %w", err)
		}

		var ev Event
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			l.Warn("event_decode_error", "offset", m.Offset, "error", err)
			continue
		}
		if ev.Origin == bus.Origin() {
			continue
		}
		bus.Publish(ctx, ev)
	}
}

func (k *KafkaBridge) Close() error {
	return k.writer.Close()
}
