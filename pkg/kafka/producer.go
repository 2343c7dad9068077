package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/IBM/sarama"
	"github.com/angelmondragon/cafeflow-backend/pkg/config"
)

// Message is one record destined for the configured topic.
type Message struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

// Producer publishes batches synchronously so callers learn about failures.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewProducer dials the configured brokers.
func NewProducer(cfg config.KafkaConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("kafka topic is required")
	}
	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Idempotent = true
	sc.Net.MaxOpenRequests = 1
	if cfg.Timeout > 0 {
		sc.Producer.Timeout = cfg.Timeout
	}
	prod, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}
	return &Producer{producer: prod, topic: cfg.Topic}, nil
}

// NewProducerWith wraps an existing sarama producer.
func NewProducerWith(producer sarama.SyncProducer, topic string) (*Producer, error) {
	if producer == nil {
		return nil, errors.New("kafka producer is required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("kafka topic is required")
	}
	return &Producer{producer: producer, topic: topic}, nil
}

// Topic returns the destination topic.
func (p *Producer) Topic() string { return p.topic }

// Publish sends msgs in one request. Messages sharing a key land on the same
// partition, which keeps per-order events in order.
func (p *Producer) Publish(ctx context.Context, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	batch := make([]*sarama.ProducerMessage, 0, len(msgs))
	for _, m := range msgs {
		pm := &sarama.ProducerMessage{
			Topic: p.topic,
			Value: sarama.ByteEncoder(m.Value),
		}
		if m.Key != "" {
			pm.Key = sarama.StringEncoder(m.Key)
		}
		for k, v := range m.Headers {
			pm.Headers = append(pm.Headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
		}
		batch = append(batch, pm)
	}
	if err := p.producer.SendMessages(batch); err != nil {
		return fmt.Errorf("kafka send %d messages to %s: %w", len(batch), p.topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
