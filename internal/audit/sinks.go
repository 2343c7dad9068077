package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/cafeflow-backend/pkg/enums"
	"github.com/angelmondragon/cafeflow-backend/pkg/kafka"
	"github.com/angelmondragon/cafeflow-backend/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// LogSink writes each event as a structured log line.
type LogSink struct {
	logg *logger.Logger
}

func NewLogSink(logg *logger.Logger) (*LogSink, error) {
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &LogSink{logg: logg}, nil
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Write(ctx context.Context, events []Event) error {
	for _, event := range events {
		fields := map[string]any{
			"event_id":    event.ID.String(),
			"event_type":  event.Type,
			"occurred_at": event.OccurredAt.Format(time.RFC3339Nano),
			"actor_id":    event.ActorID,
			"actor_role":  event.ActorRole,
			"store_id":    event.StoreID,
			"order_id":    event.OrderID,
		}
		if event.FromStatus != "" {
			fields["from_status"] = event.FromStatus
		}
		if event.ToStatus != "" {
			fields["to_status"] = event.ToStatus
		}
		if event.Notes != "" {
			fields["notes"] = event.Notes
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "audit.event")
	}
	return nil
}

// AuditLog is a row of the audit_logs table.
type AuditLog struct {
	EventID    uuid.UUID `gorm:"column:event_id;type:uuid;primaryKey"`
	EventType  string    `gorm:"column:event_type;not null"`
	OccurredAt time.Time `gorm:"column:occurred_at;not null"`
	ActorID    string    `gorm:"column:actor_id"`
	ActorRole  string    `gorm:"column:actor_role"`
	StoreID    string    `gorm:"column:store_id"`
	OrderID    string    `gorm:"column:order_id"`
	FromStatus string    `gorm:"column:from_status"`
	ToStatus   string    `gorm:"column:to_status"`
	Notes      string    `gorm:"column:notes"`
	Data       string    `gorm:"column:data"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type gormProvider interface {
	DB() *gorm.DB
}

// GormSink batch-inserts events into audit_logs.
type GormSink struct {
	db gormProvider
}

func NewGormSink(db gormProvider) (*GormSink, error) {
	if db == nil {
		return nil, errors.New("database client is required")
	}
	return &GormSink{db: db}, nil
}

func (s *GormSink) Name() string { return "db" }

func (s *GormSink) Write(ctx context.Context, events []Event) error {
	rows := make([]AuditLog, 0, len(events))
	for _, event := range events {
		data := "{}"
		if len(event.Data) > 0 {
			raw, err := json.Marshal(event.Data)
			if err != nil {
				return fmt.Errorf("encode audit data %s: %w", event.ID, err)
			}
			data = string(raw)
		}
		rows = append(rows, AuditLog{
			EventID:    event.ID,
			EventType:  event.Type.String(),
			OccurredAt: event.OccurredAt.UTC(),
			ActorID:    event.ActorID,
			ActorRole:  event.ActorRole.String(),
			StoreID:    event.StoreID,
			OrderID:    event.OrderID,
			FromStatus: event.FromStatus.String(),
			ToStatus:   event.ToStatus.String(),
			Notes:      event.Notes,
			Data:       data,
		})
	}
	return s.db.DB().WithContext(ctx).CreateInBatches(rows, len(rows)).Error
}

// PublishResult is the handle returned by a Pub/Sub publish.
type PublishResult interface {
	Get(ctx context.Context) (string, error)
}

// PubSubPublisher is the publishing surface of a Pub/Sub topic.
type PubSubPublisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) PublishResult
}

type gcpPublisher struct {
	publisher *gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) PublishResult {
	return p.publisher.Publish(ctx, msg)
}

// PubSubSink publishes each event as a JSON message.
type PubSubSink struct {
	publisher PubSubPublisher
}

// NewPubSubSink wraps a topic publisher from pkg/pubsub.
func NewPubSubSink(publisher *gcppubsub.Publisher) (*PubSubSink, error) {
	if publisher == nil {
		return nil, errors.New("pubsub publisher is required")
	}
	return NewPubSubSinkWith(gcpPublisher{publisher: publisher})
}

func NewPubSubSinkWith(publisher PubSubPublisher) (*PubSubSink, error) {
	if publisher == nil {
		return nil, errors.New("pubsub publisher is required")
	}
	return &PubSubSink{publisher: publisher}, nil
}

func (s *PubSubSink) Name() string { return "pubsub" }

func (s *PubSubSink) Write(ctx context.Context, events []Event) error {
	results := make([]PublishResult, 0, len(events))
	for _, event := range events {
		body, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", event.ID, err)
		}
		results = append(results, s.publisher.Publish(ctx, &gcppubsub.Message{
			Data:       body,
			Attributes: attributes(event),
		}))
	}
	var errs error
	for _, result := range results {
		if result == nil {
			errs = multierr.Append(errs, errors.New("publisher returned no result"))
			continue
		}
		if _, err := result.Get(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

type kafkaPublisher interface {
	Publish(ctx context.Context, msgs []kafka.Message) error
}

// KafkaSink sends a batch through a sync producer keyed by order id.
type KafkaSink struct {
	producer kafkaPublisher
}

func NewKafkaSink(producer kafkaPublisher) (*KafkaSink, error) {
	if producer == nil {
		return nil, errors.New("kafka producer is required")
	}
	return &KafkaSink{producer: producer}, nil
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Write(ctx context.Context, events []Event) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		body, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", event.ID, err)
		}
		key := event.OrderID
		if key == "" {
			key = event.StoreID
		}
		msgs = append(msgs, kafka.Message{Key: key, Value: body, Headers: attributes(event)})
	}
	return s.producer.Publish(ctx, msgs)
}

type amqpPublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte, headers map[string]string) error
}

// AMQPSink publishes to a topic exchange, one routing key per event type.
type AMQPSink struct {
	publisher amqpPublisher
}

func NewAMQPSink(publisher amqpPublisher) (*AMQPSink, error) {
	if publisher == nil {
		return nil, errors.New("amqp publisher is required")
	}
	return &AMQPSink{publisher: publisher}, nil
}

func (s *AMQPSink) Name() string { return "amqp" }

func (s *AMQPSink) Write(ctx context.Context, events []Event) error {
	var errs error
	for _, event := range events {
		body, err := json.Marshal(event)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("encode event %s: %w", event.ID, err))
			continue
		}
		if err := s.publisher.Publish(ctx, event.RoutingKey(), body, attributes(event)); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

type textNotifier interface {
	Notify(ctx context.Context, text string) error
}

// TelegramSink alerts the staff chat about new orders. Other event types are
// ignored.
type TelegramSink struct {
	notifier textNotifier
}

func NewTelegramSink(notifier textNotifier) (*TelegramSink, error) {
	if notifier == nil {
		return nil, errors.New("telegram notifier is required")
	}
	return &TelegramSink{notifier: notifier}, nil
}

func (s *TelegramSink) Name() string { return "telegram" }

func (s *TelegramSink) Write(ctx context.Context, events []Event) error {
	var errs error
	for _, event := range events {
		if event.Type != enums.AuditEventOrderCreated {
			continue
		}
		if err := s.notifier.Notify(ctx, NewOrderAlert(event)); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// NewOrderAlert renders the staff chat message for an order.created event.
func NewOrderAlert(event Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New order %s at store %s", shortID(event.OrderID), event.StoreID)
	if kind, ok := event.Data["kind"].(string); ok && kind != "" && kind != "customer" {
		fmt.Fprintf(&b, " (%s)", kind)
	}
	if items, ok := event.Data["items"].(int); ok {
		fmt.Fprintf(&b, "\nItems: %d", items)
	}
	if total, ok := event.Data["total"].(float64); ok {
		fmt.Fprintf(&b, "\nTotal: %.0f", total)
	}
	if option, ok := event.Data["deliveryOption"]; ok {
		fmt.Fprintf(&b, "\nDelivery: %v", option)
	}
	if method, ok := event.Data["paymentMethod"]; ok {
		fmt.Fprintf(&b, "\nPayment: %v", method)
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) <= 8 {
		return "#" + id
	}
	return "#" + id[:8]
}

func attributes(event Event) map[string]string {
	attrs := map[string]string{
		"event_id":    event.ID.String(),
		"event_type":  event.Type.String(),
		"occurred_at": event.OccurredAt.Format(time.RFC3339Nano),
	}
	if event.StoreID != "" {
		attrs["store_id"] = event.StoreID
	}
	if event.OrderID != "" {
		attrs["order_id"] = event.OrderID
	}
	return attrs
}
