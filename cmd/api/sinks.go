package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/angelmondragon/cafeflow-backend/internal/audit"
	"github.com/angelmondragon/cafeflow-backend/pkg/config"
	"github.com/angelmondragon/cafeflow-backend/pkg/db"
	"github.com/angelmondragon/cafeflow-backend/pkg/kafka"
	"github.com/angelmondragon/cafeflow-backend/pkg/logger"
	"github.com/angelmondragon/cafeflow-backend/pkg/pubsub"
	"github.com/angelmondragon/cafeflow-backend/pkg/rabbitmq"
	"github.com/angelmondragon/cafeflow-backend/pkg/telegram"
)

// buildSinks opens every audit sink named in CAFEFLOW_AUDIT_SINKS. The
// returned closers release broker connections after the dispatcher drains.
func buildSinks(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client) ([]audit.Sink, []io.Closer, error) {
	var (
		sinks   []audit.Sink
		closers []io.Closer
	)
	fail := func(name string, err error) ([]audit.Sink, []io.Closer, error) {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, nil, fmt.Errorf("audit sink %s: %w", name, err)
	}

	for _, raw := range cfg.Audit.Sinks {
		name := strings.ToLower(strings.TrimSpace(raw))
		switch name {
		case "":
			continue
		case "log":
			sink, err := audit.NewLogSink(logg)
			if err != nil {
				return fail(name, err)
			}
			sinks = append(sinks, sink)
		case "db":
			sink, err := audit.NewGormSink(dbClient)
			if err != nil {
				return fail(name, err)
			}
			sinks = append(sinks, sink)
		case "pubsub":
			client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
			if err != nil {
				return fail(name, err)
			}
			closers = append(closers, client)
			sink, err := audit.NewPubSubSink(client.AuditPublisher())
			if err != nil {
				return fail(name, err)
			}
			sinks = append(sinks, sink)
		case "kafka":
			producer, err := kafka.NewProducer(cfg.Kafka)
			if err != nil {
				return fail(name, err)
			}
			closers = append(closers, producer)
			sink, err := audit.NewKafkaSink(producer)
			if err != nil {
				return fail(name, err)
			}
			sinks = append(sinks, sink)
		case "amqp", "rabbitmq":
			publisher, err := rabbitmq.Dial(cfg.RabbitMQ)
			if err != nil {
				return fail(name, err)
			}
			closers = append(closers, publisher)
			sink, err := audit.NewAMQPSink(publisher)
			if err != nil {
				return fail(name, err)
			}
			sinks = append(sinks, sink)
		case "telegram":
			notifier, err := telegram.New(cfg.Telegram)
			if err != nil {
				return fail(name, err)
			}
			sink, err := audit.NewTelegramSink(notifier)
			if err != nil {
				return fail(name, err)
			}
			sinks = append(sinks, sink)
		default:
			return fail(name, fmt.Errorf("unknown sink"))
		}
		logg.Info(logg.WithField(ctx, "sink", name), "audit.sink.enabled")
	}
	return sinks, closers, nil
}
