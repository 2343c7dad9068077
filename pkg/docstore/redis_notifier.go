package docstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/cafeflow-backend/pkg/logger"
	goredis "github.com/redis/go-redis/v9"
)

// PubSubClient is the redis surface used for cross-instance change fan-out.
type PubSubClient interface {
	Publish(ctx context.Context, channel string, message any) error
	Subscribe(ctx context.Context, channels ...string) (*goredis.PubSub, error)
}

// RedisNotifier forwards local change notifications to other API instances
// over a redis channel and relays theirs into the local notifier.
type RedisNotifier struct {
	client     PubSubClient
	channel    string
	instanceID string
	local      ChangeNotifier
	logg       *logger.Logger
}

func NewRedisNotifier(client PubSubClient, channel, instanceID string, local ChangeNotifier, logg *logger.Logger) (*RedisNotifier, error) {
	if client == nil {
		return nil, fmt.Errorf("docstore: redis client required")
	}
	if strings.TrimSpace(channel) == "" {
		return nil, fmt.Errorf("docstore: redis channel required")
	}
	if local == nil {
		return nil, fmt.Errorf("docstore: local notifier required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &RedisNotifier{
		client:     client,
		channel:    channel,
		instanceID: instanceID,
		local:      local,
		logg:       logg,
	}, nil
}

// Changed wakes local subscribers first, then publishes. Publish failures only
// delay remote viewers until their next notification, so they are logged.
func (n *RedisNotifier) Changed(ctx context.Context, collection string) {
	n.local.Changed(ctx, collection)
	if err := n.client.Publish(ctx, n.channel, n.encode(collection)); err != nil {
		n.logg.Warn(n.logg.WithField(ctx, "collection", collection), "docstore.notify.publish_failed")
	}
}

// Run relays remote notifications until ctx is cancelled.
func (n *RedisNotifier) Run(ctx context.Context) error {
	sub, err := n.client.Subscribe(ctx, n.channel)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", n.channel, err)
	}
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("confirm subscription %s: %w", n.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			n.handle(ctx, msg.Payload)
		}
	}
}

func (n *RedisNotifier) encode(collection string) string {
	return n.instanceID + "|" + collection
}

func (n *RedisNotifier) handle(ctx context.Context, payload string) {
	origin, collection, ok := strings.Cut(payload, "|")
	if !ok || collection == "" {
		n.logg.Warn(n.logg.WithField(ctx, "payload", payload), "docstore.notify.malformed")
		return
	}
	if origin == n.instanceID {
		return
	}
	n.local.Changed(ctx, collection)
}
