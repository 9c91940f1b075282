package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/nutrikeeper/internal/logging"
	redis "github.com/redis/go-redis/v9"
)

const channelPrefix = "nutrikeeper:changes:"

// RedisNotifier publishes change events on Redis pub/sub and relays events
// from every replica, this one included, into a local Hub.
type RedisNotifier struct {
	client *redis.Client
	hub    *Hub
	logger logging.Logger
}

// NewRedisNotifier connects to addr and verifies the connection.
func NewRedisNotifier(ctx context.Context, addr string, hub *Hub, logger logging.Logger) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping error: %w", err)
	}

	return newRedisNotifier(client, hub, logger), nil
}

func newRedisNotifier(client *redis.Client, hub *Hub, logger logging.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, hub: hub, logger: logger.With("module", "redis_notifier")}
}

func channelName(collection string) string {
	return channelPrefix + collection
}

// Publish announces a change of collection to all replicas.
func (n *RedisNotifier) Publish(ctx context.Context, collection string) error {
	if err := n.client.Publish(ctx, channelName(collection), collection).Err(); err != nil {
		return fmt.Errorf("redis publish error: %w", err)
	}
	return nil
}

// Run relays change events into the hub until ctx is done.
func (n *RedisNotifier) Run(ctx context.Context) error {
	ps := n.client.PSubscribe(ctx, channelPrefix+"*")
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe error: %w", err)
	}
	n.logger.Info(ctx, "Relaying change events from redis")

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			n.deliver(ctx, msg)
		}
	}
}

func (n *RedisNotifier) deliver(ctx context.Context, msg *redis.Message) {
	collection, ok := strings.CutPrefix(msg.Channel, channelPrefix)
	if !ok || collection == "" {
		n.logger.Debug(ctx, "ignoring foreign channel", "channel", msg.Channel)
		return
	}
	_ = n.hub.Publish(ctx, collection)
}

func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
