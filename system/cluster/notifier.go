package cluster

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/r3e-network/jsagent/pkg/logger"
)

// EventKind distinguishes the two lifecycle announcements a RedisNotifier
// publishes.
type EventKind string

const (
	EventAgentCreated  EventKind = "agent_created"
	EventAgentDisposed EventKind = "agent_disposed"
)

// Event is the JSON payload published to the coordination channel.
type Event struct {
	ClusterID string    `json:"cluster_id"`
	AgentID   string    `json:"agent_id"`
	Kind      EventKind `json:"event"`
}

// RedisNotifier publishes agent lifecycle events to a shared Redis channel
// so multiple processes sharing a cluster id can observe each other's
// agent churn. Entirely optional: a nil *RedisNotifier is valid and every
// method on it no-ops, matching spec.md §4.18's "fully optional" framing.
type RedisNotifier struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisNotifier wraps an already-constructed go-redis client.
func NewRedisNotifier(client *redis.Client, log *logger.Logger) *RedisNotifier {
	if log == nil {
		log = logger.NewDefault("cluster.notifier")
	}
	return &RedisNotifier{client: client, log: log}
}

// Channel returns the pub/sub channel name for clusterID.
func Channel(clusterID string) string {
	return fmt.Sprintf("jsagent:%s:events", clusterID)
}

// Publish announces evt on its cluster's channel. A publish failure is
// logged and swallowed — losing a coordination event must never fail the
// agent operation that triggered it.
func (n *RedisNotifier) Publish(ctx context.Context, evt Event) {
	if n == nil || n.client == nil {
		return
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		n.log.WithField("error", err).Warn("cluster: failed to marshal event")
		return
	}
	if err := n.client.Publish(ctx, Channel(evt.ClusterID), payload).Err(); err != nil {
		n.log.WithField("error", err).Warn("cluster: failed to publish event")
	}
}

// Subscribe returns a channel of decoded Events for clusterID, for
// operators running more than one process. Callers must eventually cancel
// ctx to release the subscription.
func (n *RedisNotifier) Subscribe(ctx context.Context, clusterID string) (<-chan Event, error) {
	if n == nil || n.client == nil {
		return nil, fmt.Errorf("cluster: notifier has no redis client")
	}
	sub := n.client.Subscribe(ctx, Channel(clusterID))
	if _, err := sub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("cluster: subscribe: %w", err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					n.log.WithField("error", err).Warn("cluster: failed to decode event")
					continue
				}
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
