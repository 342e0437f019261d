package hub

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const publishTimeout = 2 * time.Second

// RedisHub is a Broadcaster backed by Redis pub/sub, letting several
// server instances share one set of groups.
type RedisHub struct {
	rdb *redis.Client
}

// NewRedisHub creates a hub over an already connected client.
func NewRedisHub(rdb *redis.Client) *RedisHub {
	return &RedisHub{rdb: rdb}
}

// Publish sends payload to the Redis channel named after group.
func (h *RedisHub) Publish(ctx context.Context, group string, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return h.rdb.Publish(ctx, group, payload).Err()
}

// Subscribe joins the Redis channel named after group and pumps its
// messages into the returned subscription.
func (h *RedisHub) Subscribe(group string) *Subscription {
	pubsub := h.rdb.Subscribe(context.Background(), group)

	sub := &Subscription{
		group: group,
		ch:    make(chan []byte, subscriptionBuffer),
	}
	sub.cancel = func() {
		if err := pubsub.Close(); err != nil {
			log.Printf("Error closing redis subscription for group %s: %v", group, err)
		}
	}

	go func() {
		defer close(sub.ch)
		for msg := range pubsub.Channel() {
			select {
			case sub.ch <- []byte(msg.Payload):
			default:
				log.Printf("Dropping message for slow subscriber in group %s", group)
			}
		}
	}()

	return sub
}
