package broadcast

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// RedisBroker routes events through Redis pub/sub so broadcasts reach
// clients connected to other instances.
type RedisBroker struct {
	client *redis.Client
}

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Publish(ctx context.Context, code string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := b.client.Publish(ctx, channelKey(code), data).Err(); err != nil {
		// Fire-and-forget: log and move on.
		log.Printf("broadcast publish for %s failed: %v", code, err)
	}
}

func (b *RedisBroker) Subscribe(ctx context.Context, code string) (<-chan Event, func()) {
	pubsub := b.client.Subscribe(ctx, channelKey(code))
	ch := make(chan Event, 16)

	go func() {
		defer close(ch)
		for msg := range pubsub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			select {
			case ch <- event:
			default:
				// Drop for slow subscribers, same policy as the
				// in-process broker.
			}
		}
	}()

	cancel := func() { _ = pubsub.Close() }
	return ch, cancel
}

func channelKey(code string) string {
	return "session:events:" + code
}
