package api

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type EventBroker interface {
	Subscribe(workerID string) chan SSEEvent
	Unsubscribe(workerID string, ch chan SSEEvent)
	Publish(workerID string, evt SSEEvent)
}

// RedisBroker implements EventBroker over Redis Pub/Sub so every replica
// sees schedule events regardless of which one ran the re-optimization.
type RedisBroker struct {
	rdb *redis.Client

	mu   sync.Mutex
	subs map[chan SSEEvent]*redis.PubSub
}

func NewRedisBroker(url string) (*RedisBroker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil { return nil, err }
	return NewRedisBrokerClient(redis.NewClient(opt)), nil
}

func NewRedisBrokerClient(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{rdb: rdb, subs: map[chan SSEEvent]*redis.PubSub{}}
}

func (b *RedisBroker) Subscribe(workerID string) chan SSEEvent {
	ch := make(chan SSEEvent, 16)
	ctx := context.Background()
	ps := b.rdb.Subscribe(ctx, b.chanName(workerID))
	// wait for the subscription to be confirmed before returning
	if _, err := ps.Receive(ctx); err != nil {
		log.Printf("[broker] subscribe worker=%s err=%v", workerID, err)
	}
	b.mu.Lock()
	b.subs[ch] = ps
	b.mu.Unlock()
	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			var evt SSEEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err == nil {
				select { case ch <- evt: default: }
			}
		}
	}()
	return ch
}

// Unsubscribe closes the underlying PubSub; the forwarding goroutine then
// closes ch.
func (b *RedisBroker) Unsubscribe(workerID string, ch chan SSEEvent) {
	b.mu.Lock()
	ps := b.subs[ch]
	delete(b.subs, ch)
	b.mu.Unlock()
	if ps != nil { _ = ps.Close() }
}

func (b *RedisBroker) Publish(workerID string, evt SSEEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, _ := json.Marshal(evt)
	if err := b.rdb.Publish(ctx, b.chanName(workerID), data).Err(); err != nil {
		log.Printf("[broker] publish worker=%s type=%s err=%v", workerID, evt.Type, err)
	}
}

func (b *RedisBroker) chanName(workerID string) string { return "worker:" + workerID }
