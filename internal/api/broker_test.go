package api

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("w1")
	other := b.Subscribe("w2")
	defer b.Unsubscribe("w2", other)

	evt := SSEEvent{Type: "test.event", Data: map[string]any{"x": 1}}
	b.Publish("w1", evt)

	got := next(t, ch)
	assert.Equal(t, evt.Type, got.Type)
	assert.Equal(t, 1, got.Data["x"])
	select {
	case e := <-other:
		t.Fatalf("event leaked to another worker: %+v", e)
	default:
	}

	b.Unsubscribe("w1", ch)
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")
	assert.NotPanics(t, func() { b.Unsubscribe("w1", ch) })
}

func TestBrokerDropsWhenSubscriberIsSlow(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("w1")
	defer b.Unsubscribe("w1", ch)
	for i := 0; i < 20; i++ {
		b.Publish("w1", SSEEvent{Type: "tick"})
	}
	assert.Len(t, ch, cap(ch))
}

func TestRedisBrokerRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	b, err := NewRedisBroker("redis://" + mr.Addr())
	require.NoError(t, err)

	ch := b.Subscribe("w1")
	b.Publish("w1", SSEEvent{ID: "e1", Type: EventReoptimized, Data: map[string]any{"runId": "r1", "jobs": 3}})

	got := next(t, ch)
	assert.Equal(t, "e1", got.ID)
	assert.Equal(t, EventReoptimized, got.Type)
	assert.Equal(t, "r1", got.Data["runId"])
	// numbers come back as JSON numbers
	assert.Equal(t, 3.0, got.Data["jobs"])

	b.Unsubscribe("w1", ch)
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}
}

func TestRedisBrokerBadURL(t *testing.T) {
	_, err := NewRedisBroker("not-a-url")
	assert.Error(t, err)
}
