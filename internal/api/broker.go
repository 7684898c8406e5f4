package api

import (
	"sync"
)

// SSEEvent is one schedule event delivered to a worker's stream.
type SSEEvent struct {
	ID   string         `json:"id,omitempty"`
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Broker fans events out to in-process subscribers keyed by worker id.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan SSEEvent]struct{} // workerId -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan SSEEvent]struct{}{}}
}

func (b *Broker) Subscribe(workerID string) chan SSEEvent {
	ch := make(chan SSEEvent, 8)
	b.mu.Lock()
	if b.subs[workerID] == nil { b.subs[workerID] = map[chan SSEEvent]struct{}{} }
	b.subs[workerID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(workerID string, ch chan SSEEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.subs[workerID]
	if _, ok := m[ch]; !ok { return }
	delete(m, ch)
	if len(m) == 0 { delete(b.subs, workerID) }
	close(ch)
}

// Publish never blocks; slow subscribers drop events.
func (b *Broker) Publish(workerID string, evt SSEEvent) {
	b.mu.Lock()
	m := b.subs[workerID]
	for ch := range m {
		select { case ch <- evt: default: }
	}
	b.mu.Unlock()
}
