package server

import (
	"encoding/json"
	"sync"
	"time"
)

// CompletionEvent is published whenever a session is completed.
type CompletionEvent struct {
	Type        string    `json:"type"`
	SessionID   string    `json:"sessionId"`
	ResultType  string    `json:"resultType"`
	CompletedAt time.Time `json:"completedAt"`
}

// Broker is an in-process pub/sub feeding the data event stream.
type Broker struct {
	mu   sync.RWMutex
	subs map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// Publish sends an event to every subscriber. Slow subscribers miss it.
func (b *Broker) Publish(event CompletionEvent) {
	data, _ := json.Marshal(event)
	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- data:
		default:
		}
	}
	b.mu.RUnlock()
}

func (b *Broker) subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
