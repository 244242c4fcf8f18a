package present

import (
	"sync"

	"github.com/dgallion1/layertree/internal/metrics"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 64

// Broadcaster fans messages out to every connected panel.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[chan Message]struct{}
	buffer      int
}

// NewBroadcaster creates a broadcaster; buffer <= 0 uses DefaultBuffer.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broadcaster{
		subscribers: make(map[chan Message]struct{}),
		buffer:      buffer,
	}
}

// Subscribe adds a new subscriber and returns its message channel.
// The caller must call Unsubscribe when done.
func (b *Broadcaster) Subscribe() chan Message {
	ch := make(chan Message, b.buffer)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	n := len(b.subscribers)
	b.mu.Unlock()
	metrics.SetSubscribersActive(n)
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(ch chan Message) {
	b.mu.Lock()
	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
	n := len(b.subscribers)
	b.mu.Unlock()
	metrics.SetSubscribersActive(n)
}

// Publish sends a message to all subscribers. Non-blocking: drops messages
// for slow consumers.
func (b *Broadcaster) Publish(m Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- m:
		default:
		}
	}
	metrics.RecordMessage(m.Type)
}

// Count returns the current number of subscribers.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
