package log

import (
	"sync"
	"sync/atomic"
)

const defaultBufferSize = 64

// Publisher is an [io.Writer] that fans out written bytes to subscribers.
//
// Each [Publisher.Write] copies the input once and delivers it to every
// active [Subscription] over a buffered channel with ring-buffer semantics:
// when a subscriber falls behind, the oldest entry is dropped so Write
// never blocks. The pipeline logs diagnostics through a Publisher so the
// CLI can stream warnings to stderr while tests capture the same records.
// Safe for concurrent use.
type Publisher struct {
	subscribers []*Subscription
	bufSize     int
	mu          sync.Mutex
	closed      bool
}

// NewPublisher creates a [Publisher].
func NewPublisher() *Publisher {
	return &Publisher{bufSize: defaultBufferSize}
}

// Write copies b and sends the copy to all active subscribers, dropping the
// oldest buffered entry when a subscriber's channel is full. Closed
// subscriptions are compacted out. Write always returns len(b), nil.
func (p *Publisher) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return len(b), nil
	}

	entry := make([]byte, len(b))
	copy(entry, b)

	alive := p.subscribers[:0]

	for _, sub := range p.subscribers {
		if sub.closed.Load() {
			close(sub.ch)

			continue
		}

		select {
		case sub.ch <- entry:
		default:
			<-sub.ch
			sub.ch <- entry
		}

		alive = append(alive, sub)
	}

	for i := len(alive); i < len(p.subscribers); i++ {
		p.subscribers[i] = nil
	}

	p.subscribers = alive

	return len(b), nil
}

// Subscribe creates and registers a new [Subscription]. Subscribing to a
// closed Publisher returns a subscription whose channel is already closed.
func (p *Publisher) Subscribe() *Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()

	sub := &Subscription{ch: make(chan []byte, p.bufSize)}

	if p.closed {
		close(sub.ch)

		return sub
	}

	p.subscribers = append(p.subscribers, sub)

	return sub
}

// Close closes every subscription channel and drops the subscriber list.
// Idempotent.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true

	for _, sub := range p.subscribers {
		close(sub.ch)
	}

	p.subscribers = nil

	return nil
}

// Subscription receives log entries from a [Publisher].
type Subscription struct {
	ch     chan []byte
	closed atomic.Bool
}

// C returns the channel delivering log entries. Callers must not modify the
// received byte slices.
func (s *Subscription) C() <-chan []byte {
	return s.ch
}

// Close marks the subscription closed; the Publisher closes the underlying
// channel on its next Write or Close. Idempotent.
func (s *Subscription) Close() {
	s.closed.Store(true)
}
