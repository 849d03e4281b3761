package events

import "sync"

const subscriberBuffer = 16

// Broker tracks connected observers grouped by board id and broadcasts
// envelopes to them. Sends are non-blocking: an observer whose buffer is
// full misses the event and is expected to refresh via the list endpoint.
type Broker struct {
	mu     sync.Mutex
	boards map[string]map[chan Envelope]struct{}
}

func NewBroker() *Broker {
	return &Broker{boards: make(map[string]map[chan Envelope]struct{})}
}

// Subscribe registers an observer of the given board and returns its
// delivery channel.
func (b *Broker) Subscribe(board string) chan Envelope {
	ch := make(chan Envelope, subscriberBuffer)
	b.mu.Lock()
	subs, ok := b.boards[board]
	if !ok {
		subs = make(map[chan Envelope]struct{})
		b.boards[board] = subs
	}
	subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes an observer. Its channel is not closed; the observer
// owns the read side.
func (b *Broker) Unsubscribe(board string, ch chan Envelope) {
	b.mu.Lock()
	if subs, ok := b.boards[board]; ok {
		delete(subs, ch)
		if len(subs) == 0 {
			delete(b.boards, board)
		}
	}
	b.mu.Unlock()
}

// Broadcast delivers the envelope to every observer of its board.
func (b *Broker) Broadcast(env Envelope) {
	b.mu.Lock()
	for ch := range b.boards[env.Board] {
		select {
		case ch <- env:
		default:
		}
	}
	b.mu.Unlock()
}

// Observers reports the number of connected observers for a board.
func (b *Broker) Observers(board string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.boards[board])
}
