package store

import "sync"

// Hub fans a "something changed" signal out to every open subscription.
// Signals coalesce: a subscriber that has not yet re-queried sees one
// pending signal no matter how many writes happened.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[int]chan struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan struct{})}
}

func (h *Hub) add() (int, <-chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	ch := make(chan struct{}, 1)
	h.subs[h.next] = ch
	return h.next, ch
}

func (h *Hub) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

// Broadcast marks every subscriber dirty.
func (h *Hub) Broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Len reports the number of open subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
