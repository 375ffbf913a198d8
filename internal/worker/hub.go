package worker

import (
	"sync"
	"time"
)

const finishedRetention = 5 * time.Minute

// Hub fans task progress out to subscribers keyed by task id. Subscribers
// may attach before the task starts.
type Hub struct {
	mu       sync.Mutex
	next     int
	subs     map[string]map[int]chan float64
	last     map[string]float64
	finished map[string]time.Time
	now      func() time.Time
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs:     make(map[string]map[int]chan float64),
		last:     make(map[string]float64),
		finished: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Publish records p for id. Values below the last published one are ignored.
func (h *Hub) Publish(id string, p float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, done := h.finished[id]; done {
		return
	}
	if last, ok := h.last[id]; ok && p <= last {
		return
	}
	h.last[id] = p
	for _, ch := range h.subs[id] {
		select {
		case ch <- p:
		default:
		}
	}
}

// Subscribe returns a channel of progress values for id and a release
// function. The channel closes when the task finishes.
func (h *Hub) Subscribe(id string) (<-chan float64, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan float64, 8)
	if _, done := h.finished[id]; done {
		close(ch)
		return ch, func() {}
	}
	if last, ok := h.last[id]; ok {
		ch <- last
	}
	h.next++
	key := h.next
	if h.subs[id] == nil {
		h.subs[id] = make(map[int]chan float64)
	}
	h.subs[id][key] = ch
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if subs, ok := h.subs[id]; ok {
			if c, ok := subs[key]; ok {
				delete(subs, key)
				close(c)
			}
			if len(subs) == 0 {
				delete(h.subs, id)
			}
		}
	}
}

// Finish closes every subscription for id.
func (h *Hub) Finish(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[id] {
		close(ch)
	}
	delete(h.subs, id)
	delete(h.last, id)
	now := h.now()
	h.finished[id] = now
	for k, at := range h.finished {
		if now.Sub(at) > finishedRetention {
			delete(h.finished, k)
		}
	}
}
