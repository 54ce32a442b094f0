/*
Package observe provides a small subscribe/notify fan-out used by the state containers.

Subscribers receive immutable snapshots; all mutation stays inside the owning container,
which calls Notify after committing a change. Every snapshot carries the sequence number
of the commit that produced it: delivery is serialized, and a snapshot arriving after a
newer one has already been delivered is dropped, so subscribers never observe state
moving backwards even when commits race on the hand-off to the hub.
*/
package observe

import "sync"

// Hub fans a value of type T out to registered subscribers.
type Hub[T any] struct {
	// mu protects concurrent access to the subs map.
	mu sync.RWMutex

	// next is the identifier assigned to the next subscriber.
	next int

	// subs stores the registered subscriber callbacks, keyed by identifier.
	subs map[int]func(T)

	// deliver serializes Notify calls so snapshots reach subscribers in commit order.
	deliver sync.Mutex

	// lastSeq is the sequence number of the newest snapshot delivered so far.
	lastSeq uint64
}

// Subscribe registers fn to be invoked on every Notify call.
// It returns a cancel function that removes the subscription.
func (h *Hub[T]) Subscribe(fn func(T)) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs == nil {
		h.subs = make(map[int]func(T))
	}

	id := h.next
	h.next++
	h.subs[id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

// Notify invokes every registered subscriber with v, sequentially. seq is the
// commit sequence that produced v, assigned by the owning container under its
// state lock. A notification that lost the race to a newer commit is dropped;
// the newer snapshot already contains the older commit's mutation.
func (h *Hub[T]) Notify(seq uint64, v T) {
	h.deliver.Lock()
	defer h.deliver.Unlock()

	if seq <= h.lastSeq {
		return
	}
	h.lastSeq = seq

	h.mu.RLock()
	fns := make([]func(T), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(v)
	}
}
