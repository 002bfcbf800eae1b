package core

import (
	"sync"
	"sync/atomic"
)

// handle is the dispatch-side view of a registration. It resolves to the
// callback until the registration is revoked, after which it resolves to nil.
type handle struct {
	id SubscriptionID
	cb atomic.Pointer[Callback]
}

func newHandle(id SubscriptionID, cb Callback) *handle {
	h := &handle{id: id}
	h.cb.Store(&cb)
	return h
}

func (h *handle) resolve() Callback {
	if p := h.cb.Load(); p != nil {
		return *p
	}
	return nil
}

func (h *handle) revoke() {
	h.cb.Store(nil)
}

func (h *handle) revoked() bool {
	return h.cb.Load() == nil
}

// topic holds the registrations of one topic name
type topic struct {
	mu       sync.Mutex
	handlers map[SubscriptionID]*handle // owns the registrations
	dispatch []*handle                  // may still hold revoked handles until pruned
}

func newTopic() *topic {
	return &topic{handlers: make(map[SubscriptionID]*handle)}
}

// add registers h and passes the new count to report under the topic lock,
// so counts are reported in the order they took effect
func (t *topic) add(h *handle, report func(count int)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[h.id] = h
	t.dispatch = append(t.dispatch, h)
	report(len(t.handlers))
}

// remove revokes id if registered and prunes every revoked handle.
// When id was registered the remaining count goes to report under the topic lock.
func (t *topic) remove(id SubscriptionID, report func(count int)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.handlers[id]
	if ok {
		delete(t.handlers, id)
		h.revoke()
		report(len(t.handlers))
	}
	t.prune()
	return ok
}

// prune drops revoked handles from the dispatch list. Caller holds t.mu.
func (t *topic) prune() {
	live := t.dispatch[:0]
	for _, h := range t.dispatch {
		if !h.revoked() {
			live = append(live, h)
		}
	}
	for i := len(live); i < len(t.dispatch); i++ {
		t.dispatch[i] = nil
	}
	t.dispatch = live
}

// snapshot copies the dispatch list, pruning it on the way if it holds
// revoked handles.
func (t *topic) snapshot() []*handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*handle, 0, len(t.dispatch))
	stale := false
	for _, h := range t.dispatch {
		if h.revoked() {
			stale = true
			continue
		}
		out = append(out, h)
	}
	if stale {
		t.prune()
	}
	return out
}

func (t *topic) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.handlers)
}
