package events

import "sync"

// Listener receives the payload of an emitted event.
type Listener func(payload any)

// Subscription identifies one registered listener. The zero value is
// never returned by Subscribe.
type Subscription struct {
	id   uint64
	kind any
}

// Valid reports whether s was returned by Subscribe.
func (s Subscription) Valid() bool { return s.id != 0 }

type entry struct {
	id uint64
	fn Listener
}

// Emitter is a registry of listeners keyed by event kind. Every
// registration gets its own handle so callers can remove exactly what
// they added, even when the same func is registered twice.
//
// All methods are safe for concurrent use.
type Emitter[K comparable] struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[K][]entry
}

// NewEmitter returns an empty Emitter.
func NewEmitter[K comparable]() *Emitter[K] {
	return &Emitter[K]{listeners: make(map[K][]entry)}
}

// Subscribe registers fn for kind and returns its handle.
func (e *Emitter[K]) Subscribe(kind K, fn Listener) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listeners == nil {
		e.listeners = make(map[K][]entry)
	}
	e.nextID++
	e.listeners[kind] = append(e.listeners[kind], entry{id: e.nextID, fn: fn})
	return Subscription{id: e.nextID, kind: kind}
}

// Unsubscribe removes the listener behind s. It returns false when s is
// unknown, already removed, or belongs to another kind.
func (e *Emitter[K]) Unsubscribe(s Subscription) bool {
	kind, ok := s.kind.(K)
	if !ok || !s.Valid() {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	list := e.listeners[kind]
	for i, l := range list {
		if l.id != s.id {
			continue
		}
		// Copy so a concurrent Emit iterating the old slice is unaffected.
		next := make([]entry, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		if len(next) == 0 {
			delete(e.listeners, kind)
		} else {
			e.listeners[kind] = next
		}
		return true
	}
	return false
}

// Emit calls every listener registered for kind, in registration order.
// The listener set is snapshotted first, so listeners may subscribe or
// unsubscribe from inside the callback.
func (e *Emitter[K]) Emit(kind K, payload any) {
	e.mu.Lock()
	list := e.listeners[kind]
	e.mu.Unlock()
	for _, l := range list {
		l.fn(payload)
	}
}

// RemoveAll drops every listener of every kind.
func (e *Emitter[K]) RemoveAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = make(map[K][]entry)
}

// ListenerCount returns how many listeners are registered for kind.
func (e *Emitter[K]) ListenerCount(kind K) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[kind])
}
