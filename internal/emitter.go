package internal

import "sync"

// Emitter fans a value out to registered listeners, synchronously and in
// registration order. Listeners may be added or removed from any goroutine,
// including from inside a listener.
type Emitter[T any] struct {
	mu        sync.RWMutex
	nextID    int
	listeners []listener[T]
}

type listener[T any] struct {
	id int
	fn func(T)
}

// On registers fn and returns a function that removes it.
func (e *Emitter[T]) On(fn func(T)) (off func()) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners = append(e.listeners, listener[T]{id: id, fn: fn})
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, l := range e.listeners {
			if l.id == id {
				e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

// Emit delivers v to the listeners registered when Emit was called.
func (e *Emitter[T]) Emit(v T) {
	e.mu.RLock()
	snapshot := e.listeners
	e.mu.RUnlock()

	for _, l := range snapshot {
		l.fn(v)
	}
}

// Len returns the number of registered listeners.
func (e *Emitter[T]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners)
}
