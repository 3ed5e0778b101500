// Package event implements a small named-event emitter used by channels
// and host connections.
package event

import "sync"

// Handler is called with the arguments given to Emit.
type Handler func(args ...interface{})

type listener struct {
	id   uint64
	fn   Handler
	once bool
}

// Emitter dispatches named events to subscribed handlers in subscription
// order. The zero value is ready to use.
type Emitter struct {
	mu        sync.Mutex
	listeners map[string][]*listener
	nextID    uint64
}

// On subscribes fn to the named event. The returned func removes the
// subscription and is safe to call more than once.
func (e *Emitter) On(name string, fn Handler) func() {
	return e.add(name, fn, false)
}

// Once subscribes fn to the next emission of the named event only.
func (e *Emitter) Once(name string, fn Handler) func() {
	return e.add(name, fn, true)
}

func (e *Emitter) add(name string, fn Handler, once bool) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listeners == nil {
		e.listeners = make(map[string][]*listener)
	}
	e.nextID++
	l := &listener{id: e.nextID, fn: fn, once: once}
	e.listeners[name] = append(e.listeners[name], l)
	return func() {
		e.remove(name, l.id)
	}
}

func (e *Emitter) remove(name string, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ls := e.listeners[name]
	for i, l := range ls {
		if l.id == id {
			e.listeners[name] = append(ls[:i:i], ls[i+1:]...)
			break
		}
	}
	if len(e.listeners[name]) == 0 {
		delete(e.listeners, name)
	}
}

// Emit calls every handler subscribed to the named event, synchronously and
// in order. Handlers may subscribe or unsubscribe while being called; such
// changes take effect from the next Emit. It reports whether any handler
// was called.
func (e *Emitter) Emit(name string, args ...interface{}) bool {
	e.mu.Lock()
	ls := append([]*listener(nil), e.listeners[name]...)
	for _, l := range ls {
		if l.once {
			e.dropLocked(name, l.id)
		}
	}
	e.mu.Unlock()

	for _, l := range ls {
		l.fn(args...)
	}
	return len(ls) > 0
}

func (e *Emitter) dropLocked(name string, id uint64) {
	ls := e.listeners[name]
	for i, l := range ls {
		if l.id == id {
			e.listeners[name] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

// RemoveAll drops every subscription for the given event names, or for all
// events when no names are given.
func (e *Emitter) RemoveAll(names ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(names) == 0 {
		e.listeners = nil
		return
	}
	for _, name := range names {
		delete(e.listeners, name)
	}
}

// ListenerCount returns the number of handlers subscribed to name.
func (e *Emitter) ListenerCount(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[name])
}
