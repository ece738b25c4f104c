// Package event provides an in-process event dispatcher for lifecycle hooks.
package event

import "sync"

// Listener receives an event payload and may return a result. A nil return
// abstains; for cancellable events a false return aborts the operation.
type Listener = func(payload any) any

// Dispatcher routes named events to listeners in registration order. It is
// safe for concurrent use.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
}

// New creates an empty Dispatcher.
func New() *Dispatcher {
	return &Dispatcher{listeners: make(map[string][]Listener)}
}

// Listen registers a listener for a named event.
func (d *Dispatcher) Listen(event string, fn Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[event] = append(d.listeners[event], fn)
}

// Fire runs every listener for the event in order, ignoring results.
func (d *Dispatcher) Fire(event string, payload any) {
	for _, fn := range d.snapshot(event) {
		fn(payload)
	}
}

// Until runs listeners in order and returns the first non-nil result, or
// nil when every listener abstains.
func (d *Dispatcher) Until(event string, payload any) any {
	for _, fn := range d.snapshot(event) {
		if res := fn(payload); res != nil {
			return res
		}
	}
	return nil
}

// Forget removes all listeners for an event.
func (d *Dispatcher) Forget(event string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.listeners, event)
}

// HasListeners reports whether any listener is registered for the event.
func (d *Dispatcher) HasListeners(event string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[event]) > 0
}

// snapshot copies the listener list so firing does not hold the lock.
func (d *Dispatcher) snapshot(event string) []Listener {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Listener(nil), d.listeners[event]...)
}
