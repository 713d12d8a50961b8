package reverie

import "sync"

// EventType is a typed event key. The payload type is fixed when the key is
// declared, so listeners and emitters agree at compile time.
type EventType[P any] struct {
	name string
}

// NewEventType declares an event key with the given name.
func NewEventType[P any](name string) EventType[P] {
	return EventType[P]{name: name}
}

// Name returns the event name.
func (e EventType[P]) Name() string { return e.name }

// --- Dispatcher ---

type listener struct {
	id uint32
	fn any // func(P) for the event's P; nil once removed
}

type listenerList struct {
	entries []listener
	index   map[uint32]int
	dead    int
}

// Dispatcher is a per-entity publish/subscribe channel. Each Scene owns one;
// there is no process-wide bus. The zero value is ready to use.
type Dispatcher struct {
	mu     sync.Mutex
	lists  map[string]*listenerList
	nextID uint32
}

// CallbackHandle allows removing a registered listener.
type CallbackHandle struct {
	id    uint32
	event string
	d     *Dispatcher
}

// Remove unregisters the listener so it no longer fires. Removing twice is a
// no-op.
func (h CallbackHandle) Remove() {
	if h.d == nil {
		return
	}
	h.d.remove(h.event, h.id)
}

// On registers fn for ev and returns a handle to remove it later.
func On[P any](d *Dispatcher, ev EventType[P], fn func(P)) CallbackHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lists == nil {
		d.lists = make(map[string]*listenerList)
	}
	l := d.lists[ev.name]
	if l == nil {
		l = &listenerList{index: make(map[uint32]int)}
		d.lists[ev.name] = l
	}
	d.nextID++
	id := d.nextID
	l.index[id] = len(l.entries)
	l.entries = append(l.entries, listener{id: id, fn: fn})
	return CallbackHandle{id: id, event: ev.name, d: d}
}

// Once registers fn for a single delivery of ev.
func Once[P any](d *Dispatcher, ev EventType[P], fn func(P)) CallbackHandle {
	var h CallbackHandle
	h = On(d, ev, func(p P) {
		h.Remove()
		fn(p)
	})
	return h
}

// Emit delivers payload to every listener of ev in registration order and
// returns how many were called. Emitting with no listeners is a no-op.
func Emit[P any](d *Dispatcher, ev EventType[P], payload P) int {
	d.mu.Lock()
	l := d.lists[ev.name]
	if l == nil || len(l.entries) == l.dead {
		d.mu.Unlock()
		return 0
	}
	fns := make([]func(P), 0, len(l.entries)-l.dead)
	for _, e := range l.entries {
		if e.fn != nil {
			fns = append(fns, e.fn.(func(P)))
		}
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(payload)
	}
	return len(fns)
}

// ListenerCount returns the number of live listeners for the named event.
func (d *Dispatcher) ListenerCount(event string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	l := d.lists[event]
	if l == nil {
		return 0
	}
	return len(l.entries) - l.dead
}

// Clear drops every listener.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	d.lists = nil
	d.mu.Unlock()
}

// remove tombstones the entry and compacts once more than half the slice is
// dead, keeping removal amortized O(1).
func (d *Dispatcher) remove(event string, id uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	l := d.lists[event]
	if l == nil {
		return
	}
	i, ok := l.index[id]
	if !ok {
		return
	}
	delete(l.index, id)
	l.entries[i].fn = nil
	l.dead++
	if l.dead*2 <= len(l.entries) {
		return
	}
	live := l.entries[:0]
	for _, e := range l.entries {
		if e.fn != nil {
			l.index[e.id] = len(live)
			live = append(live, e)
		}
	}
	for j := len(live); j < len(l.entries); j++ {
		l.entries[j] = listener{}
	}
	l.entries = live
	l.dead = 0
}
