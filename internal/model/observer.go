// Package model holds the state behind field pickers and selection lists and
// tells subscribers when it changes.
package model

import (
	"sort"
	"sync"
)

// EventKind identifies a model change.
type EventKind int

const (
	// EventReset means the model was reloaded from the store.
	EventReset EventKind = iota
	// EventChecked means one field was checked or unchecked.
	EventChecked
)

func (k EventKind) String() string {
	switch k {
	case EventReset:
		return "reset"
	case EventChecked:
		return "checked"
	}
	return "unknown"
}

// Event describes a change. Key and Checked are set for EventChecked.
type Event struct {
	Kind    EventKind
	Key     string
	Checked bool
}

// observers is a set of callbacks notified in subscription order.
type observers struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Event)
}

// subscribe registers fn and returns a function removing it.
func (o *observers) subscribe(fn func(Event)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.subs == nil {
		o.subs = make(map[int]func(Event))
	}
	id := o.next
	o.next++
	o.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			o.mu.Unlock()
		})
	}
}

// notify calls every subscriber outside the lock, so callbacks may
// subscribe or unsubscribe.
func (o *observers) notify(e Event) {
	o.mu.Lock()
	ids := make([]int, 0, len(o.subs))
	for id := range o.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Event), len(ids))
	for i, id := range ids {
		fns[i] = o.subs[id]
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}
