package library

import "github.com/lvasseur/trackdex/internal/store"

const eventBufferSize = 64

// EventKind discriminates projection change events.
type EventKind int

const (
	EventReset EventKind = iota
	EventUpsert
	EventDelete
)

// Event describes one projection change.
type Event struct {
	Kind    EventKind
	Track   store.Track // populated for EventUpsert
	ID      string      // populated for EventUpsert and EventDelete
	Version uint64
}

// Subscription delivers projection change events to one observer.
// Events are dropped, never blocked on, when the observer falls behind;
// consumers resynchronize by reading Tracks().
type Subscription struct {
	Events <-chan Event
	Done   <-chan struct{}

	events chan Event
	done   chan struct{}
}

func newSubscription() *Subscription {
	s := &Subscription{
		events: make(chan Event, eventBufferSize),
		done:   make(chan struct{}),
	}
	s.Events = s.events
	s.Done = s.done
	return s
}

// Subscribe registers a new observer.
func (p *Projection) Subscribe() *Subscription {
	s := newSubscription()
	p.mu.Lock()
	p.subs = append(p.subs, s)
	p.mu.Unlock()
	return s
}

// Unsubscribe removes an observer and closes its Done channel.
func (p *Projection) Unsubscribe(s *Subscription) {
	p.mu.Lock()
	for i, sub := range p.subs {
		if sub == s {
			p.subs = append(p.subs[:i], p.subs[i+1:]...)
			close(s.done)
			break
		}
	}
	p.mu.Unlock()
}

func (p *Projection) publish(e Event) {
	p.mu.RLock()
	subs := make([]*Subscription, len(p.subs))
	copy(subs, p.subs)
	p.mu.RUnlock()

	for _, s := range subs {
		select {
		case s.events <- e:
		default:
			// Drop if buffer full
		}
	}
}
