package indexer

// Phase is one step of the indexing lifecycle. Transitions always run
// idle -> scanning -> processing -> cleanup -> complete, and complete falls
// back to idle after a short grace period unless a new run starts first.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseScanning   Phase = "scanning"
	PhaseProcessing Phase = "processing"
	PhaseCleanup    Phase = "cleanup"
	PhaseComplete   Phase = "complete"
)

// State is the externally observable snapshot of an indexing run.
type State struct {
	Phase          Phase
	IsIndexing     bool
	Progress       float64 // 0..100
	TotalFiles     int
	ProcessedFiles int
	CurrentFile    string
}

const stateBufferSize = 64

// Subscription delivers state snapshots to one observer. Snapshots are
// dropped, never blocked on, when the observer falls behind; the latest
// state is always available from State().
type Subscription struct {
	States <-chan State

	states chan State
}

func newStateSubscription() *Subscription {
	s := &Subscription{states: make(chan State, stateBufferSize)}
	s.States = s.states
	return s
}

// Subscribe registers a state observer. The current state is delivered
// immediately.
func (e *Engine) Subscribe() *Subscription {
	s := newStateSubscription()
	e.mu.Lock()
	e.subs = append(e.subs, s)
	current := e.state
	e.mu.Unlock()

	s.states <- current
	return s
}

// Unsubscribe removes a state observer.
func (e *Engine) Unsubscribe(s *Subscription) {
	e.mu.Lock()
	for i, sub := range e.subs {
		if sub == s {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			break
		}
	}
	e.mu.Unlock()
}

// State returns the current state snapshot.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(mutate func(*State)) {
	e.mu.Lock()
	mutate(&e.state)
	snapshot := e.state
	subs := make([]*Subscription, len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()

	for _, s := range subs {
		select {
		case s.states <- snapshot:
		default:
			// Drop if buffer full
		}
	}
}
