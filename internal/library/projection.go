// Package library holds the reactive in-memory projection of the live
// (non-tombstoned) track library. The projection is a derived cache of the
// persistent store: only the indexer engine and explicit reloads write to
// it, while any number of readers may query it concurrently.
package library

import (
	"sync"

	"github.com/lvasseur/trackdex/internal/store"
)

// Projection is an observable, versioned snapshot of the current library.
// Writes are serialized by the single-writer discipline of the indexer;
// reads never block on an in-progress scan.
type Projection struct {
	mu      sync.RWMutex
	tracks  []store.Track
	index   map[string]int // id -> position in tracks
	version uint64
	subs    []*Subscription
}

func NewProjection() *Projection {
	return &Projection{index: make(map[string]int)}
}

// Set replaces the whole snapshot. Used on cold load from the store.
func (p *Projection) Set(tracks []store.Track) {
	p.mu.Lock()
	p.tracks = make([]store.Track, len(tracks))
	copy(p.tracks, tracks)
	p.index = make(map[string]int, len(tracks))
	for i, t := range p.tracks {
		p.index[t.ID] = i
	}
	p.version++
	version := p.version
	p.mu.Unlock()

	p.publish(Event{Kind: EventReset, Version: version})
}

// ApplyUpsert inserts or replaces one track, preserving insertion order for
// existing ids, and notifies subscribers.
func (p *Projection) ApplyUpsert(t store.Track) {
	p.mu.Lock()
	if i, ok := p.index[t.ID]; ok {
		p.tracks[i] = t
	} else {
		p.index[t.ID] = len(p.tracks)
		p.tracks = append(p.tracks, t)
	}
	p.version++
	version := p.version
	p.mu.Unlock()

	p.publish(Event{Kind: EventUpsert, Track: t, ID: t.ID, Version: version})
}

// ApplyDelete removes a track by id. Unknown ids are a no-op.
func (p *Projection) ApplyDelete(id string) {
	p.mu.Lock()
	i, ok := p.index[id]
	if !ok {
		p.mu.Unlock()
		return
	}
	p.tracks = append(p.tracks[:i], p.tracks[i+1:]...)
	delete(p.index, id)
	for j := i; j < len(p.tracks); j++ {
		p.index[p.tracks[j].ID] = j
	}
	p.version++
	version := p.version
	p.mu.Unlock()

	p.publish(Event{Kind: EventDelete, ID: id, Version: version})
}

// Tracks returns a copy of the current snapshot in insertion order.
func (p *Projection) Tracks() []store.Track {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]store.Track, len(p.tracks))
	copy(out, p.tracks)
	return out
}

// Get returns the track for id, if present.
func (p *Projection) Get(id string) (store.Track, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	i, ok := p.index[id]
	if !ok {
		return store.Track{}, false
	}
	return p.tracks[i], true
}

// Len returns the number of live tracks.
func (p *Projection) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.tracks)
}

// Version returns the current snapshot version. It increases on every write.
func (p *Projection) Version() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version
}
