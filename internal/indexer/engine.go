// Package indexer drives the library synchronization runs: enumerate the
// media store, diff against the persistent library by fingerprint, extract
// metadata for new or changed assets, and reconcile deletions. A run moves
// through scanning, processing, cleanup and complete, and every step is
// observable through state snapshots.
package indexer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lvasseur/trackdex/internal/artwork"
	"github.com/lvasseur/trackdex/internal/fingerprint"
	"github.com/lvasseur/trackdex/internal/library"
	"github.com/lvasseur/trackdex/internal/mediastore"
	"github.com/lvasseur/trackdex/internal/metadata"
	"github.com/lvasseur/trackdex/internal/settings"
	"github.com/lvasseur/trackdex/internal/store"
)

const (
	defaultBatchSize  = 10
	defaultWorkers    = 4
	defaultPageSize   = 500
	defaultGraceDelay = 3 * time.Second
)

// Options tune an Engine. Zero values select the defaults.
type Options struct {
	BatchSize  int           // tracks written per transaction
	Workers    int           // concurrent metadata extractions
	PageSize   int           // media store enumeration page size
	GraceDelay time.Duration // complete -> idle fallback delay
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.PageSize <= 0 {
		o.PageSize = defaultPageSize
	}
	if o.GraceDelay <= 0 {
		o.GraceDelay = defaultGraceDelay
	}
	return o
}

// Engine owns the indexing state machine. At most one run is active at a
// time; concurrent start requests are ignored.
type Engine struct {
	store      *store.Store
	projection *library.Projection
	media      mediastore.Enumerator
	perms      mediastore.PermissionService
	art        *artwork.Cache
	settings   *settings.Settings
	log        *zap.Logger
	opts       Options

	mu         sync.Mutex
	state      State
	cancel     context.CancelFunc
	graceTimer *time.Timer
	subs       []*Subscription

	pauseMu sync.Mutex
	paused  bool
	resume  *sync.Cond
}

// New wires an Engine over its collaborators.
func New(
	st *store.Store,
	projection *library.Projection,
	media mediastore.Enumerator,
	perms mediastore.PermissionService,
	art *artwork.Cache,
	prefs *settings.Settings,
	log *zap.Logger,
	opts Options,
) *Engine {
	e := &Engine{
		store:      st,
		projection: projection,
		media:      media,
		perms:      perms,
		art:        art,
		settings:   prefs,
		log:        log,
		opts:       opts.withDefaults(),
		state:      State{Phase: PhaseIdle},
	}
	e.resume = sync.NewCond(&e.pauseMu)
	return e
}

// LoadFromStore seeds the projection with the persisted live library. Used
// on startup so the library is usable before any scan runs.
func (e *Engine) LoadFromStore() error {
	tracks, err := e.store.GetAll()
	if err != nil {
		return err
	}
	e.projection.Set(tracks)
	e.log.Info("library loaded from store", zap.Int("tracks", len(tracks)))
	return nil
}

// StartIndexing runs one full indexing pass. forceFullScan skips seeding
// the projection from the store; forceFullRescan additionally re-extracts
// metadata for assets whose fingerprints are unchanged. If a run is already
// active the call is a no-op. The call blocks until the run ends.
func (e *Engine) StartIndexing(ctx context.Context, forceFullScan, forceFullRescan bool) error {
	runCtx, ok := e.begin(ctx)
	if !ok {
		e.log.Debug("indexing already in progress, ignoring start request")
		return nil
	}

	err := e.run(runCtx, forceFullScan, forceFullRescan)

	switch {
	case errors.Is(err, context.Canceled):
		e.log.Info("indexing stopped")
		e.toIdle()
		return nil
	case err != nil:
		e.log.Error("indexing failed", zap.Error(err))
		e.toIdle()
		return err
	default:
		return nil
	}
}

// ForceReindex discards the in-memory seed and runs a fresh pass. With
// fullRescan, fingerprint matches are ignored and every asset is
// re-extracted.
func (e *Engine) ForceReindex(ctx context.Context, fullRescan bool) error {
	return e.StartIndexing(ctx, true, fullRescan)
}

// StopIndexing cancels the active run, if any. The run winds down at its
// next checkpoint and the state returns to idle.
func (e *Engine) StopIndexing() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.ResumeIndexing()
}

// PauseIndexing suspends the run at its next checkpoint. Progress and
// state are retained.
func (e *Engine) PauseIndexing() {
	e.pauseMu.Lock()
	e.paused = true
	e.pauseMu.Unlock()
	e.log.Info("indexing paused")
}

// ResumeIndexing releases a paused run.
func (e *Engine) ResumeIndexing() {
	e.pauseMu.Lock()
	if e.paused {
		e.paused = false
		e.resume.Broadcast()
	}
	e.pauseMu.Unlock()
}

// begin claims the single-run slot. Returns false when a run is already
// active.
func (e *Engine) begin(ctx context.Context) (context.Context, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.IsIndexing {
		return nil, false
	}
	if e.graceTimer != nil {
		e.graceTimer.Stop()
		e.graceTimer = nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	// Cancellation must wake a paused checkpoint too, or a paused run
	// would never observe it.
	context.AfterFunc(runCtx, e.resume.Broadcast)
	e.state = State{Phase: PhaseScanning, IsIndexing: true}

	// A pause left over from a previous run never stalls a new one.
	e.pauseMu.Lock()
	e.paused = false
	e.pauseMu.Unlock()

	return runCtx, true
}

func (e *Engine) run(ctx context.Context, forceFullScan, forceFullRescan bool) error {
	e.setState(func(s *State) {
		*s = State{Phase: PhaseScanning, IsIndexing: true}
	})

	granted, err := e.perms.RequestAccess(ctx)
	if err != nil {
		return err
	}
	if !granted {
		e.log.Warn("media library access denied, skipping scan")
		e.toIdle()
		return nil
	}

	if !forceFullScan {
		tracks, err := e.store.GetAll()
		if err != nil {
			return err
		}
		e.projection.Set(tracks)
	}

	folderFilter := e.settings.FolderFilter()
	durationFilter := e.settings.DurationFilter()

	assets, err := e.enumerate(ctx, folderFilter, durationFilter)
	if err != nil {
		return err
	}
	e.log.Info("scan complete",
		zap.Int("assets", len(assets)),
		zap.Bool("force_full_scan", forceFullScan),
		zap.Bool("force_full_rescan", forceFullRescan))

	existing, err := e.existingByID()
	if err != nil {
		return err
	}

	e.setState(func(s *State) {
		s.Phase = PhaseProcessing
		s.TotalFiles = len(assets)
	})

	if err := e.process(ctx, assets, existing, forceFullRescan); err != nil {
		return err
	}

	e.setState(func(s *State) { s.Phase = PhaseCleanup })
	if err := e.cleanup(assets); err != nil {
		return err
	}

	e.complete()
	return nil
}

// enumerate pages through the media store and applies the folder and
// duration pre-filters. Filtered-out assets are treated as absent, so the
// cleanup phase removes any previously indexed track they map to.
func (e *Engine) enumerate(ctx context.Context, folder settings.FolderFilter, duration settings.DurationFilter) ([]mediastore.Asset, error) {
	var assets []mediastore.Asset
	cursor := ""
	for {
		if err := e.checkpoint(ctx); err != nil {
			return nil, err
		}

		page, err := e.media.ListAudioAssets(ctx, cursor, e.opts.PageSize)
		if err != nil {
			return nil, err
		}
		for _, a := range page.Assets {
			if folder.Allows(a.URI) && duration.Allows(a.Duration) {
				assets = append(assets, a)
			}
		}
		if !page.HasMore {
			return assets, nil
		}
		cursor = page.NextCursor
	}
}

func (e *Engine) existingByID() (map[string]store.Track, error) {
	tracks, err := e.store.GetAllIncludingDeleted()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]store.Track, len(tracks))
	for _, t := range tracks {
		byID[t.ID] = t
	}
	return byID, nil
}

type processed struct {
	track store.Track
	// reused tracks matched their stored fingerprint; they surface in the
	// projection without a store write.
	reused bool
}

// process walks the assets in fixed-size batches. Extraction fans out over
// a bounded worker pool; writes stay on this goroutine so each batch lands
// in one transaction.
func (e *Engine) process(ctx context.Context, assets []mediastore.Asset, existing map[string]store.Track, forceFullRescan bool) error {
	for start := 0; start < len(assets); start += e.opts.BatchSize {
		if err := e.checkpoint(ctx); err != nil {
			return err
		}

		end := start + e.opts.BatchSize
		if end > len(assets) {
			end = len(assets)
		}
		batch := assets[start:end]

		results := make([]processed, len(batch))
		sem := make(chan struct{}, e.opts.Workers)
		var wg sync.WaitGroup
		for i, a := range batch {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int, a mediastore.Asset) {
				defer wg.Done()
				defer func() { <-sem }()
				// Surface the in-flight file before its batch commits.
				e.setState(func(s *State) { s.CurrentFile = a.Filename })
				results[i] = e.processAsset(a, existing, forceFullRescan)
			}(i, a)
		}
		wg.Wait()

		if err := e.checkpoint(ctx); err != nil {
			return err
		}

		var fresh []store.Track
		for _, r := range results {
			if !r.reused {
				fresh = append(fresh, r.track)
			}
		}
		if err := e.store.UpsertMany(fresh); err != nil {
			return err
		}

		for _, r := range results {
			e.projection.ApplyUpsert(r.track)
			e.setState(func(s *State) {
				s.ProcessedFiles++
				if s.TotalFiles > 0 {
					s.Progress = float64(s.ProcessedFiles) / float64(s.TotalFiles) * 100
				}
			})
		}
	}
	return nil
}

// processAsset builds the track record for one asset. Assets whose
// fingerprints match the stored record are reused verbatim; everything else
// goes through metadata extraction. Extraction problems degrade the record
// instead of failing the run.
func (e *Engine) processAsset(a mediastore.Asset, existing map[string]store.Track, forceFullRescan bool) processed {
	hash := fingerprint.Compute(a.URI, a.ModTime, a.ChangeProxy())
	prev, known := existing[a.ID]

	if known && !prev.IsDeleted && prev.FileHash == hash && !forceFullRescan {
		return processed{track: prev, reused: true}
	}

	part := metadata.Extract(uriToPath(a.URI))

	var prevPart metadata.Partial
	if known {
		prevPart = metadata.Partial{
			Title:  prev.Title,
			Artist: prev.Artist,
			Album:  prev.Album,
			Genre:  prev.Genre,
		}
	}
	resolved := metadata.Merge(part, prevPart, a.Filename)

	image, err := e.art.Persist(a.ID, artwork.Payload{Data: part.Picture})
	if err != nil {
		e.log.Warn("artwork persist failed", zap.String("id", a.ID), zap.Error(err))
		image = ""
	}
	if image == "" {
		// No fresh artwork: carry the previous reference forward through the
		// cache, which prefers an existing entry over the raw reference.
		image, _ = e.art.Persist(a.ID, artwork.ParsePayload(prev.Image))
	}

	duration := a.Duration
	if duration <= 0 {
		duration = prev.Duration
	}

	return processed{track: store.Track{
		ID:       a.ID,
		Title:    resolved.Title,
		Artist:   resolved.Artist,
		Album:    resolved.Album,
		Genre:    resolved.Genre,
		URI:      a.URI,
		Duration: duration,
		Image:    image,
		FileHash: hash,
		ScanTime: time.Now().UnixMilli(),

		PlayCount:    prev.PlayCount,
		Favorite:     prev.Favorite,
		LastPlayedAt: prev.LastPlayedAt,
	}}
}

// cleanup tombstones every stored track whose asset no longer exists, drops
// it from the projection, then purges the tombstones.
func (e *Engine) cleanup(assets []mediastore.Asset) error {
	current := make(map[string]bool, len(assets))
	for _, a := range assets {
		current[a.ID] = true
	}

	ids, err := e.store.GetAllIDs()
	if err != nil {
		return err
	}

	removed := 0
	for _, id := range ids {
		if current[id] {
			continue
		}
		if err := e.store.MarkDeleted(id); err != nil {
			return err
		}
		e.projection.ApplyDelete(id)
		removed++
	}
	if removed > 0 {
		e.log.Info("removed stale tracks", zap.Int("count", removed))
	}

	return e.store.PurgeDeleted()
}

// complete finishes the run and arms the grace timer that returns the state
// to idle unless another run starts first.
func (e *Engine) complete() {
	e.setState(func(s *State) {
		s.Phase = PhaseComplete
		s.IsIndexing = false
		s.Progress = 100
		s.CurrentFile = ""
	})

	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.graceTimer = time.AfterFunc(e.opts.GraceDelay, func() {
		e.setState(func(s *State) {
			if s.Phase == PhaseComplete && !s.IsIndexing {
				*s = State{Phase: PhaseIdle}
			}
		})
	})
	e.mu.Unlock()
}

func (e *Engine) toIdle() {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.mu.Unlock()
	e.setState(func(s *State) {
		*s = State{Phase: PhaseIdle}
	})
}

// checkpoint blocks while paused and reports cancellation. Both the
// enumeration loop and the processing loop pass through here.
func (e *Engine) checkpoint(ctx context.Context) error {
	e.pauseMu.Lock()
	for e.paused {
		if ctx.Err() != nil {
			break
		}
		e.resume.Wait()
	}
	e.pauseMu.Unlock()
	return ctx.Err()
}

func uriToPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}
