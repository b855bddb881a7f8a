package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lvasseur/trackdex/internal/artwork"
	"github.com/lvasseur/trackdex/internal/config"
	"github.com/lvasseur/trackdex/internal/indexer"
	"github.com/lvasseur/trackdex/internal/library"
	"github.com/lvasseur/trackdex/internal/mediastore"
	"github.com/lvasseur/trackdex/internal/settings"
	"github.com/lvasseur/trackdex/internal/store"
	"github.com/lvasseur/trackdex/internal/watcher"
)

func main() {
	var (
		full         = flag.Bool("full", false, "force a full scan, ignoring the in-memory library seed")
		rescan       = flag.Bool("rescan", false, "re-extract metadata even for unchanged files")
		watch        = flag.Bool("watch", false, "keep running and re-index when library folders change")
		clearArtwork = flag.Bool("clear-artwork", false, "clear the artwork cache before scanning")
	)
	flag.Parse()

	if err := run(*full, *rescan, *watch, *clearArtwork); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(full, rescan, watch, clearArtwork bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(cfg.LibraryRoots) == 0 {
		return fmt.Errorf("no library_roots configured; add them to config.toml")
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck // stderr sync failure is harmless on exit

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open library store: %w", err)
	}
	defer st.Close()

	art := artwork.NewCache(cfg.ArtworkCacheDir)
	if clearArtwork {
		if err := art.Clear(); err != nil {
			return fmt.Errorf("clear artwork cache: %w", err)
		}
		log.Info("artwork cache cleared", zap.String("dir", art.Dir()))
	}

	projection := library.NewProjection()
	media := mediastore.NewFSLibrary(cfg.LibraryRoots)
	prefs := settings.New(cfg.SettingsDir, nil)

	engine := indexer.New(st, projection, media, media, art, prefs, log,
		indexer.Options{
			BatchSize: cfg.Indexer.BatchSize,
			Workers:   cfg.Indexer.Workers,
			PageSize:  cfg.Indexer.PageSize,
		})

	if err := engine.LoadFromStore(); err != nil {
		return fmt.Errorf("load library: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go reportProgress(engine)

	started := time.Now()
	if err := engine.StartIndexing(ctx, full, rescan); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}
	fmt.Printf("Indexed %s tracks in %s\n",
		humanize.Comma(int64(projection.Len())),
		time.Since(started).Round(time.Millisecond))

	if !watch {
		return nil
	}

	w, err := watcher.New(cfg.LibraryRoots, &ctxScanner{ctx: ctx, engine: engine},
		prefs, log, 0)
	if err != nil {
		return fmt.Errorf("watch library roots: %w", err)
	}
	defer w.Close()

	log.Info("watching library roots", zap.Strings("roots", cfg.LibraryRoots))
	<-ctx.Done()
	engine.StopIndexing()
	return nil
}

// ctxScanner binds the process context to watcher-triggered scans so a
// shutdown also cancels them.
type ctxScanner struct {
	ctx    context.Context
	engine *indexer.Engine
}

func (s *ctxScanner) StartIndexing(_ context.Context, forceFullScan, forceFullRescan bool) error {
	return s.engine.StartIndexing(s.ctx, forceFullScan, forceFullRescan)
}

func reportProgress(engine *indexer.Engine) {
	sub := engine.Subscribe()
	defer engine.Unsubscribe(sub)

	lastPhase := indexer.PhaseIdle
	for state := range sub.States {
		if state.Phase != lastPhase {
			lastPhase = state.Phase
			fmt.Printf("[%s]\n", state.Phase)
		}
		if state.Phase == indexer.PhaseProcessing && state.CurrentFile != "" {
			fmt.Printf("\r  %3.0f%% (%d/%d) %-50.50s", state.Progress,
				state.ProcessedFiles, state.TotalFiles, state.CurrentFile)
			if state.ProcessedFiles == state.TotalFiles {
				fmt.Println()
			}
		}
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		var err error
		if lvl, err = zapcore.ParseLevel(level); err != nil {
			return nil, fmt.Errorf("invalid log_level %q: %w", level, err)
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
