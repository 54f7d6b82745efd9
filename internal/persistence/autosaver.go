package persistence

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cutroom/cutroom-agent/internal/timeline"
)

const defaultKeepSaves = 20

// SnapshotSource provides the current timeline snapshot. Implemented by the
// editor facade.
type SnapshotSource interface {
	Snapshot() timeline.Snapshot
}

// Autosaver periodically persists the full current snapshot. Saves are
// skipped while paused or when the snapshot has not changed since the last
// save, and old saves are pruned to a bounded history.
type Autosaver struct {
	repo     Repository
	source   SnapshotSource
	project  string
	logger   *slog.Logger
	interval time.Duration
	keep     int
	running  atomic.Bool
	paused   atomic.Bool

	mu        sync.Mutex // guards lastSaved; SaveNow races the ticker loop
	lastSaved []byte
}

func NewAutosaver(repo Repository, source SnapshotSource, project string, interval time.Duration, logger *slog.Logger) *Autosaver {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Autosaver{
		repo:     repo,
		source:   source,
		project:  project,
		logger:   logger,
		interval: interval,
		keep:     defaultKeepSaves,
	}
}

func (a *Autosaver) Start(ctx context.Context) {
	if a.running.Swap(true) {
		return
	}

	a.logger.Info("autosaver started", "project", a.project, "interval", a.interval)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("autosaver stopping")
			a.running.Store(false)
			return
		case <-ticker.C:
			if !a.paused.Load() {
				a.saveIfChanged(ctx)
			}
		}
	}
}

func (a *Autosaver) Pause() {
	a.paused.Store(true)
	a.logger.Info("autosaver paused")
}

func (a *Autosaver) Resume() {
	a.paused.Store(false)
	a.logger.Info("autosaver resumed")
}

func (a *Autosaver) IsPaused() bool {
	return a.paused.Load()
}

func (a *Autosaver) IsRunning() bool {
	return a.running.Load()
}

// SaveNow forces a save regardless of the change check.
func (a *Autosaver) SaveNow(ctx context.Context) (*SavedSnapshot, error) {
	snap := a.source.Snapshot()
	saved, err := a.repo.SaveSnapshot(ctx, a.project, snap)
	if err != nil {
		return nil, err
	}
	data, _ := json.Marshal(snap)
	a.mu.Lock()
	a.lastSaved = data
	a.mu.Unlock()
	if err := a.repo.PruneSnapshots(ctx, a.project, a.keep); err != nil {
		a.logger.Warn("failed to prune old saves", "error", err)
	}
	return saved, nil
}

func (a *Autosaver) saveIfChanged(ctx context.Context) {
	snap := a.source.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		a.logger.Error("failed to serialize snapshot for autosave", "error", err)
		return
	}
	a.mu.Lock()
	unchanged := string(data) == string(a.lastSaved)
	a.mu.Unlock()
	if unchanged {
		return
	}

	saved, err := a.repo.SaveSnapshot(ctx, a.project, snap)
	if err != nil {
		a.logger.Error("autosave failed", "error", err)
		return
	}
	a.mu.Lock()
	a.lastSaved = data
	a.mu.Unlock()

	a.logger.Debug("autosaved snapshot", "save_id", saved.ID, "clips", len(snap.Clips))

	if err := a.repo.PruneSnapshots(ctx, a.project, a.keep); err != nil {
		a.logger.Warn("failed to prune old saves", "error", err)
	}
}
