package editor

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cutroom/cutroom-agent/internal/authority"
)

const defaultPlayheadInterval = 50 * time.Millisecond

// Playhead advances playback time while the machine is playing. The machine
// never self-advances: every tick arrives as an ordinary time-update
// transition, so clamping, end-of-timeline pause, and scrub suspension all
// apply uniformly.
type Playhead struct {
	auth     *authority.Authority
	interval time.Duration
	logger   *slog.Logger
	running  atomic.Bool
}

func NewPlayhead(auth *authority.Authority, interval time.Duration, logger *slog.Logger) *Playhead {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = defaultPlayheadInterval
	}
	return &Playhead{auth: auth, interval: interval, logger: logger}
}

func (p *Playhead) Run(ctx context.Context) {
	if p.running.Swap(true) {
		return
	}
	defer p.running.Store(false)

	p.logger.Info("playhead started", "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("playhead stopping")
			return
		case now := <-ticker.C:
			elapsed := now.Sub(last).Seconds()
			last = now
			if p.auth.State() != authority.StatePlaying {
				continue
			}
			snap := p.auth.Snapshot()
			if _, err := p.auth.Transition(authority.TimeUpdate{Time: snap.CurrentTime + elapsed}); err != nil {
				p.logger.Debug("time update rejected", "error", err)
			}
		}
	}
}
