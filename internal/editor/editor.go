// Package editor is the external-facing command/query facade over the state
// authority. Commands fail loudly when there is nothing to act on, which
// distinguishes caller mistakes from the machine's silent guard rejections;
// queries are pure projections over the current snapshot.
package editor

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/cutroom/cutroom-agent/internal/authority"
	"github.com/cutroom/cutroom-agent/internal/events"
	"github.com/cutroom/cutroom-agent/internal/timeline"
)

var (
	ErrNoSelection      = errors.New("no clip selected")
	ErrNotEditable      = errors.New("timeline is not editable in the current state")
	ErrClipNotFound     = errors.New("clip not found")
	ErrInvalidSplitTime = errors.New("split time must be strictly inside the selected clip")
)

// FailureJournal records asynchronous operation failures for later
// inspection. Implemented by the persistence layer; a nil journal disables
// journaling.
type FailureJournal interface {
	RecordFailure(ctx context.Context, operation, clipID, message string) error
}

type Editor struct {
	auth    *authority.Authority
	bus     *events.Bus
	journal FailureJournal
	logger  *slog.Logger
	running atomic.Bool
}

func New(auth *authority.Authority, bus *events.Bus, journal FailureJournal, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Editor{auth: auth, bus: bus, journal: journal, logger: logger}
}

// Run pumps completion events from the bus into the authority until the
// context is canceled or the bus closes. This is the only consumer of the
// completion channel, so completions fold in the order the service emitted
// them.
func (e *Editor) Run(ctx context.Context) {
	if e.running.Swap(true) {
		return
	}
	defer e.running.Store(false)

	e.logger.Info("completion pump started")

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("completion pump stopping")
			return
		case ev, ok := <-e.bus.Completions():
			if !ok {
				e.logger.Info("completion channel closed, pump stopping")
				return
			}
			e.fold(ctx, ev)
		}
	}
}

func (e *Editor) fold(ctx context.Context, ev events.Event) {
	switch c := ev.(type) {
	case events.SplitComplete:
		if _, err := e.auth.Transition(authority.SplitComplete{
			OriginalID: c.OriginalID, First: c.First, Second: c.Second,
		}); err != nil {
			e.logger.Warn("split completion not folded", "clip_id", c.OriginalID, "error", err)
		}
	case events.DeleteComplete:
		if _, err := e.auth.Transition(authority.DeleteComplete{ClipID: c.ClipID}); err != nil {
			e.logger.Warn("delete completion not folded", "clip_id", c.ClipID, "error", err)
		}
	case events.OperationFailed:
		if _, err := e.auth.Transition(authority.OperationFailed{
			Operation: c.Operation, ClipID: c.ClipID, Message: c.Message,
		}); err != nil {
			e.logger.Warn("failure not folded", "operation", c.Operation, "error", err)
		}
		if e.journal != nil {
			if err := e.journal.RecordFailure(ctx, c.Operation, c.ClipID, c.Message); err != nil {
				e.logger.Warn("failure not journaled", "operation", c.Operation, "error", err)
			}
		}
	default:
		e.logger.Warn("unexpected event on completion channel", "kind", string(ev.Kind()))
	}
}

// Commands.

func (e *Editor) SelectClip(id string) error {
	if !e.CanEdit() {
		return ErrNotEditable
	}
	if _, err := e.auth.Transition(authority.SelectClip{ClipID: id}); err != nil {
		return ErrClipNotFound
	}
	return nil
}

func (e *Editor) DeselectClip() error {
	if !e.CanEdit() {
		return ErrNotEditable
	}
	_, err := e.auth.Transition(authority.DeselectClip{})
	return err
}

// SplitSelectedAt requests a split of the selected clip at an absolute
// timeline position. Bound violations surface here, synchronously: they are
// a property of the request, not of its execution, so they never reach the
// completion channel.
func (e *Editor) SplitSelectedAt(t float64) error {
	if !e.CanEdit() {
		return ErrNotEditable
	}
	clip, ok := e.SelectedClip()
	if !ok {
		return ErrNoSelection
	}
	if !clip.Interior(t) {
		return ErrInvalidSplitTime
	}
	_, err := e.auth.Transition(authority.SplitClip{ClipID: clip.ID, SplitTime: t})
	return err
}

func (e *Editor) DeleteSelected() error {
	if !e.CanEdit() {
		return ErrNotEditable
	}
	clip, ok := e.SelectedClip()
	if !ok {
		return ErrNoSelection
	}
	_, err := e.auth.Transition(authority.DeleteClip{ClipID: clip.ID})
	return err
}

func (e *Editor) AddClip(clip timeline.Clip) (timeline.Clip, error) {
	if !e.CanEdit() {
		return timeline.Clip{}, ErrNotEditable
	}
	if clip.ID == "" {
		clip.ID = timeline.NewID()
	}
	if _, err := e.auth.Transition(authority.AddClip{Clip: clip}); err != nil {
		return timeline.Clip{}, err
	}
	added, ok := e.auth.Snapshot().ClipByID(clip.ID)
	if !ok {
		return timeline.Clip{}, ErrClipNotFound
	}
	return added, nil
}

func (e *Editor) Play() error {
	_, err := e.auth.Transition(authority.Play{})
	return err
}

func (e *Editor) Pause() error {
	_, err := e.auth.Transition(authority.Pause{})
	return err
}

func (e *Editor) Seek(t float64) error {
	_, err := e.auth.Transition(authority.Seek{Time: t})
	return err
}

func (e *Editor) StartRecording() error {
	_, err := e.auth.Transition(authority.RecordStart{})
	return err
}

func (e *Editor) StopRecording() error {
	_, err := e.auth.Transition(authority.RecordStop{})
	return err
}

// Scrubbing. While a drag is active the playhead's time updates are
// suspended, so the position under the user's cursor wins.

func (e *Editor) BeginScrub() error {
	_, err := e.auth.Transition(authority.ScrubStart{})
	return err
}

func (e *Editor) ScrubTo(t float64) error {
	_, err := e.auth.Transition(authority.ScrubMove{Time: t})
	return err
}

func (e *Editor) EndScrub() error {
	_, err := e.auth.Transition(authority.ScrubEnd{})
	return err
}

// Restore replaces the live snapshot with a previously saved one.
func (e *Editor) Restore(snap timeline.Snapshot) error {
	_, err := e.auth.Transition(authority.RestoreSnapshot{Snapshot: snap})
	return err
}

// Queries.

func (e *Editor) Snapshot() timeline.Snapshot {
	return e.auth.Snapshot()
}

func (e *Editor) State() authority.State {
	return e.auth.State()
}

func (e *Editor) SelectedClip() (timeline.Clip, bool) {
	snap := e.auth.Snapshot()
	if snap.SelectedClipID == "" {
		return timeline.Clip{}, false
	}
	return snap.ClipByID(snap.SelectedClipID)
}

func (e *Editor) ClipAtTime(t float64) (timeline.Clip, bool) {
	return e.auth.Snapshot().ClipAtTime(t)
}

// CanEdit reports whether clip edits are currently allowed.
func (e *Editor) CanEdit() bool {
	st := e.auth.State()
	return st == authority.StateIdle || st == authority.StatePaused
}
