// Package authority owns the timeline snapshot and is its sole mutator.
//
// State lifecycle:
//  1. Idle - no playback, edits allowed.
//  2. Paused - playback position held, edits allowed.
//  3. Playing - auto-advancing, all clip edits rejected.
//  4. Recording - capture active, all clip edits rejected.
//  5. Seeking - transient while a seek clamps and lands in Paused.
//
// Every transition is validated against the current snapshot and a guard.
// Guard failures leave the snapshot untouched and surface a diagnostic on
// the synchronous return path. Clip mutations happen only when terminal
// completion events (SplitComplete, DeleteComplete) fold in, which is why a
// failed operation never needs a rollback: the request itself changed
// nothing.
package authority

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/cutroom/cutroom-agent/internal/events"
	"github.com/cutroom/cutroom-agent/internal/timeline"
)

type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StatePlaying   State = "playing"
	StatePaused    State = "paused"
	StateSeeking   State = "seeking"
)

// GuardError reports a rejected transition. The snapshot returned alongside
// it is the unchanged current snapshot.
type GuardError struct {
	Event  string
	Reason string
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("transition %s rejected: %s", e.Event, e.Reason)
}

// InvariantError reports a snapshot that failed defensive validation after a
// fold. It indicates a logic defect; the offending fold is discarded.
type InvariantError struct {
	Event string
	Err   error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation after %s: %v", e.Event, e.Err)
}

func (e *InvariantError) Unwrap() error { return e.Err }

// Options tune policy points the machine deliberately leaves open.
type Options struct {
	// AllowOverlap permits clips on the same track to occupy intersecting
	// intervals (layering, cross-fades). When false, folds that would
	// create an overlap are rejected.
	AllowOverlap bool
}

// Authority is the single writer of the timeline snapshot. Transitions are
// serialized by its mutex: no two transitions are ever in flight, which is
// the whole concurrency story. The asynchronous boundary is only the bus
// hop between an emitted request and its completion fold.
type Authority struct {
	mu     sync.Mutex
	state  State
	snap   timeline.Snapshot
	bus    *events.Bus
	logger *slog.Logger
	opts   Options
}

func New(bus *events.Bus, logger *slog.Logger, opts Options) *Authority {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authority{
		state:  StateIdle,
		snap:   timeline.NewSnapshot(),
		bus:    bus,
		logger: logger,
		opts:   opts,
	}
}

// State returns the current top-level machine state.
func (a *Authority) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Snapshot returns a deep copy of the current snapshot. Readers never hold a
// reference into live state.
func (a *Authority) Snapshot() timeline.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snap.Clone()
}

// Transition applies one event. It is deterministic given the current
// snapshot and the event, synchronous, and non-reentrant: an action may emit
// a request on the bus but never triggers another transition inline.
//
// On guard rejection the unchanged snapshot is returned together with a
// *GuardError diagnostic.
func (a *Authority) Transition(ev Event) (timeline.Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	next, nextState, err := a.apply(a.snap.Clone(), a.state, ev)
	if err != nil {
		if _, ok := err.(*GuardError); ok {
			a.logger.Debug("transition rejected",
				"event", ev.eventName(), "state", string(a.state), "reason", err.Error())
			return a.snap.Clone(), err
		}
		a.logger.Error("transition failed",
			"event", ev.eventName(), "state", string(a.state), "error", err)
		return a.snap.Clone(), err
	}

	if verr := next.Validate(); verr != nil {
		ierr := &InvariantError{Event: ev.eventName(), Err: verr}
		a.logger.Error("snapshot invariant violated, fold discarded",
			"event", ev.eventName(), "error", verr)
		return a.snap.Clone(), ierr
	}

	a.snap = next
	a.state = nextState
	return a.snap.Clone(), nil
}

// apply is the pure transition core: (snapshot, state, event) -> next.
// It works on a clone, so returning an error discards all partial work.
func (a *Authority) apply(s timeline.Snapshot, st State, ev Event) (timeline.Snapshot, State, error) {
	switch e := ev.(type) {

	case SelectClip:
		if err := a.requireEditable(st, ev); err != nil {
			return s, st, err
		}
		if _, ok := s.ClipByID(e.ClipID); !ok {
			return s, st, reject(ev, "clip %s does not exist", e.ClipID)
		}
		s.SelectedClipID = e.ClipID
		markSelection(&s)
		return s, st, nil

	case DeselectClip:
		if err := a.requireEditable(st, ev); err != nil {
			return s, st, err
		}
		s.SelectedClipID = ""
		markSelection(&s)
		return s, st, nil

	case SplitClip:
		if err := a.requireEditable(st, ev); err != nil {
			return s, st, err
		}
		clip, err := a.requireSelected(s, ev, e.ClipID)
		if err != nil {
			return s, st, err
		}
		if !clip.Interior(e.SplitTime) {
			return s, st, reject(ev, "split time %.3f is not strictly inside clip %s [%.3f, %.3f)",
				e.SplitTime, clip.ID, clip.StartTime, clip.EndTime())
		}
		a.bus.PublishRequest(events.RequestSplit{Clip: clip, SplitTime: e.SplitTime})
		return s, st, nil

	case DeleteClip:
		if err := a.requireEditable(st, ev); err != nil {
			return s, st, err
		}
		clip, err := a.requireSelected(s, ev, e.ClipID)
		if err != nil {
			return s, st, err
		}
		a.bus.PublishRequest(events.RequestDelete{ClipID: clip.ID})
		return s, st, nil

	case AddClip:
		if err := a.requireEditable(st, ev); err != nil {
			return s, st, err
		}
		clip := e.Clip
		if clip.ID == "" {
			clip.ID = timeline.NewID()
		}
		if err := clip.Validate(); err != nil {
			return s, st, reject(ev, "invalid clip: %v", err)
		}
		if _, exists := s.ClipByID(clip.ID); exists {
			return s, st, reject(ev, "clip %s already exists", clip.ID)
		}
		if len(s.Tracks) > 0 && !s.HasTrack(clip.TrackID) {
			return s, st, reject(ev, "track %s does not exist", clip.TrackID)
		}
		if !a.opts.AllowOverlap && s.HasOverlap(clip, "") {
			return s, st, reject(ev, "clip %s overlaps an existing clip on track %s", clip.ID, clip.TrackID)
		}
		s.Clips = append(s.Clips, clip)
		s.TotalDuration = s.ComputeTotalDuration()
		return s, st, nil

	case Play:
		if st != StateIdle && st != StatePaused {
			return s, st, reject(ev, "cannot play from state %s", st)
		}
		if len(s.Clips) == 0 {
			return s, st, reject(ev, "timeline is empty")
		}
		s.IsPlaying = true
		return s, StatePlaying, nil

	case Pause:
		if st != StatePlaying {
			return s, st, reject(ev, "cannot pause from state %s", st)
		}
		s.IsPlaying = false
		return s, StatePaused, nil

	case Seek:
		if st != StateIdle && st != StatePaused {
			return s, st, reject(ev, "cannot seek from state %s", st)
		}
		s.CurrentTime = clamp(e.Time, 0, s.TotalDuration)
		s.Scrubber.Position = s.CurrentTime
		return s, StatePaused, nil

	case TimeUpdate:
		if st != StatePlaying {
			return s, st, reject(ev, "time update outside playback")
		}
		if s.Scrubber.IsDragging {
			return s, st, nil
		}
		s.CurrentTime = clamp(e.Time, 0, s.TotalDuration)
		s.Scrubber.Position = s.CurrentTime
		if s.CurrentTime >= s.TotalDuration {
			s.IsPlaying = false
			return s, StatePaused, nil
		}
		return s, st, nil

	case RecordStart:
		if st != StateIdle && st != StatePaused {
			return s, st, reject(ev, "cannot start recording from state %s", st)
		}
		s.Recording = timeline.RecordingActive
		return s, StateRecording, nil

	case RecordStop:
		if st != StateRecording {
			return s, st, reject(ev, "not recording")
		}
		s.Recording = timeline.RecordingInactive
		return s, StateIdle, nil

	case ScrubStart:
		s.Scrubber.IsDragging = true
		return s, st, nil

	case ScrubMove:
		if !s.Scrubber.IsDragging {
			return s, st, reject(ev, "scrubber is not being dragged")
		}
		s.Scrubber.Position = clamp(e.Time, 0, s.TotalDuration)
		s.CurrentTime = s.Scrubber.Position
		return s, st, nil

	case ScrubEnd:
		s.Scrubber.IsDragging = false
		return s, st, nil

	case SplitComplete:
		return a.foldSplit(s, st, e)

	case DeleteComplete:
		return a.foldDelete(s, st, e)

	case OperationFailed:
		s.LastFailure = &timeline.Failure{Operation: e.Operation, Message: e.Message}
		return s, st, nil

	case RestoreSnapshot:
		if st != StateIdle && st != StatePaused {
			return s, st, reject(ev, "cannot restore from state %s", st)
		}
		restored := e.Snapshot.Clone()
		restored.TotalDuration = restored.ComputeTotalDuration()
		restored.IsPlaying = false
		restored.Recording = timeline.RecordingInactive
		markSelection(&restored)
		return restored, StateIdle, nil

	default:
		return s, st, fmt.Errorf("unknown event %T", ev)
	}
}

// foldSplit replaces the original clip with the two halves a completed split
// produced. The original's identity is re-validated here, at fold time: a
// completion that arrives after its clip was removed by another path is
// stale and drops without touching state.
func (a *Authority) foldSplit(s timeline.Snapshot, st State, e SplitComplete) (timeline.Snapshot, State, error) {
	if st != StateIdle && st != StatePaused {
		return s, st, reject(e, "split completion in state %s", st)
	}
	idx := -1
	for i, c := range s.Clips {
		if c.ID == e.OriginalID {
			idx = i
			break
		}
	}
	if idx == -1 {
		a.logger.Warn("stale split completion ignored", "clip_id", e.OriginalID)
		return s, st, nil
	}
	if !a.opts.AllowOverlap &&
		(s.HasOverlap(e.First, e.OriginalID) || s.HasOverlap(e.Second, e.OriginalID)) {
		return s, st, reject(e, "split result overlaps an existing clip")
	}

	s.Clips = append(s.Clips[:idx], s.Clips[idx+1:]...)
	s.Clips = append(s.Clips, e.First, e.Second)
	s.SelectedClipID = e.First.ID
	markSelection(&s)
	s.TotalDuration = s.ComputeTotalDuration()
	return s, st, nil
}

// foldDelete removes the clip. Deleting an already-absent clip is a no-op,
// which makes duplicate completions harmless.
func (a *Authority) foldDelete(s timeline.Snapshot, st State, e DeleteComplete) (timeline.Snapshot, State, error) {
	if st != StateIdle && st != StatePaused {
		return s, st, reject(e, "delete completion in state %s", st)
	}
	idx := -1
	for i, c := range s.Clips {
		if c.ID == e.ClipID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return s, st, nil
	}
	s.Clips = append(s.Clips[:idx], s.Clips[idx+1:]...)
	if s.SelectedClipID == e.ClipID {
		s.SelectedClipID = ""
	}
	markSelection(&s)
	s.TotalDuration = s.ComputeTotalDuration()
	return s, st, nil
}

// requireEditable gates all CLIP.* events: edits are only valid while idle
// or paused. Recording and playback reject every edit.
func (a *Authority) requireEditable(st State, ev Event) error {
	if st == StateIdle || st == StatePaused {
		return nil
	}
	return reject(ev, "clip edits are not allowed in state %s", st)
}

// requireSelected implements the hasSelectedClip guard: a selection must
// exist, match the event's target, and still refer to a live clip. The last
// check defends against stale references after a concurrent delete.
func (a *Authority) requireSelected(s timeline.Snapshot, ev Event, clipID string) (timeline.Clip, error) {
	if s.SelectedClipID == "" {
		return timeline.Clip{}, reject(ev, "no clip selected")
	}
	if clipID != "" && clipID != s.SelectedClipID {
		return timeline.Clip{}, reject(ev, "clip %s is not the selected clip", clipID)
	}
	clip, ok := s.ClipByID(s.SelectedClipID)
	if !ok {
		return timeline.Clip{}, reject(ev, "selected clip %s no longer exists", s.SelectedClipID)
	}
	return clip, nil
}

func markSelection(s *timeline.Snapshot) {
	for i := range s.Clips {
		s.Clips[i].IsSelected = s.Clips[i].ID == s.SelectedClipID
	}
}

func reject(ev Event, format string, args ...any) *GuardError {
	return &GuardError{Event: ev.eventName(), Reason: fmt.Sprintf(format, args...)}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
