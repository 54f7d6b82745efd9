package authority

import "github.com/cutroom/cutroom-agent/internal/timeline"

// Event is an input to Transition. The set is closed: every implementation
// lives in this package and the transition switch matches them exhaustively.
type Event interface {
	eventName() string
}

// Clip editing intents.

type SelectClip struct{ ClipID string }

type DeselectClip struct{}

type SplitClip struct {
	ClipID    string
	SplitTime float64
}

type DeleteClip struct{ ClipID string }

type AddClip struct{ Clip timeline.Clip }

// Playback and recording intents.

type Play struct{}

type Pause struct{}

type Seek struct{ Time float64 }

type TimeUpdate struct{ Time float64 }

type RecordStart struct{}

type RecordStop struct{}

// Scrubber intents. While a drag is active, TimeUpdate is ignored so the
// drag position is not fought by auto-advance.

type ScrubStart struct{}

type ScrubMove struct{ Time float64 }

type ScrubEnd struct{}

// Completion folds, arriving from the bus. These are the only events that
// mutate the clip set.

type SplitComplete struct {
	OriginalID string
	First      timeline.Clip
	Second     timeline.Clip
}

type DeleteComplete struct{ ClipID string }

type OperationFailed struct {
	Operation string
	ClipID    string
	Message   string
}

// RestoreSnapshot replaces the whole snapshot, e.g. when loading an
// autosave. Always a full snapshot, never partial state.
type RestoreSnapshot struct{ Snapshot timeline.Snapshot }

func (SelectClip) eventName() string      { return "CLIP.SELECT" }
func (DeselectClip) eventName() string    { return "CLIP.DESELECT" }
func (SplitClip) eventName() string       { return "CLIP.SPLIT" }
func (DeleteClip) eventName() string      { return "CLIP.DELETE" }
func (AddClip) eventName() string         { return "CLIP.ADD" }
func (Play) eventName() string            { return "PLAY" }
func (Pause) eventName() string           { return "PAUSE" }
func (Seek) eventName() string            { return "SEEK" }
func (TimeUpdate) eventName() string      { return "TIME_UPDATE" }
func (RecordStart) eventName() string     { return "RECORD_START" }
func (RecordStop) eventName() string      { return "RECORD_STOP" }
func (ScrubStart) eventName() string      { return "SCRUB_START" }
func (ScrubMove) eventName() string       { return "SCRUB_MOVE" }
func (ScrubEnd) eventName() string        { return "SCRUB_END" }
func (SplitComplete) eventName() string   { return "SPLIT_COMPLETE" }
func (DeleteComplete) eventName() string  { return "DELETE_COMPLETE" }
func (OperationFailed) eventName() string { return "OPERATION_FAILED" }
func (RestoreSnapshot) eventName() string { return "RESTORE_SNAPSHOT" }
