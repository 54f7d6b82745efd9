package timeline

import (
	"fmt"

	"github.com/google/uuid"
)

// timeEpsilon absorbs float64 rounding when checking derived-value
// invariants such as outPoint - inPoint == duration.
const timeEpsilon = 1e-9

type TrackType string

const (
	TrackVideo TrackType = "video"
	TrackAudio TrackType = "audio"
)

type RecordingStatus string

const (
	RecordingInactive RecordingStatus = "inactive"
	RecordingActive   RecordingStatus = "active"
)

// Clip is a contiguous playable region placed on the timeline. StartTime and
// Duration position it on the timeline; InPoint and OutPoint are offsets into
// the source media. Clips are replaced whole inside a transition, never
// mutated in place.
type Clip struct {
	ID         string  `json:"id"`
	TrackID    string  `json:"track_id"`
	SourceURL  string  `json:"source_url"`
	StartTime  float64 `json:"start_time"`
	Duration   float64 `json:"duration"`
	InPoint    float64 `json:"in_point"`
	OutPoint   float64 `json:"out_point"`
	IsSelected bool    `json:"is_selected,omitempty"`
}

// EndTime returns the exclusive end of the clip's timeline interval.
func (c Clip) EndTime() float64 {
	return c.StartTime + c.Duration
}

// Contains reports whether t falls inside [StartTime, StartTime+Duration).
func (c Clip) Contains(t float64) bool {
	return t >= c.StartTime && t < c.EndTime()
}

// Interior reports whether t is strictly inside the clip's interval.
// Boundary times are not valid split points.
func (c Clip) Interior(t float64) bool {
	return t > c.StartTime && t < c.EndTime()
}

// Overlaps reports whether two clips on the same track occupy intersecting
// timeline intervals. Clips on different tracks never overlap.
func (c Clip) Overlaps(other Clip) bool {
	if c.TrackID != other.TrackID {
		return false
	}
	return c.StartTime < other.EndTime() && other.StartTime < c.EndTime()
}

func (c Clip) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("clip has no id")
	}
	if c.StartTime < 0 {
		return fmt.Errorf("clip %s: start time %.6f is negative", c.ID, c.StartTime)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("clip %s: duration %.6f must be positive", c.ID, c.Duration)
	}
	if c.InPoint >= c.OutPoint {
		return fmt.Errorf("clip %s: in point %.6f must be before out point %.6f", c.ID, c.InPoint, c.OutPoint)
	}
	if diff := (c.OutPoint - c.InPoint) - c.Duration; diff > timeEpsilon || diff < -timeEpsilon {
		return fmt.Errorf("clip %s: source span %.6f does not match duration %.6f", c.ID, c.OutPoint-c.InPoint, c.Duration)
	}
	return nil
}

// Track is an ordered lane holding clips of one kind. Index values are
// unique within a timeline.
type Track struct {
	ID        string    `json:"id"`
	Type      TrackType `json:"type"`
	Index     int       `json:"index"`
	IsLocked  bool      `json:"is_locked"`
	IsVisible bool      `json:"is_visible"`
}

// Scrubber is the playhead. While IsDragging is set, playback time updates
// are suspended so the drag position wins.
type Scrubber struct {
	Position   float64 `json:"position"`
	IsDragging bool    `json:"is_dragging"`
}

func NewID() string {
	return uuid.NewString()
}
