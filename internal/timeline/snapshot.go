package timeline

import "fmt"

// Failure records the most recent asynchronous operation failure. It is
// observability data, not business state: folding one in never alters clips
// or playback position.
type Failure struct {
	Operation string `json:"operation"`
	Message   string `json:"message"`
}

// Snapshot is the complete timeline state at one instant. Exactly one
// snapshot is live at a time and only the state authority replaces it.
// TotalDuration is always derived from the clip set, never set directly.
type Snapshot struct {
	CurrentTime    float64         `json:"current_time"`
	TotalDuration  float64         `json:"total_duration"`
	IsPlaying      bool            `json:"is_playing"`
	Clips          []Clip          `json:"clips"`
	Tracks         []Track         `json:"tracks"`
	SelectedClipID string          `json:"selected_clip_id,omitempty"`
	Scrubber       Scrubber        `json:"scrubber"`
	Recording      RecordingStatus `json:"recording"`
	LastFailure    *Failure        `json:"last_failure,omitempty"`
}

func NewSnapshot() Snapshot {
	return Snapshot{
		Recording: RecordingInactive,
	}
}

// ClipByID returns the clip with the given id, if present.
func (s Snapshot) ClipByID(id string) (Clip, bool) {
	for _, c := range s.Clips {
		if c.ID == id {
			return c, true
		}
	}
	return Clip{}, false
}

// ClipAtTime returns the first clip whose interval contains t, preferring
// lower track indexes.
func (s Snapshot) ClipAtTime(t float64) (Clip, bool) {
	best := -1
	for i, c := range s.Clips {
		if !c.Contains(t) {
			continue
		}
		if best == -1 || s.trackIndex(c.TrackID) < s.trackIndex(s.Clips[best].TrackID) {
			best = i
		}
	}
	if best == -1 {
		return Clip{}, false
	}
	return s.Clips[best], true
}

func (s Snapshot) trackIndex(trackID string) int {
	for _, t := range s.Tracks {
		if t.ID == trackID {
			return t.Index
		}
	}
	return int(^uint(0) >> 1)
}

// HasTrack reports whether a track with the given id exists.
func (s Snapshot) HasTrack(id string) bool {
	for _, t := range s.Tracks {
		if t.ID == id {
			return true
		}
	}
	return false
}

// ComputeTotalDuration derives the timeline length from the clip set:
// max(startTime + duration) over all clips, 0 when empty.
func (s Snapshot) ComputeTotalDuration() float64 {
	var max float64
	for _, c := range s.Clips {
		if end := c.EndTime(); end > max {
			max = end
		}
	}
	return max
}

// Clone returns a deep copy. Readers receive clones so the live snapshot is
// never aliased outside the authority.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Clips = make([]Clip, len(s.Clips))
	copy(out.Clips, s.Clips)
	out.Tracks = make([]Track, len(s.Tracks))
	copy(out.Tracks, s.Tracks)
	if s.LastFailure != nil {
		f := *s.LastFailure
		out.LastFailure = &f
	}
	return out
}

// Validate checks the defensive invariants: every clip is well-formed,
// references an existing track when tracks are declared, track indexes are
// unique, and the stored total duration matches the derived one. A failure
// here indicates a logic defect, not a user-triggerable condition.
func (s Snapshot) Validate() error {
	indexes := make(map[int]string, len(s.Tracks))
	trackIDs := make(map[string]bool, len(s.Tracks))
	for _, t := range s.Tracks {
		if prev, dup := indexes[t.Index]; dup {
			return fmt.Errorf("tracks %s and %s share index %d", prev, t.ID, t.Index)
		}
		indexes[t.Index] = t.ID
		trackIDs[t.ID] = true
	}

	for _, c := range s.Clips {
		if err := c.Validate(); err != nil {
			return err
		}
		if len(s.Tracks) > 0 && !trackIDs[c.TrackID] {
			return fmt.Errorf("clip %s references unknown track %s", c.ID, c.TrackID)
		}
	}

	if s.TotalDuration < 0 {
		return fmt.Errorf("total duration %.6f is negative", s.TotalDuration)
	}
	if diff := s.TotalDuration - s.ComputeTotalDuration(); diff > timeEpsilon || diff < -timeEpsilon {
		return fmt.Errorf("total duration %.6f does not match derived %.6f", s.TotalDuration, s.ComputeTotalDuration())
	}
	return nil
}

// HasOverlap reports whether adding candidate would intersect an existing
// clip on the same track, ignoring the clip with ignoreID (used when a split
// replaces its original).
func (s Snapshot) HasOverlap(candidate Clip, ignoreID string) bool {
	for _, c := range s.Clips {
		if c.ID == ignoreID || c.ID == candidate.ID {
			continue
		}
		if c.Overlaps(candidate) {
			return true
		}
	}
	return false
}
