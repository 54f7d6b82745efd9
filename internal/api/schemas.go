package api

import (
	"time"

	"github.com/cutroom/cutroom-agent/internal/persistence"
	"github.com/cutroom/cutroom-agent/internal/timeline"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type StatusResponse struct {
	State          string            `json:"state"`
	Project        string            `json:"project"`
	ClipCount      int               `json:"clip_count"`
	TotalDuration  float64           `json:"total_duration"`
	CurrentTime    float64           `json:"current_time"`
	SelectedClipID string            `json:"selected_clip_id,omitempty"`
	Recording      bool              `json:"recording"`
	CanEdit        bool              `json:"can_edit"`
	AutosavePaused bool              `json:"autosave_paused"`
	LastFailure    *timeline.Failure `json:"last_failure,omitempty"`
}

type AddClipRequest struct {
	TrackID   string  `json:"track_id"`
	SourceURL string  `json:"source_url"`
	StartTime float64 `json:"start_time"`
	Duration  float64 `json:"duration"`
	InPoint   float64 `json:"in_point"`
	OutPoint  float64 `json:"out_point"`
}

type AddClipResponse struct {
	Clip timeline.Clip `json:"clip"`
}

type SplitRequest struct {
	Time float64 `json:"time"`
}

type SeekRequest struct {
	Time float64 `json:"time"`
}

type SnapshotResponse struct {
	State    string            `json:"state"`
	Snapshot timeline.Snapshot `json:"snapshot"`
}

type SaveResponse struct {
	SaveID    string `json:"save_id"`
	CreatedAt string `json:"created_at"`
}

type SavesResponse struct {
	Saves []SaveSummary `json:"saves"`
}

type SaveSummary struct {
	ID        string  `json:"id"`
	Project   string  `json:"project"`
	ClipCount int     `json:"clip_count"`
	Duration  float64 `json:"duration"`
	CreatedAt string  `json:"created_at"`
}

type FailuresResponse struct {
	Failures []*persistence.FailureRecord `json:"failures"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func SaveToSummary(s *persistence.SavedSnapshot) SaveSummary {
	return SaveSummary{
		ID:        s.ID,
		Project:   s.Project,
		ClipCount: len(s.Snapshot.Clips),
		Duration:  s.Snapshot.TotalDuration,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
	}
}
