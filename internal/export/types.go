package export

import (
	"fmt"
	"sort"

	"github.com/cutroom/cutroom-agent/internal/timeline"
)

type ExportRequest struct {
	ProjectName string  `json:"project_name"`
	Format      string  `json:"format"`
	FrameRate   float64 `json:"frame_rate"`
	OutputDir   string  `json:"output_dir"`
}

// ResolvedClip is one EDL event: a source interval (the clip's in/out
// points) cut onto the record timeline in playback order.
type ResolvedClip struct {
	ClipName  string
	MediaPath string
	StartMs   int
	EndMs     int
}

type ExportResponse struct {
	Status     string `json:"status"`
	Format     string `json:"format"`
	OutputPath string `json:"output_path"`
	ClipCount  int    `json:"clip_count"`
}

// Resolve flattens a snapshot into EDL events ordered by timeline position.
// Source intervals come from in/out points, converted to milliseconds: the
// EDL addresses source media, not timeline positions.
func Resolve(snap timeline.Snapshot) []ResolvedClip {
	clips := make([]timeline.Clip, len(snap.Clips))
	copy(clips, snap.Clips)
	sort.Slice(clips, func(i, j int) bool {
		return clips[i].StartTime < clips[j].StartTime
	})

	resolved := make([]ResolvedClip, 0, len(clips))
	for i, c := range clips {
		name := SanitizeName(c.ID, 160)
		if name == "" {
			name = fmt.Sprintf("clip_%03d", i+1)
		}
		resolved = append(resolved, ResolvedClip{
			ClipName:  name,
			MediaPath: c.SourceURL,
			StartMs:   int(c.InPoint * 1000),
			EndMs:     int(c.OutPoint * 1000),
		})
	}
	return resolved
}
