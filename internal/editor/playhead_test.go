package editor

import (
	"context"
	"testing"
	"time"

	"github.com/cutroom/cutroom-agent/internal/authority"
	"github.com/cutroom/cutroom-agent/internal/events"
	"github.com/cutroom/cutroom-agent/internal/service"
	"github.com/cutroom/cutroom-agent/internal/timeline"
)

func setupPlayhead(t *testing.T, interval time.Duration) (*Editor, *Playhead) {
	t.Helper()

	bus := events.NewBus()
	auth := authority.New(bus, nil, authority.Options{AllowOverlap: true})
	svc := service.New(bus, nil, nil)
	ed := New(auth, bus, nil, nil)
	ph := NewPlayhead(auth, interval, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		bus.Close()
	})

	go svc.Run(ctx)
	go ed.Run(ctx)
	go ph.Run(ctx)

	return ed, ph
}

func TestPlayhead_AdvancesDuringPlayback(t *testing.T) {
	ed, _ := setupPlayhead(t, 5*time.Millisecond)

	if _, err := ed.AddClip(timeline.Clip{
		TrackID: "t1", SourceURL: "/media/a.mp4",
		StartTime: 0, Duration: 60, InPoint: 0, OutPoint: 60,
	}); err != nil {
		t.Fatal(err)
	}
	if err := ed.Play(); err != nil {
		t.Fatalf("Play error = %v", err)
	}

	waitFor(t, func() bool {
		return ed.Snapshot().CurrentTime > 0
	}, "playhead never advanced")

	if err := ed.Pause(); err != nil {
		t.Fatalf("Pause error = %v", err)
	}
	frozen := ed.Snapshot().CurrentTime
	time.Sleep(50 * time.Millisecond)
	if got := ed.Snapshot().CurrentTime; got != frozen {
		t.Errorf("CurrentTime = %v after pause, want frozen at %v", got, frozen)
	}
}

func TestPlayhead_PausesAtTimelineEnd(t *testing.T) {
	ed, _ := setupPlayhead(t, 5*time.Millisecond)

	// A very short clip: the playhead overshoots it in a tick or two and the
	// machine clamps and drops to paused.
	if _, err := ed.AddClip(timeline.Clip{
		TrackID: "t1", SourceURL: "/media/a.mp4",
		StartTime: 0, Duration: 0.001, InPoint: 0, OutPoint: 0.001,
	}); err != nil {
		t.Fatal(err)
	}
	if err := ed.Play(); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		return ed.State() == authority.StatePaused
	}, "playback never paused at the end of the timeline")

	snap := ed.Snapshot()
	if snap.CurrentTime != snap.TotalDuration {
		t.Errorf("CurrentTime = %v, want clamped to %v", snap.CurrentTime, snap.TotalDuration)
	}
}

func TestScrubCommands(t *testing.T) {
	ed, _ := setupPlayhead(t, time.Hour)

	if _, err := ed.AddClip(timeline.Clip{
		TrackID: "t1", SourceURL: "/media/a.mp4",
		StartTime: 0, Duration: 10, InPoint: 0, OutPoint: 10,
	}); err != nil {
		t.Fatal(err)
	}

	if err := ed.ScrubTo(3); err == nil {
		t.Error("ScrubTo without an active drag should be rejected")
	}

	if err := ed.BeginScrub(); err != nil {
		t.Fatalf("BeginScrub error = %v", err)
	}
	if !ed.Snapshot().Scrubber.IsDragging {
		t.Fatal("scrubber not marked as dragging")
	}

	if err := ed.ScrubTo(3); err != nil {
		t.Fatalf("ScrubTo error = %v", err)
	}
	if got := ed.Snapshot().CurrentTime; got != 3 {
		t.Errorf("CurrentTime = %v, want 3", got)
	}

	if err := ed.ScrubTo(99); err != nil {
		t.Fatalf("ScrubTo past end error = %v", err)
	}
	if got := ed.Snapshot().CurrentTime; got != 10 {
		t.Errorf("CurrentTime = %v, want clamped to 10", got)
	}

	if err := ed.EndScrub(); err != nil {
		t.Fatalf("EndScrub error = %v", err)
	}
	if ed.Snapshot().Scrubber.IsDragging {
		t.Error("scrubber still dragging after EndScrub")
	}
}
