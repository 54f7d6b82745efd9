package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cutroom/cutroom-agent/internal/events"
	"github.com/cutroom/cutroom-agent/internal/timeline"
)

func testClip() timeline.Clip {
	return timeline.Clip{
		ID: "a", TrackID: "t1", SourceURL: "/media/a.mp4",
		StartTime: 0, Duration: 10, InPoint: 0, OutPoint: 10,
	}
}

func TestComputeSplit_ContentPreserving(t *testing.T) {
	svc := New(events.NewBus(), nil, nil)
	clip := testClip()

	first, second, err := svc.ComputeSplit(clip, 4)
	if err != nil {
		t.Fatalf("ComputeSplit error = %v", err)
	}

	if first.Duration+second.Duration != clip.Duration {
		t.Errorf("durations %v + %v != %v", first.Duration, second.Duration, clip.Duration)
	}
	if second.StartTime != 4 {
		t.Errorf("second.StartTime = %v, want 4", second.StartTime)
	}
	if first.StartTime != 0 || first.Duration != 4 {
		t.Errorf("first = [%v, %v), want [0, 4)", first.StartTime, first.EndTime())
	}
	if first.OutPoint != 4 {
		t.Errorf("first.OutPoint = %v, want 4", first.OutPoint)
	}
	if second.InPoint != 4 || second.OutPoint != 10 {
		t.Errorf("second source span = [%v, %v], want [4, 10]", second.InPoint, second.OutPoint)
	}
	if first.ID == clip.ID || second.ID == clip.ID || first.ID == second.ID {
		t.Error("split halves must have fresh distinct ids")
	}
	if first.TrackID != clip.TrackID || second.SourceURL != clip.SourceURL {
		t.Error("split halves must keep track and source")
	}

	if err := first.Validate(); err != nil {
		t.Errorf("first half invalid: %v", err)
	}
	if err := second.Validate(); err != nil {
		t.Errorf("second half invalid: %v", err)
	}
}

func TestComputeSplit_OffsetClip(t *testing.T) {
	svc := New(events.NewBus(), nil, nil)
	clip := timeline.Clip{
		ID: "b", TrackID: "t1", SourceURL: "/media/b.mp4",
		StartTime: 5, Duration: 6, InPoint: 2, OutPoint: 8,
	}

	first, second, err := svc.ComputeSplit(clip, 7)
	if err != nil {
		t.Fatalf("ComputeSplit error = %v", err)
	}
	if first.Duration != 2 || first.OutPoint != 4 {
		t.Errorf("first = duration %v outPoint %v, want 2 and 4", first.Duration, first.OutPoint)
	}
	if second.StartTime != 7 || second.InPoint != 4 || second.Duration != 4 {
		t.Errorf("second = start %v inPoint %v duration %v, want 7, 4, 4", second.StartTime, second.InPoint, second.Duration)
	}
}

func TestComputeSplit_RejectsBoundaryAndOutOfRange(t *testing.T) {
	svc := New(events.NewBus(), nil, nil)
	clip := testClip()

	for _, splitTime := range []float64{0, 10, -2, 15} {
		_, _, err := svc.ComputeSplit(clip, splitTime)
		if !errors.Is(err, ErrInvalidSplitTime) {
			t.Errorf("ComputeSplit(%v) error = %v, want ErrInvalidSplitTime", splitTime, err)
		}
	}
}

func TestComputeDelete_Idempotent(t *testing.T) {
	cache := NewFrameCache()
	svc := New(events.NewBus(), cache, nil)

	cache.Retain("a", 1024)

	if err := svc.ComputeDelete("a"); err != nil {
		t.Fatalf("first delete error = %v", err)
	}
	if cache.Held("a") {
		t.Error("frame cache entry not released")
	}
	if err := svc.ComputeDelete("a"); err != nil {
		t.Fatalf("second delete error = %v, want idempotent nil", err)
	}
	if cache.Bytes() != 0 {
		t.Errorf("cache bytes = %d after release, want 0", cache.Bytes())
	}
}

func TestRun_SplitRequestProducesCompletion(t *testing.T) {
	bus := events.NewBus()
	svc := New(bus, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	bus.PublishRequest(events.RequestSplit{Clip: testClip(), SplitTime: 4})

	select {
	case ev := <-bus.Completions():
		done, ok := ev.(events.SplitComplete)
		if !ok {
			t.Fatalf("completion = %T, want SplitComplete", ev)
		}
		if done.OriginalID != "a" {
			t.Errorf("OriginalID = %s, want a", done.OriginalID)
		}
		if done.First.Duration+done.Second.Duration != 10 {
			t.Errorf("halves sum to %v, want 10", done.First.Duration+done.Second.Duration)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no completion within timeout")
	}
}

func TestRun_InvalidSplitProducesFailure(t *testing.T) {
	bus := events.NewBus()
	svc := New(bus, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	bus.PublishRequest(events.RequestSplit{Clip: testClip(), SplitTime: 0})

	select {
	case ev := <-bus.Completions():
		failed, ok := ev.(events.OperationFailed)
		if !ok {
			t.Fatalf("completion = %T, want OperationFailed", ev)
		}
		if failed.Operation != OpSplit || failed.ClipID != "a" {
			t.Errorf("failure = %+v, want split failure for clip a", failed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no failure event within timeout")
	}
}

func TestRun_DeleteRequestProducesCompletion(t *testing.T) {
	bus := events.NewBus()
	cache := NewFrameCache()
	cache.Retain("a", 2048)
	svc := New(bus, cache, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	bus.PublishRequest(events.RequestDelete{ClipID: "a"})

	select {
	case ev := <-bus.Completions():
		done, ok := ev.(events.DeleteComplete)
		if !ok {
			t.Fatalf("completion = %T, want DeleteComplete", ev)
		}
		if done.ClipID != "a" {
			t.Errorf("ClipID = %s, want a", done.ClipID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no completion within timeout")
	}

	if cache.Held("a") {
		t.Error("delete did not release the frame cache entry")
	}
}

func TestRun_StopsOnBusClose(t *testing.T) {
	bus := events.NewBus()
	svc := New(bus, nil, nil)

	done := make(chan struct{})
	go func() {
		svc.Run(context.Background())
		close(done)
	}()

	// Give the loop a moment to start, then close the bus under it.
	time.Sleep(10 * time.Millisecond)
	bus.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after bus close")
	}
}
