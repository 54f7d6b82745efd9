package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cutroom/cutroom-agent/internal/timeline"
)

type fakeSource struct {
	mu   sync.Mutex
	snap timeline.Snapshot
}

func (f *fakeSource) Snapshot() timeline.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap.Clone()
}

func (f *fakeSource) set(snap timeline.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = snap
}

func countSaves(t *testing.T, repo Repository, project string) int {
	t.Helper()
	saves, err := repo.ListSnapshots(context.Background(), project, 100)
	if err != nil {
		t.Fatalf("ListSnapshots error = %v", err)
	}
	return len(saves)
}

func TestAutosaver_SavesOnChange(t *testing.T) {
	_, repo := setupTestDB(t)
	source := &fakeSource{snap: sampleSnapshot()}

	saver := NewAutosaver(repo, source, "proj", 20*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go saver.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && countSaves(t, repo, "proj") == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	if countSaves(t, repo, "proj") != 1 {
		t.Fatalf("save count = %d, want 1", countSaves(t, repo, "proj"))
	}

	// Unchanged snapshot: no further saves accumulate.
	time.Sleep(100 * time.Millisecond)
	if got := countSaves(t, repo, "proj"); got != 1 {
		t.Fatalf("save count after idle = %d, want still 1", got)
	}

	changed := sampleSnapshot()
	changed.CurrentTime = 5
	source.set(changed)

	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && countSaves(t, repo, "proj") < 2 {
		time.Sleep(10 * time.Millisecond)
	}
	if got := countSaves(t, repo, "proj"); got != 2 {
		t.Fatalf("save count after change = %d, want 2", got)
	}
}

func TestAutosaver_PauseSuppressesSaves(t *testing.T) {
	_, repo := setupTestDB(t)
	source := &fakeSource{snap: sampleSnapshot()}

	saver := NewAutosaver(repo, source, "proj", 20*time.Millisecond, nil)
	saver.Pause()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go saver.Start(ctx)

	time.Sleep(100 * time.Millisecond)
	if got := countSaves(t, repo, "proj"); got != 0 {
		t.Fatalf("save count while paused = %d, want 0", got)
	}

	saver.Resume()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && countSaves(t, repo, "proj") == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	if got := countSaves(t, repo, "proj"); got == 0 {
		t.Fatal("no save after resume")
	}
}

func TestAutosaver_SaveNow(t *testing.T) {
	_, repo := setupTestDB(t)
	source := &fakeSource{snap: sampleSnapshot()}

	saver := NewAutosaver(repo, source, "proj", time.Hour, nil)

	saved, err := saver.SaveNow(context.Background())
	if err != nil {
		t.Fatalf("SaveNow error = %v", err)
	}
	if saved.ID == "" {
		t.Fatal("SaveNow returned empty id")
	}
	if got := countSaves(t, repo, "proj"); got != 1 {
		t.Fatalf("save count = %d, want 1", got)
	}
}
