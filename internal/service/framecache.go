package service

import "sync"

// FrameCache tracks decoded-frame handles per clip. The cache is purely
// technical state: releasing an entry is never observable in the timeline
// snapshot, and releasing an absent entry is a no-op so cleanup stays
// idempotent.
type FrameCache struct {
	mu      sync.Mutex
	handles map[string]int64
	bytes   int64
}

func NewFrameCache() *FrameCache {
	return &FrameCache{handles: make(map[string]int64)}
}

// Retain records a decoded-frame allocation for a clip.
func (f *FrameCache) Retain(clipID string, size int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bytes += size - f.handles[clipID]
	f.handles[clipID] = size
}

// Release drops any allocation held for a clip.
func (f *FrameCache) Release(clipID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bytes -= f.handles[clipID]
	delete(f.handles, clipID)
}

// Held reports whether a clip currently has a cached allocation.
func (f *FrameCache) Held(clipID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.handles[clipID]
	return ok
}

// Bytes returns the total cached size.
func (f *FrameCache) Bytes() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bytes
}
