// Package service is the stateless technical executor for clip operations.
// It owns no business state: every request carries the exact clip data the
// computation needs, and results travel back as completion events. The only
// permitted side effect is idempotent resource cleanup in the frame cache.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/cutroom/cutroom-agent/internal/events"
	"github.com/cutroom/cutroom-agent/internal/timeline"
)

var ErrInvalidSplitTime = errors.New("invalid split time")

const (
	OpSplit  = "split"
	OpDelete = "delete"
)

type Service struct {
	bus     *events.Bus
	cache   *FrameCache
	logger  *slog.Logger
	running atomic.Bool
}

func New(bus *events.Bus, cache *FrameCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = NewFrameCache()
	}
	return &Service{bus: bus, cache: cache, logger: logger}
}

// ComputeSplit cuts a clip at an absolute timeline position strictly inside
// its interval. The two halves keep the original's track and source; the cut
// point maps into the source via the in point, so the halves' durations sum
// to the original's exactly.
func (s *Service) ComputeSplit(clip timeline.Clip, splitTime float64) (first, second timeline.Clip, err error) {
	if splitTime <= clip.StartTime || splitTime >= clip.EndTime() {
		return timeline.Clip{}, timeline.Clip{}, fmt.Errorf(
			"%w: %.3f outside (%.3f, %.3f)", ErrInvalidSplitTime, splitTime, clip.StartTime, clip.EndTime())
	}

	offset := splitTime - clip.StartTime

	first = clip
	first.ID = timeline.NewID()
	first.Duration = offset
	first.OutPoint = clip.InPoint + offset

	second = clip
	second.ID = timeline.NewID()
	second.StartTime = splitTime
	second.Duration = clip.Duration - offset
	second.InPoint = clip.InPoint + offset

	return first, second, nil
}

// ComputeDelete releases technical resources held for a clip. It is
// idempotent: deleting a clip that holds nothing succeeds.
func (s *Service) ComputeDelete(clipID string) error {
	if clipID == "" {
		return fmt.Errorf("delete: empty clip id")
	}
	s.cache.Release(clipID)
	return nil
}

// Run consumes request events until the context is canceled or the bus
// closes, publishing a completion (or failure) for every request. Exactly
// one Run loop may consume a bus.
func (s *Service) Run(ctx context.Context) {
	if s.running.Swap(true) {
		return
	}
	defer s.running.Store(false)

	s.logger.Info("timeline service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("timeline service stopping")
			return
		case ev, ok := <-s.bus.Requests():
			if !ok {
				s.logger.Info("request channel closed, timeline service stopping")
				return
			}
			s.handle(ev)
		}
	}
}

// IsRunning reports whether the request loop is active.
func (s *Service) IsRunning() bool {
	return s.running.Load()
}

func (s *Service) handle(ev events.Event) {
	switch req := ev.(type) {
	case events.RequestSplit:
		first, second, err := s.ComputeSplit(req.Clip, req.SplitTime)
		if err != nil {
			s.logger.Warn("split failed", "clip_id", req.Clip.ID, "error", err)
			s.bus.PublishCompletion(events.OperationFailed{
				Operation: OpSplit, ClipID: req.Clip.ID, Message: err.Error(),
			})
			return
		}
		s.bus.PublishCompletion(events.SplitComplete{
			OriginalID: req.Clip.ID, First: first, Second: second,
		})

	case events.RequestDelete:
		if err := s.ComputeDelete(req.ClipID); err != nil {
			s.logger.Warn("delete failed", "clip_id", req.ClipID, "error", err)
			s.bus.PublishCompletion(events.OperationFailed{
				Operation: OpDelete, ClipID: req.ClipID, Message: err.Error(),
			})
			return
		}
		s.bus.PublishCompletion(events.DeleteComplete{ClipID: req.ClipID})

	default:
		s.logger.Warn("unexpected event on request channel", "kind", string(ev.Kind()))
	}
}
