package playback

import (
	"context"
	"sync"
	"time"

	"github.com/yegors/routesim/pkg/logger"
)

// FrameID identifies a requested frame callback
type FrameID uint64

// FrameFunc is invoked with the frame time
type FrameFunc func(now time.Time)

// Scheduler delivers one-shot frame callbacks
type Scheduler interface {
	RequestFrame(cb FrameFunc) FrameID
	CancelFrame(id FrameID)
}

// TickerScheduler fires pending frame callbacks at a fixed frame rate
type TickerScheduler struct {
	interval time.Duration
	clock    Clock
	logger   *logger.Logger

	mu      sync.Mutex
	nextID  FrameID
	pending map[FrameID]FrameFunc
}

// NewTickerScheduler creates a scheduler running at fps frames per second
func NewTickerScheduler(fps int, clock Clock, log *logger.Logger) *TickerScheduler {
	if fps <= 0 {
		fps = 60
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &TickerScheduler{
		interval: time.Second / time.Duration(fps),
		clock:    clock,
		logger:   log.Named("scheduler"),
		pending:  make(map[FrameID]FrameFunc),
	}
}

// RequestFrame queues cb for the next tick
func (s *TickerScheduler) RequestFrame(cb FrameFunc) FrameID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.pending[s.nextID] = cb
	return s.nextID
}

// CancelFrame drops a queued callback. Unknown ids are ignored.
func (s *TickerScheduler) CancelFrame(id FrameID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

// Pending returns the number of queued callbacks
func (s *TickerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Run fires queued callbacks on every tick until ctx is done
func (s *TickerScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Frame scheduler started", logger.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Frame scheduler stopped")
			return
		case <-ticker.C:
			s.Fire()
		}
	}
}

// Fire runs every queued callback once. Callbacks may queue new frames, which
// run on the next call.
func (s *TickerScheduler) Fire() {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	due := s.pending
	s.pending = make(map[FrameID]FrameFunc)
	s.mu.Unlock()

	now := s.clock.Now()
	for _, cb := range due {
		cb(now)
	}
}
