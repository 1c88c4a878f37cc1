package playback

import (
	"math"
	"testing"
	"time"

	"github.com/yegors/routesim/pkg/logger"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
func newFakeClock() *fakeClock { return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)} }

// manualScheduler holds callbacks until the test fires them
type manualScheduler struct {
	next      FrameID
	pending   map[FrameID]FrameFunc
	cancelled []FrameID
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{pending: make(map[FrameID]FrameFunc)}
}

func (s *manualScheduler) RequestFrame(cb FrameFunc) FrameID {
	s.next++
	s.pending[s.next] = cb
	return s.next
}

func (s *manualScheduler) CancelFrame(id FrameID) {
	delete(s.pending, id)
	s.cancelled = append(s.cancelled, id)
}

func (s *manualScheduler) fire(now time.Time) {
	due := s.pending
	s.pending = make(map[FrameID]FrameFunc)
	for _, cb := range due {
		cb(now)
	}
}

type recorder struct {
	frames   []float64
	running  []bool
	restarts int
	states   []bool
}

func (r *recorder) OnFrame(p float64, running bool) {
	r.frames = append(r.frames, p)
	r.running = append(r.running, running)
}
func (r *recorder) OnRestart() { r.restarts++ }
func (r *recorder) OnStateChange(running bool) { r.states = append(r.states, running) }

func (r *recorder) last() float64 {
	if len(r.frames) == 0 {
		return math.NaN()
	}
	return r.frames[len(r.frames)-1]
}

func newTestController(t *testing.T) (*Controller, *fakeClock, *manualScheduler, *recorder) {
	t.Helper()
	clock := newFakeClock()
	sched := newManualScheduler()
	rec := &recorder{}
	c, err := NewController(60*time.Second, clock, sched, rec, logger.NewNop())
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	return c, clock, sched, rec
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestInitialState(t *testing.T) {
	c, _, _, _ := newTestController(t)
	s := c.Snapshot()
	if s.Running || s.PausedOffset != 0 || s.Progress != 0 {
		t.Errorf("initial state = %+v, want Stopped(0)", s)
	}
}

func TestPlayPausePlayResumes(t *testing.T) {
	c, clock, sched, rec := newTestController(t)

	c.Play()
	if rec.restarts != 1 {
		t.Fatalf("restarts = %d, want 1", rec.restarts)
	}

	clock.Advance(15 * time.Second)
	sched.fire(clock.Now())
	if !approx(rec.last(), 0.25) {
		t.Errorf("progress after 15s = %v, want 0.25", rec.last())
	}

	clock.Advance(3 * time.Second)
	c.Pause()
	if s := c.Snapshot(); s.Running || s.PausedOffset != 18*time.Second || !approx(s.Progress, 0.3) {
		t.Errorf("paused state = %+v", s)
	}

	// Paused time is not counted
	clock.Advance(time.Hour)
	c.Play()
	if rec.restarts != 1 {
		t.Errorf("resume counted as a restart")
	}
	clock.Advance(6 * time.Second)
	sched.fire(clock.Now())
	if !approx(rec.last(), 0.4) {
		t.Errorf("progress after resume = %v, want 0.4", rec.last())
	}
}

func TestPauseCancelsPendingFrame(t *testing.T) {
	c, clock, sched, rec := newTestController(t)

	c.Play()
	if len(sched.pending) != 1 {
		t.Fatalf("pending frames = %d, want 1", len(sched.pending))
	}
	c.Pause()
	if len(sched.pending) != 0 || len(sched.cancelled) != 1 {
		t.Errorf("pending = %d cancelled = %d after pause", len(sched.pending), len(sched.cancelled))
	}

	n := len(rec.frames)
	clock.Advance(time.Second)
	sched.fire(clock.Now())
	if len(rec.frames) != n {
		t.Error("frame emitted after pause")
	}
}

func TestStaleGenerationIsIgnored(t *testing.T) {
	c, clock, sched, rec := newTestController(t)

	c.Play()
	var stale FrameFunc
	for _, cb := range sched.pending {
		stale = cb
	}

	c.Pause()
	c.Play()
	n := len(rec.frames)

	clock.Advance(10 * time.Second)
	stale(clock.Now())
	if len(rec.frames) != n {
		t.Error("callback from the previous run emitted a frame")
	}
	if len(sched.pending) != 1 {
		t.Errorf("pending frames = %d, want 1", len(sched.pending))
	}
}

func TestSeekPausesAndEmits(t *testing.T) {
	c, clock, sched, rec := newTestController(t)

	c.Play()
	clock.Advance(12 * time.Second)
	sched.fire(clock.Now())

	if err := c.Seek(0.5); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	s := c.Snapshot()
	if s.Running || s.PausedOffset != 30*time.Second {
		t.Errorf("state after seek = %+v", s)
	}
	if !approx(rec.last(), 0.5) {
		t.Errorf("seek emitted %v, want 0.5", rec.last())
	}
	if len(sched.pending) != 0 {
		t.Error("seek left a pending frame")
	}

	// Resuming from a non-zero offset keeps history
	c.Play()
	if rec.restarts != 1 {
		t.Errorf("restarts = %d, want 1", rec.restarts)
	}
	clock.Advance(6 * time.Second)
	sched.fire(clock.Now())
	if !approx(rec.last(), 0.6) {
		t.Errorf("progress = %v, want 0.6", rec.last())
	}
}

func TestSeekZeroThenPlayRestarts(t *testing.T) {
	c, _, _, rec := newTestController(t)

	_ = c.Seek(0.4)
	_ = c.Seek(0)
	c.Play()
	if rec.restarts != 1 {
		t.Errorf("restarts = %d, want 1", rec.restarts)
	}
}

func TestSeekRejectsOutOfRange(t *testing.T) {
	c, _, _, _ := newTestController(t)
	for _, p := range []float64{-0.1, 1.1, math.NaN()} {
		if err := c.Seek(p); err == nil {
			t.Errorf("Seek(%v) = nil, want error", p)
		}
	}
	for _, v := range []int{-1, 1001} {
		if err := c.SeekSlider(v); err == nil {
			t.Errorf("SeekSlider(%d) = nil, want error", v)
		}
	}
	if err := c.SeekSlider(250); err != nil || !approx(c.Snapshot().Progress, 0.25) {
		t.Errorf("SeekSlider(250) = %v, progress %v", err, c.Snapshot().Progress)
	}
}

func TestRunCompletesAndReplays(t *testing.T) {
	c, clock, sched, rec := newTestController(t)

	c.Play()
	clock.Advance(90 * time.Second)
	sched.fire(clock.Now())

	if rec.last() != 1 {
		t.Errorf("final progress = %v, want 1", rec.last())
	}
	if rec.running[len(rec.running)-1] {
		t.Error("final frame reported running")
	}
	s := c.Snapshot()
	if s.Running || s.PausedOffset != 0 || s.Progress != 1 {
		t.Errorf("terminal state = %+v, want Stopped(0) at progress 1", s)
	}
	if len(sched.pending) != 0 {
		t.Error("frame requested after the run ended")
	}
	if got := rec.states; len(got) != 2 || !got[0] || got[1] {
		t.Errorf("state changes = %v, want [true false]", got)
	}

	c.Play()
	if rec.restarts != 2 {
		t.Errorf("replay restarts = %d, want 2", rec.restarts)
	}
	clock.Advance(3 * time.Second)
	sched.fire(clock.Now())
	if !approx(rec.last(), 0.05) {
		t.Errorf("replay progress = %v, want 0.05", rec.last())
	}
}

func TestToggle(t *testing.T) {
	c, _, _, _ := newTestController(t)
	if !c.Toggle() {
		t.Error("Toggle() from stopped = false")
	}
	if c.Toggle() {
		t.Error("Toggle() from running = true")
	}
}

func TestPlayWhileRunningIsNoop(t *testing.T) {
	c, _, sched, rec := newTestController(t)
	c.Play()
	gen := c.Snapshot().Generation
	c.Play()
	if c.Snapshot().Generation != gen || len(sched.pending) != 1 || rec.restarts != 1 {
		t.Error("second Play() changed the running state")
	}
}

func TestNewControllerRejectsZeroDuration(t *testing.T) {
	if _, err := NewController(0, nil, nil, nil, logger.NewNop()); err == nil {
		t.Error("NewController(0) = nil error")
	}
}

func TestDoIsSerializedAndEmits(t *testing.T) {
	c, _, _, rec := newTestController(t)
	_ = c.Seek(0.3)

	var seen State
	c.Do(func(s State) { seen = s })
	if !approx(seen.Progress, 0.3) {
		t.Errorf("Do() saw progress %v, want 0.3", seen.Progress)
	}
	if len(rec.frames) != 2 || !approx(rec.last(), 0.3) {
		t.Errorf("frames = %v, want a re-render at 0.3", rec.frames)
	}
}
