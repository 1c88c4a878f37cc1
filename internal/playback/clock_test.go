package playback

import (
	"context"
	"testing"
	"time"

	"github.com/yegors/routesim/pkg/logger"
)

func TestSimClock(t *testing.T) {
	start := time.Date(2024, 5, 1, 4, 0, 0, 0, time.UTC)
	c := SimClock{Start: start, Duration: 30 * time.Minute}

	tests := []struct {
		progress float64
		want     string
	}{
		{0, "04:00 UTC"},
		{0.5, "04:15 UTC"},
		{1, "04:30 UTC"},
	}
	for _, tt := range tests {
		if got := FormatUTC(c.At(tt.progress)); got != tt.want {
			t.Errorf("FormatUTC(At(%v)) = %q, want %q", tt.progress, got, tt.want)
		}
	}

	if got := c.Elapsed(0.25); got != 7*time.Minute+30*time.Second {
		t.Errorf("Elapsed(0.25) = %v", got)
	}
}

func TestTickerSchedulerFire(t *testing.T) {
	s := NewTickerScheduler(60, newFakeClock(), logger.NewNop())

	fired := 0
	s.RequestFrame(func(time.Time) { fired++ })
	cancelled := s.RequestFrame(func(time.Time) { t.Error("cancelled frame fired") })
	s.CancelFrame(cancelled)

	if s.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", s.Pending())
	}
	s.Fire()
	if fired != 1 || s.Pending() != 0 {
		t.Errorf("fired = %d pending = %d", fired, s.Pending())
	}

	// Frames requested from a callback wait for the next tick
	s.RequestFrame(func(time.Time) {
		s.RequestFrame(func(time.Time) { fired++ })
	})
	s.Fire()
	if fired != 1 || s.Pending() != 1 {
		t.Errorf("nested frame ran early: fired = %d pending = %d", fired, s.Pending())
	}
}

func TestTickerSchedulerDrivesController(t *testing.T) {
	sched := NewTickerScheduler(200, nil, logger.NewNop())
	done := make(chan struct{})
	listener := &doneListener{done: done}

	c, err := NewController(50*time.Millisecond, nil, sched, listener, logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go sched.Run(ctx)

	c.Play()
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("run did not complete")
	}
	if s := c.Snapshot(); s.Running || s.Progress != 1 {
		t.Errorf("state = %+v, want stopped at 1", s)
	}
}

type doneListener struct {
	done chan struct{}
}

func (l *doneListener) OnFrame(float64, bool) {}
func (l *doneListener) OnRestart() {}
func (l *doneListener) OnStateChange(running bool) {
	if !running {
		close(l.done)
	}
}
