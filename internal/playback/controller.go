package playback

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/yegors/routesim/pkg/logger"
)

// SliderMax is the upper bound of the timeline slider value
const SliderMax = 1000

// Listener receives controller events. Callbacks run while the controller
// lock is held and must not call back into the controller.
type Listener interface {
	// OnFrame is called with the progress to render, after every tick and seek
	OnFrame(progress float64, running bool)
	// OnRestart is called when playback starts from zero
	OnRestart()
	// OnStateChange is called when playback starts or stops
	OnStateChange(running bool)
}

// State is a consistent copy of the playback state
type State struct {
	Progress     float64       `json:"progress"`
	Running      bool          `json:"running"`
	Anchor       time.Time     `json:"anchor"`        // wall clock at progress 0, valid while running
	PausedOffset time.Duration `json:"paused_offset"` // animation offset while stopped
	Generation   uint64        `json:"generation"`
}

// SliderValue returns progress on the 0..SliderMax timeline scale
func (s State) SliderValue() int {
	return int(math.Round(s.Progress * SliderMax))
}

// Controller is the play/pause/seek state machine driving the animation.
// Every method and every frame callback is serialized by mu.
type Controller struct {
	mu        sync.Mutex
	duration  time.Duration
	clock     Clock
	scheduler Scheduler
	listener  Listener
	logger    *logger.Logger

	state      State
	pending    FrameID
	hasPending bool
}

// NewController creates a controller in Stopped(0)
func NewController(duration time.Duration, clock Clock, scheduler Scheduler, listener Listener, log *logger.Logger) (*Controller, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("animation duration must be positive, got %v", duration)
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Controller{
		duration:  duration,
		clock:     clock,
		scheduler: scheduler,
		listener:  listener,
		logger:    log.Named("playback"),
	}, nil
}

// Duration returns the wall-clock length of a full replay
func (c *Controller) Duration() time.Duration {
	return c.duration
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Play starts or resumes playback. Starting from offset zero is a fresh run
// and notifies OnRestart before the first frame.
func (c *Controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.play()
}

// Pause stops playback and keeps the current offset
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pause()
}

// Toggle plays when stopped and pauses when running. It returns the new running state.
func (c *Controller) Toggle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Running {
		c.pause()
	} else {
		c.play()
	}
	return c.state.Running
}

// Seek moves to the given progress, pausing first if running, and emits one
// frame immediately.
func (c *Controller) Seek(progress float64) error {
	if math.IsNaN(progress) || progress < 0 || progress > 1 {
		return fmt.Errorf("seek progress %v outside [0,1]", progress)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.pause()
	c.state.PausedOffset = time.Duration(progress * float64(c.duration))
	c.state.Progress = progress
	c.emit(progress)
	return nil
}

// SeekSlider seeks using the 0..SliderMax timeline value
func (c *Controller) SeekSlider(value int) error {
	if value < 0 || value > SliderMax {
		return fmt.Errorf("slider value %d outside [0,%d]", value, SliderMax)
	}
	return c.Seek(float64(value) / SliderMax)
}

// Emit re-renders the current progress without changing state
func (c *Controller) Emit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emit(c.state.Progress)
}

// Do runs fn serialized with frames and user actions, then re-renders the
// current progress. fn must not call back into the controller.
func (c *Controller) Do(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.state)
	c.emit(c.state.Progress)
}

func (c *Controller) play() {
	if c.state.Running {
		return
	}

	now := c.clock.Now()
	if c.state.PausedOffset == 0 {
		c.logger.Debug("Starting playback from zero")
		if c.listener != nil {
			c.listener.OnRestart()
		}
	}

	c.state.Anchor = now.Add(-c.state.PausedOffset)
	c.state.Running = true
	c.state.Generation++
	c.requestFrame()

	if c.listener != nil {
		c.listener.OnStateChange(true)
	}
}

func (c *Controller) pause() {
	if !c.state.Running {
		return
	}

	offset := c.clock.Now().Sub(c.state.Anchor)
	if offset > c.duration {
		offset = c.duration
	}
	if offset < 0 {
		offset = 0
	}

	c.state.PausedOffset = offset
	c.state.Progress = float64(offset) / float64(c.duration)
	c.state.Running = false
	c.cancelFrame()

	if c.listener != nil {
		c.listener.OnStateChange(false)
	}
}

func (c *Controller) requestFrame() {
	if c.scheduler == nil {
		return
	}
	c.cancelFrame()
	generation := c.state.Generation
	c.pending = c.scheduler.RequestFrame(func(now time.Time) {
		c.tick(generation, now)
	})
	c.hasPending = true
}

func (c *Controller) cancelFrame() {
	if !c.hasPending {
		return
	}
	if c.scheduler != nil {
		c.scheduler.CancelFrame(c.pending)
	}
	c.hasPending = false
}

// tick advances the animation. Callbacks from an earlier run are ignored.
func (c *Controller) tick(generation uint64, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Running || generation != c.state.Generation {
		return
	}
	c.hasPending = false

	progress := float64(now.Sub(c.state.Anchor)) / float64(c.duration)
	if progress > 1 {
		progress = 1
	}
	if progress < 0 {
		progress = 0
	}
	c.state.Progress = progress

	if progress >= 1 {
		c.state.Running = false
		c.state.PausedOffset = 0
		c.emit(progress)
		c.logger.Debug("Playback reached the end of the run")
		if c.listener != nil {
			c.listener.OnStateChange(false)
		}
		return
	}

	c.emit(progress)
	c.requestFrame()
}

func (c *Controller) emit(progress float64) {
	if c.listener != nil {
		c.listener.OnFrame(progress, c.state.Running)
	}
}
