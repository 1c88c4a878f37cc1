package simulation

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/yegors/routesim/internal/display"
	"github.com/yegors/routesim/internal/fleet"
	"github.com/yegors/routesim/internal/metrics"
	"github.com/yegors/routesim/internal/playback"
	"github.com/yegors/routesim/internal/telemetry"
	"github.com/yegors/routesim/pkg/logger"
)

// Sink receives every emitted frame. Publish is called on the playback path
// and must not block.
type Sink interface {
	Publish(frame telemetry.Frame)
}

// HistoryStore persists the selected aircraft's flight log
type HistoryStore interface {
	Append(entry telemetry.HistoryEntry) (int64, error)
	List(limit int) ([]telemetry.HistoryEntry, error)
	Clear() error
}

// Options configures the service
type Options struct {
	AnimationDuration time.Duration
	Clock             playback.Clock
	Scheduler         playback.Scheduler
	MaxHistoryRows    int
	PreviewCacheSize  int
	PreviewCacheTTL   time.Duration
}

// PlaybackStatus is the playback state as reported to clients
type PlaybackStatus struct {
	Progress    float64   `json:"progress"`
	SliderValue int       `json:"slider_value"`
	Running     bool      `json:"running"`
	SimTime     time.Time `json:"sim_time"`
	ClockText   string    `json:"clock_text"`
	Selected    string    `json:"selected,omitempty"`
}

// Service ties the fleet, the playback controller and the history log
// together and fans frames out to the sinks.
type Service struct {
	fleet      *fleet.Fleet
	builder    *telemetry.Builder
	history    HistoryStore
	metrics    *metrics.Collector
	controller *playback.Controller
	preview    *expirable.LRU[int, telemetry.Frame]
	maxHistory int
	logger     *logger.Logger

	mutex sync.RWMutex
	sinks []Sink
	last  *telemetry.Frame
}

// NewService creates the service and its playback controller
func NewService(f *fleet.Fleet, builder *telemetry.Builder, history HistoryStore, m *metrics.Collector, opts Options, log *logger.Logger) (*Service, error) {
	if opts.MaxHistoryRows <= 0 {
		opts.MaxHistoryRows = 500
	}
	if opts.PreviewCacheSize <= 0 {
		opts.PreviewCacheSize = 256
	}
	if opts.PreviewCacheTTL <= 0 {
		opts.PreviewCacheTTL = 10 * time.Minute
	}

	s := &Service{
		fleet:      f,
		builder:    builder,
		history:    history,
		metrics:    m,
		preview:    expirable.NewLRU[int, telemetry.Frame](opts.PreviewCacheSize, nil, opts.PreviewCacheTTL),
		maxHistory: opts.MaxHistoryRows,
		logger:     log.Named("simulation"),
	}

	controller, err := playback.NewController(opts.AnimationDuration, opts.Clock, opts.Scheduler, s, log)
	if err != nil {
		return nil, err
	}
	s.controller = controller

	m.SetFleet(f.Len(), len(f.Rejected()))
	return s, nil
}

// Fleet returns the fleet
func (s *Service) Fleet() *fleet.Fleet {
	return s.fleet
}

// Subscribe adds a sink for emitted frames
func (s *Service) Subscribe(sink Sink) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.sinks = append(s.sinks, sink)
}

// Play starts or resumes playback
func (s *Service) Play() {
	s.controller.Play()
}

// Pause stops playback
func (s *Service) Pause() {
	s.controller.Pause()
}

// Toggle flips between playing and paused
func (s *Service) Toggle() bool {
	return s.controller.Toggle()
}

// Seek moves playback to progress (0..1)
func (s *Service) Seek(progress float64) error {
	return s.controller.Seek(progress)
}

// SeekSlider moves playback to a timeline value (0..1000)
func (s *Service) SeekSlider(value int) error {
	return s.controller.SeekSlider(value)
}

// Status returns the current playback status
func (s *Service) Status() PlaybackStatus {
	state := s.controller.Snapshot()
	simTime := s.builder.Clock().At(state.Progress)
	status := PlaybackStatus{
		Progress:    state.Progress,
		SliderValue: state.SliderValue(),
		Running:     state.Running,
		SimTime:     simTime,
		ClockText:   playback.FormatUTC(simTime),
	}
	if ac, ok := s.fleet.Selected(); ok {
		status.Selected = ac.Profile.ICAO24
	}
	return status
}

// Select makes icao24 the selected aircraft. History is cleared and the
// current progress is re-rendered.
func (s *Service) Select(icao24 string) error {
	if _, ok := s.fleet.Get(icao24); !ok {
		return fmt.Errorf("%w: %s", fleet.ErrUnknownAircraft, icao24)
	}

	var err error
	s.controller.Do(func(playback.State) {
		if _, err = s.fleet.Select(icao24); err != nil {
			return
		}
		if ac, ok := s.fleet.Selected(); ok {
			ac.State.LastLoggedMinute = -1
		}
		s.clearHistory()
	})
	if err == nil {
		s.logger.Info("Aircraft selected", logger.String("icao24", icao24))
	}
	return err
}

// ClearSelection drops the selection and clears history
func (s *Service) ClearSelection() {
	s.controller.Do(func(playback.State) {
		if s.fleet.ClearSelection() {
			s.clearHistory()
		}
	})
}

// Frame returns the last emitted frame, building one at the current progress
// if nothing was emitted yet
func (s *Service) Frame() telemetry.Frame {
	s.mutex.RLock()
	last := s.last
	s.mutex.RUnlock()
	if last != nil {
		return *last
	}

	state := s.controller.Snapshot()
	frame, err := s.builder.Frame(s.fleet.All(), state.Progress, state.Running)
	if err != nil {
		s.logger.Error("Failed to build frame", logger.Error(err))
	}
	s.setSelected(&frame)
	return frame
}

// Preview builds a read-only frame at a timeline value without touching
// playback state, history or track markers
func (s *Service) Preview(value int) (telemetry.Frame, error) {
	if value < 0 || value > playback.SliderMax {
		return telemetry.Frame{}, fmt.Errorf("slider value %d outside [0,%d]", value, playback.SliderMax)
	}

	if frame, ok := s.preview.Get(value); ok {
		s.metrics.PreviewLookup(true)
		return frame, nil
	}
	s.metrics.PreviewLookup(false)

	frame, err := s.builder.Frame(s.fleet.All(), float64(value)/playback.SliderMax, false)
	if err != nil {
		s.logger.Error("Failed to build preview frame", logger.Int("value", value), logger.Error(err))
	}
	s.preview.Add(value, frame)
	return frame, nil
}

// History returns the selected aircraft's log, newest first
func (s *Service) History(limit int) ([]telemetry.HistoryEntry, error) {
	if limit <= 0 || limit > s.maxHistory {
		limit = s.maxHistory
	}
	return s.history.List(limit)
}

// OnRestart clears history and every aircraft's markers for a fresh run
func (s *Service) OnRestart() {
	s.fleet.ResetTracks()
	s.clearHistory()
	s.logger.Info("Playback restarted from zero")
}

// OnStateChange logs playback transitions
func (s *Service) OnStateChange(running bool) {
	s.metrics.SetRunning(running)
	if running {
		s.logger.Info("Playback running")
	} else {
		s.logger.Info("Playback stopped", logger.Float64("progress", s.lastProgress()))
	}
}

// OnFrame builds the fleet frame, updates track markers and history, and
// publishes the frame
func (s *Service) OnFrame(progress float64, running bool) {
	start := time.Now()

	aircraft := s.fleet.All()
	frame, err := s.builder.Frame(aircraft, progress, running)
	failed := 0
	if err != nil {
		failed = len(aircraft) - len(frame.Aircraft)
		s.logger.Error("Skipped aircraft in frame", logger.Float64("progress", progress), logger.Error(err))
	}
	s.setSelected(&frame)

	for i := range frame.Aircraft {
		snap := &frame.Aircraft[i]
		ac, ok := s.fleet.Get(snap.ICAO24)
		if !ok {
			continue
		}
		s.track(ac, snap, progress)
	}

	s.mutex.Lock()
	s.last = &frame
	sinks := s.sinks
	s.mutex.Unlock()

	for _, sink := range sinks {
		sink.Publish(frame)
	}

	s.metrics.ObserveFrame(progress, time.Since(start), failed)
}

// track advances the aircraft's waypoint and minute markers. History rows
// are only written for the selected aircraft while its signal is received.
func (s *Service) track(ac *fleet.Aircraft, snap *telemetry.Snapshot, progress float64) {
	state := &ac.State
	selected := snap.Selected

	if state.LastSegment >= 0 && snap.SegmentIndex > state.LastSegment && selected && !snap.SignalLost {
		s.appendHistory(telemetry.HistoryEntry{
			ICAO24:         ac.Profile.ICAO24,
			Kind:           telemetry.HistoryWaypoint,
			SimTime:        snap.SimTime,
			Label:          fmt.Sprintf("WPT %d", snap.SegmentIndex),
			Altitude:       snap.Altitude,
			Velocity:       ac.Profile.Velocity,
			PositionSource: snap.PositionSource,
		})
	}
	state.LastSegment = snap.SegmentIndex

	if !selected || snap.SignalLost {
		return
	}

	minute := int(s.builder.Clock().Elapsed(progress) / time.Minute)
	if minute == state.LastLoggedMinute {
		return
	}
	state.LastLoggedMinute = minute

	s.appendHistory(telemetry.HistoryEntry{
		ICAO24:         ac.Profile.ICAO24,
		Kind:           telemetry.HistoryMinute,
		SimTime:        snap.SimTime,
		Label:          display.LocationLabel(snap.Position.Lat, snap.Position.Lon),
		Altitude:       snap.Altitude,
		Velocity:       ac.Profile.Velocity,
		PositionSource: snap.PositionSource,
	})
}

func (s *Service) appendHistory(entry telemetry.HistoryEntry) {
	if _, err := s.history.Append(entry); err != nil {
		s.logger.Error("Failed to store history entry",
			logger.String("icao24", entry.ICAO24),
			logger.String("label", entry.Label),
			logger.Error(err))
		return
	}
	s.metrics.IncHistory(string(entry.Kind))
}

func (s *Service) clearHistory() {
	if err := s.history.Clear(); err != nil {
		s.logger.Error("Failed to clear history", logger.Error(err))
	}
}

func (s *Service) setSelected(frame *telemetry.Frame) {
	ac, ok := s.fleet.Selected()
	if !ok {
		return
	}
	frame.Selected = ac.Profile.ICAO24
	if snap, ok := frame.Find(ac.Profile.ICAO24); ok {
		snap.Selected = true
	}
}

func (s *Service) lastProgress() float64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.last == nil {
		return 0
	}
	return s.last.Progress
}

// IsUnknownAircraft reports whether err came from an unknown icao24
func IsUnknownAircraft(err error) bool {
	return errors.Is(err, fleet.ErrUnknownAircraft)
}
