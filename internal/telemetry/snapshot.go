package telemetry

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/yegors/routesim/internal/altitude"
	"github.com/yegors/routesim/internal/fleet"
	"github.com/yegors/routesim/internal/geo"
	"github.com/yegors/routesim/internal/physics"
	"github.com/yegors/routesim/internal/playback"
	"github.com/yegors/routesim/internal/route"
)

// Snapshot is the telemetry of one aircraft at one progress value. All
// quantities are SI; display units are applied by the presentation layer.
type Snapshot struct {
	ICAO24         string           `json:"icao24" msgpack:"icao24"`
	FlightNumber   string           `json:"flight_number" msgpack:"flight_number"`
	Callsign       string           `json:"callsign" msgpack:"callsign"`
	Color          string           `json:"color" msgpack:"color"`
	Position       geo.Coordinate   `json:"position" msgpack:"position"`
	Bearing        float64          `json:"bearing" msgpack:"bearing"`               // true, degrees
	MagneticTrack  float64          `json:"magnetic_track" msgpack:"magnetic_track"` // degrees
	Altitude       float64          `json:"altitude" msgpack:"altitude"`             // meters
	VerticalRate   float64          `json:"vertical_rate" msgpack:"vertical_rate"`   // m/s
	Phase          altitude.Phase   `json:"phase" msgpack:"phase"`
	Velocity       float64          `json:"velocity" msgpack:"velocity"` // m/s
	VelocityVector physics.Vector2D `json:"velocity_vector" msgpack:"velocity_vector"`
	OnGround       bool             `json:"on_ground" msgpack:"on_ground"`
	PositionSource string           `json:"position_source" msgpack:"position_source"`
	SegmentIndex   int              `json:"segment_index" msgpack:"segment_index"`
	SimTime        time.Time        `json:"sim_time" msgpack:"sim_time"`
	SignalLost     bool             `json:"signal_lost" msgpack:"signal_lost"`
	Selected       bool             `json:"selected" msgpack:"selected"`
}

// Frame is the telemetry of the whole fleet at one progress value
type Frame struct {
	Progress    float64    `json:"progress" msgpack:"progress"`
	SliderValue int        `json:"slider_value" msgpack:"slider_value"`
	Running     bool       `json:"running" msgpack:"running"`
	SimTime     time.Time  `json:"sim_time" msgpack:"sim_time"`
	ClockText   string     `json:"clock_text" msgpack:"clock_text"`
	Selected    string     `json:"selected,omitempty" msgpack:"selected,omitempty"`
	Aircraft    []Snapshot `json:"aircraft" msgpack:"aircraft"`
}

// DeclinationFunc returns the magnetic declination in degrees
type DeclinationFunc func(lat, lon, altM float64, date time.Time) float64

// Builder turns (aircraft, progress) into snapshots
type Builder struct {
	clock       playback.SimClock
	declination DeclinationFunc
}

// NewBuilder creates a builder using the WMM for magnetic track
func NewBuilder(clock playback.SimClock) *Builder {
	return &Builder{clock: clock, declination: physics.CalculateMagneticVariation}
}

// WithDeclination replaces the declination model
func (b *Builder) WithDeclination(fn DeclinationFunc) *Builder {
	b.declination = fn
	return b
}

// Clock returns the simulated clock used for SimTime
func (b *Builder) Clock() playback.SimClock {
	return b.clock
}

// Build computes the snapshot of ac at progress. It does not touch the
// aircraft's track state.
func (b *Builder) Build(ac *fleet.Aircraft, progress float64) (Snapshot, error) {
	sample, err := route.SampleAt(progress, ac.Geometry, ac.Route)
	if err != nil {
		return Snapshot{}, fmt.Errorf("aircraft %s: %w", ac.Profile.ICAO24, err)
	}
	vertical := ac.Vertical.At(progress)
	simTime := b.clock.At(progress)

	magnetic := sample.Bearing
	if b.declination != nil {
		decl := b.declination(sample.Position.Lat, sample.Position.Lon, vertical.Altitude, simTime)
		magnetic = physics.MagneticHeading(sample.Bearing, decl)
	}

	return Snapshot{
		ICAO24:         ac.Profile.ICAO24,
		FlightNumber:   ac.Profile.FlightNumber,
		Callsign:       ac.Profile.Callsign,
		Color:          ac.Profile.Color,
		Position:       sample.Position,
		Bearing:        sample.Bearing,
		MagneticTrack:  magnetic,
		Altitude:       vertical.Altitude,
		VerticalRate:   vertical.VerticalRate,
		Phase:          vertical.Phase,
		Velocity:       ac.Profile.Velocity,
		VelocityVector: physics.HeadingToVector(sample.Bearing, ac.Profile.Velocity),
		OnGround:       ac.Profile.OnGround,
		PositionSource: ac.Profile.PositionSource.String(),
		SegmentIndex:   sample.SegmentIndex,
		SimTime:        simTime,
		SignalLost:     ac.Profile.SignalLoss.Contains(b.clock.Elapsed(progress)),
	}, nil
}

// Frame builds a frame for every aircraft. An aircraft that fails is left out
// of the frame and its error is returned alongside; the others still render.
func (b *Builder) Frame(aircraft []*fleet.Aircraft, progress float64, running bool) (Frame, error) {
	simTime := b.clock.At(progress)
	frame := Frame{
		Progress:    progress,
		SliderValue: int(math.Round(progress * playback.SliderMax)),
		Running:     running,
		SimTime:     simTime,
		ClockText:   playback.FormatUTC(simTime),
		Aircraft:    make([]Snapshot, 0, len(aircraft)),
	}

	var errs []error
	for _, ac := range aircraft {
		snap, err := b.Build(ac, progress)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		frame.Aircraft = append(frame.Aircraft, snap)
	}

	return frame, errors.Join(errs...)
}

// Find returns the snapshot for icao24
func (f *Frame) Find(icao24 string) (*Snapshot, bool) {
	for i := range f.Aircraft {
		if f.Aircraft[i].ICAO24 == icao24 {
			return &f.Aircraft[i], true
		}
	}
	return nil, false
}
