package fleet

import (
	"fmt"
	"strings"
	"time"

	"github.com/yegors/routesim/internal/altitude"
	"github.com/yegors/routesim/internal/config"
	"github.com/yegors/routesim/internal/route"
)

// PositionSource is the surveillance source an aircraft reports
type PositionSource int

const (
	SourceADSB PositionSource = iota
	SourceASTERIX
	SourceMLAT
	SourceFLARM
)

// String returns the display label for the position source
func (p PositionSource) String() string {
	switch p {
	case SourceADSB:
		return "ADS-B"
	case SourceASTERIX:
		return "ASTERIX"
	case SourceMLAT:
		return "MLAT"
	case SourceFLARM:
		return "FLARM"
	default:
		return "Unknown"
	}
}

// SignalLoss is a window of simulated minutes during which nothing is received
type SignalLoss struct {
	StartMinute int `json:"start_minute"`
	Duration    int `json:"duration"`
}

// Contains reports whether the simulated minute offset falls inside the window
func (s *SignalLoss) Contains(elapsed time.Duration) bool {
	if s == nil || s.Duration <= 0 {
		return false
	}
	start := time.Duration(s.StartMinute) * time.Minute
	end := start + time.Duration(s.Duration)*time.Minute
	return elapsed >= start && elapsed < end
}

// AircraftProfile is the static description of an aircraft
type AircraftProfile struct {
	FlightNumber   string         `json:"flight_number"`
	Callsign       string         `json:"callsign"`
	ICAO24         string         `json:"icao24"`
	OriginCountry  string         `json:"origin_country"`
	Category       string         `json:"category"`
	CruiseAltitude float64        `json:"cruise_altitude"` // meters
	StartAltitude  float64        `json:"start_altitude"`  // meters
	Velocity       float64        `json:"velocity"`        // m/s
	OnGround       bool           `json:"on_ground"`
	PositionSource PositionSource `json:"position_source"`
	Color          string         `json:"color"`
	SignalLoss     *SignalLoss    `json:"signal_loss,omitempty"`
}

// TrackState is the mutable per-aircraft bookkeeping used for waypoint and
// per-minute history logging. It is owned by the Fleet.
type TrackState struct {
	LastSegment      int // -1 until the first frame
	LastLoggedMinute int // -1 until the first row is logged
}

// Reset returns the markers to "none"
func (s *TrackState) Reset() {
	s.LastSegment = -1
	s.LastLoggedMinute = -1
}

// Aircraft is a fully prepared fleet member
type Aircraft struct {
	Profile  AircraftProfile
	Route    route.Route
	Geometry route.Profile
	Vertical altitude.Profile
	State    TrackState
}

// Rejected records an aircraft that could not be added to the fleet
type Rejected struct {
	ICAO24       string `json:"icao24"`
	FlightNumber string `json:"flight_number"`
	Error        string `json:"error"`
}

// NewAircraft prepares an aircraft from its config entry
func NewAircraft(cfg config.AircraftConfig, climbRate float64, animation time.Duration) (*Aircraft, error) {
	if strings.TrimSpace(cfg.ICAO24) == "" {
		return nil, fmt.Errorf("aircraft %q has no icao24", cfg.FlightNumber)
	}
	if cfg.PositionSource < 0 {
		return nil, fmt.Errorf("aircraft %s: invalid position source %d", cfg.ICAO24, cfg.PositionSource)
	}
	if cfg.Velocity < 0 {
		return nil, fmt.Errorf("aircraft %s: velocity must be >= 0", cfg.ICAO24)
	}

	pairs := make([][2]float64, len(cfg.Route))
	for i, p := range cfg.Route {
		if len(p) != 2 {
			return nil, fmt.Errorf("aircraft %s: %w", cfg.ICAO24,
				&route.InvalidRouteError{Points: len(cfg.Route), Reason: fmt.Sprintf("coordinate %d has %d values", i, len(p))})
		}
		pairs[i] = [2]float64{p[0], p[1]}
	}
	r := route.FromPairs(pairs)

	geometry, err := route.NewProfile(r)
	if err != nil {
		return nil, fmt.Errorf("aircraft %s: %w", cfg.ICAO24, err)
	}

	vertical, err := altitude.NewProfile(cfg.StartAltitude, cfg.EffectiveCruiseAltitude(), climbRate, animation)
	if err != nil {
		return nil, fmt.Errorf("aircraft %s: %w", cfg.ICAO24, err)
	}

	profile := AircraftProfile{
		FlightNumber:   cfg.FlightNumber,
		Callsign:       cfg.Callsign,
		ICAO24:         strings.ToUpper(cfg.ICAO24),
		OriginCountry:  cfg.OriginCountry,
		Category:       cfg.Category,
		CruiseAltitude: cfg.EffectiveCruiseAltitude(),
		StartAltitude:  cfg.StartAltitude,
		Velocity:       cfg.Velocity,
		OnGround:       cfg.OnGround,
		PositionSource: PositionSource(cfg.PositionSource),
		Color:          cfg.Color,
	}
	if cfg.SignalLoss != nil {
		profile.SignalLoss = &SignalLoss{StartMinute: cfg.SignalLoss.StartMinute, Duration: cfg.SignalLoss.Duration}
	}

	ac := &Aircraft{
		Profile:  profile,
		Route:    r,
		Geometry: geometry,
		Vertical: vertical,
	}
	ac.State.Reset()

	return ac, nil
}
