package fleet

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/yegors/routesim/internal/altitude"
	"github.com/yegors/routesim/internal/config"
	"github.com/yegors/routesim/pkg/logger"
)

// ErrUnknownAircraft is returned when an icao24 is not part of the fleet
var ErrUnknownAircraft = errors.New("unknown aircraft")

// Fleet holds the prepared aircraft and the current selection.
//
// Profiles, routes and vertical profiles never change after New. TrackState is
// only touched from the playback frame path, which is serialized by the
// playback controller.
type Fleet struct {
	aircraft []*Aircraft
	byICAO   map[string]*Aircraft
	rejected []Rejected

	mu       sync.RWMutex
	selected string

	logger *logger.Logger
}

// New builds the fleet from config. Aircraft that fail validation are logged,
// recorded as rejected and left out; the rest of the fleet is unaffected.
func New(entries []config.AircraftConfig, sim config.SimulationConfig, log *logger.Logger) *Fleet {
	f := &Fleet{
		byICAO: make(map[string]*Aircraft),
		logger: log.Named("fleet"),
	}

	for _, entry := range entries {
		ac, err := NewAircraft(entry, sim.ClimbRateMs, sim.AnimationDuration())
		if err == nil {
			if _, dup := f.byICAO[ac.Profile.ICAO24]; dup {
				err = fmt.Errorf("aircraft %s: duplicate icao24", ac.Profile.ICAO24)
			}
		}
		if err != nil {
			f.logger.Error("Rejected aircraft",
				logger.String("icao24", entry.ICAO24),
				logger.String("flight", entry.FlightNumber),
				logger.Error(err))
			f.rejected = append(f.rejected, Rejected{
				ICAO24:       strings.ToUpper(entry.ICAO24),
				FlightNumber: entry.FlightNumber,
				Error:        err.Error(),
			})
			continue
		}

		var degenerate *altitude.DegenerateProfileError
		if err := ac.Vertical.Validate(); errors.As(err, &degenerate) {
			f.logger.Warn("Altitude profile phases overlap, climb takes precedence",
				logger.String("icao24", ac.Profile.ICAO24),
				logger.Float64("climb_phase_end", degenerate.ClimbPhaseEnd),
				logger.Float64("descent_phase_start", degenerate.DescentPhaseStart))
		}

		f.aircraft = append(f.aircraft, ac)
		f.byICAO[ac.Profile.ICAO24] = ac
	}

	f.logger.Info("Fleet loaded",
		logger.Int("aircraft", len(f.aircraft)),
		logger.Int("rejected", len(f.rejected)))

	return f
}

// All returns the aircraft in config order
func (f *Fleet) All() []*Aircraft {
	return f.aircraft
}

// Len returns the number of accepted aircraft
func (f *Fleet) Len() int {
	return len(f.aircraft)
}

// Get looks an aircraft up by icao24 (case-insensitive)
func (f *Fleet) Get(icao24 string) (*Aircraft, bool) {
	ac, ok := f.byICAO[strings.ToUpper(icao24)]
	return ac, ok
}

// Rejected returns the aircraft that were left out of the fleet
func (f *Fleet) Rejected() []Rejected {
	out := make([]Rejected, len(f.rejected))
	copy(out, f.rejected)
	return out
}

// Select makes the aircraft the selected one. It returns true when the
// selection changed.
func (f *Fleet) Select(icao24 string) (bool, error) {
	ac, ok := f.Get(icao24)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownAircraft, icao24)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	changed := f.selected != ac.Profile.ICAO24
	f.selected = ac.Profile.ICAO24
	return changed, nil
}

// ClearSelection drops the selection. It returns true when something was selected.
func (f *Fleet) ClearSelection() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	changed := f.selected != ""
	f.selected = ""
	return changed
}

// Selected returns the selected aircraft, if any
func (f *Fleet) Selected() (*Aircraft, bool) {
	f.mu.RLock()
	icao := f.selected
	f.mu.RUnlock()

	if icao == "" {
		return nil, false
	}
	return f.Get(icao)
}

// IsSelected reports whether ac is the selected aircraft
func (f *Fleet) IsSelected(ac *Aircraft) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.selected != "" && f.selected == ac.Profile.ICAO24
}

// ResetTracks clears the waypoint and per-minute markers of every aircraft
func (f *Fleet) ResetTracks() {
	for _, ac := range f.aircraft {
		ac.State.Reset()
	}
}
