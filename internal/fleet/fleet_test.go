package fleet

import (
	"errors"
	"testing"
	"time"

	"github.com/yegors/routesim/internal/config"
	"github.com/yegors/routesim/internal/route"
	"github.com/yegors/routesim/pkg/logger"
)

func simConfig() config.SimulationConfig {
	return config.SimulationConfig{AnimationDurationSecs: 60, ClimbRateMs: 15, DurationMinutes: 30}
}

func TestNewFleetFromDefaults(t *testing.T) {
	f := New(config.DefaultFleet(), simConfig(), logger.NewNop())

	if f.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", f.Len())
	}
	if len(f.Rejected()) != 0 {
		t.Errorf("Rejected() = %v, want none", f.Rejected())
	}

	ac, ok := f.Get("800c6e")
	if !ok {
		t.Fatal("Get(800c6e) not found")
	}
	if ac.Profile.Callsign != "VISTARA" || ac.Profile.CruiseAltitude != 10668 {
		t.Errorf("profile = %+v", ac.Profile)
	}
	if ac.Geometry.Segments() != 8 {
		t.Errorf("Segments() = %d, want 8", ac.Geometry.Segments())
	}
	if ac.State.LastSegment != -1 || ac.State.LastLoggedMinute != -1 {
		t.Errorf("initial track state = %+v", ac.State)
	}
}

func TestNewFleetRejectsFaultyAircraft(t *testing.T) {
	good := config.DefaultFleet()[0]

	oneCoord := good
	oneCoord.ICAO24 = "AAA001"
	oneCoord.Route = [][]float64{{10, 10}}

	dupPoint := good
	dupPoint.ICAO24 = "AAA002"
	dupPoint.Route = [][]float64{{10, 10}, {10, 10}, {11, 11}}

	badPair := good
	badPair.ICAO24 = "AAA003"
	badPair.Route = [][]float64{{10, 10, 10}, {11, 11}}

	descending := good
	descending.ICAO24 = "AAA004"
	lowCruise := 100.0
	descending.CruiseAltitude = &lowCruise

	dupICAO := good

	f := New([]config.AircraftConfig{good, oneCoord, dupPoint, badPair, descending, dupICAO}, simConfig(), logger.NewNop())

	if f.Len() != 1 {
		t.Errorf("Len() = %d, want 1", f.Len())
	}
	rejected := f.Rejected()
	if len(rejected) != 5 {
		t.Fatalf("len(Rejected()) = %d, want 5", len(rejected))
	}
	for _, r := range rejected {
		if r.Error == "" {
			t.Errorf("rejected %s has no error", r.ICAO24)
		}
	}
}

func TestNewAircraftRouteError(t *testing.T) {
	cfg := config.DefaultFleet()[0]
	cfg.Route = [][]float64{{0, 0}}

	_, err := NewAircraft(cfg, 15, time.Minute)
	var invalid *route.InvalidRouteError
	if !errors.As(err, &invalid) {
		t.Fatalf("NewAircraft() error = %v, want *route.InvalidRouteError", err)
	}
}

func TestSelection(t *testing.T) {
	f := New(config.DefaultFleet(), simConfig(), logger.NewNop())

	if _, ok := f.Selected(); ok {
		t.Fatal("fleet starts with a selection")
	}

	changed, err := f.Select("800C6E")
	if err != nil || !changed {
		t.Fatalf("Select() = %v, %v", changed, err)
	}
	changed, _ = f.Select("800c6e")
	if changed {
		t.Error("reselecting the same aircraft reported a change")
	}

	ac, _ := f.Get("800C6E")
	other, _ := f.Get("75804F")
	if !f.IsSelected(ac) || f.IsSelected(other) {
		t.Error("IsSelected() mismatch")
	}

	if _, err := f.Select("FFFFFF"); !errors.Is(err, ErrUnknownAircraft) {
		t.Errorf("Select(unknown) error = %v, want ErrUnknownAircraft", err)
	}

	if !f.ClearSelection() {
		t.Error("ClearSelection() = false, want true")
	}
	if f.ClearSelection() {
		t.Error("second ClearSelection() = true, want false")
	}
}

func TestPositionSourceLabels(t *testing.T) {
	tests := map[PositionSource]string{
		SourceADSB:    "ADS-B",
		SourceASTERIX: "ASTERIX",
		SourceMLAT:    "MLAT",
		SourceFLARM:   "FLARM",
		7:             "Unknown",
	}
	for src, want := range tests {
		if got := src.String(); got != want {
			t.Errorf("PositionSource(%d).String() = %q, want %q", src, got, want)
		}
	}
}

func TestSignalLossWindow(t *testing.T) {
	loss := &SignalLoss{StartMinute: 5, Duration: 3}
	tests := []struct {
		elapsed time.Duration
		want    bool
	}{
		{4 * time.Minute, false},
		{5 * time.Minute, true},
		{7*time.Minute + 59*time.Second, true},
		{8 * time.Minute, false},
	}
	for _, tt := range tests {
		if got := loss.Contains(tt.elapsed); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.elapsed, got, tt.want)
		}
	}

	var none *SignalLoss
	if none.Contains(6 * time.Minute) {
		t.Error("nil window reported a loss")
	}
}

func TestResetTracks(t *testing.T) {
	f := New(config.DefaultFleet(), simConfig(), logger.NewNop())
	for _, ac := range f.All() {
		ac.State.LastSegment = 3
		ac.State.LastLoggedMinute = 12
	}
	f.ResetTracks()
	for _, ac := range f.All() {
		if ac.State.LastSegment != -1 || ac.State.LastLoggedMinute != -1 {
			t.Errorf("%s state = %+v after reset", ac.Profile.ICAO24, ac.State)
		}
	}
}
