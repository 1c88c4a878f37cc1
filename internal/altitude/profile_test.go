package altitude

import (
	"errors"
	"math"
	"testing"
	"time"
)

const animation = 60 * time.Second

func mustProfile(t *testing.T, start, cruise, rate float64) Profile {
	t.Helper()
	p, err := NewProfile(start, cruise, rate, animation)
	if err != nil {
		t.Fatalf("NewProfile() error = %v", err)
	}
	return p
}

func TestPhaseBoundaries(t *testing.T) {
	// 1000 m at 100 m/s is a 10 s climb: one sixth of a 60 s animation
	p := mustProfile(t, 216, 1216, 100)

	if math.Abs(p.ClimbPhaseEnd-1.0/6) > 1e-12 {
		t.Errorf("ClimbPhaseEnd = %v, want 1/6", p.ClimbPhaseEnd)
	}
	if math.Abs(p.DescentPhaseStart-5.0/6) > 1e-12 {
		t.Errorf("DescentPhaseStart = %v, want 5/6", p.DescentPhaseStart)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestProfileShape(t *testing.T) {
	p := mustProfile(t, 216, 1216, 100)

	tests := []struct {
		name     string
		progress float64
		alt      float64
		rate     float64
		phase    Phase
	}{
		{"start uses cruise band", 0, 1216, 0, PhaseCruise},
		{"mid climb", 1.0 / 12, 716, 100, PhaseClimb},
		{"cruise", 0.5, 1216, 0, PhaseCruise},
		{"mid descent", 11.0 / 12, 716, -100, PhaseDescent},
		{"landed", 1, 216, 0, PhaseLanded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := p.At(tt.progress)
			if math.Abs(s.Altitude-tt.alt) > 1e-6 {
				t.Errorf("At(%v).Altitude = %v, want %v", tt.progress, s.Altitude, tt.alt)
			}
			if s.VerticalRate != tt.rate {
				t.Errorf("At(%v).VerticalRate = %v, want %v", tt.progress, s.VerticalRate, tt.rate)
			}
			if s.Phase != tt.phase {
				t.Errorf("At(%v).Phase = %v, want %v", tt.progress, s.Phase, tt.phase)
			}
		})
	}
}

func TestMonotonicClimbAndDescent(t *testing.T) {
	p := mustProfile(t, 216, 1216, 100)

	prev := p.At(1e-6).Altitude
	for progress := 0.001; progress < p.ClimbPhaseEnd; progress += 0.001 {
		alt := p.At(progress).Altitude
		if alt <= prev {
			t.Fatalf("climb not increasing at %v: %v <= %v", progress, alt, prev)
		}
		prev = alt
	}

	prev = p.At(p.DescentPhaseStart + 1e-6).Altitude
	for progress := p.DescentPhaseStart + 0.001; progress < 1; progress += 0.001 {
		alt := p.At(progress).Altitude
		if alt >= prev {
			t.Fatalf("descent not decreasing at %v: %v >= %v", progress, alt, prev)
		}
		prev = alt
	}
}

func TestTerminalOverride(t *testing.T) {
	p := mustProfile(t, 216, 10668, 15)
	for _, progress := range []float64{1, 1.5} {
		s := p.At(progress)
		if s.Altitude != 216 || s.VerticalRate != 0 {
			t.Errorf("At(%v) = %+v, want start altitude with zero rate", progress, s)
		}
	}
}

func TestDegenerateOverlapClimbTakesPrecedence(t *testing.T) {
	// (10668-216)/15 = 696.8 s of climb in a 60 s animation
	p := mustProfile(t, 216, 10668, 15)

	if p.ClimbPhaseEnd <= 1 {
		t.Fatalf("ClimbPhaseEnd = %v, want > 1 for this profile", p.ClimbPhaseEnd)
	}

	var degenerate *DegenerateProfileError
	if !errors.As(p.Validate(), &degenerate) {
		t.Fatalf("Validate() = %v, want *DegenerateProfileError", p.Validate())
	}

	// At exactly 0 the climb condition (progress > 0) fails and the negative
	// descent start lets the descent branch through
	if s := p.At(0); s.Phase != PhaseDescent || s.VerticalRate != -15 {
		t.Errorf("At(0) = %+v, want descent branch", s)
	}

	prev := 216.0
	for progress := 0.05; progress < 1; progress += 0.05 {
		s := p.At(progress)
		if s.Phase != PhaseClimb || s.VerticalRate != 15 {
			t.Fatalf("At(%v) = %+v, want climb branch", progress, s)
		}
		if s.Altitude <= prev || s.Altitude >= 10668 {
			t.Fatalf("At(%v).Altitude = %v, want increasing below cruise", progress, s.Altitude)
		}
		prev = s.Altitude
	}

	if s := p.At(1); s.Altitude != 216 || s.VerticalRate != 0 {
		t.Errorf("At(1) = %+v, want start altitude", s)
	}
}

func TestLevelProfileStaysAtCruise(t *testing.T) {
	p := mustProfile(t, 3000, 3000, 15)
	if err := p.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil for a level profile", err)
	}
	if s := p.At(0.5); s.Altitude != 3000 || s.VerticalRate != 0 {
		t.Errorf("At(0.5) = %+v, want level flight", s)
	}
}

func TestNewProfileRejectsBadInputs(t *testing.T) {
	tests := []struct {
		name                string
		start, cruise, rate float64
		anim                time.Duration
	}{
		{"zero climb rate", 0, 1000, 0, animation},
		{"zero animation", 0, 1000, 15, 0},
		{"cruise below start", 3000, 1000, 15, animation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewProfile(tt.start, tt.cruise, tt.rate, tt.anim); err == nil {
				t.Errorf("NewProfile(%v, %v, %v, %v) = nil error", tt.start, tt.cruise, tt.rate, tt.anim)
			}
		})
	}
}
