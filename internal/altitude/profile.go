package altitude

import (
	"fmt"
	"time"
)

// DegenerateProfileError reports a profile whose climb and descent phases
// overlap because climbing alone takes longer than half the animation.
// It is informational: the profile still evaluates with climb taking precedence.
type DegenerateProfileError struct {
	ClimbPhaseEnd     float64
	DescentPhaseStart float64
}

func (e *DegenerateProfileError) Error() string {
	return fmt.Sprintf("climb phase ends at progress %.3f but descent starts at %.3f; climb takes precedence",
		e.ClimbPhaseEnd, e.DescentPhaseStart)
}

// Profile is a climb / cruise / descent schedule over normalized progress.
// All values are SI: meters and meters per second.
type Profile struct {
	StartAltitude  float64
	CruiseAltitude float64
	ClimbRate      float64 // m/s, used for both climb and descent

	ClimbPhaseEnd     float64 // progress at which the climb ends
	DescentPhaseStart float64 // progress at which the descent starts
}

// State is the vertical state at one instant
type State struct {
	Altitude     float64 // meters
	VerticalRate float64 // m/s, positive when climbing
	Phase        Phase
}

// Phase names the part of the schedule a progress value falls into
type Phase string

const (
	PhaseClimb   Phase = "climb"
	PhaseCruise  Phase = "cruise"
	PhaseDescent Phase = "descent"
	PhaseLanded  Phase = "landed"
)

// NewProfile derives the phase boundaries for an aircraft. The climb takes
// (cruise-start)/climbRate seconds of the animation and the descent mirrors it.
func NewProfile(startAltitude, cruiseAltitude, climbRate float64, animation time.Duration) (Profile, error) {
	if climbRate <= 0 {
		return Profile{}, fmt.Errorf("climb rate must be positive, got %v", climbRate)
	}
	if animation <= 0 {
		return Profile{}, fmt.Errorf("animation duration must be positive, got %v", animation)
	}
	if cruiseAltitude < startAltitude {
		return Profile{}, fmt.Errorf("cruise altitude %v is below start altitude %v", cruiseAltitude, startAltitude)
	}

	climbSeconds := (cruiseAltitude - startAltitude) / climbRate
	animationMs := float64(animation.Milliseconds())
	phaseFraction := climbSeconds * 1000 / animationMs

	return Profile{
		StartAltitude:     startAltitude,
		CruiseAltitude:    cruiseAltitude,
		ClimbRate:         climbRate,
		ClimbPhaseEnd:     phaseFraction,
		DescentPhaseStart: 1 - phaseFraction,
	}, nil
}

// Validate returns a *DegenerateProfileError when the phases overlap
func (p Profile) Validate() error {
	if p.ClimbPhaseEnd >= p.DescentPhaseStart && p.CruiseAltitude != p.StartAltitude {
		return &DegenerateProfileError{ClimbPhaseEnd: p.ClimbPhaseEnd, DescentPhaseStart: p.DescentPhaseStart}
	}
	return nil
}

// At evaluates the profile at the given progress.
//
// The climb condition is checked before the descent condition, so when the
// phases overlap the descent branch is never reached before progress 1.
// progress >= 1 always reports the start altitude with zero vertical rate.
func (p Profile) At(progress float64) State {
	delta := p.CruiseAltitude - p.StartAltitude
	s := State{Altitude: p.CruiseAltitude, Phase: PhaseCruise}

	switch {
	case progress < p.ClimbPhaseEnd && progress > 0:
		s.Altitude = p.StartAltitude + delta*(progress/p.ClimbPhaseEnd)
		s.VerticalRate = p.ClimbRate
		s.Phase = PhaseClimb
	case progress > p.DescentPhaseStart:
		s.Altitude = p.CruiseAltitude - delta*((progress-p.DescentPhaseStart)/(1-p.DescentPhaseStart))
		s.VerticalRate = -p.ClimbRate
		s.Phase = PhaseDescent
	}

	if progress >= 1 {
		s.Altitude = p.StartAltitude
		s.VerticalRate = 0
		s.Phase = PhaseLanded
	}

	return s
}
