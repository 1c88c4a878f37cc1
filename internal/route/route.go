package route

import (
	"fmt"

	"github.com/yegors/routesim/internal/geo"
)

// Route is an ordered polyline of at least two coordinates
type Route []geo.Coordinate

// InvalidRouteError is returned when a route cannot be profiled
type InvalidRouteError struct {
	Points int
	Reason string
}

func (e *InvalidRouteError) Error() string {
	return fmt.Sprintf("invalid route (%d points): %s", e.Points, e.Reason)
}

// FromPairs builds a route from [lat, lon] pairs as they appear in config files
func FromPairs(pairs [][2]float64) Route {
	r := make(Route, len(pairs))
	for i, p := range pairs {
		r[i] = geo.Coordinate{Lat: p[0], Lon: p[1]}
	}
	return r
}

// Validate checks the route invariants: at least two points, all in range,
// and no two consecutive points identical.
func (r Route) Validate() error {
	if len(r) < 2 {
		return &InvalidRouteError{Points: len(r), Reason: "a route needs at least 2 coordinates"}
	}
	for i, c := range r {
		if !c.Valid() {
			return &InvalidRouteError{Points: len(r), Reason: fmt.Sprintf("coordinate %d (%s) is out of range", i, c)}
		}
		if i > 0 && r[i-1] == c {
			return &InvalidRouteError{Points: len(r), Reason: fmt.Sprintf("coordinates %d and %d are identical", i-1, i)}
		}
	}
	return nil
}

// First returns the departure point
func (r Route) First() geo.Coordinate { return r[0] }

// Last returns the arrival point
func (r Route) Last() geo.Coordinate { return r[len(r)-1] }

// Profile is the precomputed geometry of a route
type Profile struct {
	SegmentDistances []float64 // meters, len(route)-1
	TotalDistance    float64   // meters, sum of SegmentDistances
}

// NewProfile computes the segment distances of r once
func NewProfile(r Route) (Profile, error) {
	if err := r.Validate(); err != nil {
		return Profile{}, err
	}

	p := Profile{SegmentDistances: make([]float64, len(r)-1)}
	for i := 0; i < len(r)-1; i++ {
		d := geo.Distance(r[i], r[i+1])
		p.SegmentDistances[i] = d
		p.TotalDistance += d
	}

	return p, nil
}

// Segments returns the number of segments in the profile
func (p Profile) Segments() int {
	return len(p.SegmentDistances)
}
