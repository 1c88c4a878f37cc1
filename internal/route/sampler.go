package route

import (
	"fmt"
	"math"

	"github.com/yegors/routesim/internal/geo"
)

// OutOfRangeError is returned by Sample for progress outside [0,1].
// Callers clamp before sampling, so seeing this is a caller bug.
type OutOfRangeError struct {
	Progress float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("progress %v is outside [0,1]", e.Progress)
}

// Sample is the interpolated state of an aircraft on its route
type Sample struct {
	Position        geo.Coordinate
	Bearing         float64 // degrees [0,360), constant within a segment
	SegmentIndex    int
	SegmentProgress float64
	Traveled        float64 // meters from the first coordinate
}

// SampleAt returns the position and heading at the given progress along the route.
//
// Positions are interpolated linearly in lat/lon space within a segment. The
// bearing is the initial great-circle bearing of the segment and snaps at waypoints.
func SampleAt(progress float64, p Profile, r Route) (Sample, error) {
	if math.IsNaN(progress) || progress < 0 || progress > 1 {
		return Sample{}, &OutOfRangeError{Progress: progress}
	}
	if len(r) != p.Segments()+1 || p.Segments() == 0 {
		return Sample{}, &InvalidRouteError{Points: len(r), Reason: "profile does not match route"}
	}

	last := p.Segments() - 1
	if progress == 1 {
		// Land exactly on the final coordinate regardless of float accumulation
		return Sample{
			Position:        r.Last(),
			Bearing:         geo.Bearing(r[last], r[last+1]),
			SegmentIndex:    last,
			SegmentProgress: 1,
			Traveled:        p.TotalDistance,
		}, nil
	}

	traveled := progress * p.TotalDistance
	idx, cumulative := last, p.TotalDistance-p.SegmentDistances[last]
	walked := 0.0
	for i, d := range p.SegmentDistances {
		if walked+d >= traveled {
			idx, cumulative = i, walked
			break
		}
		walked += d
	}

	start, end := r[idx], r[idx+1]
	segmentProgress := (traveled - cumulative) / p.SegmentDistances[idx]
	segmentProgress = math.Max(0, math.Min(1, segmentProgress))

	return Sample{
		Position: geo.Coordinate{
			Lat: start.Lat + (end.Lat-start.Lat)*segmentProgress,
			Lon: start.Lon + (end.Lon-start.Lon)*segmentProgress,
		},
		Bearing:         geo.Bearing(start, end),
		SegmentIndex:    idx,
		SegmentProgress: segmentProgress,
		Traveled:        traveled,
	}, nil
}
