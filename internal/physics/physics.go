package physics

import (
	"math"
	"sync"
	"time"

	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"
)

// Unit conversion factors. The core computes in SI; these are only applied
// at the presentation boundary.
const (
	MetersToFeet = 3.28084 // m -> ft
	MsToKnots    = 1.94384 // m/s -> knots
	MsToKmh      = 3.6     // m/s -> km/h
	MsToFpm      = 196.85  // m/s -> ft/min
)

// Vector2D represents a 2D vector
type Vector2D struct {
	X float64 `json:"x" msgpack:"x"` // East component
	Y float64 `json:"y" msgpack:"y"` // North component
}

// HeadingToVector converts a heading (degrees) and magnitude to X/Y components
func HeadingToVector(headingDeg float64, magnitude float64) Vector2D {
	rad := (90 - headingDeg) * math.Pi / 180 // Convert compass heading to math angle
	return Vector2D{
		X: magnitude * math.Cos(rad),
		Y: magnitude * math.Sin(rad),
	}
}

// wmm keeps the last location and field in package globals, so calls are serialized
var wmmMu sync.Mutex

// CalculateMagneticVariation calculates the magnetic declination for a given position and time
// Returns declination in degrees (+East, -West)
func CalculateMagneticVariation(lat, lon, altM float64, date time.Time) float64 {
	wmmMu.Lock()
	// Create location from Geodetic coordinates
	loc := egm96.NewLocationGeodetic(lat, lon, altM)

	// Calculate magnetic field
	mag, err := wmm.CalculateWMMMagneticField(loc, date)
	var decl float64
	if err == nil {
		decl = mag.D()
	}
	wmmMu.Unlock()
	if err != nil {
		// Outside the model's validity window
		return 0.0
	}

	return decl
}

// MagneticHeading converts a true heading to a magnetic one given the declination
func MagneticHeading(trueHeading, declination float64) float64 {
	h := math.Mod(trueHeading-declination, 360)
	if h < 0 {
		h += 360
	}
	return h
}
