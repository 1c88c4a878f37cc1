package display

import (
	"fmt"
	"math"
	"strings"

	"github.com/yegors/routesim/internal/config"
	"github.com/yegors/routesim/internal/physics"
	"github.com/yegors/routesim/internal/telemetry"
)

// Supported units
const (
	Feet          = "ft"
	Meters        = "m"
	Knots         = "knots"
	KmPerHour     = "km/h"
	MetersPerSec  = "m/s"
	FeetPerMinute = "ft/min"
)

// Units is a client's display preference
type Units struct {
	Altitude     string `json:"altitude" msgpack:"altitude"`
	Velocity     string `json:"velocity" msgpack:"velocity"`
	VerticalRate string `json:"vertical_rate" msgpack:"vertical_rate"`
}

// DefaultUnits returns ft / knots / ft/min
func DefaultUnits() Units {
	return Units{Altitude: Feet, Velocity: Knots, VerticalRate: FeetPerMinute}
}

// FromConfig returns the configured default units
func FromConfig(cfg config.DisplayConfig) Units {
	u := Units{Altitude: cfg.AltitudeUnit, Velocity: cfg.VelocityUnit, VerticalRate: cfg.VerticalRateUnit}
	return u.WithDefaults(DefaultUnits())
}

// WithDefaults fills empty fields from d
func (u Units) WithDefaults(d Units) Units {
	if u.Altitude == "" {
		u.Altitude = d.Altitude
	}
	if u.Velocity == "" {
		u.Velocity = d.Velocity
	}
	if u.VerticalRate == "" {
		u.VerticalRate = d.VerticalRate
	}
	return u
}

// Validate checks that every unit is supported
func (u Units) Validate() error {
	switch u.Altitude {
	case Feet, Meters:
	default:
		return fmt.Errorf("unsupported altitude unit %q", u.Altitude)
	}
	switch u.Velocity {
	case Knots, KmPerHour, MetersPerSec:
	default:
		return fmt.Errorf("unsupported velocity unit %q", u.Velocity)
	}
	switch u.VerticalRate {
	case FeetPerMinute, MetersPerSec:
	default:
		return fmt.Errorf("unsupported vertical rate unit %q", u.VerticalRate)
	}
	return nil
}

// ConvertAltitude converts meters to the altitude unit
func (u Units) ConvertAltitude(m float64) float64 {
	if u.Altitude == Feet {
		return m * physics.MetersToFeet
	}
	return m
}

// ConvertVelocity converts m/s to the velocity unit
func (u Units) ConvertVelocity(ms float64) float64 {
	switch u.Velocity {
	case Knots:
		return ms * physics.MsToKnots
	case KmPerHour:
		return ms * physics.MsToKmh
	default:
		return ms
	}
}

// ConvertVerticalRate converts m/s to the vertical rate unit
func (u Units) ConvertVerticalRate(ms float64) float64 {
	if u.VerticalRate == FeetPerMinute {
		return ms * physics.MsToFpm
	}
	return ms
}

// FormatAltitude renders an altitude with its unit, e.g. "35000 ft"
func (u Units) FormatAltitude(m float64) string {
	return fmt.Sprintf("%.0f %s", math.Round(u.ConvertAltitude(m)), u.Altitude)
}

// FormatVelocity renders a velocity with its unit, e.g. "476 knots"
func (u Units) FormatVelocity(ms float64) string {
	return fmt.Sprintf("%.0f %s", math.Round(u.ConvertVelocity(ms)), u.Velocity)
}

// FormatVerticalRate renders a signed vertical rate, e.g. "+2953 ft/min"
func (u Units) FormatVerticalRate(ms float64) string {
	v := math.Round(u.ConvertVerticalRate(ms))
	if v == 0 {
		return "0 " + u.VerticalRate
	}
	return fmt.Sprintf("%+.0f %s", v, u.VerticalRate)
}

// Aircraft is a snapshot rendered in display units
type Aircraft struct {
	telemetry.Snapshot
	DisplayAltitude     float64 `json:"display_altitude" msgpack:"display_altitude"`
	DisplayVelocity     float64 `json:"display_velocity" msgpack:"display_velocity"`
	DisplayVerticalRate float64 `json:"display_vertical_rate" msgpack:"display_vertical_rate"`
	AltitudeText        string  `json:"altitude_text" msgpack:"altitude_text"`
	VelocityText        string  `json:"velocity_text" msgpack:"velocity_text"`
	VerticalRateText    string  `json:"vertical_rate_text" msgpack:"vertical_rate_text"`
	OnGroundText        string  `json:"on_ground_text" msgpack:"on_ground_text"`
	LocationLabel       string  `json:"location_label" msgpack:"location_label"`
}

// Frame is a telemetry frame rendered in display units
type Frame struct {
	Progress    float64    `json:"progress" msgpack:"progress"`
	SliderValue int        `json:"slider_value" msgpack:"slider_value"`
	Running     bool       `json:"running" msgpack:"running"`
	SimTime     string     `json:"sim_time" msgpack:"sim_time"`
	ClockText   string     `json:"clock_text" msgpack:"clock_text"`
	Selected    string     `json:"selected,omitempty" msgpack:"selected,omitempty"`
	Units       Units      `json:"units" msgpack:"units"`
	Aircraft    []Aircraft `json:"aircraft" msgpack:"aircraft"`
}

// Render converts a frame into the given units
func Render(f telemetry.Frame, u Units) Frame {
	out := Frame{
		Progress:    f.Progress,
		SliderValue: f.SliderValue,
		Running:     f.Running,
		SimTime:     f.SimTime.UTC().Format("2006-01-02T15:04:05Z"),
		ClockText:   f.ClockText,
		Selected:    f.Selected,
		Units:       u,
		Aircraft:    make([]Aircraft, 0, len(f.Aircraft)),
	}
	for _, s := range f.Aircraft {
		out.Aircraft = append(out.Aircraft, RenderSnapshot(s, u))
	}
	return out
}

// RenderSnapshot converts one snapshot into the given units
func RenderSnapshot(s telemetry.Snapshot, u Units) Aircraft {
	return Aircraft{
		Snapshot:            s,
		DisplayAltitude:     u.ConvertAltitude(s.Altitude),
		DisplayVelocity:     u.ConvertVelocity(s.Velocity),
		DisplayVerticalRate: u.ConvertVerticalRate(s.VerticalRate),
		AltitudeText:        u.FormatAltitude(s.Altitude),
		VelocityText:        u.FormatVelocity(s.Velocity),
		VerticalRateText:    u.FormatVerticalRate(s.VerticalRate),
		OnGroundText:        YesNo(s.OnGround),
		LocationLabel:       LocationLabel(s.Position.Lat, s.Position.Lon),
	}
}

// LocationLabel formats a position as "lat, lon" with two decimals
func LocationLabel(lat, lon float64) string {
	return fmt.Sprintf("%.2f, %.2f", lat, lon)
}

// YesNo renders a boolean for the info card
func YesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// ParseUnit normalizes a unit name from a query string or message
func ParseUnit(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "feet":
		return Feet
	case "meters", "metres":
		return Meters
	case "kt", "kts", "knot":
		return Knots
	case "kmh", "kph":
		return KmPerHour
	case "fpm":
		return FeetPerMinute
	case "ms", "mps":
		return MetersPerSec
	}
	return s
}
