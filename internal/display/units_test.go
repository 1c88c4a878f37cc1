package display

import (
	"math"
	"testing"
	"time"

	"github.com/yegors/routesim/internal/config"
	"github.com/yegors/routesim/internal/geo"
	"github.com/yegors/routesim/internal/telemetry"
)

func TestConversions(t *testing.T) {
	tests := []struct {
		name  string
		units Units
		fn    func(Units, float64) float64
		in    float64
		want  float64
	}{
		{"m to ft", Units{Altitude: Feet}, Units.ConvertAltitude, 10668, 10668 * 3.28084},
		{"m stays m", Units{Altitude: Meters}, Units.ConvertAltitude, 10668, 10668},
		{"m/s to knots", Units{Velocity: Knots}, Units.ConvertVelocity, 245, 245 * 1.94384},
		{"m/s to km/h", Units{Velocity: KmPerHour}, Units.ConvertVelocity, 245, 882},
		{"m/s stays m/s", Units{Velocity: MetersPerSec}, Units.ConvertVelocity, 245, 245},
		{"m/s to ft/min", Units{VerticalRate: FeetPerMinute}, Units.ConvertVerticalRate, 15, 15 * 196.85},
		{"vertical m/s", Units{VerticalRate: MetersPerSec}, Units.ConvertVerticalRate, -15, -15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.units, tt.in); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatting(t *testing.T) {
	u := DefaultUnits()

	if got := u.FormatAltitude(10668); got != "35000 ft" {
		t.Errorf("FormatAltitude() = %q", got)
	}
	if got := u.FormatVelocity(245); got != "476 knots" {
		t.Errorf("FormatVelocity() = %q", got)
	}
	if got := u.FormatVerticalRate(15); got != "+2953 ft/min" {
		t.Errorf("FormatVerticalRate(15) = %q", got)
	}
	if got := u.FormatVerticalRate(-15); got != "-2953 ft/min" {
		t.Errorf("FormatVerticalRate(-15) = %q", got)
	}
	if got := u.FormatVerticalRate(0); got != "0 ft/min" {
		t.Errorf("FormatVerticalRate(0) = %q", got)
	}
	if got := LocationLabel(23.82805, 74.98441); got != "23.83, 74.98" {
		t.Errorf("LocationLabel() = %q", got)
	}
}

func TestUnitsValidate(t *testing.T) {
	if err := DefaultUnits().Validate(); err != nil {
		t.Errorf("DefaultUnits().Validate() = %v", err)
	}
	bad := []Units{
		{Altitude: "yd", Velocity: Knots, VerticalRate: FeetPerMinute},
		{Altitude: Feet, Velocity: "mph", VerticalRate: FeetPerMinute},
		{Altitude: Feet, Velocity: Knots, VerticalRate: "ft/s"},
	}
	for _, u := range bad {
		if err := u.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil, want error", u)
		}
	}
}

func TestFromConfigAndParse(t *testing.T) {
	u := FromConfig(config.DisplayConfig{AltitudeUnit: "m"})
	if u != (Units{Altitude: Meters, Velocity: Knots, VerticalRate: FeetPerMinute}) {
		t.Errorf("FromConfig() = %+v", u)
	}

	tests := map[string]string{
		"Feet": Feet, "kts": Knots, "KMH": KmPerHour, "fpm": FeetPerMinute, "mps": MetersPerSec, "m": Meters,
	}
	for in, want := range tests {
		if got := ParseUnit(in); got != want {
			t.Errorf("ParseUnit(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRender(t *testing.T) {
	frame := telemetry.Frame{
		Progress:    0.5,
		SliderValue: 500,
		SimTime:     time.Date(2024, 5, 1, 4, 15, 0, 0, time.UTC),
		ClockText:   "04:15 UTC",
		Aircraft: []telemetry.Snapshot{{
			ICAO24:       "800C6E",
			Position:     geo.Coordinate{Lat: 23.82805, Lon: 74.98441},
			Altitude:     10668,
			Velocity:     245,
			VerticalRate: -15,
			OnGround:     false,
		}},
	}

	out := Render(frame, Units{Altitude: Meters, Velocity: KmPerHour, VerticalRate: MetersPerSec})
	if out.SimTime != "2024-05-01T04:15:00Z" || out.SliderValue != 500 {
		t.Errorf("header = %+v", out)
	}
	ac := out.Aircraft[0]
	if ac.DisplayAltitude != 10668 || math.Abs(ac.DisplayVelocity-882) > 1e-9 || ac.DisplayVerticalRate != -15 {
		t.Errorf("converted values = %v %v %v", ac.DisplayAltitude, ac.DisplayVelocity, ac.DisplayVerticalRate)
	}
	if ac.Altitude != 10668 {
		t.Error("core snapshot was modified")
	}
	if ac.AltitudeText != "10668 m" || ac.VelocityText != "882 km/h" || ac.OnGroundText != "No" {
		t.Errorf("texts = %q %q %q", ac.AltitudeText, ac.VelocityText, ac.OnGroundText)
	}
	if ac.LocationLabel != "23.83, 74.98" {
		t.Errorf("LocationLabel = %q", ac.LocationLabel)
	}
}
