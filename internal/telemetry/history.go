package telemetry

import "time"

// HistoryKind tells why a history row was logged
type HistoryKind string

const (
	HistoryMinute   HistoryKind = "minute"   // a new simulated minute started
	HistoryWaypoint HistoryKind = "waypoint" // the aircraft crossed a waypoint
)

// HistoryEntry is one row of the selected aircraft's flight log
type HistoryEntry struct {
	ID             int64       `json:"id" msgpack:"id"`
	ICAO24         string      `json:"icao24" msgpack:"icao24"`
	Kind           HistoryKind `json:"kind" msgpack:"kind"`
	SimTime        time.Time   `json:"sim_time" msgpack:"sim_time"`
	Label          string      `json:"label" msgpack:"label"`       // "lat, lon" or "WPT n"
	Altitude       float64     `json:"altitude" msgpack:"altitude"` // meters
	Velocity       float64     `json:"velocity" msgpack:"velocity"` // m/s
	PositionSource string      `json:"position_source" msgpack:"position_source"`
}
