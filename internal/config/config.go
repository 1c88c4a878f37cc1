package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server     ServerConfig     `toml:"server"`     // HTTP server settings
	Logging    LoggingConfig    `toml:"logging"`    // Application logging settings
	Simulation SimulationConfig `toml:"simulation"` // Animation and simulated clock settings
	Storage    StorageConfig    `toml:"storage"`    // History log storage settings
	Metrics    MetricsConfig    `toml:"metrics"`    // Prometheus metrics settings
	Display    DisplayConfig    `toml:"display"`    // Default display units for clients
	Aircraft   []AircraftConfig `toml:"aircraft"`   // Fleet definition (routes and static aircraft data)
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port               int      `toml:"port"`                  // HTTP port for the server
	Host               string   `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`  // List of origins allowed for CORS requests (use ["*"] for all origins)
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request (0 = no timeout)
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"` // Maximum duration for writing the response (0 = no timeout)
	IdleTimeoutSecs    int      `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
	StaticFilesDir     string   `toml:"static_files_dir"`      // Optional directory with the map client (empty = API only)
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level      string `toml:"level"`        // Log level: "debug", "info", "warn", or "error"
	Format     string `toml:"format"`       // Log format: "json" (structured) or "console" (human-readable)
	File       string `toml:"file"`         // Optional log file, rotated automatically (empty = stdout only)
	MaxSizeMB  int    `toml:"max_size_mb"`  // Rotate the log file after this many megabytes
	MaxBackups int    `toml:"max_backups"`  // Number of rotated files to keep
	MaxAgeDays int    `toml:"max_age_days"` // Days to keep rotated files
}

// SimulationConfig contains the animation clock and vertical profile settings
type SimulationConfig struct {
	AnimationDurationSecs float64 `toml:"animation_duration_seconds"` // Wall-clock length of a full replay
	StartTimeUTC          string  `toml:"start_time_utc"`             // Simulated start, "HH:MM" (today, UTC) or RFC3339
	DurationMinutes       int     `toml:"duration_minutes"`           // Simulated minutes covered by a full replay
	ClimbRateMs           float64 `toml:"climb_rate_ms"`              // Climb and descent rate in m/s
	FrameRate             int     `toml:"frame_rate"`                 // Frames per second while playing
	PreviewCacheSize      int     `toml:"preview_cache_size"`         // Number of timeline previews kept in memory
	PreviewCacheTTLSecs   int     `toml:"preview_cache_ttl_seconds"`  // How long a timeline preview stays cached
}

// StorageConfig contains history log storage configuration
type StorageConfig struct {
	HistoryDBPath  string `toml:"history_db_path"`  // SQLite path for the history log (":memory:" keeps it in RAM)
	MaxHistoryRows int    `toml:"max_history_rows"` // Maximum rows kept in and returned by the history log
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"` // Expose Prometheus metrics
	Path    string `toml:"path"`    // HTTP path for the metrics endpoint
}

// DisplayConfig contains the default units used when a client has not chosen its own
type DisplayConfig struct {
	AltitudeUnit     string `toml:"altitude_unit"`      // "ft" or "m"
	VelocityUnit     string `toml:"velocity_unit"`      // "knots", "km/h" or "m/s"
	VerticalRateUnit string `toml:"vertical_rate_unit"` // "ft/min" or "m/s"
}

// AircraftConfig describes one aircraft and its route
type AircraftConfig struct {
	FlightNumber   string            `toml:"flight_number"`
	Callsign       string            `toml:"callsign"`
	ICAO24         string            `toml:"icao24"`
	OriginCountry  string            `toml:"origin_country"`
	Category       string            `toml:"category"`
	CruiseAltitude *float64          `toml:"cruise_altitude"` // meters
	Altitude       *float64          `toml:"altitude"`        // legacy name for cruise_altitude
	StartAltitude  float64           `toml:"start_altitude"`  // meters
	Velocity       float64           `toml:"velocity"`        // m/s
	OnGround       bool              `toml:"on_ground"`
	PositionSource int               `toml:"position_source"` // 0 ADS-B, 1 ASTERIX, 2 MLAT, 3 FLARM
	Color          string            `toml:"color"`
	Route          [][]float64       `toml:"route"` // [[lat, lon], ...]
	SignalLoss     *SignalLossConfig `toml:"signal_loss"`
}

// SignalLossConfig is a window of simulated minutes during which the aircraft is not received
type SignalLossConfig struct {
	StartMinute int `toml:"start_minute"`
	Duration    int `toml:"duration"`
}

// EffectiveCruiseAltitude resolves cruise_altitude, falling back to the legacy altitude key
func (a AircraftConfig) EffectiveCruiseAltitude() float64 {
	if a.CruiseAltitude != nil {
		return *a.CruiseAltitude
	}
	if a.Altitude != nil {
		return *a.Altitude
	}
	return 0
}

// AnimationDuration returns the wall-clock length of a full replay
func (s SimulationConfig) AnimationDuration() time.Duration {
	return time.Duration(s.AnimationDurationSecs * float64(time.Second))
}

// SimulatedDuration returns the simulated time covered by a full replay
func (s SimulationConfig) SimulatedDuration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// SimulatedStart resolves the configured start time. "HH:MM" is taken on the UTC date of now.
func (s SimulationConfig) SimulatedStart(now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s.StartTimeUTC); err == nil {
		return t.UTC(), nil
	}

	clock, err := time.Parse("15:04", s.StartTimeUTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start_time_utc %q (want HH:MM or RFC3339): %w", s.StartTimeUTC, err)
	}

	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC), nil
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	var config Config

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Read the config file
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &config, nil
}

// Parse decodes a configuration from TOML text
func Parse(data string) (*Config, error) {
	var config Config
	if _, err := toml.Decode(data, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	// List of paths to check in order of preference
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			// File exists, try to load it
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// Validate validates the configuration and fills in defaults
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.ReadTimeoutSecs < 0 || c.Server.WriteTimeoutSecs < 0 || c.Server.IdleTimeoutSecs < 0 {
		return fmt.Errorf("server timeouts must be >= 0")
	}
	if c.Server.IdleTimeoutSecs == 0 {
		c.Server.IdleTimeoutSecs = 60
	}

	// Validate static files directory exists if one is configured
	if c.Server.StaticFilesDir != "" {
		if _, err := os.Stat(c.Server.StaticFilesDir); os.IsNotExist(err) {
			return fmt.Errorf("static files directory does not exist: %s", c.Server.StaticFilesDir)
		}
	}

	// Validate logging config
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid log level
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	switch c.Logging.Format {
	case "json", "console":
		// Valid log format
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}
	if c.Logging.File != "" && c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = 64
	}

	if err := c.ValidateSimulation(); err != nil {
		return err
	}

	// Validate storage config
	if c.Storage.HistoryDBPath == "" {
		c.Storage.HistoryDBPath = ":memory:"
	}
	if c.Storage.MaxHistoryRows <= 0 {
		c.Storage.MaxHistoryRows = 500
	}

	// Validate metrics config
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with '/': %s", c.Metrics.Path)
	}

	if err := c.ValidateDisplay(); err != nil {
		return err
	}

	// Individual aircraft are checked when the fleet is built so a bad route
	// only removes that aircraft. An empty fleet falls back to the demo routes.
	if len(c.Aircraft) == 0 {
		c.Aircraft = DefaultFleet()
	}

	return nil
}

// ValidateSimulation validates the simulation configuration
func (c *Config) ValidateSimulation() error {
	s := &c.Simulation

	// Set default values if not specified
	if s.AnimationDurationSecs == 0 {
		s.AnimationDurationSecs = 60
	}
	if s.StartTimeUTC == "" {
		s.StartTimeUTC = "04:00"
	}
	if s.DurationMinutes == 0 {
		s.DurationMinutes = 30
	}
	if s.ClimbRateMs == 0 {
		s.ClimbRateMs = 15
	}
	if s.FrameRate == 0 {
		s.FrameRate = 60
	}
	if s.PreviewCacheSize == 0 {
		s.PreviewCacheSize = 256
	}
	if s.PreviewCacheTTLSecs == 0 {
		s.PreviewCacheTTLSecs = 600
	}

	if s.AnimationDurationSecs < 0.1 {
		return fmt.Errorf("animation_duration_seconds must be at least 0.1: %v", s.AnimationDurationSecs)
	}
	if s.DurationMinutes < 0 {
		return fmt.Errorf("duration_minutes must be positive: %d", s.DurationMinutes)
	}
	if s.ClimbRateMs < 0 {
		return fmt.Errorf("climb_rate_ms must be positive: %v", s.ClimbRateMs)
	}
	if s.FrameRate < 1 || s.FrameRate > 240 {
		return fmt.Errorf("frame_rate must be between 1 and 240: %d", s.FrameRate)
	}
	if s.PreviewCacheSize < 0 || s.PreviewCacheTTLSecs < 0 {
		return fmt.Errorf("preview cache settings must be positive")
	}
	if _, err := s.SimulatedStart(time.Now()); err != nil {
		return err
	}

	return nil
}

// ValidateDisplay validates the display unit defaults
func (c *Config) ValidateDisplay() error {
	d := &c.Display
	if d.AltitudeUnit == "" {
		d.AltitudeUnit = "ft"
	}
	if d.VelocityUnit == "" {
		d.VelocityUnit = "knots"
	}
	if d.VerticalRateUnit == "" {
		d.VerticalRateUnit = "ft/min"
	}

	switch d.AltitudeUnit {
	case "ft", "m":
	default:
		return fmt.Errorf("invalid altitude_unit: %s (must be 'ft' or 'm')", d.AltitudeUnit)
	}
	switch d.VelocityUnit {
	case "knots", "km/h", "m/s":
	default:
		return fmt.Errorf("invalid velocity_unit: %s (must be 'knots', 'km/h' or 'm/s')", d.VelocityUnit)
	}
	switch d.VerticalRateUnit {
	case "ft/min", "m/s":
	default:
		return fmt.Errorf("invalid vertical_rate_unit: %s (must be 'ft/min' or 'm/s')", d.VerticalRateUnit)
	}

	return nil
}
