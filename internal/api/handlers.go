package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/yegors/routesim/internal/config"
	"github.com/yegors/routesim/internal/display"
	"github.com/yegors/routesim/internal/fleet"
	"github.com/yegors/routesim/internal/geo"
	"github.com/yegors/routesim/internal/playback"
	"github.com/yegors/routesim/internal/simulation"
	"github.com/yegors/routesim/internal/telemetry"
	"github.com/yegors/routesim/internal/websocket"
	"github.com/yegors/routesim/pkg/logger"
)

// Handler contains the API handlers
type Handler struct {
	simulationService *simulation.Service
	config            *config.Config
	defaultUnits      display.Units
	logger            *logger.Logger
	wsServer          *websocket.Server
}

// NewHandler creates a new API handler
func NewHandler(simulationService *simulation.Service, config *config.Config, logger *logger.Logger, wsServer *websocket.Server) *Handler {
	return &Handler{
		simulationService: simulationService,
		config:            config,
		defaultUnits:      display.FromConfig(config.Display),
		logger:            logger.Named("api-handler"),
		wsServer:          wsServer,
	}
}

// AircraftInfo is the static info card of an aircraft plus its route
type AircraftInfo struct {
	fleet.AircraftProfile
	PositionSourceText string           `json:"position_source_text"`
	OnGroundText       string           `json:"on_ground_text"`
	Route              []geo.Coordinate `json:"route"`
	RouteDistance      float64          `json:"route_distance"` // meters
	Selected           bool             `json:"selected"`
}

// AircraftDetail is an info card together with the live telemetry
type AircraftDetail struct {
	AircraftInfo
	Telemetry *display.Aircraft `json:"telemetry,omitempty"`
}

// HistoryRow is a history entry with display strings
type HistoryRow struct {
	telemetry.HistoryEntry
	TimeText     string `json:"time_text"`
	AltitudeText string `json:"altitude_text"`
	VelocityText string `json:"velocity_text"`
}

type seekRequest struct {
	Value    *int     `json:"value"`
	Progress *float64 `json:"progress"`
}

// GetHealth returns the health status of the API
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	f := h.simulationService.Fleet()
	status := h.simulationService.Status()

	response := map[string]any{
		"status":         "ok",
		"aircraft_count": f.Len(),
		"rejected_count": len(f.Rejected()),
		"running":        status.Running,
	}
	if h.wsServer != nil {
		response["websocket_clients"] = h.wsServer.ClientCount()
	}

	WriteJSON(w, http.StatusOK, response)
}

// GetConfig returns the public configuration
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	publicConfig := map[string]any{
		"simulation": map[string]any{
			"animation_duration_seconds": h.config.Simulation.AnimationDurationSecs,
			"start_time_utc":             h.config.Simulation.StartTimeUTC,
			"duration_minutes":           h.config.Simulation.DurationMinutes,
			"climb_rate_ms":              h.config.Simulation.ClimbRateMs,
			"frame_rate":                 h.config.Simulation.FrameRate,
			"slider_max":                 playback.SliderMax,
		},
		"display": h.defaultUnits,
		"metrics": map[string]any{
			"enabled": h.config.Metrics.Enabled,
			"path":    h.config.Metrics.Path,
		},
	}

	WriteJSON(w, http.StatusOK, publicConfig)
}

// GetPlayback returns the playback status
func (h *Handler) GetPlayback(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.simulationService.Status())
}

// Play starts or resumes playback
func (h *Handler) Play(w http.ResponseWriter, r *http.Request) {
	h.simulationService.Play()
	WriteJSON(w, http.StatusOK, h.simulationService.Status())
}

// Pause stops playback
func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	h.simulationService.Pause()
	WriteJSON(w, http.StatusOK, h.simulationService.Status())
}

// Toggle flips between playing and paused
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	h.simulationService.Toggle()
	WriteJSON(w, http.StatusOK, h.simulationService.Status())
}

// Seek moves playback to {"value": 0..1000} or {"progress": 0..1}
func (h *Handler) Seek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	var err error
	switch {
	case req.Value != nil:
		err = h.simulationService.SeekSlider(*req.Value)
	case req.Progress != nil:
		err = h.simulationService.Seek(*req.Progress)
	default:
		writeError(w, http.StatusBadRequest, "Either value or progress is required")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, h.simulationService.Status())
}

// GetAllAircraft returns the fleet. ?include_rejected=true adds the entries
// that failed validation.
func (h *Handler) GetAllAircraft(w http.ResponseWriter, r *http.Request) {
	f := h.simulationService.Fleet()

	aircraft := make([]AircraftInfo, 0, f.Len())
	for _, ac := range f.All() {
		aircraft = append(aircraft, h.info(f, ac))
	}

	response := map[string]any{
		"aircraft": aircraft,
		"count":    len(aircraft),
	}
	if includeRejected, _ := strconv.ParseBool(r.URL.Query().Get("include_rejected")); includeRejected {
		response["rejected"] = f.Rejected()
	}

	WriteJSON(w, http.StatusOK, response)
}

// GetAircraft returns one aircraft with its current telemetry
func (h *Handler) GetAircraft(w http.ResponseWriter, r *http.Request) {
	icao24 := chi.URLParam(r, "icao24")
	f := h.simulationService.Fleet()

	ac, found := f.Get(icao24)
	if !found {
		writeError(w, http.StatusNotFound, "Aircraft not found")
		return
	}

	units, err := h.unitsFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	detail := AircraftDetail{AircraftInfo: h.info(f, ac)}
	frame := h.simulationService.Frame()
	if snap, ok := frame.Find(ac.Profile.ICAO24); ok {
		rendered := display.RenderSnapshot(*snap, units)
		detail.Telemetry = &rendered
	}

	WriteJSON(w, http.StatusOK, detail)
}

// SelectAircraft selects an aircraft for the info card and history log
func (h *Handler) SelectAircraft(w http.ResponseWriter, r *http.Request) {
	icao24 := chi.URLParam(r, "icao24")
	if err := h.simulationService.Select(icao24); err != nil {
		if simulation.IsUnknownAircraft(err) {
			writeError(w, http.StatusNotFound, "Aircraft not found")
			return
		}
		h.logger.Error("Failed to select aircraft", logger.String("icao24", icao24), logger.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, h.simulationService.Status())
}

// ClearSelection closes the info card
func (h *Handler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	h.simulationService.ClearSelection()
	WriteJSON(w, http.StatusOK, h.simulationService.Status())
}

// GetTelemetry returns the current frame in the requested units
func (h *Handler) GetTelemetry(w http.ResponseWriter, r *http.Request) {
	units, err := h.unitsFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, display.Render(h.simulationService.Frame(), units))
}

// GetPreview returns the frame at a timeline value without seeking
func (h *Handler) GetPreview(w http.ResponseWriter, r *http.Request) {
	value, err := strconv.Atoi(r.URL.Query().Get("value"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "value must be an integer between 0 and 1000")
		return
	}

	units, err := h.unitsFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	frame, err := h.simulationService.Preview(value)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, display.Render(frame, units))
}

// GetHistory returns the selected aircraft's flight log, newest first
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	units, err := h.unitsFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.simulationService.History(limit)
	if err != nil {
		h.logger.Error("Failed to list history", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list history")
		return
	}

	rows := make([]HistoryRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, HistoryRow{
			HistoryEntry: e,
			TimeText:     playback.FormatUTC(e.SimTime),
			AltitudeText: units.FormatAltitude(e.Altitude),
			VelocityText: units.FormatVelocity(e.Velocity),
		})
	}

	response := map[string]any{
		"entries": rows,
		"count":   len(rows),
	}
	if status := h.simulationService.Status(); status.Selected != "" {
		response["icao24"] = status.Selected
	}

	WriteJSON(w, http.StatusOK, response)
}

func (h *Handler) info(f *fleet.Fleet, ac *fleet.Aircraft) AircraftInfo {
	return AircraftInfo{
		AircraftProfile:    ac.Profile,
		PositionSourceText: ac.Profile.PositionSource.String(),
		OnGroundText:       display.YesNo(ac.Profile.OnGround),
		Route:              ac.Route,
		RouteDistance:      ac.Geometry.TotalDistance,
		Selected:           f.IsSelected(ac),
	}
}

// unitsFromQuery reads alt_unit, vel_unit and vs_unit, falling back to the
// configured defaults
func (h *Handler) unitsFromQuery(r *http.Request) (display.Units, error) {
	q := r.URL.Query()
	u := display.Units{
		Altitude:     display.ParseUnit(q.Get("alt_unit")),
		Velocity:     display.ParseUnit(q.Get("vel_unit")),
		VerticalRate: display.ParseUnit(q.Get("vs_unit")),
	}.WithDefaults(h.defaultUnits)
	if err := u.Validate(); err != nil {
		return display.Units{}, fmt.Errorf("invalid units: %w", err)
	}
	return u, nil
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": strings.TrimSpace(message)})
}
