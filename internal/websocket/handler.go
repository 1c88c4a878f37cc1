package websocket

import (
	"fmt"
	"math"
	"strings"

	"github.com/yegors/routesim/internal/display"
	"github.com/yegors/routesim/internal/simulation"
	"github.com/yegors/routesim/internal/telemetry"
	"github.com/yegors/routesim/pkg/logger"
)

// Playback is the part of the simulation service the control channel drives
type Playback interface {
	Play()
	Pause()
	Toggle() bool
	SeekSlider(value int) error
	Select(icao24 string) error
	ClearSelection()
	Frame() telemetry.Frame
	Status() simulation.PlaybackStatus
}

// ControlHandler handles playback control messages from clients
type ControlHandler struct {
	playback Playback
	logger   *logger.Logger
}

// NewControlHandler creates a new WebSocket message handler
func NewControlHandler(playback Playback, log *logger.Logger) *ControlHandler {
	return &ControlHandler{
		playback: playback,
		logger:   log.Named("ws-control"),
	}
}

// OnConnect sends the current frame so the client can draw immediately
func (h *ControlHandler) OnConnect(client *Client) {
	client.SendFrame(h.playback.Frame())
}

// HandleMessage handles incoming WebSocket messages
func (h *ControlHandler) HandleMessage(client *Client, messageType string, data map[string]any) error {
	switch messageType {
	case MessageTypePlay:
		h.playback.Play()
		return h.sendStatus(client)
	case MessageTypePause:
		h.playback.Pause()
		return h.sendStatus(client)
	case MessageTypeToggle:
		h.playback.Toggle()
		return h.sendStatus(client)
	case MessageTypeSeek:
		return h.handleSeek(client, data)
	case MessageTypeSelect:
		return h.handleSelect(client, data)
	case MessageTypeDeselect:
		h.playback.ClearSelection()
		return nil
	case MessageTypeUnitsUpdate:
		return h.handleUnitsUpdate(client, data)
	case MessageTypeFrameRequest:
		client.SendFrame(h.playback.Frame())
		return nil
	default:
		h.logger.Debug("Unhandled message type", logger.String("type", messageType))
		return fmt.Errorf("unknown message type %q", messageType)
	}
}

// handleSeek seeks to data.value on the 0..1000 timeline. The seek itself
// publishes the new frame to every client.
func (h *ControlHandler) handleSeek(client *Client, data map[string]any) error {
	value, ok := number(data["value"])
	if !ok {
		return fmt.Errorf("seek requires a numeric value")
	}
	if err := h.playback.SeekSlider(int(math.Round(value))); err != nil {
		return err
	}
	return h.sendStatus(client)
}

func (h *ControlHandler) handleSelect(client *Client, data map[string]any) error {
	icao24, _ := data["icao24"].(string)
	if strings.TrimSpace(icao24) == "" {
		return fmt.Errorf("select requires icao24")
	}
	if err := h.playback.Select(icao24); err != nil {
		return err
	}
	h.logger.Debug("Client selected aircraft",
		logger.String("icao24", icao24),
		logger.String("client", client.remote))
	return nil
}

// handleUnitsUpdate changes the units this client's frames are rendered in.
// Omitted keys keep their current unit.
func (h *ControlHandler) handleUnitsUpdate(client *Client, data map[string]any) error {
	var requested display.Units
	if v, ok := data["altitude"].(string); ok {
		requested.Altitude = display.ParseUnit(v)
	}
	if v, ok := data["velocity"].(string); ok {
		requested.Velocity = display.ParseUnit(v)
	}
	if v, ok := data["vertical_rate"].(string); ok {
		requested.VerticalRate = display.ParseUnit(v)
	}

	units := requested.WithDefaults(client.Units())
	if err := units.Validate(); err != nil {
		return err
	}
	client.SetUnits(units)

	h.logger.Info("Updated client units",
		logger.String("altitude", units.Altitude),
		logger.String("velocity", units.Velocity),
		logger.String("vertical_rate", units.VerticalRate))

	client.SendMessage(&Message{Type: MessageTypeUnits, Data: units})
	client.SendFrame(h.playback.Frame())
	return nil
}

func (h *ControlHandler) sendStatus(client *Client) error {
	if !client.SendMessage(&Message{Type: MessageTypePlayback, Data: h.playback.Status()}) {
		h.logger.Warn("Client send channel full, dropping message")
	}
	return nil
}

// number accepts the numeric types JSON and msgpack decode into
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
