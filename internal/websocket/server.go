package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/yegors/routesim/internal/display"
	"github.com/yegors/routesim/internal/metrics"
	"github.com/yegors/routesim/internal/telemetry"
	"github.com/yegors/routesim/pkg/logger"
)

// Server to client message types
const (
	MessageTypeFrame    = "frame"          // Telemetry frame rendered in the client's units
	MessageTypePlayback = "playback_state" // Playback status after a control message
	MessageTypeUnits    = "units"          // Units acknowledged after units_update
	MessageTypeError    = "error"          // A control message was rejected
)

// Client to server message types
const (
	MessageTypePlay         = "play"
	MessageTypePause        = "pause"
	MessageTypeToggle       = "toggle"
	MessageTypeSeek         = "seek"
	MessageTypeSelect       = "select"
	MessageTypeDeselect     = "deselect"
	MessageTypeUnitsUpdate  = "units_update"
	MessageTypeFrameRequest = "frame_request"
)

// Wire encodings, chosen per connection with ?encoding=
const (
	EncodingJSON    = "json"
	EncodingMsgpack = "msgpack"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 256
)

// Message represents a WebSocket message
type Message struct {
	Type string `json:"type" msgpack:"type"`
	Data any    `json:"data,omitempty" msgpack:"data,omitempty"`
}

// MessageHandler defines the interface for handling incoming WebSocket messages
type MessageHandler interface {
	HandleMessage(client *Client, messageType string, data map[string]any) error
}

// ConnectHandler is optionally implemented by a MessageHandler that wants to
// greet new clients
type ConnectHandler interface {
	OnConnect(client *Client)
}

// Client represents a WebSocket client
type Client struct {
	conn     *websocket.Conn
	send     chan *Message
	server   *Server
	encoding string
	remote   string
	logger   *logger.Logger

	mu     sync.Mutex
	closed bool // send is closed
	units  display.Units
}

// Server is the websocket hub. It implements the presentation sink: every
// published frame is rendered in each client's units and queued to it.
type Server struct {
	clients        map[*Client]bool
	register       chan *Client
	unregister     chan *Client
	broadcast      chan telemetry.Frame
	done           chan struct{}
	upgrader       websocket.Upgrader
	defaultUnits   display.Units
	metrics        *metrics.Collector
	logger         *logger.Logger
	mu             sync.RWMutex
	messageHandler MessageHandler
}

// NewServer creates a new WebSocket server
func NewServer(defaultUnits display.Units, m *metrics.Collector, log *logger.Logger) *Server {
	return &Server{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan telemetry.Frame, 8),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		defaultUnits: defaultUnits.WithDefaults(display.DefaultUnits()),
		metrics:      m,
		logger:       log.Named("web-socket"),
	}
}

// SetMessageHandler sets the message handler for incoming WebSocket messages
func (s *Server) SetMessageHandler(handler MessageHandler) {
	s.messageHandler = handler
}

// ClientCount returns the number of registered clients
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Publish queues a frame for every client. It never blocks: when the hub is
// behind, the frame is dropped and the next one supersedes it.
func (s *Server) Publish(frame telemetry.Frame) {
	select {
	case s.broadcast <- frame:
	default:
		s.logger.Debug("Hub busy, dropping frame", logger.Float64("progress", frame.Progress))
	}
}

// Run starts the hub loop and blocks until ctx is done
func (s *Server) Run(ctx context.Context) {
	s.logger.Info("Starting WebSocket server")

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return

		case client := <-s.register:
			s.mu.Lock()
			s.clients[client] = true
			count := len(s.clients)
			s.mu.Unlock()
			s.metrics.SetWebsocketClients(count)
			s.logger.Debug("Client registered",
				logger.String("remote_addr", client.remote),
				logger.Int("client_count", count))

		case client := <-s.unregister:
			s.removeClient(client)

		case frame := <-s.broadcast:
			s.mu.RLock()
			stalled := make([]*Client, 0)
			for client := range s.clients {
				if !client.SendFrame(frame) {
					stalled = append(stalled, client)
				}
			}
			s.mu.RUnlock()

			for _, client := range stalled {
				s.logger.Warn("Client send buffer full, disconnecting", logger.String("remote_addr", client.remote))
				s.removeClient(client)
			}
		}
	}
}

func (s *Server) removeClient(client *Client) {
	s.mu.Lock()
	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		client.closeSend()
	}
	count := len(s.clients)
	s.mu.Unlock()

	s.metrics.SetWebsocketClients(count)
	s.logger.Debug("Client unregistered",
		logger.String("remote_addr", client.remote),
		logger.Int("client_count", count))
}

func (s *Server) shutdown() {
	s.mu.Lock()
	for client := range s.clients {
		delete(s.clients, client)
		client.closeSend()
	}
	s.mu.Unlock()
	close(s.done)
	s.metrics.SetWebsocketClients(0)
	s.logger.Info("WebSocket server stopped")
}

// HandleConnection upgrades the request and serves the client until it
// disconnects. ?encoding=msgpack selects binary frames.
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	encoding := EncodingJSON
	switch e := r.URL.Query().Get("encoding"); e {
	case "", EncodingJSON:
	case EncodingMsgpack:
		encoding = EncodingMsgpack
	default:
		http.Error(w, fmt.Sprintf("unsupported encoding %q", e), http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection",
			logger.Error(err),
			logger.String("remote_addr", r.RemoteAddr))
		return
	}

	client := &Client{
		conn:     conn,
		send:     make(chan *Message, sendBufferSize),
		server:   s,
		encoding: encoding,
		remote:   r.RemoteAddr,
		logger:   s.logger.With(logger.String("remote_addr", r.RemoteAddr), logger.String("encoding", encoding)),
		units:    s.defaultUnits,
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	client.logger.Info("WebSocket client connected")

	go client.writePump()
	go client.readPump()

	if h, ok := s.messageHandler.(ConnectHandler); ok {
		h.OnConnect(client)
	}
}

// readPump pumps messages from the WebSocket connection to the handler
func (c *Client) readPump() {
	defer func() {
		select {
		case c.server.unregister <- c:
		case <-c.server.done:
		}
		c.conn.Close()
	}()

	for {
		messageType, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket read error", logger.Error(err))
			}
			return
		}

		var message struct {
			Type string         `json:"type" msgpack:"type"`
			Data map[string]any `json:"data" msgpack:"data"`
		}
		if messageType == websocket.BinaryMessage {
			err = msgpack.Unmarshal(payload, &message)
		} else {
			err = json.Unmarshal(payload, &message)
		}
		if err != nil {
			c.logger.Error("Failed to parse WebSocket message", logger.Error(err))
			c.SendMessage(&Message{Type: MessageTypeError, Data: map[string]any{"error": "malformed message"}})
			continue
		}

		c.logger.Debug("Received WebSocket message", logger.String("type", message.Type))

		if c.server.messageHandler != nil {
			if err := c.server.messageHandler.HandleMessage(c, message.Type, message.Data); err != nil {
				c.logger.Warn("Failed to handle WebSocket message",
					logger.Error(err),
					logger.String("type", message.Type))
				c.SendMessage(&Message{Type: MessageTypeError, Data: map[string]any{
					"type":  message.Type,
					"error": err.Error(),
				}})
			}
		}
	}
}

// writePump encodes queued messages onto the connection
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		data, frameType, err := c.encode(message)
		if err != nil {
			c.logger.Error("Failed to encode message",
				logger.String("message_type", message.Type),
				logger.Error(err))
			continue
		}

		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(frameType, data); err != nil {
			c.logger.Debug("WebSocket write failed", logger.Error(err))
			return
		}
	}

	// Hub closed the channel
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (c *Client) encode(message *Message) ([]byte, int, error) {
	if c.encoding == EncodingMsgpack {
		data, err := msgpack.Marshal(message)
		return data, websocket.BinaryMessage, err
	}
	data, err := json.Marshal(message)
	return data, websocket.TextMessage, err
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// SendMessage queues a message for this client. It returns false when the
// client is gone or its buffer is full.
func (c *Client) SendMessage(message *Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// SendFrame renders frame in the client's units and queues it
func (c *Client) SendFrame(frame telemetry.Frame) bool {
	return c.SendMessage(&Message{Type: MessageTypeFrame, Data: display.Render(frame, c.Units())})
}

// Units returns the client's display units
func (c *Client) Units() display.Units {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.units
}

// SetUnits replaces the client's display units
func (c *Client) SetUnits(u display.Units) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.units = u
}
