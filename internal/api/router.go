package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/yegors/routesim/internal/config"
	"github.com/yegors/routesim/internal/metrics"
	"github.com/yegors/routesim/internal/simulation"
	"github.com/yegors/routesim/internal/websocket"
	"github.com/yegors/routesim/pkg/logger"
)

// Router builds the HTTP routes
type Router struct {
	handler  *Handler
	config   *config.Config
	metrics  *metrics.Collector
	wsServer *websocket.Server
	logger   *logger.Logger
}

// NewRouter creates a new API router. m may be nil when metrics are disabled.
func NewRouter(simulationService *simulation.Service, cfg *config.Config, log *logger.Logger, wsServer *websocket.Server, m *metrics.Collector) *Router {
	return &Router{
		handler:  NewHandler(simulationService, cfg, log, wsServer),
		config:   cfg,
		metrics:  m,
		wsServer: wsServer,
		logger:   log.Named("router"),
	}
}

// Routes returns the root handler
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(rt.metrics.Middleware)
	r.Use(cors(rt.config.Server.CORSAllowedOrigins))

	h := rt.handler

	r.Get("/healthz", h.GetHealth)

	if rt.wsServer != nil {
		r.Get("/ws", rt.wsServer.HandleConnection)
	}

	if rt.config.Metrics.Enabled {
		r.Handle(rt.config.Metrics.Path, rt.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/config", h.GetConfig)

		r.Route("/playback", func(r chi.Router) {
			r.Get("/", h.GetPlayback)
			r.Post("/play", h.Play)
			r.Post("/pause", h.Pause)
			r.Post("/toggle", h.Toggle)
			r.Post("/seek", h.Seek)
		})

		r.Route("/aircraft", func(r chi.Router) {
			r.Get("/", h.GetAllAircraft)
			r.Get("/{icao24}", h.GetAircraft)
			r.Post("/{icao24}/select", h.SelectAircraft)
		})
		r.Delete("/selection", h.ClearSelection)

		r.Get("/telemetry", h.GetTelemetry)
		r.Get("/telemetry/preview", h.GetPreview)
		r.Get("/history", h.GetHistory)
	})

	if dir := rt.config.Server.StaticFilesDir; dir != "" {
		rt.logger.Info("Serving static files", logger.String("dir", dir))
		r.Handle("/*", NewStaticFileHandler(dir, rt.logger))
	}

	return r
}

// cors allows the configured origins. "*" allows any origin.
func cors(allowed []string) func(http.Handler) http.Handler {
	allowAll := false
	origins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		origins[strings.TrimSuffix(o, "/")] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || origins[origin]) {
				if allowAll {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
				}
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
