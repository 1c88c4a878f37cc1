package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes the simulator's Prometheus metrics. A nil *Collector is
// valid and records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	FramesTotal         prometheus.Counter
	FrameBuildDuration  prometheus.Histogram
	FrameErrors         prometheus.Counter
	PlaybackRunning     prometheus.Gauge
	PlaybackProgress    prometheus.Gauge
	HistoryEntries      *prometheus.CounterVec
	PreviewCache        *prometheus.CounterVec
	WebsocketClients    prometheus.Gauge
	FleetAircraft       *prometheus.GaugeVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPDurationSeconds *prometheus.HistogramVec
}

// NewCollector registers the metrics against reg (the default registerer when nil)
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	if c.FramesTotal, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "routesim_frames_total",
		Help: "Telemetry frames emitted to the presentation sink.",
	})); err != nil {
		return nil, err
	}
	if c.FrameBuildDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "routesim_frame_build_duration_seconds",
		Help:    "Time spent building a fleet telemetry frame.",
		Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01},
	})); err != nil {
		return nil, err
	}
	if c.FrameErrors, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "routesim_frame_errors_total",
		Help: "Aircraft left out of a frame because sampling failed.",
	})); err != nil {
		return nil, err
	}
	if c.PlaybackRunning, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "routesim_playback_running",
		Help: "1 while the animation is playing.",
	})); err != nil {
		return nil, err
	}
	if c.PlaybackProgress, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "routesim_playback_progress",
		Help: "Animation progress of the last emitted frame (0..1).",
	})); err != nil {
		return nil, err
	}
	if c.HistoryEntries, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "routesim_history_entries_total",
		Help: "History rows logged for the selected aircraft.",
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	if c.PreviewCache, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "routesim_preview_cache_requests_total",
		Help: "Timeline preview lookups by result.",
	}, []string{"result"})); err != nil {
		return nil, err
	}
	if c.WebsocketClients, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "routesim_websocket_clients",
		Help: "Connected websocket clients.",
	})); err != nil {
		return nil, err
	}
	if c.FleetAircraft, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "routesim_fleet_aircraft",
		Help: "Aircraft in the fleet by state.",
	}, []string{"state"})); err != nil {
		return nil, err
	}
	if c.HTTPRequestsTotal, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "routesim_http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"path", "method", "code"})); err != nil {
		return nil, err
	}
	if c.HTTPDurationSeconds, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "routesim_http_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "method"})); err != nil {
		return nil, err
	}

	return c, nil
}

// register returns the already registered collector when an identical one exists
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector already registered with incompatible type: %w", err)
		}
		var zero T
		return zero, err
	}
	return c, nil
}

// Handler returns the Prometheus metrics HTTP handler
func (c *Collector) Handler() http.Handler {
	if c == nil || c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// ObserveFrame records one emitted frame
func (c *Collector) ObserveFrame(progress float64, d time.Duration, failed int) {
	if c == nil {
		return
	}
	c.FramesTotal.Inc()
	c.FrameBuildDuration.Observe(d.Seconds())
	c.PlaybackProgress.Set(progress)
	if failed > 0 {
		c.FrameErrors.Add(float64(failed))
	}
}

// SetRunning updates the playback state gauge
func (c *Collector) SetRunning(running bool) {
	if c == nil {
		return
	}
	if running {
		c.PlaybackRunning.Set(1)
	} else {
		c.PlaybackRunning.Set(0)
	}
}

// IncHistory counts a logged history row
func (c *Collector) IncHistory(kind string) {
	if c == nil {
		return
	}
	c.HistoryEntries.WithLabelValues(kind).Inc()
}

// PreviewLookup counts a preview cache hit or miss
func (c *Collector) PreviewLookup(hit bool) {
	if c == nil {
		return
	}
	if hit {
		c.PreviewCache.WithLabelValues("hit").Inc()
	} else {
		c.PreviewCache.WithLabelValues("miss").Inc()
	}
}

// SetWebsocketClients updates the connected client gauge
func (c *Collector) SetWebsocketClients(n int) {
	if c == nil {
		return
	}
	c.WebsocketClients.Set(float64(n))
}

// SetFleet updates the fleet size gauges
func (c *Collector) SetFleet(accepted, rejected int) {
	if c == nil {
		return
	}
	c.FleetAircraft.WithLabelValues("accepted").Set(float64(accepted))
	c.FleetAircraft.WithLabelValues("rejected").Set(float64(rejected))
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the middleware
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Middleware records request count and duration, labelled by route pattern
func (c *Collector) Middleware(next http.Handler) http.Handler {
	if c == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		c.HTTPRequestsTotal.WithLabelValues(path, r.Method, strconv.Itoa(rw.statusCode)).Inc()
		c.HTTPDurationSeconds.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())
	})
}
