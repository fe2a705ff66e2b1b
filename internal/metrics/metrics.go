package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "groupstudy",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests received",
	}, []string{"service", "method", "path", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "groupstudy",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"service", "method", "path", "status"})

	httpInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "groupstudy",
		Name:      "http_in_flight_requests",
		Help:      "Current number of in-flight HTTP requests",
	}, []string{"service"})

	connectionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "groupstudy",
		Name:      "ws_connections_open",
		Help:      "Current number of open WebSocket connections",
	})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "groupstudy",
		Name:      "chat_sessions_active",
		Help:      "Current number of registered chat sessions",
	})

	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "groupstudy",
		Name:      "ws_events_total",
		Help:      "Total number of inbound WebSocket events by type",
	}, []string{"event"})

	framesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "groupstudy",
		Name:      "ws_frames_sent_total",
		Help:      "Total number of outbound WebSocket frames by event type",
	}, []string{"event"})

	presenceRemote = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "groupstudy",
		Name:      "presence_remote_events_total",
		Help:      "Presence events received from other service instances",
	}, []string{"type"})
)

// ConnOpened / ConnClosed track the open WebSocket connection gauge.
func ConnOpened() { connectionsOpen.Inc() }
func ConnClosed() { connectionsOpen.Dec() }

// SessionAdded / SessionRemoved track the registered chat session gauge.
func SessionAdded()   { sessionsActive.Inc() }
func SessionRemoved() { sessionsActive.Dec() }

// EventReceived counts one inbound event of the given type.
func EventReceived(event string) { eventsTotal.WithLabelValues(event).Inc() }

// FramesSent counts n outbound frames of the given event type.
func FramesSent(event string, n int) {
	if n > 0 {
		framesSent.WithLabelValues(event).Add(float64(n))
	}
}

// PresenceRemoteEvent counts a presence event seen from another instance.
func PresenceRemoteEvent(eventType string) {
	presenceRemote.WithLabelValues(eventType).Inc()
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack must be forwarded so the WebSocket upgrade works through the
// middleware.
func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := r.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, fmt.Errorf("metrics: underlying ResponseWriter does not support hijacking")
}

// Middleware records request metrics with Prometheus labels.
func Middleware(service string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			httpInFlight.WithLabelValues(service).Inc()
			defer httpInFlight.WithLabelValues(service).Dec()

			next.ServeHTTP(rec, r)

			labels := prometheus.Labels{
				"service": service,
				"method":  r.Method,
				"path":    r.URL.Path,
				"status":  strconv.Itoa(rec.status),
			}
			httpRequests.With(labels).Inc()
			httpLatency.With(labels).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler exposes the default Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
