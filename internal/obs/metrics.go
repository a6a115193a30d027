package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Init registers the HTTP metrics with the default registry.
func Init() {
	prometheus.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument wraps a handler with RPS/latency/in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		path := CanonicalPath(r.URL.Path)
		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// Sub-resources that keep their literal name after an id segment. Anything
// else stays verbatim so typos and probes never mint new label values
// beyond their literal path.
var resourceSubs = map[string]map[string]bool{
	"users":          {"stats": true, "trips": true, "bookings": true, "notifications": true},
	"trips":          {"status": true, "votes": true},
	"bookings":       {"status": true},
	"agencies":       {"trips": true, "bookings": true},
	"patients":       {"doses": true},
	"doses":          {"administer": true},
	"notifications":  {"read": true},
	"admin/agencies": {"code": true},
	"admin/users":    {"status": true},
}

// CanonicalPath collapses resource ids to ":id" so the path label stays
// low-cardinality.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	switch path {
	case "/v1/doses/due", "/v1/notifications/read-all":
		return path
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 || parts[0] != "v1" {
		return path
	}
	col := parts[1]
	rest := parts[2:]
	if col == "admin" && len(parts) >= 4 {
		col = "admin/" + parts[2]
		rest = parts[3:]
	}
	subs, known := resourceSubs[col]
	if !known {
		return path
	}
	switch len(rest) {
	case 1:
		return "/v1/" + col + "/:id"
	case 2:
		if subs[rest[1]] {
			return "/v1/" + col + "/:id/" + rest[1]
		}
	}
	return path
}

// statusWriter captures the response code written by downstream handlers.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
