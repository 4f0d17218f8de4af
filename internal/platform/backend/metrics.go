package backend

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records backend call latencies. A nil *Metrics records nothing.
type Metrics struct {
	duration *prometheus.HistogramVec
}

// NewMetrics creates the backend collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "akin_backend_request_duration_seconds",
			Help:    "Lab backend call latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "resource", "status"}),
	}
	reg.MustRegister(m.duration)
	return m
}

func (m *Metrics) observe(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(method, resourceOf(path), status).Observe(d.Seconds())
}

// resourceOf reduces a path to its first segment so ids do not become labels.
func resourceOf(path string) string {
	path = strings.TrimLeft(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "root"
	}
	return path
}
