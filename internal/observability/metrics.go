package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "groupctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "groupctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	capabilityLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "groupctl",
			Subsystem: "capability",
			Name:      "loads_total",
			Help:      "Capability load attempts by outcome.",
		},
		[]string{"name", "outcome"},
	)
	capabilitiesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "groupctl",
			Subsystem: "capability",
			Name:      "active",
			Help:      "Capabilities active after the configuration pass.",
		},
	)
	paramFetchPolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "groupctl",
			Subsystem: "param_fetch",
			Name:      "polls_total",
			Help:      "Remote parameter poll ticks by result.",
		},
		[]string{"peer", "param", "result"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, capabilityLoads, capabilitiesActive, paramFetchPolls)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordCapabilityLoad(name, outcome string) {
	RegisterMetrics()
	capabilityLoads.WithLabelValues(name, outcome).Inc()
}

func SetCapabilitiesActive(n int) {
	RegisterMetrics()
	capabilitiesActive.Set(float64(n))
}

func RecordParamPoll(peer, param, result string) {
	RegisterMetrics()
	paramFetchPolls.WithLabelValues(peer, param, result).Inc()
}
