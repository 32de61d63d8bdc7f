package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every fleetctl metric. It is served by the optional metrics
// endpoint of long running commands.
var Registry = prometheus.NewRegistry()

var (
	// SyncFetchTotal counts view fetches by outcome: success, error or
	// superseded (a newer trigger replaced the fetch before it finished).
	SyncFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_sync_fetch_total",
			Help: "View snapshot fetches by view and result.",
		},
		[]string{"view", "result"},
	)

	SyncFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleet_sync_fetch_duration_seconds",
			Help:    "Duration of view snapshot fetches.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"view"},
	)

	EventsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_events_received_total",
			Help: "Real-time events received by name.",
		},
		[]string{"event"},
	)

	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_api_requests_total",
			Help: "REST calls to the fleet backend by method and status code (0 for network errors).",
		},
		[]string{"method", "code"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleet_api_request_duration_seconds",
			Help:    "Latency of REST calls to the fleet backend.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		SyncFetchTotal,
		SyncFetchDuration,
		EventsReceivedTotal,
		APIRequestsTotal,
		APIRequestDuration,
	)
}

var connOnce sync.Once

// RegisterEventConnection exposes fleet_event_connection_status, 1 while
// connected returns true. Only the first registration takes effect.
func RegisterEventConnection(connected func() bool) {
	connOnce.Do(func() {
		Registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "fleet_event_connection_status",
				Help: "The connectivity status to the fleet event service (1=connected, 0=disconnected).",
			},
			func() float64 {
				if connected() {
					return 1
				}
				return 0
			},
		))
	})
}
