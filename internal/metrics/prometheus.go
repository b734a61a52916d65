package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reggie_messages_published_total",
			Help: "Publish attempts by transport, topic and result",
		},
		[]string{"transport", "topic", "result"},
	)

	PublishDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reggie_publish_duration_seconds",
			Help:    "Time spent waiting for the transport to accept a message",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"transport"},
	)

	PublisherHandles = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reggie_publisher_handles",
			Help: "Open per-topic publisher handles",
		},
		[]string{"transport"},
	)

	StorageOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reggie_storage_operations_total",
			Help: "Blob store operations by driver, operation and result",
		},
		[]string{"driver", "op", "result"},
	)

	WorkerProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reggie_worker_jobs_processed_total",
			Help: "Total number of jobs processed by worker pools",
		},
		[]string{"pool"},
	)

	WorkerActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reggie_worker_active_goroutines",
			Help: "Number of running worker goroutines per pool",
		},
		[]string{"pool"},
	)

	PlaybackRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reggie_playback_runs_total",
			Help: "Scenario playbacks by final status",
		},
		[]string{"status"},
	)
)

var once sync.Once

// Init registers metrics with Prometheus. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			MessagesPublished,
			PublishDuration,
			PublisherHandles,
			StorageOperations,
			WorkerProcessed,
			WorkerActive,
			PlaybackRuns,
		)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Result labels an operation outcome.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
