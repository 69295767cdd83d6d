package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the collectors for the telemetry pipeline. A single
// instance is created at startup and handed to the server and worker.
type Metrics struct {
	Registry *prometheus.Registry

	TripsIngested      prometheus.Counter
	TripsRejected      prometheus.Counter
	MessagesPublished  prometheus.Counter
	TripsProcessed     *prometheus.CounterVec
	ProcessingDuration prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		TripsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fleetflow",
			Name:      "trips_ingested_total",
			Help:      "Trips accepted and persisted by the ingestion API.",
		}),
		TripsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fleetflow",
			Name:      "trips_rejected_total",
			Help:      "Submissions rejected by validation.",
		}),
		MessagesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fleetflow",
			Name:      "messages_published_total",
			Help:      "Trip references published to the analysis queue.",
		}),
		TripsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleetflow",
			Name:      "trips_processed_total",
			Help:      "Trips consumed by the scoring worker, by outcome.",
		}, []string{"outcome"}),
		ProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fleetflow",
			Name:      "trip_processing_seconds",
			Help:      "Wall time of one consume-score-persist cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		m.TripsIngested,
		m.TripsRejected,
		m.MessagesPublished,
		m.TripsProcessed,
		m.ProcessingDuration,
	)
	return m
}
