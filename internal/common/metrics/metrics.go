// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_requests_total",
			Help: "Total number of prediction requests by outcome",
		},
		[]string{"outcome"},
	)

	InferenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inference_request_duration_seconds",
			Help:    "Duration of calls to the inference service in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"outcome"},
	)

	InferenceInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inference_requests_in_flight",
			Help: "Number of inference calls currently outstanding",
		},
	)

	UsersLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feature_store_users_loaded",
			Help: "Number of users currently held by the feature store",
		},
	)

	DatasetLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feature_store_loads_total",
			Help: "Dataset load attempts by source and result",
		},
		[]string{"source", "result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served by route and status code",
		},
		[]string{"route", "status"},
	)
)

// OutcomeSuccess labels successful predictions and inference calls.
const OutcomeSuccess = "success"
