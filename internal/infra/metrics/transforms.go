package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		transformsTotal,
		transformDuration,
	)
}

var (
	transformsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_transforms_total",
			Help: "Image transforms by outcome (success/failure/refund_failed).",
		},
		[]string{"outcome", "style"},
	)

	transformDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "image_transform_duration_seconds",
			Help:    "Wall time of the external transform call.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
		},
	)
)

func IncTransform(outcome, style string) {
	transformsTotal.WithLabelValues(norm(outcome), norm(style)).Inc()
}

func ObserveTransformDuration(d time.Duration) {
	transformDuration.Observe(d.Seconds())
}
