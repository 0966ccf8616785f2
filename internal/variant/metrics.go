package variant

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pictura_variant_generations_total",
		Help: "Variant generation attempts by style and outcome",
	}, []string{"style", "outcome"})

	generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pictura_variant_generation_duration_seconds",
		Help:    "Time spent generating a variant",
		Buckets: prometheus.DefBuckets,
	}, []string{"style"})

	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pictura_variant_cache_hits_total",
		Help: "Variant requests served without decode/resize work",
	})
)

func observeGeneration(style, outcome string, d time.Duration) {
	generationsTotal.WithLabelValues(style, outcome).Inc()
	if outcome == "ok" {
		generationDuration.WithLabelValues(style).Observe(d.Seconds())
	}
}

func observeCacheHit() {
	cacheHitsTotal.Inc()
}
