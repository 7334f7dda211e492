package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TurnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intentbot_turn_duration_seconds",
			Help:    "End-to-end turn processing duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"transport"},
	)

	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intentbot_resolutions_total",
			Help: "Total resolutions by cascade terminal state",
		},
		[]string{"state"},
	)

	IntentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intentbot_intent_total",
			Help: "Total resolutions by resolved intent tag",
		},
		[]string{"intent"},
	)

	ClassifierConfidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "intentbot_classifier_confidence",
			Help:    "Classifier posterior confidence per resolution",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intentbot_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intentbot_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	SnapshotReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intentbot_snapshot_reloads_total",
			Help: "Total snapshot reloads",
		},
		[]string{"status"},
	)

	TrainingRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intentbot_training_runs_total",
			Help: "Total training runs",
		},
		[]string{"status"},
	)

	TrainingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "intentbot_training_duration_seconds",
			Help:    "Training pipeline duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)

	ActiveWebsockets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "intentbot_active_websockets",
			Help: "Currently open websocket chat sessions",
		},
	)

	CorpusIntents = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "intentbot_corpus_intents",
			Help: "Intents in the live corpus snapshot",
		},
	)
)

func Init() {
	prometheus.MustRegister(TurnDuration)
	prometheus.MustRegister(ResolutionsTotal)
	prometheus.MustRegister(IntentTotal)
	prometheus.MustRegister(ClassifierConfidence)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(SnapshotReloads)
	prometheus.MustRegister(TrainingRuns)
	prometheus.MustRegister(TrainingDuration)
	prometheus.MustRegister(ActiveWebsockets)
	prometheus.MustRegister(CorpusIntents)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
