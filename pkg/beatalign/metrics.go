package beatalign

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/himanishpuri/BeatAlign/pkg/beatalign/quantize"
)

var (
	// alignmentsTotal counts auto-align calls by mode and result
	alignmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beatalign_alignments_total",
		Help: "Total auto-align calls by quantize mode and result",
	}, []string{"mode", "result"})

	alignmentDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "beatalign_alignment_duration_seconds",
		Help:    "Auto-align duration in seconds, storage included",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"mode"})

	// eventsTotal counts annotations by what alignment did with them
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beatalign_events_total",
		Help: "Annotations processed by outcome",
	}, []string{"outcome"})

	adjustmentSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "beatalign_max_adjustment_seconds",
		Help:    "Largest snap distance per auto-align call",
		Buckets: []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5},
	})

	timelineCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beatalign_timeline_cache_total",
		Help: "Timeline cache lookups by result",
	}, []string{"result"})
)

func observeReport(mode string, r quantize.Report) {
	s := r.Stats
	dropped := s.TotalProcessed - s.AlignedCount - s.PreservedCount
	eventsTotal.WithLabelValues("aligned").Add(float64(s.AlignedCount))
	eventsTotal.WithLabelValues("preserved").Add(float64(s.PreservedCount))
	eventsTotal.WithLabelValues("dropped").Add(float64(dropped))
	eventsTotal.WithLabelValues("conflict").Add(float64(s.ConflictsResolved))
	if s.AlignedCount > 0 {
		adjustmentSeconds.Observe(s.MaxAdjustment)
	}
	alignmentsTotal.WithLabelValues(mode, "ok").Inc()
}
