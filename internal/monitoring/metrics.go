package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts what the detector saw and decided. Each instance owns its
// registry so tests and multiple servers do not collide.
type Metrics struct {
	ImagesProcessed     prometheus.Counter
	DegenerateImages    prometheus.Counter
	MalformedDetections prometheus.Counter
	CandidatePairs      prometheus.Counter
	RetainedPairs       prometheus.Counter
	// PairVerdicts is labelled by stage ("lane", "heading") and outcome.
	PairVerdicts *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers the tailgate counters.
func NewMetrics() *Metrics {
	m := &Metrics{
		ImagesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tailgate_images_processed_total",
			Help: "Images run through the tailgating pipeline",
		}),
		DegenerateImages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tailgate_degenerate_images_total",
			Help: "Images with fewer than two usable vehicles",
		}),
		MalformedDetections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tailgate_malformed_detections_total",
			Help: "Vehicle detections skipped because their geometry was unusable",
		}),
		CandidatePairs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tailgate_candidate_pairs_total",
			Help: "Candidate leader/follower pairs formed",
		}),
		PairVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tailgate_pair_verdicts_total",
			Help: "Filter verdicts by stage and outcome",
		}, []string{"stage", "outcome"}),
		RetainedPairs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tailgate_retained_pairs_total",
			Help: "Pairs surviving both the lane and heading filters",
		}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(
		m.ImagesProcessed,
		m.DegenerateImages,
		m.MalformedDetections,
		m.CandidatePairs,
		m.PairVerdicts,
		m.RetainedPairs,
	)
	return m
}

// ImageCounts is what ObserveImage needs from one image's result.
type ImageCounts struct {
	Degenerate      bool
	Malformed       int
	Candidates      int
	Retained        int
	LaneRejected    int
	HeadingExceeded int
}

// ObserveImage adds one image's counts.
func (m *Metrics) ObserveImage(c ImageCounts) {
	m.ImagesProcessed.Inc()
	if c.Degenerate {
		m.DegenerateImages.Inc()
	}
	m.MalformedDetections.Add(float64(c.Malformed))
	m.CandidatePairs.Add(float64(c.Candidates))
	m.RetainedPairs.Add(float64(c.Retained))
	m.PairVerdicts.WithLabelValues("lane", "rejected").Add(float64(c.LaneRejected))
	m.PairVerdicts.WithLabelValues("lane", "retained").Add(float64(c.Candidates - c.LaneRejected))
	m.PairVerdicts.WithLabelValues("heading", "exceeded").Add(float64(c.HeadingExceeded))
	m.PairVerdicts.WithLabelValues("heading", "maintained").Add(float64(c.Candidates - c.LaneRejected - c.HeadingExceeded))
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
