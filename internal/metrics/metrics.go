// Package metrics exposes the engine's prometheus counters. Every method is
// safe on a nil *Metrics so components can run without instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the prefix of every linkscout metric.
	Namespace = "linkscout"

	OutcomeSuccess = "success"
	OutcomeError   = "error"
	// OutcomeInvalid marks a fetched pattern batch rejected in strict mode
	OutcomeInvalid = "invalid"
)

// Metrics holds the engine's collectors.
type Metrics struct {
	ScansTotal        prometheus.Counter
	ScansDropped      prometheus.Counter
	ScanDuration      prometheus.Histogram
	LinksDetected     *prometheus.CounterVec
	PatternFetches    *prometheus.CounterVec
	UnrestrictCalls   *prometheus.CounterVec
	ReportsDelivered  *prometheus.CounterVec
	PreferenceReloads prometheus.Counter
}

// New creates and registers all metrics on reg. A nil reg gets a private registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		ScansTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "scans_total",
			Help:      "Total number of completed document scans",
		}),
		ScansDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "scans_dropped_total",
			Help:      "Auto-scans skipped because another scan was in flight",
		}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "scan_duration_seconds",
			Help:      "Duration of a document scan in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		LinksDetected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "links_detected_total",
			Help:      "Links detected per scan, by type",
		}, []string{"type"}),
		PatternFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "pattern_fetches_total",
			Help:      "Hoster pattern fetches, by outcome",
		}, []string{"outcome"}),
		UnrestrictCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "unrestrict_calls_total",
			Help:      "Unrestrict requests, by outcome",
		}, []string{"outcome"}),
		ReportsDelivered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reports_total",
			Help:      "Detected-link reports sent to the background, by outcome",
		}, []string{"outcome"}),
		PreferenceReloads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "preference_reloads_total",
			Help:      "Preference records reloaded from disk",
		}),
	}
}

func (m *Metrics) ScanCompleted(d time.Duration, hosters, magnets int) {
	if m == nil {
		return
	}
	m.ScansTotal.Inc()
	m.ScanDuration.Observe(d.Seconds())
	m.LinksDetected.WithLabelValues("hoster").Add(float64(hosters))
	m.LinksDetected.WithLabelValues("magnet").Add(float64(magnets))
}

func (m *Metrics) ScanDroppedInc() {
	if m == nil {
		return
	}
	m.ScansDropped.Inc()
}

func (m *Metrics) PatternFetch(outcome string) {
	if m == nil {
		return
	}
	m.PatternFetches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) UnrestrictCall(outcome string) {
	if m == nil {
		return
	}
	m.UnrestrictCalls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Report(outcome string) {
	if m == nil {
		return
	}
	m.ReportsDelivered.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PreferenceReloaded() {
	if m == nil {
		return
	}
	m.PreferenceReloads.Inc()
}
