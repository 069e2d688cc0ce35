package analysis

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the Prometheus collectors for the analysis orchestrator.
type Metrics struct {
	CacheLookups   *prometheus.CounterVec
	ExternalCalls  prometheus.Counter
	CoalescedWaits prometheus.Counter
	Resolutions    *prometheus.CounterVec
	RepairSteps    *prometheus.CounterVec
	StaleResults   prometheus.Counter
	ContextErrors  prometheus.Counter
	CallDuration   prometheus.Histogram
}

// NewMetrics registers the collectors once per process and returns them.
//
// Metrics:
//   - insights_analysis_cache_lookups_total{result} - hit or miss
//   - insights_analysis_external_calls_total
//   - insights_analysis_coalesced_waits_total
//   - insights_analysis_resolutions_total{tier}
//   - insights_analysis_repair_steps_total{step}
//   - insights_analysis_stale_results_total
//   - insights_analysis_context_errors_total
//   - insights_analysis_call_duration_seconds
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			CacheLookups: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "insights_analysis_cache_lookups_total",
					Help: "Analysis cache lookups by result",
				},
				[]string{"result"},
			),
			ExternalCalls: promauto.NewCounter(prometheus.CounterOpts{
				Name: "insights_analysis_external_calls_total",
				Help: "Calls made to the text-generation backend",
			}),
			CoalescedWaits: promauto.NewCounter(prometheus.CounterOpts{
				Name: "insights_analysis_coalesced_waits_total",
				Help: "Callers attached to an analysis already in flight",
			}),
			Resolutions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "insights_analysis_resolutions_total",
					Help: "Resolved analyses by how the reply was interpreted",
				},
				[]string{"tier"},
			),
			RepairSteps: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "insights_analysis_repair_steps_total",
					Help: "Repair cascade steps attempted",
				},
				[]string{"step"},
			),
			StaleResults: promauto.NewCounter(prometheus.CounterOpts{
				Name: "insights_analysis_stale_results_total",
				Help: "Analyses that resolved after their generation was cleared",
			}),
			ContextErrors: promauto.NewCounter(prometheus.CounterOpts{
				Name: "insights_analysis_context_errors_total",
				Help: "Analyses aborted because the subject context could not be built",
			}),
			CallDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "insights_analysis_call_duration_seconds",
				Help:    "Duration of text-generation calls",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			}),
		}
	})
	return globalMetrics
}
