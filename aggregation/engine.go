// Package aggregation turns the points of one kind inside a time window into
// summary statistics and half-over-half trends.
package aggregation

import (
	"math"
	"slices"
	"time"

	"clementus360/task-insights/types"
)

const (
	// StableThreshold is the absolute percentage change under which a trend is stable.
	StableThreshold = 5.0
	// PointsForFullConfidence is the number of points each half needs for confidence 1.
	PointsForFullConfidence = 3.0
)

// Querier is the read side of the context store.
type Querier interface {
	Query(filter types.QueryFilter) []types.ContextualDataPoint
}

type Engine struct {
	store     Querier
	semantics map[types.DataKind]map[string]Mode
}

func NewEngine(store Querier) *Engine {
	return &Engine{store: store, semantics: DefaultSemantics()}
}

// WithSemantics replaces the per-kind metric semantics.
func (e *Engine) WithSemantics(semantics map[types.DataKind]map[string]Mode) *Engine {
	e.semantics = semantics
	return e
}

// Aggregate never fails: an empty window yields a zero-confidence result.
func (e *Engine) Aggregate(kind types.DataKind, window types.TimeRange) types.AggregationResult {
	result := types.AggregationResult{
		Kind:           kind,
		AggregatedData: map[string]float64{},
		TimeRange:      window,
		Trends:         []types.Trend{},
	}

	points := e.store.Query(types.QueryFilter{
		Kinds: []types.DataKind{kind},
		Range: &window,
	})
	if len(points) == 0 {
		return result
	}
	result.DataPointCount = len(points)

	all := newAccumulator()
	first := newAccumulator()
	second := newAccumulator()
	mid := window.Midpoint()

	for _, p := range points {
		half := second
		if p.Timestamp.Before(mid) {
			half = first
		}
		for name, v := range p.Payload.Metrics {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			all.add(name, v)
			half.add(name, v)
		}
	}

	for _, name := range all.names() {
		result.AggregatedData[name] = all.value(name, e.modeFor(kind, name))
	}

	hours := window.Hours()
	for _, name := range all.names() {
		n1, n2 := first.counts[name], second.counts[name]
		if n1 == 0 || n2 == 0 {
			continue
		}
		result.Trends = append(result.Trends, ComputeTrend(name, first.mean(name), second.mean(name), min(n1, n2), hours))
	}

	if len(result.Trends) > 0 {
		var sum float64
		for _, t := range result.Trends {
			sum += t.Confidence
		}
		result.Confidence = sum / float64(len(result.Trends))
	}

	return result
}

// AggregateRecent aggregates the window [now-d, now].
func (e *Engine) AggregateRecent(kind types.DataKind, d time.Duration, now time.Time) types.AggregationResult {
	return e.Aggregate(kind, types.TimeRange{Start: now.Add(-d), End: now})
}

func (e *Engine) modeFor(kind types.DataKind, metric string) Mode {
	if m, ok := e.semantics[kind][metric]; ok {
		return m
	}
	return ModeMean
}

// ComputeTrend compares the per-half means of one metric.
func ComputeTrend(metric string, firstMean, secondMean float64, smallerHalf int, hours float64) types.Trend {
	var magnitude float64
	if firstMean == 0 {
		if secondMean > 0 {
			magnitude = 100
		}
	} else {
		magnitude = (secondMean - firstMean) / firstMean * 100
	}

	direction := types.TrendStable
	switch {
	case math.Abs(magnitude) < StableThreshold:
	case magnitude > 0:
		direction = types.TrendIncreasing
	default:
		direction = types.TrendDecreasing
	}

	return types.Trend{
		Metric:        metric,
		Direction:     direction,
		Magnitude:     magnitude,
		Confidence:    math.Min(1, float64(smallerHalf)/PointsForFullConfidence),
		TimespanHours: hours,
	}
}

type accumulator struct {
	sums   map[string]float64
	counts map[string]int
}

func newAccumulator() *accumulator {
	return &accumulator{sums: map[string]float64{}, counts: map[string]int{}}
}

func (a *accumulator) add(name string, v float64) {
	a.sums[name] += v
	a.counts[name]++
}

func (a *accumulator) mean(name string) float64 {
	if a.counts[name] == 0 {
		return 0
	}
	return a.sums[name] / float64(a.counts[name])
}

func (a *accumulator) value(name string, mode Mode) float64 {
	switch mode {
	case ModeSum:
		return a.sums[name]
	case ModeCount:
		return float64(a.counts[name])
	}
	return a.mean(name)
}

func (a *accumulator) names() []string {
	names := make([]string, 0, len(a.counts))
	for name := range a.counts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
