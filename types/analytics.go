package types

import "time"

type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the range, bounds included.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Midpoint splits the range into two equal halves.
func (r TimeRange) Midpoint() time.Time {
	return r.Start.Add(r.End.Sub(r.Start) / 2)
}

func (r TimeRange) Hours() float64 {
	return r.End.Sub(r.Start).Hours()
}

type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

type Trend struct {
	Metric        string         `json:"metric"`
	Direction     TrendDirection `json:"direction"`
	Magnitude     float64        `json:"magnitude"` // signed percentage change
	Confidence    float64        `json:"confidence"`
	TimespanHours float64        `json:"timespan_hours"`
}

type AggregationResult struct {
	Kind           DataKind           `json:"kind"`
	AggregatedData map[string]float64 `json:"aggregated_data"`
	DataPointCount int                `json:"data_point_count"`
	TimeRange      TimeRange          `json:"time_range"`
	Confidence     float64            `json:"confidence"`
	Trends         []Trend            `json:"trends"`
}
