package collector

import (
	"context"
	"time"

	"clementus360/task-insights/types"
)

// TemporalSource records when collection happens: hour, weekday and whether
// it falls within working hours.
type TemporalSource struct {
	Location *time.Location
}

func (TemporalSource) Name() string         { return "temporal_clock" }
func (TemporalSource) Kind() types.DataKind { return types.KindTemporal }

func (s TemporalSource) Collect(_ context.Context, _ Request, now time.Time) ([]types.ContextualDataPoint, error) {
	if s.Location != nil {
		now = now.In(s.Location)
	}

	weekday := now.Weekday()
	weekend := weekday == time.Saturday || weekday == time.Sunday
	working := !weekend && now.Hour() >= 9 && now.Hour() < 18

	return []types.ContextualDataPoint{{
		Kind:     types.KindTemporal,
		Category: types.CategoryRealTime,
		Payload: types.Payload{
			Metrics: map[string]float64{
				"hour_of_day":      float64(now.Hour()),
				"day_of_week":      float64(weekday),
				"is_weekend":       boolMetric(weekend),
				"is_working_hours": boolMetric(working),
			},
			Labels: map[string]string{
				"time_of_day": timeOfDay(now.Hour()),
			},
		},
		Timestamp:      now,
		RelevanceScore: 0.3,
		Metadata: types.DataMetadata{
			CollectionMethod: types.CollectionAutomatic,
			Confidence:       1,
			DataSources:      []string{"system_clock"},
		},
	}}, nil
}

func timeOfDay(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 22:
		return "evening"
	default:
		return "night"
	}
}

func boolMetric(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
