package aggregation

import "clementus360/task-insights/types"

// Mode says how a metric is summarised in AggregatedData.
type Mode string

const (
	ModeMean  Mode = "mean"
	ModeSum   Mode = "sum"
	ModeCount Mode = "count"
)

// DefaultSemantics declares the metrics that are not averaged. Anything not
// listed is a mean.
func DefaultSemantics() map[types.DataKind]map[string]Mode {
	return map[types.DataKind]map[string]Mode{
		types.KindTaskPatterns: {
			"completed":       ModeSum,
			"created":         ModeSum,
			"ai_suggested":    ModeSum,
			"overdue_at_done": ModeSum,
		},
		types.KindUserBehavior: {
			"sessions":      ModeCount,
			"activity":      ModeCount,
			"tasks_touched": ModeSum,
		},
		types.KindProductivityMetrics: {
			"completed_today": ModeSum,
		},
	}
}
