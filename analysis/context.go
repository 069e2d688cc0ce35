package analysis

import (
	"context"
	"slices"
	"time"

	"clementus360/task-insights/types"
)

// SubjectProvider returns the current snapshot of a subject. It returns an
// error wrapping ErrSubjectNotFound when the subject does not exist.
type SubjectProvider interface {
	GetSubject(ctx context.Context, subjectID string) (types.SubjectSnapshot, error)
}

// BuildContext turns a snapshot into the immutable context one analysis
// cycle works from. Activity is newest first and capped at maxActivities.
func BuildContext(snap types.SubjectSnapshot, trends []types.Trend, maxActivities int, now time.Time) types.AnalysisContext {
	actx := types.AnalysisContext{
		Task:           snap.Task,
		SubtaskCount:   len(snap.Subtasks),
		BlockingCount:  snap.BlockingCount,
		DependentCount: snap.DependentCount,
		Project:        snap.Project,
		BuiltAt:        now,
	}

	for _, st := range snap.Subtasks {
		if st.IsCompleted() {
			actx.SubtasksCompleted++
		}
	}
	if actx.SubtaskCount > 0 {
		actx.CompletionRatio = float64(actx.SubtasksCompleted) / float64(actx.SubtaskCount)
	}

	activity := slices.Clone(snap.Activities)
	slices.SortStableFunc(activity, func(a, b types.UserActivity) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if maxActivities > 0 && len(activity) > maxActivities {
		activity = activity[:maxActivities]
	}
	actx.RecentActivity = activity

	if len(trends) > 0 {
		actx.Trends = slices.Clone(trends)
	}

	return actx
}
