package supabase

import (
	"context"
	"encoding/json"
	"time"

	"clementus360/task-insights/collector"
	"clementus360/task-insights/config"
	"clementus360/task-insights/types"

	"github.com/supabase-community/supabase-go"
)

var (
	_ collector.Source = (*ActivitySource)(nil)
	_ collector.Source = (*TaskStatsSource)(nil)
)

// ActivitySource turns rows of user_activities into user_behavior points.
// Point IDs derive from row IDs, so repeated cycles never duplicate a row.
type ActivitySource struct {
	Client   *supabase.Client
	UserID   string
	Lookback time.Duration
	Limit    int
}

func (s *ActivitySource) Name() string         { return "supabase_user_activities" }
func (s *ActivitySource) Kind() types.DataKind { return types.KindUserBehavior }

func (s *ActivitySource) Collect(ctx context.Context, _ collector.Request, now time.Time) ([]types.ContextualDataPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lookback, limit := s.Lookback, s.Limit
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	if limit <= 0 {
		limit = 100
	}

	activities, err := GetUserActivities(s.Client, s.UserID, now.Add(-lookback), limit)
	if err != nil {
		return nil, err
	}

	points := make([]types.ContextualDataPoint, 0, len(activities))
	for _, a := range activities {
		if a.ID == "" {
			continue
		}
		points = append(points, ActivityPoint(a))
	}
	return points, nil
}

// ActivityPoint maps one activity row onto a data point.
func ActivityPoint(a types.UserActivity) types.ContextualDataPoint {
	metrics := map[string]float64{
		"activity":    1,
		"hour_of_day": float64(a.CreatedAt.Hour()),
	}

	var meta types.ActivityMetadata
	if a.Metadata != "" {
		if err := json.Unmarshal([]byte(a.Metadata), &meta); err != nil {
			config.Logger.WithField("activity_id", a.ID).Debug("Ignoring unreadable activity metadata")
		}
	}
	if meta.DurationMinutes > 0 {
		metrics["duration_minutes"] = meta.DurationMinutes
	}
	if meta.TaskCount > 0 {
		metrics["tasks_touched"] = float64(meta.TaskCount)
	}
	if a.ActivityType == config.ActivityTypeWorkSession {
		metrics["sessions"] = 1
	}

	labels := map[string]string{"activity_type": a.ActivityType}
	if a.TaskID != "" {
		labels["task_id"] = a.TaskID
	}

	return types.ContextualDataPoint{
		ID:             "activity:" + a.ID,
		Kind:           types.KindUserBehavior,
		Category:       types.CategoryHistorical,
		Payload:        types.Payload{Metrics: metrics, Labels: labels},
		Timestamp:      a.CreatedAt,
		RelevanceScore: 0.5,
		Metadata: types.DataMetadata{
			CollectionMethod: types.CollectionAutomatic,
			Confidence:       0.8,
			DataSources:      []string{"user_activities"},
		},
	}
}

// TaskStatsSource summarises the user's task list into one productivity_metrics point.
type TaskStatsSource struct {
	Client *supabase.Client
	UserID string
	Limit  int
}

func (s *TaskStatsSource) Name() string         { return "supabase_task_stats" }
func (s *TaskStatsSource) Kind() types.DataKind { return types.KindProductivityMetrics }

func (s *TaskStatsSource) Collect(ctx context.Context, _ collector.Request, now time.Time) ([]types.ContextualDataPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	limit := s.Limit
	if limit <= 0 {
		limit = 500
	}

	tasks, err := GetUserTasks(s.Client, s.UserID, limit)
	if err != nil {
		return nil, err
	}

	return []types.ContextualDataPoint{TaskStatsPoint(tasks, now)}, nil
}

// TaskStatsPoint computes open, overdue and completed counts as of now.
func TaskStatsPoint(tasks []types.Task, now time.Time) types.ContextualDataPoint {
	var open, overdue, completed, completedToday float64
	y, m, d := now.Date()
	for _, t := range tasks {
		switch {
		case t.IsCompleted():
			completed++
			if t.CompletedAt != nil {
				cy, cm, cd := t.CompletedAt.In(now.Location()).Date()
				if cy == y && cm == m && cd == d {
					completedToday++
				}
			}
		case t.Status != types.TaskStatusCancelled:
			open++
			if t.IsOverdue(now) {
				overdue++
			}
		}
	}

	metrics := map[string]float64{
		"open_tasks":      open,
		"overdue_tasks":   overdue,
		"completed_today": completedToday,
	}
	if total := open + completed; total > 0 {
		metrics["completion_rate"] = completed / total
	}

	return types.ContextualDataPoint{
		Kind:           types.KindProductivityMetrics,
		Category:       types.CategoryRealTime,
		Payload:        types.Payload{Metrics: metrics},
		Timestamp:      now,
		RelevanceScore: 0.6,
		Metadata: types.DataMetadata{
			CollectionMethod: types.CollectionInferred,
			Confidence:       0.9,
			DataSources:      []string{"tasks"},
		},
	}
}
