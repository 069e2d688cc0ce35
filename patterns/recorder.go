// Package patterns records discrete behavioural events (task completions,
// work sessions, task creations) as contextual data points.
package patterns

import (
	"time"

	"clementus360/task-insights/config"
	"clementus360/task-insights/types"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	EventTaskCompletion = "task_completion"
	EventWorkSession    = "work_session"
	EventTaskCreation   = "task_creation"

	DefaultConfidence = 0.5
	source            = "pattern_recorder"
)

// Inserter writes points to the context store and reads back what it kept.
type Inserter interface {
	Insert(points ...types.ContextualDataPoint) int
	Get(id string) (types.ContextualDataPoint, bool)
}

// Event is one behavioural observation. Confidence overrides the default 0.5 when set.
type Event struct {
	Type       string
	TaskID     string
	At         time.Time
	Metrics    map[string]float64
	Labels     map[string]string
	Confidence *float64
	Relevance  float64
}

type Recorder struct {
	store Inserter
	now   func() time.Time
}

func NewRecorder(store Inserter, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{store: store, now: now}
}

// Record appends the event and returns the point as the store holds it.
func (r *Recorder) Record(ev Event) types.ContextualDataPoint {
	at := ev.At
	if at.IsZero() {
		at = r.now()
	}

	confidence := DefaultConfidence
	if ev.Confidence != nil {
		confidence = *ev.Confidence
	}

	relevance := ev.Relevance
	if relevance == 0 {
		relevance = 0.5
	}

	labels := map[string]string{"event": ev.Type}
	for k, v := range ev.Labels {
		labels[k] = v
	}
	if ev.TaskID != "" {
		labels["task_id"] = ev.TaskID
	}

	point := types.ContextualDataPoint{
		ID:             uuid.NewString(),
		Kind:           kindFor(ev.Type),
		Category:       types.CategoryRealTime,
		Payload:        types.Payload{Metrics: ev.Metrics, Labels: labels},
		Timestamp:      at,
		RelevanceScore: relevance,
		Source:         source,
		Metadata: types.DataMetadata{
			CollectionMethod: types.CollectionAutomatic,
			Confidence:       confidence,
			DataSources:      []string{ev.Type},
		},
	}

	r.store.Insert(point)
	if stored, ok := r.store.Get(point.ID); ok {
		point = stored
	}
	config.Logger.WithFields(logrus.Fields{
		"event":   ev.Type,
		"task_id": ev.TaskID,
		"kind":    point.Kind,
	}).Debug("Recorded pattern event")

	return point
}

// RecordTaskCompletion notes a finished task. took is the time from creation to completion.
func (r *Recorder) RecordTaskCompletion(taskID string, took time.Duration, overdue bool) types.ContextualDataPoint {
	at := r.now()
	metrics := map[string]float64{
		"completed":   1,
		"hour_of_day": float64(at.Hour()),
	}
	if took > 0 {
		metrics["cycle_time_hours"] = took.Hours()
	}
	if overdue {
		metrics["overdue_at_done"] = 1
	}
	return r.Record(Event{Type: EventTaskCompletion, TaskID: taskID, At: at, Metrics: metrics, Relevance: 0.7})
}

// RecordWorkSession notes a focused work session.
func (r *Recorder) RecordWorkSession(duration time.Duration, tasksTouched int) types.ContextualDataPoint {
	at := r.now()
	return r.Record(Event{
		Type: EventWorkSession,
		At:   at,
		Metrics: map[string]float64{
			"sessions":         1,
			"duration_minutes": duration.Minutes(),
			"tasks_touched":    float64(tasksTouched),
			"hour_of_day":      float64(at.Hour()),
		},
		Relevance: 0.6,
	})
}

func (r *Recorder) RecordTaskCreation(taskID string, aiSuggested bool) types.ContextualDataPoint {
	metrics := map[string]float64{"created": 1}
	if aiSuggested {
		metrics["ai_suggested"] = 1
	}
	return r.Record(Event{Type: EventTaskCreation, TaskID: taskID, Metrics: metrics})
}

func kindFor(eventType string) types.DataKind {
	if eventType == EventWorkSession {
		return types.KindUserBehavior
	}
	return types.KindTaskPatterns
}
