package types

import "time"

// DataKind identifies what a contextual data point observes.
type DataKind string

const (
	KindUserBehavior        DataKind = "user_behavior"
	KindTaskPatterns        DataKind = "task_patterns"
	KindProductivityMetrics DataKind = "productivity_metrics"
	KindEnvironmental       DataKind = "environmental"
	KindTemporal            DataKind = "temporal"
)

// AllKinds lists every data kind in a stable order.
var AllKinds = []DataKind{
	KindUserBehavior,
	KindTaskPatterns,
	KindProductivityMetrics,
	KindEnvironmental,
	KindTemporal,
}

type Category string

const (
	CategoryRealTime   Category = "real_time"
	CategoryHistorical Category = "historical"
	CategoryPredictive Category = "predictive"
)

type CollectionMethod string

const (
	CollectionAutomatic CollectionMethod = "automatic"
	CollectionManual    CollectionMethod = "manual"
	CollectionInferred  CollectionMethod = "inferred"
)

// Payload carries the observation itself. Metrics are the numeric fields the
// aggregation engine understands; Labels is free-form provenance.
type Payload struct {
	Metrics map[string]float64 `json:"metrics,omitempty"`
	Labels  map[string]string  `json:"labels,omitempty"`
}

type DataMetadata struct {
	CollectionMethod CollectionMethod `json:"collection_method"`
	Confidence       float64          `json:"confidence"`
	DataSources      []string         `json:"data_sources"`
	ProcessingTimeMs *int64           `json:"processing_time_ms,omitempty"`
}

// ContextualDataPoint is a single bounded observation held by the context store.
type ContextualDataPoint struct {
	ID             string       `json:"id"`
	Kind           DataKind     `json:"kind"`
	Category       Category     `json:"category"`
	Payload        Payload      `json:"payload"`
	Timestamp      time.Time    `json:"timestamp"`
	RelevanceScore float64      `json:"relevance_score"`
	ExpiresAt      *time.Time   `json:"expires_at,omitempty"`
	Source         string       `json:"source"`
	Metadata       DataMetadata `json:"metadata"`
}

type SortField string

const (
	SortByTimestamp SortField = "timestamp"
	SortByRelevance SortField = "relevance"
)

// QueryFilter selects data points from the store. Zero values mean "no constraint".
type QueryFilter struct {
	Kinds        []DataKind `json:"kinds,omitempty"`
	Categories   []Category `json:"categories,omitempty"`
	Range        *TimeRange `json:"range,omitempty"`
	MinRelevance float64    `json:"min_relevance,omitempty"`
	SortBy       SortField  `json:"sort_by,omitempty"`
	Limit        int        `json:"limit,omitempty"`
}

// ActivityMetadata mirrors the JSON blob stored alongside user activities.
type ActivityMetadata struct {
	TaskCount        int       `json:"task_count,omitempty"`
	AIsuggested      bool      `json:"ai_suggested,omitempty"`
	CompletionTime   time.Time `json:"completion_time,omitempty"`
	ResponseLength   int       `json:"response_length,omitempty"`
	ActionItemsCount int       `json:"action_items_count,omitempty"`
	DurationMinutes  float64   `json:"duration_minutes,omitempty"`
}

type UserActivity struct {
	ID           string    `json:"id,omitempty"`
	UserID       string    `json:"user_id"`
	TaskID       string    `json:"task_id,omitempty"`
	ActivityType string    `json:"activity_type"` // "task_created", "task_updated", "task_completed", "work_session", ...
	Content      string    `json:"content"`
	Metadata     string    `json:"metadata,omitempty"` // JSON string for additional context
	CreatedAt    time.Time `json:"created_at"`
}
