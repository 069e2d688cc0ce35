package types

import "time"

type ErrorResponse struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message"`
}

type AnalysisResponse struct {
	Success    bool           `json:"success"`
	TaskID     string         `json:"task_id"`
	Analysis   AnalysisResult `json:"analysis"`
	Tier       string         `json:"tier,omitempty"`
	Generation uint64         `json:"generation"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty"`
}

type AnalysisStateResponse struct {
	Success    bool       `json:"success"`
	TaskID     string     `json:"task_id"`
	State      string     `json:"state"`
	Generation uint64     `json:"generation"`
	Tier       string     `json:"tier,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

type ClearAnalysisResponse struct {
	Success    bool   `json:"success"`
	TaskID     string `json:"task_id"`
	Generation uint64 `json:"generation"`
}

type TriggerResponse struct {
	Success   bool   `json:"success"`
	TaskID    string `json:"task_id"`
	Triggered bool   `json:"triggered"`
}

type CollectRequest struct {
	TaskID string `json:"task_id,omitempty"`
}

type CollectResponse struct {
	Success   bool `json:"success"`
	Collected int  `json:"collected"`
	StoreSize int  `json:"store_size"`
}

type ContextResponse struct {
	Success    bool                  `json:"success"`
	DataPoints []ContextualDataPoint `json:"data_points"`
	Total      int                   `json:"total"`
}

type AggregationResponse struct {
	Success      bool                           `json:"success"`
	Aggregations map[DataKind]AggregationResult `json:"aggregations"`
}

type TaskCompletionRequest struct {
	TaskID          string  `json:"task_id"`
	DurationMinutes float64 `json:"duration_minutes,omitempty"`
	Overdue         bool    `json:"overdue,omitempty"`
}

type WorkSessionRequest struct {
	DurationMinutes float64 `json:"duration_minutes"`
	TasksTouched    int     `json:"tasks_touched"`
}

type TaskCreationRequest struct {
	TaskID      string `json:"task_id"`
	AISuggested bool   `json:"ai_suggested,omitempty"`
}

type PatternResponse struct {
	Success   bool                `json:"success"`
	DataPoint ContextualDataPoint `json:"data_point"`
}
