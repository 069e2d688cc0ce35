package config

import (
	"time"

	"clementus360/task-insights/types"
)

// DefaultEngineConfig holds the engine defaults; every collector is enabled.
var DefaultEngineConfig = types.EngineConfig{
	CollectUserBehavior:        true,
	CollectTaskPatterns:        true,
	CollectProductivityMetrics: true,
	CollectEnvironmental:       true,
	CollectTemporal:            true,
	MaxDataPoints:              500,
	RetentionHours:             168,
	MinRelevanceScore:          0.1,
	CollectionIntervalMinutes:  5,
	AggregationIntervalMinutes: 15,
	AnalysisTTL:                10 * time.Minute,
	ContextTTL:                 3 * time.Minute,
	ManualTrigger:              false,
	Model:                      "gemini",
	CallTimeout:                30 * time.Second,
	MaxRecentActivities:        10,
	MaxPromptTokens:            6000,
	ExtractionVerbs:            []string{"create", "review", "contact", "plan", "complete"},
}

// ApplyDefaults fills zero or out-of-range values from DefaultEngineConfig.
func ApplyDefaults(cfg *types.EngineConfig) {
	d := DefaultEngineConfig
	if cfg.MaxDataPoints <= 0 {
		cfg.MaxDataPoints = d.MaxDataPoints
	}
	if cfg.RetentionHours < 0 {
		cfg.RetentionHours = d.RetentionHours
	}
	if cfg.MinRelevanceScore < 0 || cfg.MinRelevanceScore > 1 {
		cfg.MinRelevanceScore = d.MinRelevanceScore
	}
	if cfg.CollectionIntervalMinutes <= 0 {
		cfg.CollectionIntervalMinutes = d.CollectionIntervalMinutes
	}
	if cfg.AggregationIntervalMinutes <= 0 {
		cfg.AggregationIntervalMinutes = d.AggregationIntervalMinutes
	}
	if cfg.AnalysisTTL <= 0 {
		cfg.AnalysisTTL = d.AnalysisTTL
	}
	if cfg.ContextTTL <= 0 {
		cfg.ContextTTL = d.ContextTTL
	}
	if cfg.Model == "" {
		cfg.Model = d.Model
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = d.CallTimeout
	}
	if cfg.MaxRecentActivities <= 0 {
		cfg.MaxRecentActivities = d.MaxRecentActivities
	}
	if cfg.MaxPromptTokens <= 0 {
		cfg.MaxPromptTokens = d.MaxPromptTokens
	}
	if len(cfg.ExtractionVerbs) == 0 {
		cfg.ExtractionVerbs = append([]string(nil), d.ExtractionVerbs...)
	}
}

// Activity types recorded in user_activities and by the pattern recorder
const (
	ActivityTypeTaskCreated   = "task_created"
	ActivityTypeTaskCompleted = "task_completed"
	ActivityTypeWorkSession   = "work_session"
	ActivityTypeAIResponse    = "ai_response"
)
