package types

import "time"

// EngineConfig is the recognized configuration surface of the insights engine.
type EngineConfig struct {
	CollectUserBehavior        bool `json:"collect_user_behavior" koanf:"collect_user_behavior"`
	CollectTaskPatterns        bool `json:"collect_task_patterns" koanf:"collect_task_patterns"`
	CollectProductivityMetrics bool `json:"collect_productivity_metrics" koanf:"collect_productivity_metrics"`
	CollectEnvironmental       bool `json:"collect_environmental" koanf:"collect_environmental"`
	CollectTemporal            bool `json:"collect_temporal" koanf:"collect_temporal"`

	MaxDataPoints              int     `json:"max_data_points" koanf:"max_data_points"`
	RetentionHours             int     `json:"retention_hours" koanf:"retention_hours"`
	MinRelevanceScore          float64 `json:"min_relevance_score" koanf:"min_relevance_score"`
	CollectionIntervalMinutes  int     `json:"collection_interval_minutes" koanf:"collection_interval_minutes"`
	AggregationIntervalMinutes int     `json:"aggregation_interval_minutes" koanf:"aggregation_interval_minutes"`

	AnalysisTTL         time.Duration `json:"analysis_ttl" koanf:"analysis_ttl"`
	ContextTTL          time.Duration `json:"context_ttl" koanf:"context_ttl"`
	ManualTrigger       bool          `json:"manual_trigger" koanf:"manual_trigger"`
	Model               string        `json:"model" koanf:"model"`
	CallTimeout         time.Duration `json:"call_timeout" koanf:"call_timeout"`
	MaxRecentActivities int           `json:"max_recent_activities" koanf:"max_recent_activities"`
	MaxPromptTokens     int           `json:"max_prompt_tokens" koanf:"max_prompt_tokens"`
	ExtractionVerbs     []string      `json:"extraction_verbs" koanf:"extraction_verbs"`
}

// CollectionEnabled reports the per-kind collection toggle.
func (c EngineConfig) CollectionEnabled(kind DataKind) bool {
	switch kind {
	case KindUserBehavior:
		return c.CollectUserBehavior
	case KindTaskPatterns:
		return c.CollectTaskPatterns
	case KindProductivityMetrics:
		return c.CollectProductivityMetrics
	case KindEnvironmental:
		return c.CollectEnvironmental
	case KindTemporal:
		return c.CollectTemporal
	}
	return false
}
