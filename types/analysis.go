package types

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

type ActionType string

const (
	ActionCreateSubtask  ActionType = "create_subtask"
	ActionCreateReminder ActionType = "create_reminder"
	ActionDraftEmail     ActionType = "draft_email"
)

func (a ActionType) Valid() bool {
	switch a {
	case ActionCreateSubtask, ActionCreateReminder, ActionDraftEmail:
		return true
	}
	return false
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

type IntelligentAction struct {
	ID              string         `json:"id"`
	Type            ActionType     `json:"type"`
	Label           string         `json:"label"`
	Priority        Priority       `json:"priority"`
	Confidence      float64        `json:"confidence"`
	SuggestedData   map[string]any `json:"suggested_data,omitempty"`
	BasedOnPatterns []string       `json:"based_on_patterns"`
}

type AnalysisResult struct {
	StatusSummary      string              `json:"status_summary"`
	NextSteps          string              `json:"next_steps"`
	Alerts             []string            `json:"alerts,omitempty"`
	Insights           []string            `json:"insights,omitempty"`
	RiskLevel          RiskLevel           `json:"risk_level"`
	IntelligentActions []IntelligentAction `json:"intelligent_actions"`
}
