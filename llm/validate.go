package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"clementus360/task-insights/types"

	"github.com/google/uuid"
)

// Placeholders is the text used when a reply leaves a required field empty.
type Placeholders struct {
	StatusSummary string
	NextSteps     string
	// FallbackSummary is a format string receiving the subject label.
	FallbackSummary   string
	FallbackNextSteps string
}

var DefaultPlaceholders = Placeholders{
	StatusSummary:     "No status summary is available for this task yet.",
	NextSteps:         "Review the task and decide on the next concrete step.",
	FallbackSummary:   "The assistant could not analyse \"%s\" right now.",
	FallbackNextSteps: "Try the analysis again in a few minutes.",
}

// ValidateAndComplete coerces whatever the reply parsed into a fully typed
// result. It is total: every input, including nil, yields a usable value.
func ValidateAndComplete(candidate map[string]any, ph Placeholders) types.AnalysisResult {
	ph = ph.withDefaults()
	result := types.AnalysisResult{
		StatusSummary:      ph.StatusSummary,
		NextSteps:          ph.NextSteps,
		RiskLevel:          types.RiskLow,
		IntelligentActions: []types.IntelligentAction{},
	}

	if s, ok := field(candidate, "statusSummary", "status_summary").(string); ok && strings.TrimSpace(s) != "" {
		result.StatusSummary = s
	}
	if s, ok := field(candidate, "nextSteps", "next_steps").(string); ok && strings.TrimSpace(s) != "" {
		result.NextSteps = s
	}
	if s, ok := field(candidate, "riskLevel", "risk_level").(string); ok {
		if level := types.RiskLevel(strings.ToLower(strings.TrimSpace(s))); level.Valid() {
			result.RiskLevel = level
		}
	}
	if items, ok := field(candidate, "intelligentActions", "intelligent_actions").([]any); ok {
		for _, item := range items {
			if action, ok := normalizeAction(item); ok {
				result.IntelligentActions = append(result.IntelligentActions, action)
			}
		}
	}
	result.Alerts = stringList(field(candidate, "alerts"))
	result.Insights = stringList(field(candidate, "insights"))

	return result
}

// CreateFallbackResponse is returned when the text generator itself failed.
func CreateFallbackResponse(subjectLabel string) types.AnalysisResult {
	return DefaultPlaceholders.Fallback(subjectLabel)
}

func (ph Placeholders) Fallback(subjectLabel string) types.AnalysisResult {
	ph = ph.withDefaults()
	if strings.TrimSpace(subjectLabel) == "" {
		subjectLabel = "this task"
	}
	return types.AnalysisResult{
		StatusSummary:      fmt.Sprintf(ph.FallbackSummary, subjectLabel),
		NextSteps:          ph.FallbackNextSteps,
		RiskLevel:          types.RiskMedium,
		IntelligentActions: []types.IntelligentAction{},
	}
}

func (ph Placeholders) withDefaults() Placeholders {
	if strings.TrimSpace(ph.StatusSummary) == "" {
		ph.StatusSummary = DefaultPlaceholders.StatusSummary
	}
	if strings.TrimSpace(ph.NextSteps) == "" {
		ph.NextSteps = DefaultPlaceholders.NextSteps
	}
	if !strings.Contains(ph.FallbackSummary, "%s") {
		ph.FallbackSummary = DefaultPlaceholders.FallbackSummary
	}
	if strings.TrimSpace(ph.FallbackNextSteps) == "" {
		ph.FallbackNextSteps = DefaultPlaceholders.FallbackNextSteps
	}
	return ph
}

func field(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func normalizeAction(item any) (types.IntelligentAction, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		return types.IntelligentAction{}, false
	}

	label, _ := field(m, "label", "title").(string)
	if strings.TrimSpace(label) == "" {
		return types.IntelligentAction{}, false
	}

	action := types.IntelligentAction{
		Type:            types.ActionCreateSubtask,
		Label:           truncateLabel(label),
		Priority:        types.PriorityMedium,
		Confidence:      0.5,
		BasedOnPatterns: []string{},
	}

	if id, ok := m["id"].(string); ok && id != "" {
		action.ID = id
	} else {
		action.ID = uuid.NewString()
	}
	if t, ok := m["type"].(string); ok && types.ActionType(t).Valid() {
		action.Type = types.ActionType(t)
	}
	if p, ok := m["priority"].(string); ok && types.Priority(strings.ToLower(p)).Valid() {
		action.Priority = types.Priority(strings.ToLower(p))
	}
	if c, ok := m["confidence"].(float64); ok && !math.IsNaN(c) {
		action.Confidence = math.Max(0, math.Min(1, c))
	}
	if data, ok := field(m, "suggestedData", "suggested_data").(map[string]any); ok {
		action.SuggestedData = data
	}
	for _, p := range asSlice(field(m, "basedOnPatterns", "based_on_patterns")) {
		if s, ok := p.(string); ok && s != "" {
			action.BasedOnPatterns = append(action.BasedOnPatterns, s)
		}
	}

	return action, true
}

// stringList accepts a string, a list of strings or a list of objects.
func stringList(v any) []string {
	var out []string
	switch val := v.(type) {
	case string:
		if strings.TrimSpace(val) != "" {
			out = append(out, val)
		}
	case []any:
		for _, item := range val {
			switch it := item.(type) {
			case string:
				if strings.TrimSpace(it) != "" {
					out = append(out, it)
				}
			case map[string]any:
				if msg, ok := field(it, "message", "text", "title").(string); ok && msg != "" {
					out = append(out, msg)
				} else if b, err := json.Marshal(it); err == nil {
					out = append(out, string(b))
				}
			case nil:
			default:
				out = append(out, fmt.Sprint(it))
			}
		}
	}
	return out
}

func asSlice(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	return nil
}
