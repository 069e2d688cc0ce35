package llm

import (
	"strings"
	"testing"

	"clementus360/task-insights/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAndComplete_EmptyObject(t *testing.T) {
	res := ValidateAndComplete(map[string]any{}, DefaultPlaceholders)

	assert.Equal(t, types.RiskLow, res.RiskLevel)
	assert.NotEmpty(t, res.StatusSummary)
	assert.NotEmpty(t, res.NextSteps)
	assert.NotNil(t, res.IntelligentActions)
	assert.Empty(t, res.IntelligentActions)
	assert.Nil(t, res.Alerts)
	assert.Nil(t, res.Insights)
}

func TestValidateAndComplete_NilAndWrongTypes(t *testing.T) {
	assert.NotPanics(t, func() {
		res := ValidateAndComplete(nil, Placeholders{})
		assert.Equal(t, DefaultPlaceholders.StatusSummary, res.StatusSummary)
	})

	res := ValidateAndComplete(map[string]any{
		"statusSummary":      42.0,
		"nextSteps":          "   ",
		"riskLevel":          "catastrophic",
		"intelligentActions": "not a list",
	}, DefaultPlaceholders)

	assert.Equal(t, DefaultPlaceholders.StatusSummary, res.StatusSummary)
	assert.Equal(t, DefaultPlaceholders.NextSteps, res.NextSteps)
	assert.Equal(t, types.RiskLow, res.RiskLevel)
	assert.Empty(t, res.IntelligentActions)
}

func TestValidateAndComplete_KeepsValidFields(t *testing.T) {
	res := ValidateAndComplete(map[string]any{
		"statusSummary": "On track",
		"next_steps":    "Ship it",
		"riskLevel":     "HIGH",
		"alerts":        "Due tomorrow",
		"insights":      []any{"Mornings are productive", map[string]any{"message": "Velocity up"}, nil},
		"intelligentActions": []any{
			map[string]any{
				"id":              "a1",
				"type":            "draft_email",
				"label":           "Email the client about the revised scope and the new timeline",
				"priority":        "low",
				"confidence":      1.7,
				"suggestedData":   map[string]any{"to": "client"},
				"basedOnPatterns": []any{"overdue", 3.0},
			},
			map[string]any{"title": "Fallback title", "type": "teleport"},
			map[string]any{"type": "create_reminder"},
			"junk",
		},
	}, DefaultPlaceholders)

	assert.Equal(t, "On track", res.StatusSummary)
	assert.Equal(t, "Ship it", res.NextSteps)
	assert.Equal(t, types.RiskHigh, res.RiskLevel)
	assert.Equal(t, []string{"Due tomorrow"}, res.Alerts)
	assert.Equal(t, []string{"Mornings are productive", "Velocity up"}, res.Insights)

	require.Len(t, res.IntelligentActions, 2)
	first := res.IntelligentActions[0]
	assert.Equal(t, "a1", first.ID)
	assert.Equal(t, types.ActionDraftEmail, first.Type)
	assert.LessOrEqual(t, len([]rune(first.Label)), MaxLabelLength)
	assert.True(t, strings.HasSuffix(first.Label, "..."))
	assert.Equal(t, types.PriorityLow, first.Priority)
	assert.Equal(t, 1.0, first.Confidence)
	assert.Equal(t, map[string]any{"to": "client"}, first.SuggestedData)
	assert.Equal(t, []string{"overdue"}, first.BasedOnPatterns)

	second := res.IntelligentActions[1]
	assert.NotEmpty(t, second.ID)
	assert.Equal(t, types.ActionCreateSubtask, second.Type)
	assert.Equal(t, "Fallback title", second.Label)
	assert.Equal(t, types.PriorityMedium, second.Priority)
}

func TestCreateFallbackResponse(t *testing.T) {
	res := CreateFallbackResponse("Write report")

	assert.Equal(t, types.RiskMedium, res.RiskLevel)
	assert.Contains(t, res.StatusSummary, "Write report")
	assert.NotEmpty(t, res.NextSteps)
	assert.NotNil(t, res.IntelligentActions)
	assert.Empty(t, res.IntelligentActions)

	assert.Contains(t, CreateFallbackResponse("").StatusSummary, "this task")
}

func TestExtractor_SynthesizesAtMostTwoActions(t *testing.T) {
	text := "You should review the budget draft. Then contact the vendor about pricing! Finally plan the launch."
	actions := NewExtractor(ExtractionConfig{}).Extract(text)

	require.Len(t, actions, 2)
	assert.Equal(t, "review the budget draft", actions[0].Label)
	assert.Equal(t, types.PriorityHigh, actions[0].Priority)
	assert.Equal(t, []string{"text_extraction_pattern_1"}, actions[0].BasedOnPatterns)

	assert.Equal(t, "contact the vendor about pricing", actions[1].Label)
	assert.Equal(t, types.PriorityMedium, actions[1].Priority)
	assert.Equal(t, []string{"text_extraction_pattern_2"}, actions[1].BasedOnPatterns)

	for _, a := range actions {
		assert.Equal(t, types.ActionCreateSubtask, a.Type)
		assert.Equal(t, ExtractedActionConfidence, a.Confidence)
		assert.NotEmpty(t, a.ID)
	}
}

func TestExtractor_ConfigurableVerbs(t *testing.T) {
	ex := NewExtractor(ExtractionConfig{Verbs: []string{"revisar"}, MaxActions: 1})

	actions := ex.Extract("Hay que revisar el presupuesto. Create nothing here.")
	require.Len(t, actions, 1)
	assert.Equal(t, "revisar el presupuesto", actions[0].Label)

	assert.Empty(t, ex.Extract("nothing to do"))
}

func TestExtractor_MaxActionsCannotExceedTwo(t *testing.T) {
	text := "Review the budget. Contact the vendor. Plan the launch. Create the deck. Complete the form."
	actions := NewExtractor(ExtractionConfig{MaxActions: 5}).Extract(text)

	assert.Len(t, actions, DefaultMaxExtractedActions)
}

func TestExtractor_TruncatesLongLabels(t *testing.T) {
	text := "Please create a very detailed migration checklist covering every service we still run on the old cluster"
	actions := NewExtractor(ExtractionConfig{}).Extract(text)

	require.Len(t, actions, 1)
	assert.Len(t, []rune(actions[0].Label), MaxLabelLength)
	assert.Contains(t, actions[0].SuggestedData["title"], "old cluster")
}
