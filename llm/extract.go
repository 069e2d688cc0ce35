package llm

import (
	"fmt"
	"regexp"
	"strings"

	"clementus360/task-insights/types"

	"github.com/google/uuid"
)

const (
	DefaultMaxExtractedActions = 2
	ExtractedActionConfidence  = 0.6
	MaxLabelLength             = 50
)

// DefaultExtractionVerbs are the imperative verbs recognised in free text.
var DefaultExtractionVerbs = []string{"create", "review", "contact", "plan", "complete"}

type ExtractionConfig struct {
	Verbs      []string
	MaxActions int
}

// Extractor is the last-resort tier: it pulls imperative phrases out of text
// that no repair step could parse.
type Extractor struct {
	regex      *regexp.Regexp
	maxActions int
}

func NewExtractor(cfg ExtractionConfig) *Extractor {
	quoted := quoteVerbs(cfg.Verbs)
	if len(quoted) == 0 {
		quoted = quoteVerbs(DefaultExtractionVerbs)
	}

	// MaxActions can lower the cap, never raise it.
	maxActions := min(cfg.MaxActions, DefaultMaxExtractedActions)
	if maxActions <= 0 {
		maxActions = DefaultMaxExtractedActions
	}

	return &Extractor{
		regex:      regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b[ \t]+([^\n.!?;]{2,})`),
		maxActions: maxActions,
	}
}

// Extract never fails; text without a recognised verb yields an empty list.
func (e *Extractor) Extract(text string) []types.IntelligentAction {
	actions := []types.IntelligentAction{}
	for i, m := range e.regex.FindAllStringSubmatch(text, e.maxActions) {
		phrase := strings.TrimSpace(m[1] + " " + strings.TrimSpace(m[2]))
		priority := types.PriorityHigh
		if i%2 == 1 {
			priority = types.PriorityMedium
		}
		actions = append(actions, types.IntelligentAction{
			ID:         uuid.NewString(),
			Type:       types.ActionCreateSubtask,
			Label:      truncateLabel(phrase),
			Priority:   priority,
			Confidence: ExtractedActionConfidence,
			SuggestedData: map[string]any{
				"title":  phrase,
				"source": "text_extraction",
			},
			BasedOnPatterns: []string{fmt.Sprintf("text_extraction_pattern_%d", i+1)},
		})
	}
	return actions
}

func quoteVerbs(verbs []string) []string {
	quoted := make([]string, 0, len(verbs))
	for _, v := range verbs {
		if v = strings.TrimSpace(v); v != "" {
			quoted = append(quoted, regexp.QuoteMeta(v))
		}
	}
	return quoted
}

// truncateLabel keeps labels within MaxLabelLength runes.
func truncateLabel(label string) string {
	label = strings.TrimSpace(label)
	runes := []rune(label)
	if len(runes) <= MaxLabelLength {
		return label
	}
	return strings.TrimSpace(string(runes[:MaxLabelLength-3])) + "..."
}
