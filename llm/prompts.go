package llm

import (
	"fmt"
	"strings"

	"clementus360/task-insights/types"
)

const analysisInstructions = `
You are a pragmatic project assistant. You look at one task, its progress, its dependencies and the owner's recent working patterns, and you tell them where it stands and what to do next.

Respond with a single JSON object and nothing else:
{
 "statusSummary": "One or two sentences on where the task stands",
 "nextSteps": "The most useful next step, concretely",
 "riskLevel": "low | medium | high",
 "alerts": ["Short warnings, only when something needs attention"],
 "insights": ["Observations drawn from the activity and trends"],
 "intelligentActions": [
 {
 "type": "create_subtask | create_reminder | draft_email",
 "label": "Short imperative label (max 50 characters)",
 "priority": "high | medium | low",
 "confidence": 0.0,
 "suggestedData": {},
 "basedOnPatterns": ["which signal suggested this"]
 }
 ]
}

Rules:
- riskLevel is high when the task is overdue, blocked, or stalled with dependents waiting.
- Suggest at most three intelligentActions, and only ones the owner can act on today.
- Do not include markdown, code fences or commentary outside the JSON.
`

// BuildAnalysisPrompt returns the system instruction and the user content for one analysis.
func BuildAnalysisPrompt(ctx types.AnalysisContext) (string, string) {
	sections := []string{}

	task := ctx.Task
	taskBlock := fmt.Sprintf("TASK:\n- Title: %s\n- Status: %s", task.Title, task.Status)
	if task.Priority != "" {
		taskBlock += fmt.Sprintf("\n- Priority: %s", task.Priority)
	}
	if task.DueDate != nil {
		due := task.DueDate.Format("Jan 2, 2006")
		if task.IsOverdue(ctx.BuiltAt) {
			due += " (OVERDUE)"
		}
		taskBlock += fmt.Sprintf("\n- Due: %s", due)
	}
	if task.Description != "" {
		taskBlock += fmt.Sprintf("\n- Description: %s", task.Description)
	}
	sections = append(sections, taskBlock)

	if ctx.SubtaskCount > 0 {
		sections = append(sections, fmt.Sprintf("PROGRESS:\n- %d of %d subtasks completed (%.0f%%)",
			ctx.SubtasksCompleted, ctx.SubtaskCount, ctx.CompletionRatio*100))
	}

	if ctx.BlockingCount > 0 || ctx.DependentCount > 0 {
		sections = append(sections, fmt.Sprintf("DEPENDENCIES:\n- Blocked by %d open task(s)\n- %d task(s) waiting on this one",
			ctx.BlockingCount, ctx.DependentCount))
	}

	if p := ctx.Project; p != nil {
		sections = append(sections, fmt.Sprintf("PROJECT:\n- %s: %d of %d tasks completed (%.0f%%)",
			p.Name, p.CompletedCount, p.TaskCount, p.CompletionRate*100))
	}

	if len(ctx.RecentActivity) > 0 {
		activity := "RECENT ACTIVITY:\n"
		for _, a := range ctx.RecentActivity {
			activity += fmt.Sprintf("- %s %s: %s\n", a.CreatedAt.Format("Jan 2 15:04"), a.ActivityType, a.Content)
		}
		sections = append(sections, strings.TrimRight(activity, "\n"))
	}

	if len(ctx.Trends) > 0 {
		trends := "WORKING PATTERNS:\n"
		for _, t := range ctx.Trends {
			trends += fmt.Sprintf("- %s is %s (%+.0f%% over %.0fh, confidence %.1f)\n",
				t.Metric, t.Direction, t.Magnitude, t.TimespanHours, t.Confidence)
		}
		sections = append(sections, strings.TrimRight(trends, "\n"))
	}

	return strings.TrimSpace(analysisInstructions), strings.Join(sections, "\n\n")
}
