package llm

import (
	"clementus360/task-insights/types"
)

// Token estimation and context trimming
func EstimateTokens(text string) int {
	// Rough estimation: ~4 characters per token
	return len(text) / 4
}

// TrimContextForTokens drops the least useful context until the prompt fits maxTokens.
func TrimContextForTokens(ctx types.AnalysisContext, maxTokens int) types.AnalysisContext {
	trimmed := ctx
	trimmed.RecentActivity = append([]types.UserActivity(nil), ctx.RecentActivity...)
	trimmed.Trends = append([]types.Trend(nil), ctx.Trends...)

	descTrimmed := false
	for {
		system, user := BuildAnalysisPrompt(trimmed)
		if EstimateTokens(system+user) <= maxTokens {
			break
		}
		// Trim in priority order
		if len(trimmed.RecentActivity) > 3 {
			trimmed.RecentActivity = trimmed.RecentActivity[:len(trimmed.RecentActivity)-1]
		} else if len(trimmed.Trends) > 2 {
			trimmed.Trends = trimmed.Trends[:len(trimmed.Trends)-1]
		} else if !descTrimmed && len([]rune(trimmed.Task.Description)) > 200 {
			trimmed.Task.Description = string([]rune(trimmed.Task.Description)[:200]) + "..."
			descTrimmed = true
		} else {
			break // Can't trim further
		}
	}

	return trimmed
}
