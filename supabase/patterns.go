package supabase

import (
	"encoding/json"
	"fmt"
	"time"

	"clementus360/task-insights/types"

	"github.com/supabase-community/supabase-go"
)

// Get the user's last persisted aggregation snapshot
func GetUserPatterns(client *supabase.Client, userID string) (types.UserPatterns, error) {
	resp, _, err := client.From("user_patterns").
		Select("*", "", false).
		Eq("user_id", userID).
		Execute()

	if err != nil {
		return types.UserPatterns{}, fmt.Errorf("failed to fetch user patterns: %w", err)
	}

	var patterns []types.UserPatterns
	if err := json.Unmarshal(resp, &patterns); err != nil {
		return types.UserPatterns{}, fmt.Errorf("failed to unmarshal patterns: %w", err)
	}

	if len(patterns) > 0 {
		return patterns[0], nil
	}

	return types.UserPatterns{UserID: userID}, nil
}

// SaveUserPatterns upserts the latest aggregation and its trends.
func SaveUserPatterns(client *supabase.Client, userID string, results map[types.DataKind]types.AggregationResult) error {
	patterns := types.UserPatterns{
		UserID:       userID,
		Aggregations: results,
		UpdatedAt:    time.Now(),
	}
	for _, kind := range types.AllKinds {
		patterns.Trends = append(patterns.Trends, results[kind].Trends...)
	}

	_, _, err := client.From("user_patterns").
		Upsert(patterns, "user_id", "", "").
		Execute()

	if err != nil {
		return fmt.Errorf("failed to save user patterns: %w", err)
	}

	return nil
}
