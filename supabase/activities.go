package supabase

import (
	"encoding/json"
	"fmt"
	"time"

	"clementus360/task-insights/types"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

// TrackUserActivity stores one activity row; metadata is kept as a JSON string.
func TrackUserActivity(client *supabase.Client, userID, taskID, activityType, content string, metadata types.ActivityMetadata) error {
	metadataJSON, _ := json.Marshal(metadata)

	activity := types.UserActivity{
		UserID:       userID,
		TaskID:       taskID,
		ActivityType: activityType,
		Content:      content,
		Metadata:     string(metadataJSON),
		CreatedAt:    time.Now(),
	}

	_, _, err := client.From("user_activities").Insert(activity, false, "", "", "").Execute()
	if err != nil {
		return fmt.Errorf("failed to track user activity: %w", err)
	}

	return nil
}

// Get user activities for analysis
func GetUserActivities(client *supabase.Client, userID string, since time.Time, limit int) ([]types.UserActivity, error) {
	resp, _, err := client.From("user_activities").
		Select("*", "", false).
		Eq("user_id", userID).
		Gte("created_at", since.Format(time.RFC3339)).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "").
		Execute()

	if err != nil {
		return nil, fmt.Errorf("failed to fetch user activities: %w", err)
	}

	var activities []types.UserActivity
	if err := json.Unmarshal(resp, &activities); err != nil {
		return nil, fmt.Errorf("failed to unmarshal activities: %w", err)
	}

	return activities, nil
}

// GetTaskActivities returns the latest activity recorded against one task.
func GetTaskActivities(client *supabase.Client, userID, taskID string, limit int) ([]types.UserActivity, error) {
	resp, _, err := client.From("user_activities").
		Select("*", "", false).
		Eq("user_id", userID).
		Eq("task_id", taskID).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "").
		Execute()

	if err != nil {
		return nil, fmt.Errorf("failed to fetch task activities: %w", err)
	}

	var activities []types.UserActivity
	if err := json.Unmarshal(resp, &activities); err != nil {
		return nil, fmt.Errorf("failed to unmarshal activities: %w", err)
	}

	return activities, nil
}
