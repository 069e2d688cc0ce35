package supabase

import (
	"encoding/json"
	"fmt"

	"clementus360/task-insights/analysis"
	"clementus360/task-insights/types"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

// GetTask returns the user's task or an error wrapping analysis.ErrSubjectNotFound.
func GetTask(client *supabase.Client, userID, taskID string) (types.Task, error) {
	resp, _, err := client.From("tasks").
		Select("*", "", false).
		Eq("id", taskID).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return types.Task{}, fmt.Errorf("failed to fetch task: %w", err)
	}

	var tasks []types.Task
	if err := json.Unmarshal(resp, &tasks); err != nil {
		return types.Task{}, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	if len(tasks) == 0 {
		return types.Task{}, fmt.Errorf("task %s: %w", taskID, analysis.ErrSubjectNotFound)
	}

	return tasks[0], nil
}

func GetSubtasks(client *supabase.Client, userID, parentID string) ([]types.Task, error) {
	resp, _, err := client.From("tasks").
		Select("*", "", false).
		Eq("parent_id", parentID).
		Eq("user_id", userID).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subtasks: %w", err)
	}

	var tasks []types.Task
	if err := json.Unmarshal(resp, &tasks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subtasks: %w", err)
	}
	return tasks, nil
}

// GetUserTasks returns up to limit of the user's tasks, newest first.
func GetUserTasks(client *supabase.Client, userID string, limit int) ([]types.Task, error) {
	resp, _, err := client.From("tasks").
		Select("*", "", false).
		Eq("user_id", userID).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}

	var tasks []types.Task
	if err := json.Unmarshal(resp, &tasks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tasks: %w", err)
	}
	return tasks, nil
}

// CountDependencies returns how many unfinished tasks block taskID and how
// many tasks wait on it.
func CountDependencies(client *supabase.Client, taskID string) (blocking, dependent int, err error) {
	blockers, err := getDependencies(client, "task_id", taskID)
	if err != nil {
		return 0, 0, err
	}
	dependents, err := getDependencies(client, "depends_on_id", taskID)
	if err != nil {
		return 0, 0, err
	}

	if len(blockers) > 0 {
		ids := make([]string, 0, len(blockers))
		for _, d := range blockers {
			ids = append(ids, d.DependsOnID)
		}

		resp, _, err := client.From("tasks").
			Select("id,status", "", false).
			In("id", ids).
			Execute()
		if err != nil {
			return 0, 0, fmt.Errorf("failed to fetch blocking tasks: %w", err)
		}

		var tasks []types.Task
		if err := json.Unmarshal(resp, &tasks); err != nil {
			return 0, 0, fmt.Errorf("failed to unmarshal blocking tasks: %w", err)
		}
		for _, t := range tasks {
			if !t.IsCompleted() && t.Status != types.TaskStatusCancelled {
				blocking++
			}
		}
	}

	return blocking, len(dependents), nil
}

func getDependencies(client *supabase.Client, column, taskID string) ([]types.TaskDependency, error) {
	resp, _, err := client.From("task_dependencies").
		Select("*", "", false).
		Eq(column, taskID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch task dependencies: %w", err)
	}

	var deps []types.TaskDependency
	if err := json.Unmarshal(resp, &deps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task dependencies: %w", err)
	}
	return deps, nil
}

// GetProjectSummary returns the project with its task completion counts, or
// nil when the project does not exist.
func GetProjectSummary(client *supabase.Client, userID, projectID string) (*types.ProjectSummary, error) {
	resp, _, err := client.From("projects").
		Select("*", "", false).
		Eq("id", projectID).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch project: %w", err)
	}

	var projects []types.Project
	if err := json.Unmarshal(resp, &projects); err != nil {
		return nil, fmt.Errorf("failed to unmarshal project: %w", err)
	}
	if len(projects) == 0 {
		return nil, nil
	}

	resp, _, err = client.From("tasks").
		Select("id,status", "", false).
		Eq("project_id", projectID).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch project tasks: %w", err)
	}

	var tasks []types.Task
	if err := json.Unmarshal(resp, &tasks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal project tasks: %w", err)
	}

	summary := &types.ProjectSummary{ID: projects[0].ID, Name: projects[0].Name, TaskCount: len(tasks)}
	for _, t := range tasks {
		if t.IsCompleted() {
			summary.CompletedCount++
		}
	}
	if summary.TaskCount > 0 {
		summary.CompletionRate = float64(summary.CompletedCount) / float64(summary.TaskCount)
	}
	return summary, nil
}
