package supabase

import (
	"context"

	"clementus360/task-insights/config"
	"clementus360/task-insights/types"

	"github.com/sirupsen/logrus"
	"github.com/supabase-community/supabase-go"
)

const defaultActivityLimit = 20

// SubjectProvider loads task snapshots for one user.
type SubjectProvider struct {
	client        *supabase.Client
	userID        string
	activityLimit int
}

func NewSubjectProvider(client *supabase.Client, userID string, activityLimit int) *SubjectProvider {
	if activityLimit <= 0 {
		activityLimit = defaultActivityLimit
	}
	return &SubjectProvider{client: client, userID: userID, activityLimit: activityLimit}
}

// GetSubject fails when the task, its subtasks or its dependencies cannot be
// read. Activity and project data are optional and only logged when missing.
func (p *SubjectProvider) GetSubject(ctx context.Context, taskID string) (types.SubjectSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return types.SubjectSnapshot{}, err
	}

	task, err := GetTask(p.client, p.userID, taskID)
	if err != nil {
		return types.SubjectSnapshot{}, err
	}
	snap := types.SubjectSnapshot{Task: task}

	if snap.Subtasks, err = GetSubtasks(p.client, p.userID, taskID); err != nil {
		return types.SubjectSnapshot{}, err
	}
	if snap.BlockingCount, snap.DependentCount, err = CountDependencies(p.client, taskID); err != nil {
		return types.SubjectSnapshot{}, err
	}

	log := config.Logger.WithFields(logrus.Fields{"user_id": p.userID, "task_id": taskID})

	activities, err := GetTaskActivities(p.client, p.userID, taskID, p.activityLimit)
	if err != nil {
		log.Warn("Could not fetch task activities:", err)
	}
	snap.Activities = activities

	if task.ProjectID != nil && *task.ProjectID != "" {
		project, err := GetProjectSummary(p.client, p.userID, *task.ProjectID)
		if err != nil {
			log.Warn("Could not fetch project summary:", err)
		}
		snap.Project = project
	}

	return snap, nil
}
