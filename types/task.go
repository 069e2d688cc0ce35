package types

import "time"

type Task struct {
	ID          string     `json:"id,omitempty"`
	UserID      string     `json:"user_id"`
	ProjectID   *string    `json:"project_id,omitempty"` // nullable
	ParentID    *string    `json:"parent_id,omitempty"`  // set on subtasks
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"` // pending | in_progress | completed | cancelled
	Priority    string     `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	AISuggested bool       `json:"ai_suggested"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusCancelled  = "cancelled"
)

func (t Task) IsCompleted() bool {
	return t.Status == TaskStatusCompleted
}

// IsOverdue reports whether the task has a due date before now and is still open.
func (t Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && !t.IsCompleted() && t.Status != TaskStatusCancelled
}

type ProjectSummary struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	TaskCount      int     `json:"task_count"`
	CompletedCount int     `json:"completed_count"`
	CompletionRate float64 `json:"completion_rate"`
}

// SubjectSnapshot is what a subject data provider returns for one task.
type SubjectSnapshot struct {
	Task           Task            `json:"task"`
	Subtasks       []Task          `json:"subtasks,omitempty"`
	Activities     []UserActivity  `json:"activities,omitempty"`
	BlockingCount  int             `json:"blocking_count"`
	DependentCount int             `json:"dependent_count"`
	Project        *ProjectSummary `json:"project,omitempty"`
}

// AnalysisContext is assembled for every analysis cycle and never mutated afterwards.
type AnalysisContext struct {
	Task              Task            `json:"task"`
	SubtaskCount      int             `json:"subtask_count"`
	SubtasksCompleted int             `json:"subtasks_completed"`
	CompletionRatio   float64         `json:"completion_ratio"`
	RecentActivity    []UserActivity  `json:"recent_activity"`
	BlockingCount     int             `json:"blocking_count"`
	DependentCount    int             `json:"dependent_count"`
	Project           *ProjectSummary `json:"project,omitempty"`
	Trends            []Trend         `json:"trends,omitempty"`
	BuiltAt           time.Time       `json:"built_at"`
}

// TaskDependency is a row of task_dependencies: TaskID cannot finish before DependsOnID.
type TaskDependency struct {
	TaskID      string `json:"task_id"`
	DependsOnID string `json:"depends_on_id"`
}

type Project struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// UserPatterns is the persisted snapshot of a user's latest aggregation.
type UserPatterns struct {
	UserID       string                         `json:"user_id"`
	Aggregations map[DataKind]AggregationResult `json:"aggregations"`
	Trends       []Trend                        `json:"trends"`
	UpdatedAt    time.Time                      `json:"updated_at"`
}
