package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates the task is being worked on.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted indicates the task completed successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is a terminal state.
// A task never leaves a terminal state.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// TaskPriority is the scheduling priority of a task. Higher sorts first.
type TaskPriority int

const (
	// PriorityLow is for work that can wait.
	PriorityLow TaskPriority = 1
	// PriorityMedium is the default priority.
	PriorityMedium TaskPriority = 2
	// PriorityHigh is for work that should run ahead of the default.
	PriorityHigh TaskPriority = 3
	// PriorityCritical is for work that must run as soon as possible.
	PriorityCritical TaskPriority = 4
)

// String returns the human-readable name of the priority.
func (p TaskPriority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Valid returns true if the priority is a known value.
func (p TaskPriority) Valid() bool {
	return p >= PriorityLow && p <= PriorityCritical
}

// Task represents a unit of work in the swarm.
// Identity is immutable; status, result and progress mutate as the task
// moves through the scheduler.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// Description is the human-readable goal of the task.
	Description string `json:"description"`
	// Priority is the scheduling priority. Defaults to PriorityMedium.
	Priority TaskPriority `json:"priority"`
	// Parameters holds opaque values interpreted only by the executing agent.
	Parameters map[string]any `json:"parameters,omitempty"`
	// Dependencies lists task IDs that must complete before this task.
	Dependencies []string `json:"dependencies,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// AssignedTo is the ID of the agent the task was dispatched to.
	// Set exactly once, at dispatch.
	AssignedTo string `json:"assigned_to,omitempty"`
	// Status is the current state of the task. Transitions are forward-only.
	Status TaskStatus `json:"status"`
	// Result holds the outcome of a completed task. Mutually exclusive with Error.
	Result any `json:"result,omitempty"`
	// Error contains the error message if the task failed.
	Error string `json:"error,omitempty"`
	// Progress is a 0-100 advisory completion indicator.
	Progress float64 `json:"progress"`
}

// NewTask creates a pending task with a fresh ID and default priority.
func NewTask(description string) *Task {
	return &Task{
		ID:          uuid.New().String(),
		Description: description,
		Priority:    PriorityMedium,
		Parameters:  make(map[string]any),
		CreatedAt:   time.Now(),
		Status:      TaskStatusPending,
	}
}
