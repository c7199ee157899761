package models

import "time"

// AgentStatus represents the current state of an agent.
type AgentStatus string

const (
	// AgentStatusIdle indicates the agent has no task and is eligible for assignment.
	AgentStatusIdle AgentStatus = "idle"
	// AgentStatusBusy indicates the agent is executing its assigned task.
	AgentStatusBusy AgentStatus = "busy"
	// AgentStatusError indicates the agent's last execution failed.
	AgentStatusError AgentStatus = "error"
	// AgentStatusCompleted indicates the agent's last execution succeeded
	// and the result has not yet been consumed by the pool.
	AgentStatusCompleted AgentStatus = "completed"
	// AgentStatusTerminated indicates the agent has been shut down.
	// Terminated is absorbing; no further transitions occur.
	AgentStatusTerminated AgentStatus = "terminated"
)

// Valid returns true if the status is a known value.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusIdle, AgentStatusBusy, AgentStatusError,
		AgentStatusCompleted, AgentStatusTerminated:
		return true
	default:
		return false
	}
}

// Metrics holds per-agent execution counters.
// Updated only by the agent itself after each execution.
type Metrics struct {
	// TasksCompleted is the number of tasks that finished successfully.
	TasksCompleted int `json:"tasks_completed"`
	// TasksFailed is the number of tasks that failed.
	TasksFailed int `json:"tasks_failed"`
	// TotalExecutionTime is the cumulative wall-clock execution time.
	TotalExecutionTime time.Duration `json:"total_execution_time"`
	// AverageTaskTime is TotalExecutionTime / TasksCompleted.
	AverageTaskTime time.Duration `json:"average_task_time"`
}

// AgentInfo is a point-in-time snapshot of an agent's state,
// safe to hand to callers outside the pool.
type AgentInfo struct {
	// ID is the unique identifier for this agent.
	ID string `json:"id"`
	// Name is the agent's display name.
	Name string `json:"name"`
	// Status is the agent's state at snapshot time.
	Status AgentStatus `json:"status"`
	// CurrentTask is the ID of the task being executed, if any.
	CurrentTask string `json:"current_task,omitempty"`
	// Capabilities lists the agent's declared capability tags.
	Capabilities []string `json:"capabilities"`
	// LastHeartbeat is the time of the agent's last activity.
	LastHeartbeat time.Time `json:"last_heartbeat"`
	// Metrics holds the agent's execution counters.
	Metrics Metrics `json:"metrics"`
}
