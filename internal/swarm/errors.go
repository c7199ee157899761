package swarm

import "errors"

var (
	// ErrQueueFull indicates the pending-task queue is at capacity.
	ErrQueueFull = errors.New("task queue is full")

	// ErrDuplicateTask indicates a task with the same ID was already submitted.
	ErrDuplicateTask = errors.New("task already submitted")

	// ErrUnknownTask indicates the queried task was never submitted.
	ErrUnknownTask = errors.New("unknown task")

	// ErrDependencyFailed indicates a task was force-failed because one of
	// its dependencies failed.
	ErrDependencyFailed = errors.New("dependency failed")

	// ErrAtCapacity indicates the pool holds the maximum number of agents
	// and none of the existing agents can take the task right now.
	ErrAtCapacity = errors.New("agent pool at capacity")

	// ErrNotRunning indicates no dispatch loop is running, either because
	// the coordinator was never started or because it was stopped.
	ErrNotRunning = errors.New("coordinator not running")
)
