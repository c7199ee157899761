package workflow

import "github.com/swarmforge/swarmforge/pkg/models"

// DefaultMaxSubtasks bounds decomposition when the caller supplies no limit.
const DefaultMaxSubtasks = 10

// PhaseSummary describes one phase of an execution plan.
type PhaseSummary struct {
	// Phase is the 1-based phase number.
	Phase int `json:"phase" yaml:"phase"`
	// TaskIDs lists the IDs of the tasks in this phase.
	TaskIDs []string `json:"task_ids" yaml:"task_ids"`
	// Tasks lists the descriptions of the tasks in this phase.
	Tasks []string `json:"tasks" yaml:"tasks"`
	// CanRunParallel is true when the phase holds more than one task.
	CanRunParallel bool `json:"can_run_parallel" yaml:"can_run_parallel"`
}

// Plan is the full output of planning one composite task.
type Plan struct {
	// Task is the description of the composite task.
	Task string `json:"task" yaml:"task"`
	// Direct is true when decomposition yielded nothing and the task
	// should be executed as-is.
	Direct bool `json:"direct,omitempty" yaml:"direct,omitempty"`
	// Subtasks are the decomposed sub-tasks in creation order.
	Subtasks []*models.Task `json:"subtasks,omitempty" yaml:"subtasks,omitempty"`
	// Prioritized are the sub-tasks in dispatch order
	// (priority descending, dependency count ascending).
	Prioritized []*models.Task `json:"prioritized,omitempty" yaml:"prioritized,omitempty"`
	// Phases groups sub-tasks into sequential parallelizable phases.
	Phases []PhaseSummary `json:"phases,omitempty" yaml:"phases,omitempty"`
	// Estimate is the total duration estimate.
	Estimate Estimate `json:"estimated_duration" yaml:"estimated_duration"`
	// Degenerate is true when the dependency graph had a cycle or
	// malformed reference and a catch-all phase was emitted.
	Degenerate bool `json:"degenerate,omitempty" yaml:"degenerate,omitempty"`
}

// BuildPlan decomposes a composite task and produces its execution plan.
// maxSubtasks bounds decomposition; values below one fall back to
// DefaultMaxSubtasks. A plan with Direct set means the caller should run
// the original task without expansion.
func BuildPlan(task *models.Task, maxSubtasks int) *Plan {
	if maxSubtasks < 1 {
		maxSubtasks = DefaultMaxSubtasks
	}

	plan := &Plan{Task: task.Description}

	subtasks := Decompose(task, maxSubtasks)
	if len(subtasks) == 0 {
		plan.Direct = true
		return plan
	}
	plan.Subtasks = subtasks

	ordered, orderDegenerate := Order(subtasks)
	plan.Prioritized = AssignPriorities(ordered)

	phases, levelDegenerate := Level(subtasks)
	for i, phase := range phases {
		summary := PhaseSummary{
			Phase:          i + 1,
			CanRunParallel: len(phase) > 1,
		}
		for _, t := range phase {
			summary.TaskIDs = append(summary.TaskIDs, t.ID)
			summary.Tasks = append(summary.Tasks, t.Description)
		}
		plan.Phases = append(plan.Phases, summary)
	}

	plan.Estimate = EstimateDuration(plan.Prioritized)
	plan.Degenerate = orderDegenerate || levelDegenerate
	return plan
}
