// Package agent provides the agent runtime for the swarm: the lifecycle
// state machine, the task-execution contract, and the concrete agent
// variants selected by the coordinator's factory.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swarmforge/swarmforge/internal/llm"
	"github.com/swarmforge/swarmforge/pkg/models"
)

// ErrNoTaskAssigned indicates RunAssignedTask was called without a prior
// successful AcceptTask.
var ErrNoTaskAssigned = errors.New("no task assigned")

// mailboxCapacity bounds the per-agent message queue. Delivery is
// at-most-once; messages past capacity are dropped.
const mailboxCapacity = 64

// Body executes the concrete work of a task. Implementations are the
// capability collaborators (research, scraping, analysis, ...); the
// scheduler only needs their success or failure.
type Body interface {
	Execute(ctx context.Context, task *models.Task) (any, error)
}

// BodyFunc adapts a function to the Body interface.
type BodyFunc func(ctx context.Context, task *models.Task) (any, error)

// Execute calls f.
func (f BodyFunc) Execute(ctx context.Context, task *models.Task) (any, error) {
	return f(ctx, task)
}

// Agent is an actor that executes tasks matching its declared capabilities.
// The pool holds the only long-lived reference to an agent.
type Agent interface {
	// ID returns the agent's unique identifier.
	ID() string
	// Name returns the agent's display name.
	Name() string
	// Status returns the agent's current lifecycle state.
	Status() models.AgentStatus
	// Capabilities returns the agent's fixed capability tags.
	Capabilities() []string
	// CurrentTask returns the task being executed, or nil.
	CurrentTask() *models.Task
	// LastHeartbeat returns the time of the agent's last activity.
	LastHeartbeat() time.Time
	// Metrics returns the agent's execution counters.
	Metrics() models.Metrics
	// AcceptTask assigns a task if the agent is idle. This is the sole
	// admission-control gate: it returns false with no state change when
	// the agent is not idle.
	AcceptTask(task *models.Task) bool
	// RunAssignedTask executes the accepted task and records the outcome
	// on both the task and the agent. Failures are returned to the caller,
	// never swallowed.
	RunAssignedTask(ctx context.Context) (any, error)
	// Release returns the agent to idle after the pool has consumed the
	// result or error of the last run. No-op on a terminated agent.
	Release()
	// Terminate moves the agent to the absorbing terminated state. Idempotent.
	Terminate()
	// Receive enqueues a message, best-effort. Returns false if dropped.
	Receive(msg models.Message) bool
	// Drain processes all currently queued messages once. Non-blocking
	// when the mailbox is empty. A nil handler logs each message.
	Drain(handler func(models.Message))
	// Snapshot returns a point-in-time copy of the agent's state.
	Snapshot() models.AgentInfo
}

// Base is the shared agent runtime. Concrete variants are a Base plus
// capability tags and a Body.
type Base struct {
	id       string
	name     string
	caps     []string
	body     Body
	reasoner llm.Completer

	mu            sync.Mutex
	status        models.AgentStatus
	current       *models.Task
	lastHeartbeat time.Time
	metrics       models.Metrics
	knowledge     map[string]string

	mailbox chan models.Message
}

// Option configures a Base at construction.
type Option func(*Base)

// WithID overrides the generated agent ID.
func WithID(id string) Option {
	return func(b *Base) { b.id = id }
}

// WithReasoner attaches a text-completion collaborator used for optional
// pre-execution reasoning and post-execution summaries. Its failures
// degrade to absence and never fail the task.
func WithReasoner(c llm.Completer) Option {
	return func(b *Base) { b.reasoner = c }
}

// NewBase creates an idle agent with the given name, capability tags and body.
func NewBase(name string, capabilities []string, body Body, opts ...Option) *Base {
	b := &Base{
		id:            uuid.New().String(),
		name:          name,
		caps:          append([]string(nil), capabilities...),
		body:          body,
		status:        models.AgentStatusIdle,
		lastHeartbeat: time.Now(),
		knowledge:     make(map[string]string),
		mailbox:       make(chan models.Message, mailboxCapacity),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ID returns the agent's unique identifier.
func (b *Base) ID() string { return b.id }

// Name returns the agent's display name.
func (b *Base) Name() string { return b.name }

// Status returns the agent's current lifecycle state.
func (b *Base) Status() models.AgentStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Capabilities returns a copy of the agent's capability tags.
func (b *Base) Capabilities() []string {
	return append([]string(nil), b.caps...)
}

// CurrentTask returns the task being executed, or nil.
func (b *Base) CurrentTask() *models.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// LastHeartbeat returns the time of the agent's last activity.
func (b *Base) LastHeartbeat() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastHeartbeat
}

// Metrics returns the agent's execution counters.
func (b *Base) Metrics() models.Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.metrics
}

// AcceptTask assigns a task if the agent is idle.
// Exactly one of any set of concurrent accept attempts succeeds.
func (b *Base) AcceptTask(task *models.Task) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status != models.AgentStatusIdle {
		return false
	}

	b.current = task
	b.status = models.AgentStatusBusy
	b.lastHeartbeat = time.Now()
	task.AssignedTo = b.id
	task.Status = models.TaskStatusInProgress

	log.Printf("[agent] %s assigned task: %s", b.name, task.Description)
	return true
}

// RunAssignedTask executes the current task and records the outcome.
// On success the task is completed and metrics updated; on failure the task
// and agent are marked failed and the error is returned to the pool.
func (b *Base) RunAssignedTask(ctx context.Context) (any, error) {
	b.mu.Lock()
	task := b.current
	b.mu.Unlock()

	if task == nil {
		return nil, ErrNoTaskAssigned
	}

	start := time.Now()
	b.preExecutionReasoning(ctx, task)

	result, err := b.body.Execute(ctx, task)
	elapsed := time.Since(start)

	b.mu.Lock()
	b.lastHeartbeat = time.Now()

	// Terminated is absorbing: a termination during execution keeps the
	// agent terminated, while the task outcome is still recorded.
	if err != nil {
		task.Error = err.Error()
		task.Status = models.TaskStatusFailed
		if b.status != models.AgentStatusTerminated {
			b.status = models.AgentStatusError
		}
		b.metrics.TasksFailed++
		b.mu.Unlock()

		log.Printf("[agent] %s failed task: %v", b.name, err)
		return nil, fmt.Errorf("execute task %s: %w", task.ID, err)
	}

	task.Result = result
	task.Status = models.TaskStatusCompleted
	task.Progress = 100
	if b.status != models.AgentStatusTerminated {
		b.status = models.AgentStatusCompleted
	}
	b.metrics.TasksCompleted++
	b.metrics.TotalExecutionTime += elapsed
	b.metrics.AverageTaskTime = b.metrics.TotalExecutionTime / time.Duration(b.metrics.TasksCompleted)
	b.mu.Unlock()

	b.postExecutionAnalysis(ctx, result)

	log.Printf("[agent] %s completed task: %s", b.name, task.Description)
	return result, nil
}

// Release returns the agent to idle after the pool has consumed the last run.
func (b *Base) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status == models.AgentStatusTerminated {
		return
	}
	b.current = nil
	b.status = models.AgentStatusIdle
	b.lastHeartbeat = time.Now()
}

// Terminate moves the agent to the absorbing terminated state.
func (b *Base) Terminate() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status == models.AgentStatusTerminated {
		return
	}
	b.status = models.AgentStatusTerminated
	log.Printf("[agent] %s terminated", b.name)
}

// Snapshot returns a point-in-time copy of the agent's state.
func (b *Base) Snapshot() models.AgentInfo {
	b.mu.Lock()
	defer b.mu.Unlock()

	info := models.AgentInfo{
		ID:            b.id,
		Name:          b.name,
		Status:        b.status,
		Capabilities:  append([]string(nil), b.caps...),
		LastHeartbeat: b.lastHeartbeat,
		Metrics:       b.metrics,
	}
	if b.current != nil {
		info.CurrentTask = b.current.ID
	}
	return info
}

// Annotation returns an optional reasoning annotation recorded during
// execution, such as "execution_plan" or "result_analysis".
func (b *Base) Annotation(key string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.knowledge[key]
	return v, ok
}

// preExecutionReasoning asks the reasoner for a short execution plan.
// Best-effort: failures are logged and otherwise ignored.
func (b *Base) preExecutionReasoning(ctx context.Context, task *models.Task) {
	if b.reasoner == nil {
		return
	}

	prompt := fmt.Sprintf("Agent: %s\nTask: %s\nCapabilities: %s\n\nPlan approach in 2-3 bullet points.",
		b.name, task.Description, strings.Join(b.caps, ", "))

	plan, err := b.reasoner.Complete(ctx, prompt, 0.3)
	if err != nil {
		log.Printf("[agent] %s pre-execution reasoning failed: %v", b.name, err)
		return
	}

	b.mu.Lock()
	b.knowledge["execution_plan"] = plan
	b.mu.Unlock()
}

// postExecutionAnalysis asks the reasoner for a short result summary.
// Best-effort: failures are logged and otherwise ignored.
func (b *Base) postExecutionAnalysis(ctx context.Context, result any) {
	if b.reasoner == nil {
		return
	}

	summary := fmt.Sprintf("%v", result)
	if len(summary) > 500 {
		summary = summary[:500]
	}

	analysis, err := b.reasoner.Complete(ctx, "Summarize in 1-2 sentences:\n"+summary, 0.3)
	if err != nil {
		log.Printf("[agent] %s post-execution analysis failed: %v", b.name, err)
		return
	}

	b.mu.Lock()
	b.knowledge["result_analysis"] = analysis
	b.mu.Unlock()
}
