package swarm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/swarmforge/swarmforge/internal/agent"
	"github.com/swarmforge/swarmforge/pkg/models"
)

// Config holds the coordinator's tuning knobs.
type Config struct {
	// MaxAgents caps the pool size, creation and auto-scaling included.
	MaxAgents int
	// ScalingThreshold is the queue depth above which the pool scales up.
	ScalingThreshold int
	// IdleTimeout is how long an agent may sit idle before reclamation.
	IdleTimeout time.Duration
	// MonitorInterval is the period of the idle-reclamation sweep.
	MonitorInterval time.Duration
	// AutoScaleInterval is the period of the auto-scaling sweep.
	AutoScaleInterval time.Duration
	// RetryDelay is the backoff before re-enqueueing an undispatchable task.
	RetryDelay time.Duration
	// QueueSize bounds the pending-task queue.
	QueueSize int
}

// DefaultConfig returns the coordinator defaults.
func DefaultConfig() Config {
	return Config{
		MaxAgents:         10,
		ScalingThreshold:  5,
		IdleTimeout:       5 * time.Minute,
		MonitorInterval:   30 * time.Second,
		AutoScaleInterval: 10 * time.Second,
		RetryDelay:        500 * time.Millisecond,
		QueueSize:         256,
	}
}

// TaskRecorder persists terminal task outcomes. Implementations must be
// safe for concurrent use.
type TaskRecorder interface {
	SaveTask(task *models.Task) error
}

// Coordinator owns the agent pool and the pending-task queue. It dispatches
// queued tasks to capable idle agents, creates agents on demand up to
// MaxAgents, scales the pool ahead of queue pressure, and reclaims agents
// that sit idle past the timeout.
//
// Task structs are handed to exactly one goroutine at a time: the dispatch
// loop, then the executing agent, then the recording goroutine. Concurrent
// status queries are answered from the coordinator's own bookkeeping, never
// from the task structs.
type Coordinator struct {
	cfg     Config
	factory AgentFactory
	router  Router
	logger  *DebugLogger
	store   TaskRecorder

	queue chan *models.Task

	mu          sync.RWMutex
	agents      map[string]agent.Agent
	tasks       map[string]*models.Task
	statuses    map[string]models.TaskStatus
	dependents  map[string][]string
	active      int
	outstanding int
	completed   int
	failed      int
	running     bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
	execWG sync.WaitGroup
}

// Option configures a Coordinator at construction.
type Option func(*Coordinator)

// WithRouter replaces the default capability router.
func WithRouter(r Router) Option {
	return func(c *Coordinator) { c.router = r }
}

// WithLogger attaches a debug logger.
func WithLogger(l *DebugLogger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithStore attaches a task recorder that persists terminal outcomes.
func WithStore(s TaskRecorder) Option {
	return func(c *Coordinator) { c.store = s }
}

// NewCoordinator creates a coordinator with the given config and factory.
func NewCoordinator(cfg Config, factory AgentFactory, opts ...Option) *Coordinator {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	c := &Coordinator{
		cfg:        cfg,
		factory:    factory,
		router:     CapabilityRouter{},
		logger:     NopLogger(),
		queue:      make(chan *models.Task, cfg.QueueSize),
		agents:     make(map[string]agent.Agent),
		tasks:      make(map[string]*models.Task),
		statuses:   make(map[string]models.TaskStatus),
		dependents: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit enqueues a task for dispatch. The coordinator takes ownership of
// the task struct until it reaches a terminal status.
func (c *Coordinator) Submit(task *models.Task) error {
	c.mu.Lock()
	if _, ok := c.tasks[task.ID]; ok {
		c.mu.Unlock()
		return fmt.Errorf("submit task %s: %w", task.ID, ErrDuplicateTask)
	}

	task.Status = models.TaskStatusPending
	c.tasks[task.ID] = task
	c.statuses[task.ID] = models.TaskStatusPending
	c.outstanding++
	for _, dep := range task.Dependencies {
		c.dependents[dep] = append(c.dependents[dep], task.ID)
	}
	c.mu.Unlock()

	select {
	case c.queue <- task:
		c.logger.Log("[swarm] queued task %s: %s", task.ID, task.Description)
		return nil
	default:
		c.mu.Lock()
		delete(c.tasks, task.ID)
		delete(c.statuses, task.ID)
		c.outstanding--
		c.mu.Unlock()
		return fmt.Errorf("submit task %s: %w", task.ID, ErrQueueFull)
	}
}

// Start launches the dispatch and maintenance loops. It returns immediately;
// the loops run until ctx is cancelled or Stop is called.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return fmt.Errorf("coordinator already running")
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.running = true

	c.wg.Add(2)
	go c.dispatchLoop(ctx)
	go c.sweepLoop(ctx)

	c.logger.Log("[swarm] coordinator started: max_agents=%d scaling_threshold=%d", c.cfg.MaxAgents, c.cfg.ScalingThreshold)
	return nil
}

// Stop cancels the loops and waits for them and any in-flight task
// executions to finish.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel := c.cancel
	c.mu.Unlock()

	cancel()
	c.wg.Wait()
	c.execWG.Wait()

	c.mu.Lock()
	for _, ag := range c.agents {
		ag.Terminate()
	}
	c.mu.Unlock()
	c.logger.Log("[swarm] coordinator stopped")
}

func (c *Coordinator) dispatchLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-c.queue:
			c.dispatch(ctx, task)
		}
	}
}

// dispatch routes one dequeued task: dependency check, agent selection,
// then asynchronous execution. Tasks that cannot run yet are re-enqueued
// after the retry delay.
func (c *Coordinator) dispatch(ctx context.Context, task *models.Task) {
	c.mu.Lock()

	// A cascade may have force-failed this task while it sat in the queue.
	if c.statuses[task.ID].Terminal() {
		c.mu.Unlock()
		return
	}

	ready, failedDep := c.dependencyStateLocked(task)
	if failedDep != "" {
		downstream := c.failTaskLocked(task, fmt.Errorf("%w: %s", ErrDependencyFailed, failedDep))
		c.mu.Unlock()
		c.record(append(downstream, task)...)
		return
	}
	if !ready {
		c.mu.Unlock()
		c.requeueLater(ctx, task)
		return
	}

	ag := c.selectAgentLocked(task)
	if ag == nil {
		atCapacity := len(c.agents) >= c.cfg.MaxAgents
		c.mu.Unlock()
		if atCapacity {
			c.logger.Log("[swarm] task %s waiting: %v", task.ID, ErrAtCapacity)
		}
		c.requeueLater(ctx, task)
		return
	}

	c.statuses[task.ID] = models.TaskStatusInProgress
	c.active++
	c.mu.Unlock()

	c.execWG.Add(1)
	go c.runTask(ctx, ag, task)
}

// dependencyStateLocked reports whether all of the task's dependencies are
// satisfied, and the ID of the first failed dependency if any. Dependencies
// that were never submitted here are treated as satisfied by an earlier
// batch.
func (c *Coordinator) dependencyStateLocked(task *models.Task) (ready bool, failedDep string) {
	ready = true
	for _, dep := range task.Dependencies {
		status, tracked := c.statuses[dep]
		if !tracked {
			continue
		}
		if status == models.TaskStatusFailed {
			return false, dep
		}
		if status != models.TaskStatusCompleted {
			ready = false
		}
	}
	return ready, ""
}

// selectAgentLocked finds an idle capable agent and assigns the task to it,
// creating a new agent when the pool has room. Returns nil when no agent
// could take the task.
func (c *Coordinator) selectAgentLocked(task *models.Task) agent.Agent {
	for _, ag := range c.agents {
		if ag.Status() != models.AgentStatusIdle {
			continue
		}
		if !c.router.Match(task.Description, ag.Capabilities()) {
			continue
		}
		if ag.AcceptTask(task) {
			return ag
		}
	}

	if len(c.agents) < c.cfg.MaxAgents {
		ag := c.factory.Create(task.Description)
		c.agents[ag.ID()] = ag
		c.logger.Log("[swarm] created %s agent %s for task %s", ag.Name(), ag.ID(), task.ID)
		if ag.AcceptTask(task) {
			return ag
		}
	}
	return nil
}

func (c *Coordinator) runTask(ctx context.Context, ag agent.Agent, task *models.Task) {
	defer c.execWG.Done()

	_, err := ag.RunAssignedTask(ctx)

	c.mu.Lock()
	c.active--
	var downstream []*models.Task
	if err != nil {
		c.markTerminalLocked(task.ID, models.TaskStatusFailed)
		downstream = c.failDependentsLocked(task.ID)
		c.logger.Log("[swarm] task %s failed: %v", task.ID, err)
	} else {
		c.markTerminalLocked(task.ID, models.TaskStatusCompleted)
		c.logger.Log("[swarm] task %s completed by %s", task.ID, ag.Name())
	}
	c.mu.Unlock()

	c.record(append(downstream, task)...)
	ag.Release()
}

// failTaskLocked force-fails an undispatched task and cascades to its
// dependents. It returns the downstream tasks failed by the cascade so the
// caller can persist them outside the lock.
func (c *Coordinator) failTaskLocked(task *models.Task, cause error) []*models.Task {
	task.Status = models.TaskStatusFailed
	task.Error = cause.Error()
	c.markTerminalLocked(task.ID, models.TaskStatusFailed)
	c.logger.Log("[swarm] task %s force-failed: %v", task.ID, cause)
	return c.failDependentsLocked(task.ID)
}

// failDependentsLocked transitively fails every pending dependent of the
// given task. In-flight dependents cannot exist: a task is dispatched only
// after all its tracked dependencies completed.
func (c *Coordinator) failDependentsLocked(taskID string) []*models.Task {
	var failed []*models.Task
	for _, depID := range c.dependents[taskID] {
		if c.statuses[depID] != models.TaskStatusPending {
			continue
		}
		dep := c.tasks[depID]
		dep.Status = models.TaskStatusFailed
		dep.Error = fmt.Sprintf("%v: %s", ErrDependencyFailed, taskID)
		c.markTerminalLocked(depID, models.TaskStatusFailed)
		c.logger.Log("[swarm] task %s force-failed: dependency %s failed", depID, taskID)
		failed = append(failed, dep)
		failed = append(failed, c.failDependentsLocked(depID)...)
	}
	return failed
}

// markTerminalLocked moves a task's coordinator-side status to a terminal
// state and updates the counters exactly once per task.
func (c *Coordinator) markTerminalLocked(taskID string, status models.TaskStatus) {
	if c.statuses[taskID].Terminal() {
		return
	}
	c.statuses[taskID] = status
	c.outstanding--
	if status == models.TaskStatusFailed {
		c.failed++
	} else {
		c.completed++
	}
}

// requeueLater re-enqueues a task after the retry delay. A full queue at
// that point force-fails the task rather than dropping it silently.
func (c *Coordinator) requeueLater(ctx context.Context, task *models.Task) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		select {
		case <-ctx.Done():
		case <-time.After(c.cfg.RetryDelay):
			select {
			case c.queue <- task:
			default:
				c.mu.Lock()
				downstream := c.failTaskLocked(task, ErrQueueFull)
				c.mu.Unlock()
				c.record(append(downstream, task)...)
			}
		}
	}()
}

// record persists terminal tasks when a store is attached. Persistence is
// best-effort; failures are logged.
func (c *Coordinator) record(tasks ...*models.Task) {
	if c.store == nil {
		return
	}
	for _, task := range tasks {
		if err := c.store.SaveTask(task); err != nil {
			c.logger.Log("[swarm] persist task %s: %v", task.ID, err)
		}
	}
}

// TaskStatus returns the coordinator's view of a submitted task's status.
func (c *Coordinator) TaskStatus(id string) (models.TaskStatus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	status, ok := c.statuses[id]
	if !ok {
		return "", fmt.Errorf("task %s: %w", id, ErrUnknownTask)
	}
	return status, nil
}

// TaskState is a point-in-time view of one task.
type TaskState struct {
	Status   models.TaskStatus `json:"status" yaml:"status"`
	Progress float64           `json:"progress" yaml:"progress"`
}

// TaskState returns a submitted task's status and progress. While a task is
// in flight its struct belongs to the executing agent, so progress reads 0
// until the outcome is recorded.
func (c *Coordinator) TaskState(id string) (TaskState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	status, ok := c.statuses[id]
	if !ok {
		return TaskState{}, fmt.Errorf("task %s: %w", id, ErrUnknownTask)
	}
	state := TaskState{Status: status}
	if status != models.TaskStatusInProgress {
		state.Progress = c.tasks[id].Progress
	}
	return state, nil
}

// Result returns the task struct once it has reached a terminal status.
func (c *Coordinator) Result(id string) (*models.Task, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	status, ok := c.statuses[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, ErrUnknownTask)
	}
	if !status.Terminal() {
		return nil, fmt.Errorf("task %s is %s, not finished", id, status)
	}
	return c.tasks[id], nil
}

// Status is a point-in-time snapshot of the swarm.
type Status struct {
	Agents         []models.AgentInfo `json:"agents" yaml:"agents"`
	AgentCount     int                `json:"agent_count" yaml:"agent_count"`
	IdleCount      int                `json:"idle_count" yaml:"idle_count"`
	BusyCount      int                `json:"busy_count" yaml:"busy_count"`
	QueueDepth     int                `json:"queue_depth" yaml:"queue_depth"`
	ActiveTasks    int                `json:"active_tasks" yaml:"active_tasks"`
	CompletedTasks int                `json:"completed_tasks" yaml:"completed_tasks"`
	FailedTasks    int                `json:"failed_tasks" yaml:"failed_tasks"`
}

// Status returns a snapshot of the pool and the task counters.
func (c *Coordinator) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Status{
		QueueDepth:     len(c.queue),
		ActiveTasks:    c.active,
		CompletedTasks: c.completed,
		FailedTasks:    c.failed,
	}
	for _, ag := range c.agents {
		info := ag.Snapshot()
		s.Agents = append(s.Agents, info)
		s.AgentCount++
		switch info.Status {
		case models.AgentStatusIdle:
			s.IdleCount++
		case models.AgentStatusBusy:
			s.BusyCount++
		}
	}
	return s
}

// AgentCount returns the current pool size.
func (c *Coordinator) AgentCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.agents)
}

// WaitForCompletion blocks until every submitted task has reached a
// terminal status, or ctx is cancelled. It returns ErrNotRunning when tasks
// are outstanding but no dispatch loop is running to finish them.
func (c *Coordinator) WaitForCompletion(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		c.mu.RLock()
		outstanding := c.outstanding
		running := c.running
		c.mu.RUnlock()
		if outstanding == 0 {
			return nil
		}
		if !running {
			return fmt.Errorf("wait for completion: %w", ErrNotRunning)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
