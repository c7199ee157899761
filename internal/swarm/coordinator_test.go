package swarm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/swarmforge/swarmforge/internal/agent"
	"github.com/swarmforge/swarmforge/pkg/models"
)

// stubFactory produces agents that all share one instrumented body.
type stubFactory struct {
	caps []string
	body agent.Body

	mu      sync.Mutex
	created int
}

func (f *stubFactory) Create(description string) agent.Agent {
	f.mu.Lock()
	f.created++
	f.mu.Unlock()
	return agent.NewBase("worker", f.caps, f.body)
}

func (f *stubFactory) Generic() agent.Agent { return f.Create("") }

// recorder tracks executed task descriptions and the peak number of bodies
// running at once.
type recorder struct {
	mu            sync.Mutex
	executed      []string
	running       int
	maxConcurrent int
}

func (r *recorder) body(delay time.Duration, failOn string) agent.Body {
	return agent.BodyFunc(func(ctx context.Context, task *models.Task) (any, error) {
		r.mu.Lock()
		r.running++
		if r.running > r.maxConcurrent {
			r.maxConcurrent = r.running
		}
		r.mu.Unlock()

		time.Sleep(delay)

		r.mu.Lock()
		r.running--
		r.executed = append(r.executed, task.Description)
		r.mu.Unlock()

		if failOn != "" && strings.Contains(task.Description, failOn) {
			return nil, errors.New("simulated failure")
		}
		return "ok", nil
	})
}

func fastConfig(maxAgents int) Config {
	cfg := DefaultConfig()
	cfg.MaxAgents = maxAgents
	cfg.RetryDelay = 5 * time.Millisecond
	cfg.MonitorInterval = time.Hour
	cfg.AutoScaleInterval = time.Hour
	return cfg
}

func waitAll(t *testing.T, c *Coordinator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.WaitForCompletion(ctx); err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}
}

func TestSingleAgentRunsTasksSequentially(t *testing.T) {
	rec := &recorder{}
	factory := &stubFactory{caps: []string{"task"}, body: rec.body(20*time.Millisecond, "")}
	c := NewCoordinator(fastConfig(1), factory)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	var ids []string
	for i := 1; i <= 3; i++ {
		task := models.NewTask(fmt.Sprintf("task %d", i))
		if err := c.Submit(task); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		ids = append(ids, task.ID)
	}

	waitAll(t, c)

	if rec.maxConcurrent != 1 {
		t.Errorf("max concurrency = %d, want 1 with a single agent", rec.maxConcurrent)
	}
	if len(rec.executed) != 3 {
		t.Errorf("executed %d tasks, want 3", len(rec.executed))
	}
	if got := c.AgentCount(); got != 1 {
		t.Errorf("pool size = %d, want 1", got)
	}
	for _, id := range ids {
		status, err := c.TaskStatus(id)
		if err != nil || status != models.TaskStatusCompleted {
			t.Errorf("task %s status = %s (%v), want completed", id, status, err)
		}
	}
}

func TestDependentRunsAfterDependency(t *testing.T) {
	rec := &recorder{}
	factory := &stubFactory{caps: []string{"step"}, body: rec.body(5*time.Millisecond, "")}
	c := NewCoordinator(fastConfig(4), factory)

	first := models.NewTask("step one")
	second := models.NewTask("step two")
	second.Dependencies = []string{first.ID}

	// Submit the dependent first so dispatch has to defer it.
	if err := c.Submit(second); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := c.Submit(first); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	waitAll(t, c)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.executed) != 2 {
		t.Fatalf("executed = %v, want both steps", rec.executed)
	}
	if rec.executed[0] != "step one" || rec.executed[1] != "step two" {
		t.Errorf("execution order = %v, want dependency first", rec.executed)
	}
}

func TestDependencyFailureCascades(t *testing.T) {
	rec := &recorder{}
	factory := &stubFactory{caps: []string{"stage"}, body: rec.body(5*time.Millisecond, "stage one")}
	c := NewCoordinator(fastConfig(4), factory)

	first := models.NewTask("stage one")
	second := models.NewTask("stage two")
	second.Dependencies = []string{first.ID}
	third := models.NewTask("stage three")
	third.Dependencies = []string{second.ID}

	for _, task := range []*models.Task{first, second, third} {
		if err := c.Submit(task); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	waitAll(t, c)

	for _, task := range []*models.Task{first, second, third} {
		status, err := c.TaskStatus(task.ID)
		if err != nil || status != models.TaskStatusFailed {
			t.Errorf("task %q status = %s (%v), want failed", task.Description, status, err)
		}
	}

	if second.Error == "" || !strings.Contains(second.Error, first.ID) {
		t.Errorf("cascaded task error = %q, want mention of failed dependency", second.Error)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, desc := range rec.executed {
		if desc != "stage one" {
			t.Errorf("dependent %q was executed despite failed dependency", desc)
		}
	}
}

func TestExternalDependencyTreatedAsSatisfied(t *testing.T) {
	rec := &recorder{}
	factory := &stubFactory{caps: []string{"task"}, body: rec.body(0, "")}
	c := NewCoordinator(fastConfig(2), factory)

	task := models.NewTask("task with prior-batch dependency")
	task.Dependencies = []string{"not-submitted-here"}
	if err := c.Submit(task); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	waitAll(t, c)

	status, _ := c.TaskStatus(task.ID)
	if status != models.TaskStatusCompleted {
		t.Errorf("status = %s, want completed", status)
	}
}

func TestSubmitDuplicateRejected(t *testing.T) {
	c := NewCoordinator(fastConfig(1), &stubFactory{})
	task := models.NewTask("some task")
	if err := c.Submit(task); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := c.Submit(task); !errors.Is(err, ErrDuplicateTask) {
		t.Errorf("err = %v, want ErrDuplicateTask", err)
	}
}

func TestSubmitQueueFull(t *testing.T) {
	cfg := fastConfig(1)
	cfg.QueueSize = 1
	c := NewCoordinator(cfg, &stubFactory{})

	if err := c.Submit(models.NewTask("first")); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	err := c.Submit(models.NewTask("second"))
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}

	// A rejected submission must not count as outstanding.
	c.mu.RLock()
	outstanding := c.outstanding
	c.mu.RUnlock()
	if outstanding != 1 {
		t.Errorf("outstanding = %d, want 1", outstanding)
	}
}

func TestTaskStatusUnknown(t *testing.T) {
	c := NewCoordinator(fastConfig(1), &stubFactory{})
	if _, err := c.TaskStatus("nope"); !errors.Is(err, ErrUnknownTask) {
		t.Errorf("err = %v, want ErrUnknownTask", err)
	}
}

func TestReclaimIdleSkipsBusyAgents(t *testing.T) {
	cfg := fastConfig(4)
	cfg.IdleTimeout = 0
	c := NewCoordinator(cfg, &stubFactory{})

	idle := agent.NewBase("idler", nil, agent.BodyFunc(nil))
	busy := agent.NewBase("worker", nil, agent.BodyFunc(nil))
	busy.AcceptTask(models.NewTask("long running"))

	c.mu.Lock()
	c.agents[idle.ID()] = idle
	c.agents[busy.ID()] = busy
	c.mu.Unlock()

	c.reclaimIdle()

	if c.AgentCount() != 1 {
		t.Fatalf("pool size = %d, want 1 after reclamation", c.AgentCount())
	}
	if idle.Status() != models.AgentStatusTerminated {
		t.Errorf("idle agent status = %s, want terminated", idle.Status())
	}
	if busy.Status() != models.AgentStatusBusy {
		t.Errorf("busy agent status = %s, want busy", busy.Status())
	}
}

func TestReclaimIdleRespectsTimeout(t *testing.T) {
	cfg := fastConfig(4)
	cfg.IdleTimeout = time.Hour
	c := NewCoordinator(cfg, &stubFactory{})

	fresh := agent.NewBase("fresh", nil, agent.BodyFunc(nil))
	c.mu.Lock()
	c.agents[fresh.ID()] = fresh
	c.mu.Unlock()

	c.reclaimIdle()

	if c.AgentCount() != 1 {
		t.Error("freshly idle agent was reclaimed before the timeout")
	}
}

func TestAutoScaleBoundedByMaxAgents(t *testing.T) {
	cfg := fastConfig(4)
	cfg.ScalingThreshold = 2
	factory := &stubFactory{caps: []string{"task"}}
	c := NewCoordinator(cfg, factory)

	// Not started: submissions stay queued.
	for i := 0; i < 5; i++ {
		if err := c.Submit(models.NewTask(fmt.Sprintf("queued %d", i))); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	c.autoScale()
	if got := c.AgentCount(); got != 3 {
		t.Errorf("pool size = %d after first sweep, want depth-threshold = 3", got)
	}

	c.autoScale()
	if got := c.AgentCount(); got != 4 {
		t.Errorf("pool size = %d after second sweep, want MaxAgents = 4", got)
	}

	c.autoScale()
	if got := c.AgentCount(); got != 4 {
		t.Errorf("pool size = %d, scaled past MaxAgents", got)
	}
}

func TestAutoScaleInactiveBelowThreshold(t *testing.T) {
	cfg := fastConfig(4)
	cfg.ScalingThreshold = 5
	c := NewCoordinator(cfg, &stubFactory{})

	for i := 0; i < 3; i++ {
		if err := c.Submit(models.NewTask(fmt.Sprintf("queued %d", i))); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	c.autoScale()
	if got := c.AgentCount(); got != 0 {
		t.Errorf("pool size = %d, want 0 below threshold", got)
	}
}

type memRecorder struct {
	mu    sync.Mutex
	saved map[string]models.TaskStatus
}

func (m *memRecorder) SaveTask(task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = make(map[string]models.TaskStatus)
	}
	m.saved[task.ID] = task.Status
	return nil
}

func TestTerminalTasksPersisted(t *testing.T) {
	rec := &recorder{}
	store := &memRecorder{}
	factory := &stubFactory{caps: []string{"task"}, body: rec.body(0, "doomed")}
	c := NewCoordinator(fastConfig(2), factory, WithStore(store))

	good := models.NewTask("task that succeeds")
	bad := models.NewTask("task that is doomed")
	if err := c.Submit(good); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := c.Submit(bad); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	waitAll(t, c)

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.saved[good.ID] != models.TaskStatusCompleted {
		t.Errorf("persisted status for success = %s, want completed", store.saved[good.ID])
	}
	if store.saved[bad.ID] != models.TaskStatusFailed {
		t.Errorf("persisted status for failure = %s, want failed", store.saved[bad.ID])
	}
}

func TestStopTerminatesPool(t *testing.T) {
	rec := &recorder{}
	factory := &stubFactory{caps: []string{"task"}, body: rec.body(0, "")}
	c := NewCoordinator(fastConfig(2), factory)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Submit(models.NewTask("task")); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitAll(t, c)

	c.Stop()

	status := c.Status()
	if status.AgentCount == 0 {
		t.Fatal("no agents in pool after run")
	}
	for _, info := range status.Agents {
		if info.Status != models.AgentStatusTerminated {
			t.Errorf("agent %s status = %s after Stop, want terminated", info.Name, info.Status)
		}
	}
}

func TestWaitForCompletionNotRunning(t *testing.T) {
	c := NewCoordinator(fastConfig(1), &stubFactory{})
	if err := c.Submit(models.NewTask("queued task")); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	err := c.WaitForCompletion(context.Background())
	if !errors.Is(err, ErrNotRunning) {
		t.Errorf("err = %v, want ErrNotRunning", err)
	}

	// With nothing outstanding the wait succeeds even when stopped.
	empty := NewCoordinator(fastConfig(1), &stubFactory{})
	if err := empty.WaitForCompletion(context.Background()); err != nil {
		t.Errorf("WaitForCompletion on empty coordinator: %v", err)
	}
}

func TestStatusCountsPool(t *testing.T) {
	c := NewCoordinator(fastConfig(4), &stubFactory{})

	idle := agent.NewBase("idler", nil, agent.BodyFunc(nil))
	busy := agent.NewBase("worker", nil, agent.BodyFunc(nil))
	busy.AcceptTask(models.NewTask("long running"))

	c.mu.Lock()
	c.agents[idle.ID()] = idle
	c.agents[busy.ID()] = busy
	c.mu.Unlock()

	status := c.Status()
	if status.AgentCount != 2 {
		t.Errorf("AgentCount = %d, want 2", status.AgentCount)
	}
	if status.IdleCount != 1 {
		t.Errorf("IdleCount = %d, want 1", status.IdleCount)
	}
	if status.BusyCount != 1 {
		t.Errorf("BusyCount = %d, want 1", status.BusyCount)
	}
}

func TestTaskStateReportsProgress(t *testing.T) {
	rec := &recorder{}
	factory := &stubFactory{caps: []string{"task"}, body: rec.body(0, "")}
	c := NewCoordinator(fastConfig(1), factory)

	task := models.NewTask("task")
	if err := c.Submit(task); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	state, err := c.TaskState(task.ID)
	if err != nil {
		t.Fatalf("TaskState: %v", err)
	}
	if state.Status != models.TaskStatusPending || state.Progress != 0 {
		t.Errorf("state = %+v, want pending with zero progress", state)
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()
	waitAll(t, c)

	state, err = c.TaskState(task.ID)
	if err != nil {
		t.Fatalf("TaskState: %v", err)
	}
	if state.Status != models.TaskStatusCompleted || state.Progress != 100 {
		t.Errorf("state = %+v, want completed with progress 100", state)
	}

	if _, err := c.TaskState("missing"); !errors.Is(err, ErrUnknownTask) {
		t.Errorf("err = %v, want ErrUnknownTask", err)
	}
}

func TestResultOnlyWhenTerminal(t *testing.T) {
	c := NewCoordinator(fastConfig(1), &stubFactory{})
	task := models.NewTask("queued task")
	if err := c.Submit(task); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := c.Result(task.ID); err == nil {
		t.Error("Result succeeded for a non-terminal task")
	}
}
