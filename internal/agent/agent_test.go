package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/swarmforge/swarmforge/pkg/models"
)

func okBody(result any) Body {
	return BodyFunc(func(ctx context.Context, task *models.Task) (any, error) {
		return result, nil
	})
}

func failBody(err error) Body {
	return BodyFunc(func(ctx context.Context, task *models.Task) (any, error) {
		return nil, err
	})
}

func TestAcceptTaskIdleGate(t *testing.T) {
	a := NewBase("test", []string{"research"}, okBody("done"))
	task := models.NewTask("first task")

	if !a.AcceptTask(task) {
		t.Fatal("idle agent rejected a task")
	}
	if a.Status() != models.AgentStatusBusy {
		t.Errorf("status = %s, want busy", a.Status())
	}
	if task.AssignedTo != a.ID() {
		t.Errorf("task assigned to %q, want %q", task.AssignedTo, a.ID())
	}
	if task.Status != models.TaskStatusInProgress {
		t.Errorf("task status = %s, want in_progress", task.Status)
	}

	other := models.NewTask("second task")
	if a.AcceptTask(other) {
		t.Error("busy agent accepted a task")
	}
	if other.AssignedTo != "" {
		t.Errorf("rejected task was mutated: AssignedTo = %q", other.AssignedTo)
	}
	if other.Status != models.TaskStatusPending {
		t.Errorf("rejected task status = %s, want pending", other.Status)
	}
}

func TestAcceptTaskConcurrentExclusivity(t *testing.T) {
	a := NewBase("test", nil, okBody(nil))

	const attempts = 50
	var wg sync.WaitGroup
	var accepted int32
	var mu sync.Mutex

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			task := models.NewTask(fmt.Sprintf("task %d", i))
			if a.AcceptTask(task) {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if accepted != 1 {
		t.Errorf("accepted = %d, want exactly 1", accepted)
	}
}

func TestRunAssignedTaskSuccess(t *testing.T) {
	a := NewBase("test", nil, okBody("the result"))
	task := models.NewTask("do the thing")
	a.AcceptTask(task)

	result, err := a.RunAssignedTask(context.Background())
	if err != nil {
		t.Fatalf("RunAssignedTask: %v", err)
	}
	if result != "the result" {
		t.Errorf("result = %v, want %q", result, "the result")
	}
	if task.Status != models.TaskStatusCompleted {
		t.Errorf("task status = %s, want completed", task.Status)
	}
	if task.Progress != 100 {
		t.Errorf("progress = %v, want 100", task.Progress)
	}
	if a.Status() != models.AgentStatusCompleted {
		t.Errorf("agent status = %s, want completed", a.Status())
	}

	m := a.Metrics()
	if m.TasksCompleted != 1 || m.TasksFailed != 0 {
		t.Errorf("metrics = %+v, want 1 completed, 0 failed", m)
	}
	if m.AverageTaskTime != m.TotalExecutionTime {
		t.Errorf("average %v != total %v after a single task", m.AverageTaskTime, m.TotalExecutionTime)
	}
}

func TestRunAssignedTaskFailure(t *testing.T) {
	boom := errors.New("backend unavailable")
	a := NewBase("test", nil, failBody(boom))
	task := models.NewTask("doomed task")
	a.AcceptTask(task)

	_, err := a.RunAssignedTask(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if task.Status != models.TaskStatusFailed {
		t.Errorf("task status = %s, want failed", task.Status)
	}
	if task.Error == "" {
		t.Error("task error not recorded")
	}
	if a.Status() != models.AgentStatusError {
		t.Errorf("agent status = %s, want error", a.Status())
	}

	m := a.Metrics()
	if m.TasksFailed != 1 || m.TasksCompleted != 0 {
		t.Errorf("metrics = %+v, want 1 failed, 0 completed", m)
	}
	if m.TotalExecutionTime != 0 {
		t.Errorf("total execution time %v accumulated on failure", m.TotalExecutionTime)
	}
}

func TestRunWithoutAssignment(t *testing.T) {
	a := NewBase("test", nil, okBody(nil))
	if _, err := a.RunAssignedTask(context.Background()); !errors.Is(err, ErrNoTaskAssigned) {
		t.Errorf("err = %v, want ErrNoTaskAssigned", err)
	}
}

func TestReleaseReturnsToIdle(t *testing.T) {
	a := NewBase("test", nil, okBody(nil))
	task := models.NewTask("task")
	a.AcceptTask(task)
	a.RunAssignedTask(context.Background())

	a.Release()
	if a.Status() != models.AgentStatusIdle {
		t.Errorf("status = %s, want idle", a.Status())
	}
	if a.CurrentTask() != nil {
		t.Error("current task not cleared on release")
	}
	if !a.AcceptTask(models.NewTask("next")) {
		t.Error("released agent rejected a task")
	}
}

func TestTerminateIsAbsorbing(t *testing.T) {
	a := NewBase("test", nil, okBody(nil))
	a.Terminate()
	a.Terminate()

	if a.Status() != models.AgentStatusTerminated {
		t.Errorf("status = %s, want terminated", a.Status())
	}
	if a.AcceptTask(models.NewTask("task")) {
		t.Error("terminated agent accepted a task")
	}
	a.Release()
	if a.Status() != models.AgentStatusTerminated {
		t.Errorf("status after Release = %s, want terminated", a.Status())
	}
}

func TestTerminateWhileBusyIsAbsorbing(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	a := NewBase("test", nil, BodyFunc(func(ctx context.Context, task *models.Task) (any, error) {
		close(started)
		<-release
		return "done", nil
	}))
	task := models.NewTask("long task")
	a.AcceptTask(task)

	done := make(chan error, 1)
	go func() {
		_, err := a.RunAssignedTask(context.Background())
		done <- err
	}()

	<-started
	a.Terminate()
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("RunAssignedTask: %v", err)
	}

	if a.Status() != models.AgentStatusTerminated {
		t.Errorf("status = %s after run finished, want terminated", a.Status())
	}
	// The task outcome is still recorded.
	if task.Status != models.TaskStatusCompleted {
		t.Errorf("task status = %s, want completed", task.Status)
	}
	if a.Metrics().TasksCompleted != 1 {
		t.Errorf("metrics = %+v, want 1 completed", a.Metrics())
	}
	if a.AcceptTask(models.NewTask("next")) {
		t.Error("terminated agent accepted a task after the run finished")
	}
}

func TestMailboxOrderAndDrop(t *testing.T) {
	a := NewBase("test", nil, okBody(nil))

	for i := 0; i < mailboxCapacity; i++ {
		msg := models.NewMessage("sender", a.ID(), "note", map[string]any{"seq": i})
		if !a.Receive(msg) {
			t.Fatalf("message %d dropped below capacity", i)
		}
	}
	if a.Receive(models.NewMessage("sender", a.ID(), "note", nil)) {
		t.Error("message accepted past capacity")
	}

	var got []int
	a.Drain(func(msg models.Message) {
		got = append(got, msg.Content["seq"].(int))
	})
	if len(got) != mailboxCapacity {
		t.Fatalf("drained %d messages, want %d", len(got), mailboxCapacity)
	}
	for i, seq := range got {
		if seq != i {
			t.Fatalf("message %d has seq %d, out of order", i, seq)
		}
	}

	// Drain on an empty mailbox must not block.
	a.Drain(nil)
}

func TestVariantCapabilities(t *testing.T) {
	cases := []struct {
		agent *Base
		want  string
	}{
		{NewResearcher(nil, nil), "research"},
		{NewScraper(nil), "web_scraping"},
		{NewSearcher(), "web_search"},
		{NewAnalyzer(nil), "data_analysis"},
		{NewCoder(nil), "code_generation"},
		{NewWriter(nil), "content_generation"},
		{NewOrchestrator(), "task_decomposition"},
	}
	for _, tc := range cases {
		found := false
		for _, cap := range tc.agent.Capabilities() {
			if cap == tc.want {
				found = true
			}
		}
		if !found {
			t.Errorf("%s missing capability %q", tc.agent.Name(), tc.want)
		}
	}
}

func TestSearcherProducesRankedResults(t *testing.T) {
	a := NewSearcher()
	task := models.NewTask("search for go concurrency patterns")
	task.Parameters["num_results"] = 3
	a.AcceptTask(task)

	result, err := a.RunAssignedTask(context.Background())
	if err != nil {
		t.Fatalf("RunAssignedTask: %v", err)
	}
	m, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("result type %T", result)
	}
	results, ok := m["results"].([]map[string]any)
	if !ok || len(results) != 3 {
		t.Fatalf("results = %v, want 3 entries", m["results"])
	}
	if results[0]["rank"] != 1 {
		t.Errorf("first result rank = %v, want 1", results[0]["rank"])
	}
}

func TestScraperRequiresURL(t *testing.T) {
	a := NewScraper(nil)
	task := models.NewTask("scrape something")
	a.AcceptTask(task)

	if _, err := a.RunAssignedTask(context.Background()); err == nil {
		t.Fatal("scraper without url parameter succeeded")
	}
	if task.Status != models.TaskStatusFailed {
		t.Errorf("task status = %s, want failed", task.Status)
	}
}
