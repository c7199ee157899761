package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/swarmforge/swarmforge/pkg/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestOpenCreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if s.Path() != path {
		t.Errorf("Path() = %q, want %q", s.Path(), path)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("database file does not exist at %s", path)
	}
}

func TestSaveAndGetTask(t *testing.T) {
	s := setupTestStore(t)

	task := models.NewTask("scrape example.com")
	task.Priority = models.PriorityHigh
	task.Parameters["url"] = "https://example.com"
	task.Dependencies = []string{"other-task"}

	if err := s.SaveTask(task); err != nil {
		t.Fatalf("SaveTask: %v", err)
	}

	got, err := s.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Description != task.Description {
		t.Errorf("description = %q, want %q", got.Description, task.Description)
	}
	if got.Priority != models.PriorityHigh {
		t.Errorf("priority = %v, want high", got.Priority)
	}
	if got.Parameters["url"] != "https://example.com" {
		t.Errorf("parameters = %v, url not round-tripped", got.Parameters)
	}
	if len(got.Dependencies) != 1 || got.Dependencies[0] != "other-task" {
		t.Errorf("dependencies = %v", got.Dependencies)
	}
	if got.Status != models.TaskStatusPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
}

func TestSaveTaskUpsertsOutcome(t *testing.T) {
	s := setupTestStore(t)

	task := models.NewTask("some work")
	if err := s.SaveTask(task); err != nil {
		t.Fatalf("SaveTask: %v", err)
	}

	task.Status = models.TaskStatusCompleted
	task.Progress = 100
	task.Result = map[string]any{"answer": float64(42)}
	task.AssignedTo = "agent-1"
	if err := s.SaveTask(task); err != nil {
		t.Fatalf("SaveTask update: %v", err)
	}

	got, err := s.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != models.TaskStatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.Progress != 100 {
		t.Errorf("progress = %v, want 100", got.Progress)
	}
	if got.AssignedTo != "agent-1" {
		t.Errorf("assigned_to = %q, want agent-1", got.AssignedTo)
	}
	result, ok := got.Result.(map[string]any)
	if !ok || result["answer"] != float64(42) {
		t.Errorf("result = %v, not round-tripped", got.Result)
	}
}

func TestGetTaskMissing(t *testing.T) {
	s := setupTestStore(t)
	if _, err := s.GetTask("missing"); err == nil {
		t.Error("expected error for missing task")
	}
}

func TestCountAndListByStatus(t *testing.T) {
	s := setupTestStore(t)

	done := models.NewTask("done work")
	done.Status = models.TaskStatusCompleted
	failed := models.NewTask("failed work")
	failed.Status = models.TaskStatusFailed
	pending := models.NewTask("queued work")

	for _, task := range []*models.Task{done, failed, pending} {
		if err := s.SaveTask(task); err != nil {
			t.Fatalf("SaveTask: %v", err)
		}
	}

	counts, err := s.CountByStatus()
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[models.TaskStatusCompleted] != 1 || counts[models.TaskStatusFailed] != 1 || counts[models.TaskStatusPending] != 1 {
		t.Errorf("counts = %v", counts)
	}

	ids, err := s.ListByStatus(models.TaskStatusFailed)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(ids) != 1 || ids[0] != failed.ID {
		t.Errorf("failed ids = %v, want [%s]", ids, failed.ID)
	}
}
