// Package state provides SQLite-backed persistence for task outcomes, so a
// swarm run leaves an inspectable record behind.
package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/swarmforge/swarmforge/pkg/models"
)

// Store wraps an SQLite database holding submitted tasks and their outcomes.
type Store struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// DefaultPath returns the default database location under the user's data
// directory.
func DefaultPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "swarmforge", "swarmforge.db")
}

// Open opens an SQLite database at the given path and applies the schema.
// It creates the parent directories if they don't exist.
// WAL mode is enabled for concurrent reads.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	s := &Store{conn: conn, path: path}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// Path returns the path to the database file.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			priority INTEGER NOT NULL,
			parameters TEXT,
			dependencies TEXT,
			created_at DATETIME NOT NULL,
			assigned_to TEXT,
			status TEXT NOT NULL,
			result TEXT,
			error TEXT,
			progress REAL NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create tasks table: %w", err)
	}

	_, err = s.conn.Exec(`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`)
	if err != nil {
		return fmt.Errorf("create status index: %w", err)
	}
	return nil
}

// SaveTask inserts or updates a task row. Parameters, dependencies and the
// result are stored as JSON.
func (s *Store) SaveTask(task *models.Task) error {
	params, err := json.Marshal(task.Parameters)
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}
	deps, err := json.Marshal(task.Dependencies)
	if err != nil {
		return fmt.Errorf("encode dependencies: %w", err)
	}
	result, err := json.Marshal(task.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.conn.Exec(`
		INSERT INTO tasks (id, description, priority, parameters, dependencies,
			created_at, assigned_to, status, result, error, progress, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			assigned_to = excluded.assigned_to,
			status = excluded.status,
			result = excluded.result,
			error = excluded.error,
			progress = excluded.progress,
			updated_at = excluded.updated_at
	`, task.ID, task.Description, int(task.Priority), string(params), string(deps),
		task.CreatedAt.UTC(), task.AssignedTo, string(task.Status), string(result),
		task.Error, task.Progress, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save task %s: %w", task.ID, err)
	}
	return nil
}

// GetTask loads a task by ID. Returns sql.ErrNoRows if absent.
func (s *Store) GetTask(id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.conn.QueryRow(`
		SELECT id, description, priority, parameters, dependencies,
			created_at, assigned_to, status, result, error, progress
		FROM tasks WHERE id = ?
	`, id)

	var task models.Task
	var priority int
	var params, deps, result, status string
	if err := row.Scan(&task.ID, &task.Description, &priority, &params, &deps,
		&task.CreatedAt, &task.AssignedTo, &status, &result, &task.Error,
		&task.Progress); err != nil {
		return nil, fmt.Errorf("load task %s: %w", id, err)
	}

	task.Priority = models.TaskPriority(priority)
	task.Status = models.TaskStatus(status)
	if err := json.Unmarshal([]byte(params), &task.Parameters); err != nil {
		return nil, fmt.Errorf("decode parameters for %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(deps), &task.Dependencies); err != nil {
		return nil, fmt.Errorf("decode dependencies for %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(result), &task.Result); err != nil {
		return nil, fmt.Errorf("decode result for %s: %w", id, err)
	}
	return &task, nil
}

// ListByStatus returns the IDs of tasks in the given status, oldest first.
func (s *Store) ListByStatus(status models.TaskStatus) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query(`SELECT id FROM tasks WHERE status = ? ORDER BY created_at`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list tasks by status: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan task id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountByStatus returns task counts grouped by status.
func (s *Store) CountByStatus() (map[models.TaskStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query(`SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.TaskStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[models.TaskStatus(status)] = n
	}
	return counts, rows.Err()
}
