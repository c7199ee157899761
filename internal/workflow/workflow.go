package workflow

import (
	"math"
	"sort"
	"strings"

	"github.com/gammazero/toposort"

	"github.com/swarmforge/swarmforge/pkg/models"
)

// Order returns the tasks in a dependency-respecting order via topological
// sort. Dependencies that reference tasks outside the batch are treated as
// already satisfied. If the graph contains a cycle the input order is
// returned and degenerate is true.
func Order(tasks []*models.Task) (ordered []*models.Task, degenerate bool) {
	byID := make(map[string]*models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	var edges []toposort.Edge
	for _, t := range tasks {
		inBatch := false
		for _, depID := range t.Dependencies {
			if _, ok := byID[depID]; ok {
				edges = append(edges, toposort.Edge{depID, t.ID})
				inBatch = true
			}
		}
		if !inBatch {
			// No in-batch dependencies; anchor the node so it appears
			// in the sorted output.
			edges = append(edges, toposort.Edge{nil, t.ID})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return append([]*models.Task(nil), tasks...), true
	}

	ordered = make([]*models.Task, 0, len(tasks))
	for _, id := range sorted {
		if id == nil {
			continue
		}
		if t, ok := byID[id.(string)]; ok {
			ordered = append(ordered, t)
		}
	}
	return ordered, false
}

// Level groups tasks into sequential phases. Each phase contains tasks with
// no dependency among the remaining set; dependencies outside the batch
// count as pre-satisfied. Cyclic input terminates in bounded iterations:
// the remaining tasks are placed into one final catch-all phase and
// degenerate is true.
func Level(tasks []*models.Task) (phases [][]*models.Task, degenerate bool) {
	remaining := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		remaining[t.ID] = true
	}

	for len(remaining) > 0 {
		var phase []*models.Task
		for _, t := range tasks {
			if !remaining[t.ID] {
				continue
			}
			blocked := false
			for _, depID := range t.Dependencies {
				if remaining[depID] {
					blocked = true
					break
				}
			}
			if !blocked {
				phase = append(phase, t)
			}
		}

		if len(phase) == 0 {
			// Cycle or malformed graph: dump the rest into a terminal
			// phase instead of looping forever.
			var rest []*models.Task
			for _, t := range tasks {
				if remaining[t.ID] {
					rest = append(rest, t)
				}
			}
			return append(phases, rest), true
		}

		for _, t := range phase {
			delete(remaining, t.ID)
		}
		phases = append(phases, phase)
	}

	return phases, false
}

// AssignPriorities adjusts unset (medium) priorities by workflow position:
// the first third is promoted to high, the last third demoted to low.
// Explicitly-set priorities are never overwritten. The returned slice is
// sorted by priority descending, then dependency count ascending, so
// less-blocked work runs first among equal priorities.
func AssignPriorities(ordered []*models.Task) []*models.Task {
	n := len(ordered)
	for i, t := range ordered {
		if t.Priority != models.PriorityMedium {
			continue
		}
		switch {
		case i < n/3:
			t.Priority = models.PriorityHigh
		case i > 2*n/3:
			t.Priority = models.PriorityLow
		}
	}

	prioritized := append([]*models.Task(nil), ordered...)
	sort.SliceStable(prioritized, func(i, j int) bool {
		if prioritized[i].Priority != prioritized[j].Priority {
			return prioritized[i].Priority > prioritized[j].Priority
		}
		return len(prioritized[i].Dependencies) < len(prioritized[j].Dependencies)
	})
	return prioritized
}

// durationEntry maps a description keyword to an estimated duration.
type durationEntry struct {
	keyword string
	seconds int
}

// durationTable is checked in order; the first keyword found in a task's
// description supplies its estimate.
var durationTable = []durationEntry{
	{"search", 30},
	{"scrape", 60},
	{"analyze", 120},
	{"code", 180},
	{"test", 90},
	{"write", 150},
	{"review", 60},
}

// defaultTaskSeconds is the estimate for tasks matching no keyword.
const defaultTaskSeconds = 60

// Estimate is a total duration estimate in several units.
type Estimate struct {
	// Seconds is the total estimated seconds.
	Seconds int `json:"estimated_seconds" yaml:"estimated_seconds"`
	// Minutes is Seconds/60, rounded to one decimal.
	Minutes float64 `json:"estimated_minutes" yaml:"estimated_minutes"`
	// Hours is Seconds/3600, rounded to two decimals.
	Hours float64 `json:"estimated_hours" yaml:"estimated_hours"`
}

// EstimateDuration sums per-task estimates looked up by the first matching
// keyword in each task's description.
func EstimateDuration(tasks []*models.Task) Estimate {
	total := 0
	for _, t := range tasks {
		total += estimateTask(t)
	}
	return Estimate{
		Seconds: total,
		Minutes: math.Round(float64(total)/60*10) / 10,
		Hours:   math.Round(float64(total)/3600*100) / 100,
	}
}

func estimateTask(t *models.Task) int {
	desc := strings.ToLower(t.Description)
	for _, entry := range durationTable {
		if strings.Contains(desc, entry.keyword) {
			return entry.seconds
		}
	}
	return defaultTaskSeconds
}
