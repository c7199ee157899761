// Package workflow turns a composite task into a dependency-ordered plan:
// decomposition into sub-tasks, topological ordering, phase leveling,
// priority assignment and duration estimation.
package workflow

import (
	"fmt"
	"strings"

	"github.com/swarmforge/swarmforge/pkg/models"
)

// Keyword sets selecting a decomposition template. Checked in order;
// the first matching set wins.
var (
	researchKeywords    = []string{"research", "analyze", "investigate"}
	developmentKeywords = []string{"build", "create", "develop", "code"}
	scrapingKeywords    = []string{"scrape", "extract", "collect"}
	contentKeywords     = []string{"write", "generate", "content"}
)

// Decompose breaks a composite task into sub-tasks with explicit
// dependencies, selected by keyword classification of the description.
// The result is truncated to maxSubtasks; a non-positive maxSubtasks
// yields nil, which callers treat as "execute the task directly".
// Decomposition is deterministic and consults no collaborators.
func Decompose(task *models.Task, maxSubtasks int) []*models.Task {
	if maxSubtasks <= 0 {
		return nil
	}

	desc := strings.ToLower(task.Description)

	var subtasks []*models.Task
	switch {
	case containsAny(desc, researchKeywords):
		subtasks = decomposeResearch(task)
	case containsAny(desc, developmentKeywords):
		subtasks = decomposeDevelopment(task)
	case containsAny(desc, scrapingKeywords):
		subtasks = decomposeScraping(task)
	case containsAny(desc, contentKeywords):
		subtasks = decomposeContent(task)
	default:
		subtasks = decomposeGeneric(task)
	}

	if len(subtasks) > maxSubtasks {
		subtasks = subtasks[:maxSubtasks]
	}
	return subtasks
}

// decomposeResearch produces a search -> analyze -> summarize chain.
func decomposeResearch(task *models.Task) []*models.Task {
	search := subtask(fmt.Sprintf("Search for information: %s", task.Description), models.PriorityHigh,
		map[string]any{"query": task.Description, "num_results": 10})

	analyze := subtask(fmt.Sprintf("Analyze research findings for: %s", task.Description), models.PriorityMedium,
		map[string]any{"depth": 2, "analyze_sources": true}, search.ID)

	summarize := subtask(fmt.Sprintf("Summarize research on: %s", task.Description), models.PriorityMedium,
		map[string]any{"max_length": 500}, analyze.ID)

	return []*models.Task{search, analyze, summarize}
}

// decomposeDevelopment produces a requirements -> design -> implement -> test chain.
func decomposeDevelopment(task *models.Task) []*models.Task {
	requirements := subtask(fmt.Sprintf("Analyze requirements for: %s", task.Description), models.PriorityHigh,
		map[string]any{"analysis_type": "requirements"})

	design := subtask(fmt.Sprintf("Design solution for: %s", task.Description), models.PriorityHigh,
		map[string]any{"design_level": "high_level"}, requirements.ID)

	implement := subtask(fmt.Sprintf("Implement: %s", task.Description), models.PriorityHigh,
		map[string]any{"include_tests": true}, design.ID)

	test := subtask(fmt.Sprintf("Test implementation of: %s", task.Description), models.PriorityMedium,
		map[string]any{"test_type": "automated"}, implement.ID)

	return []*models.Task{requirements, design, implement, test}
}

// decomposeScraping produces a targets -> scrape -> process chain.
func decomposeScraping(task *models.Task) []*models.Task {
	targets := subtask(fmt.Sprintf("Identify scraping targets for: %s", task.Description), models.PriorityHigh,
		map[string]any{"target_type": "websites"})

	scrape := subtask(fmt.Sprintf("Scrape data for: %s", task.Description), models.PriorityHigh,
		map[string]any{"extract_links": true}, targets.ID)

	process := subtask(fmt.Sprintf("Process scraped data for: %s", task.Description), models.PriorityMedium,
		map[string]any{"processing_type": "cleaning_and_structuring"}, scrape.ID)

	return []*models.Task{targets, scrape, process}
}

// decomposeContent produces a research -> generate -> review chain.
func decomposeContent(task *models.Task) []*models.Task {
	research := subtask(fmt.Sprintf("Research content for: %s", task.Description), models.PriorityHigh,
		map[string]any{"content_research": true})

	generate := subtask(fmt.Sprintf("Generate content: %s", task.Description), models.PriorityHigh,
		map[string]any{"content_type": "article", "word_count": 1000}, research.ID)

	review := subtask(fmt.Sprintf("Review and refine content: %s", task.Description), models.PriorityMedium,
		map[string]any{"review_type": "quality_check"}, generate.ID)

	return []*models.Task{research, generate, review}
}

// decomposeGeneric is the fallback: an analyze -> execute -> validate chain.
func decomposeGeneric(task *models.Task) []*models.Task {
	analyze := subtask(fmt.Sprintf("Analyze task: %s", task.Description), models.PriorityHigh,
		map[string]any{"analysis_depth": "medium"})

	execute := subtask(fmt.Sprintf("Execute task: %s", task.Description), models.PriorityHigh,
		map[string]any{}, analyze.ID)

	validate := subtask(fmt.Sprintf("Validate results: %s", task.Description), models.PriorityMedium,
		map[string]any{"validation_type": "quality_check"}, execute.ID)

	return []*models.Task{analyze, execute, validate}
}

// subtask builds a pending sub-task with explicit priority, parameters
// and dependencies.
func subtask(description string, priority models.TaskPriority, params map[string]any, deps ...string) *models.Task {
	t := models.NewTask(description)
	t.Priority = priority
	t.Parameters = params
	t.Dependencies = deps
	return t
}

// containsAny reports whether s contains any of the keywords.
func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
