package agent

import (
	"context"
	"fmt"

	"github.com/swarmforge/swarmforge/internal/llm"
	"github.com/swarmforge/swarmforge/internal/web"
	"github.com/swarmforge/swarmforge/internal/workflow"
	"github.com/swarmforge/swarmforge/pkg/models"
)

// Capability tag sets for the concrete agent variants. Tags are matched
// case-insensitively against task descriptions by the coordinator's router.
var (
	researcherCaps = []string{"research", "information_synthesis", "data_analysis", "search"}
	scraperCaps    = []string{"web_scraping", "data_extraction", "content_fetching"}
	coderCaps      = []string{"code_execution", "script_running", "code_generation", "file_operations"}
	analyzerCaps   = []string{
		"data_analysis", "statistical_analysis", "data_visualization",
		"pattern_recognition", "data_cleaning", "metrics_calculation", "trend_analysis",
	}
	writerCaps = []string{
		"content_generation", "text_writing", "article_creation",
		"summary_writing", "creative_writing", "technical_writing", "content_planning",
	}
	searcherCaps = []string{
		"web_search", "information_retrieval", "source_validation",
		"result_ranking", "query_optimization", "deep_search", "fact_finding",
	}
	orchestratorCaps = []string{
		"task_decomposition", "workflow_orchestration", "agent_coordination",
		"dependency_management", "task_prioritization", "resource_allocation",
		"progress_monitoring",
	}
)

// NewResearcher creates an agent that gathers and synthesizes information.
// The fetcher is used when the task carries a "url" parameter; the completer
// provides optional analysis and degrades to a placeholder on failure.
func NewResearcher(fetcher web.Fetcher, completer llm.Completer, opts ...Option) *Base {
	body := BodyFunc(func(ctx context.Context, task *models.Task) (any, error) {
		result := map[string]any{"task": task.Description}

		if url, ok := stringParam(task, "url"); ok && fetcher != nil {
			doc, err := fetcher.Fetch(ctx, url)
			if err != nil {
				return nil, err
			}
			result["source"] = doc.URL
			result["title"] = doc.Title
			result["links_found"] = len(doc.Links)
			result["analysis"] = degradedComplete(ctx, completer,
				fmt.Sprintf("Analyze this content and provide 2-3 key insights:\n%s", clip(doc.Text, 800)), 0.3)
			return result, nil
		}

		result["analysis"] = degradedComplete(ctx, completer,
			fmt.Sprintf("Analyze this topic and provide 2-3 key insights:\n%s", task.Description), 0.3)
		return result, nil
	})
	return NewBase("researcher", researcherCaps, body, opts...)
}

// NewScraper creates an agent that fetches and extracts page content.
// The "url" parameter designates its primary work; fetch failures fail the task.
func NewScraper(fetcher web.Fetcher, opts ...Option) *Base {
	body := BodyFunc(func(ctx context.Context, task *models.Task) (any, error) {
		url, ok := stringParam(task, "url")
		if !ok {
			return nil, fmt.Errorf("scraping task %s has no url parameter", task.ID)
		}

		doc, err := fetcher.Fetch(ctx, url)
		if err != nil {
			return nil, err
		}

		return map[string]any{
			"url":         doc.URL,
			"status_code": doc.StatusCode,
			"title":       doc.Title,
			"text":        doc.Text,
			"links":       doc.Links,
		}, nil
	})
	return NewBase("scraper", scraperCaps, body, opts...)
}

// NewSearcher creates an agent that performs ranked lookups.
func NewSearcher(opts ...Option) *Base {
	body := BodyFunc(func(ctx context.Context, task *models.Task) (any, error) {
		query := task.Description
		if q, ok := stringParam(task, "query"); ok {
			query = q
		}

		numResults := intParam(task, "num_results", 10)
		if numResults > 5 {
			numResults = 5
		}

		results := make([]map[string]any, 0, numResults)
		for i := 0; i < numResults; i++ {
			results = append(results, map[string]any{
				"title":   fmt.Sprintf("Search result %d for '%s'", i+1, query),
				"url":     fmt.Sprintf("https://example.com/result%d", i+1),
				"snippet": fmt.Sprintf("This is a sample snippet for search result %d", i+1),
				"rank":    i + 1,
			})
		}
		return map[string]any{"query": query, "results": results}, nil
	})
	return NewBase("searcher", searcherCaps, body, opts...)
}

// NewAnalyzer creates an agent for data and trend analysis. Analysis text
// comes from the completer and degrades to a placeholder on failure.
func NewAnalyzer(completer llm.Completer, opts ...Option) *Base {
	body := BodyFunc(func(ctx context.Context, task *models.Task) (any, error) {
		input := task.Description
		if data, ok := stringParam(task, "data"); ok {
			input = data
		}

		return map[string]any{
			"task":     task.Description,
			"analysis": degradedComplete(ctx, completer, fmt.Sprintf("Analyze this data and provide 2-3 key insights:\n%s", clip(input, 800)), 0.3),
		}, nil
	})
	return NewBase("analyzer", analyzerCaps, body, opts...)
}

// NewCoder creates an agent whose primary work is code generation; a
// missing or failing completer fails the task.
func NewCoder(completer llm.Completer, opts ...Option) *Base {
	body := BodyFunc(func(ctx context.Context, task *models.Task) (any, error) {
		if completer == nil {
			return nil, fmt.Errorf("code generation requires a completion backend")
		}

		language := "python"
		if lang, ok := stringParam(task, "language"); ok {
			language = lang
		}

		code, err := completer.Complete(ctx,
			fmt.Sprintf("Generate %s code for:\n%s\n\nProvide only the code, no explanations.", language, task.Description), 0.1)
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		return map[string]any{"language": language, "code": code}, nil
	})
	return NewBase("coder", coderCaps, body, opts...)
}

// NewWriter creates an agent whose primary work is content generation; a
// missing or failing completer fails the task.
func NewWriter(completer llm.Completer, opts ...Option) *Base {
	body := BodyFunc(func(ctx context.Context, task *models.Task) (any, error) {
		if completer == nil {
			return nil, fmt.Errorf("content generation requires a completion backend")
		}

		wordCount := intParam(task, "word_count", 1000)
		content, err := completer.Complete(ctx,
			fmt.Sprintf("Write roughly %d words:\n%s", wordCount, task.Description), 0.7)
		if err != nil {
			return nil, fmt.Errorf("generate content: %w", err)
		}
		return map[string]any{"content": content, "word_target": wordCount}, nil
	})
	return NewBase("writer", writerCaps, body, opts...)
}

// NewOrchestrator creates an agent that decomposes composite tasks into
// leveled, prioritized workflows via the workflow planner.
func NewOrchestrator(opts ...Option) *Base {
	body := BodyFunc(func(ctx context.Context, task *models.Task) (any, error) {
		maxSubtasks := intParam(task, "max_subtasks", workflow.DefaultMaxSubtasks)

		plan := workflow.BuildPlan(task, maxSubtasks)
		if plan.Direct {
			return map[string]any{
				"orchestration_result": "simple_execution",
				"task":                 task.Description,
				"execution_type":       "single_agent",
			}, nil
		}

		return plan, nil
	})
	return NewBase("orchestrator", orchestratorCaps, body, opts...)
}

// stringParam returns a string task parameter.
func stringParam(task *models.Task, key string) (string, bool) {
	v, ok := task.Parameters[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// intParam returns an integer task parameter, tolerating float values
// from JSON decoding.
func intParam(task *models.Task, key string, fallback int) int {
	switch v := task.Parameters[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

// degradedComplete runs the completer and degrades to a placeholder when
// the completer is absent or fails.
func degradedComplete(ctx context.Context, completer llm.Completer, prompt string, temperature float64) string {
	if completer == nil {
		return "analysis unavailable"
	}
	text, err := completer.Complete(ctx, prompt, temperature)
	if err != nil {
		return "analysis unavailable"
	}
	return text
}

// clip truncates s to at most n bytes.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
