package swarm

import (
	"strings"

	"github.com/swarmforge/swarmforge/internal/agent"
	"github.com/swarmforge/swarmforge/internal/llm"
	"github.com/swarmforge/swarmforge/internal/web"
)

// AgentFactory creates agents for the coordinator: Create picks a variant
// for a concrete task description, Generic builds the profile held spare by
// auto-scaling.
type AgentFactory interface {
	Create(description string) agent.Agent
	Generic() agent.Agent
}

// Factory creates agents on demand, choosing a variant by keywords in the
// task description. Keyword groups are checked in order; the first hit wins,
// and descriptions matching no group get a researcher.
type Factory struct {
	completer llm.Completer
	fetcher   web.Fetcher
}

// NewFactory creates a factory wiring the given collaborators into the
// agents it produces. Either may be nil; agents whose primary work needs
// the missing collaborator will fail their tasks.
func NewFactory(completer llm.Completer, fetcher web.Fetcher) *Factory {
	return &Factory{completer: completer, fetcher: fetcher}
}

// variantKeywords routes descriptions to agent variants. Order matters:
// earlier groups take precedence.
var variantKeywords = []struct {
	variant  string
	keywords []string
}{
	{"scraper", []string{"scrape", "crawl", "extract", "fetch"}},
	{"researcher", []string{"research", "analyze", "investigate"}},
	{"coder", []string{"code", "program", "script", "develop"}},
	{"orchestrator", []string{"coordinate", "organize", "manage"}},
	{"analyzer", []string{"data", "statistics", "metrics"}},
	{"writer", []string{"write", "create", "generate"}},
	{"searcher", []string{"search", "find", "lookup"}},
}

// Create builds the agent variant best suited to the task description.
func (f *Factory) Create(description string) agent.Agent {
	desc := strings.ToLower(description)
	for _, group := range variantKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(desc, kw) {
				return f.build(group.variant)
			}
		}
	}
	return f.Generic()
}

// Generic builds the default agent used when no keyword applies and when
// the pool scales up ahead of demand. Researchers have the broadest
// capability set, so they are the safest profile to hold spare.
func (f *Factory) Generic() agent.Agent {
	return agent.NewResearcher(f.fetcher, f.completer)
}

func (f *Factory) build(variant string) agent.Agent {
	switch variant {
	case "scraper":
		return agent.NewScraper(f.fetcher)
	case "researcher":
		return agent.NewResearcher(f.fetcher, f.completer)
	case "coder":
		return agent.NewCoder(f.completer)
	case "orchestrator":
		return agent.NewOrchestrator()
	case "analyzer":
		return agent.NewAnalyzer(f.completer)
	case "writer":
		return agent.NewWriter(f.completer)
	case "searcher":
		return agent.NewSearcher()
	default:
		return f.Generic()
	}
}
