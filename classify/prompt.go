package classify

import (
	"strings"

	"github.com/poiesic/graphhelper/core"
)

const promptTemplate = `Classify the following question into exactly one of these categories:
- graph_framework: questions specifically about LangGraph (StateGraph, nodes, edges, persistence, checkpointing, etc.)
- chain_framework: questions about LangChain (chains, prompts, agents, tools, memory, etc.) that are NOT about LangGraph
- code_example: requests for code examples or implementations
- general: general questions about AI/ML or unrelated topics

Question: {query}

Respond with ONLY the category name (graph_framework, chain_framework, code_example, or general), nothing else.`

// BuildPrompt renders the classification prompt for query.
func BuildPrompt(query string) string {
	return strings.Replace(promptTemplate, "{query}", query, 1)
}

// labels lists what a response may contain for each type: the canonical
// name first, then accepted aliases.
var labels = map[core.QueryType][]string{
	core.QueryTypeGraphFramework: {"graph_framework", "langgraph"},
	core.QueryTypeChainFramework: {"chain_framework", "langchain"},
	core.QueryTypeCodeExample:    {"code_example", "code"},
	core.QueryTypeGeneral:        {"general"},
}

// ParseResponse maps a model response onto a QueryType. Types are tried in
// enumeration order and the first one with a label contained in the
// lowercased response wins.
func ParseResponse(response string) (core.QueryType, bool) {
	r := strings.ToLower(strings.TrimSpace(response))
	if r == "" {
		return "", false
	}
	for _, qt := range core.QueryTypes {
		for _, label := range labels[qt] {
			if strings.Contains(r, label) {
				return qt, true
			}
		}
	}
	return "", false
}
