package retrieve

import "github.com/poiesic/graphhelper/core"

// Per-type prefixes that steer the embedding toward the matching part of
// the documentation. The docs are Python-first, so every type also gets a
// "Python" variant.
var expansionPrefixes = map[core.QueryType][]string{
	core.QueryTypeGraphFramework: {"LangGraph Python", "from langgraph", "builder.compile", "StateGraph"},
	core.QueryTypeChainFramework: {"LangChain Python", "from langchain"},
	core.QueryTypeCodeExample:    {"Python code example", "def"},
}

// ExpandQueries returns the search texts for base: base itself first, then
// the Python variant, then the type-specific variants.
func ExpandQueries(base string, qt core.QueryType) []string {
	queries := []string{base, "Python " + base}
	for _, prefix := range expansionPrefixes[qt] {
		queries = append(queries, prefix+" "+base)
	}
	return queries
}

// sourcePriority orders documentation sources per query type. Sources not
// listed rank after all listed ones.
var sourcePriority = map[core.QueryType][]string{
	core.QueryTypeGraphFramework: {"langgraph_full", "langgraph", "langchain_full", "langchain"},
	core.QueryTypeChainFramework: {"langchain_full", "langchain", "langgraph_full", "langgraph"},
	core.QueryTypeCodeExample:    {"langgraph_full", "langchain_full", "langgraph", "langchain"},
	core.QueryTypeGeneral:        {"langgraph_full", "langchain_full", "langgraph", "langchain"},
}

func sourceRank(qt core.QueryType, source string) int {
	order, ok := sourcePriority[qt]
	if !ok {
		order = sourcePriority[core.QueryTypeGeneral]
	}
	for i, s := range order {
		if s == source {
			return i
		}
	}
	return len(order)
}
