package generate

import (
	"fmt"
	"strings"

	"github.com/poiesic/graphhelper/core"
)

// NoDocumentationMarker stands in for the documentation context when no
// local chunk was retrieved.
const NoDocumentationMarker = "No local documentation found."

const systemInstruction = `You are an expert assistant specializing in LangGraph and LangChain for Python.
Your role is to help Python developers understand and implement solutions using these frameworks.

CRITICAL INSTRUCTIONS:
1. Base your answer primarily on the documentation context provided below.
2. Do not make up APIs, methods, or code that are not in the context.
3. If the context contains code examples, use those exact patterns.
4. If the context does not contain enough information, clearly state what is missing.
5. Always use the correct import paths and method signatures from the context.
6. Always provide Python code examples, not JavaScript or TypeScript.
7. For LangGraph, checkpointers are used with: graph = builder.compile(checkpointer=checkpointer)
8. Prefer practical usage examples over low-level interface methods.
9. Refer to context entries by their [n] number when you rely on them.

Format code using markdown code blocks with ` + "```python" + `. Be concise but thorough.`

const noEvidenceInstruction = `No documentation was retrieved for this question. Answer from general knowledge,
do not cite or quote documentation, and say that the answer is not backed by the indexed docs.`

// BuildContext renders evidence as the documentation context: local chunks
// first under "## Documentation", then web results under "## Web Search
// Results". Entries are numbered across both sections in that order.
func BuildContext(evidence []core.EvidenceChunk) string {
	var local, web []core.EvidenceChunk
	for _, c := range evidence {
		if c.Provenance == core.ProvenanceWeb {
			web = append(web, c)
		} else {
			local = append(local, c)
		}
	}

	var sb strings.Builder
	n := 0
	writeEntry := func(c core.EvidenceChunk) {
		n++
		fmt.Fprintf(&sb, "[%d] (%s) %s\n%s\n\n", n, c.Provenance, c.Source, strings.TrimSpace(c.Text))
	}

	sb.WriteString("## Documentation\n\n")
	if len(local) == 0 {
		sb.WriteString(NoDocumentationMarker + "\n\n")
	}
	for _, c := range local {
		writeEntry(c)
	}

	if len(web) > 0 {
		sb.WriteString("## Web Search Results\n\n")
		for _, c := range web {
			writeEntry(c)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatHistory renders the last maxTurns turns as "Role: content" lines.
func FormatHistory(history []core.Turn, maxTurns int) string {
	if len(history) == 0 || maxTurns == 0 {
		return "No previous conversation."
	}
	if len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}
	lines := make([]string, len(history))
	for i, t := range history {
		role := string(t.Role)
		if role == "" {
			role = string(core.RoleUser)
		}
		lines[i] = strings.ToUpper(role[:1]) + role[1:] + ": " + t.Content
	}
	return strings.Join(lines, "\n")
}

// BuildPrompt assembles the full generation prompt.
func BuildPrompt(query core.Query, evidence []core.EvidenceChunk, maxTurns int) string {
	var sb strings.Builder
	sb.WriteString(systemInstruction)
	if len(evidence) == 0 {
		sb.WriteString("\n\n" + noEvidenceInstruction)
	}
	sb.WriteString("\n\n=== DOCUMENTATION CONTEXT ===\n")
	sb.WriteString(BuildContext(evidence))
	sb.WriteString("\n=== END CONTEXT ===\n\nChat History:\n")
	sb.WriteString(FormatHistory(query.History, maxTurns))
	sb.WriteString("\n\nUser Question: ")
	sb.WriteString(query.Text)
	return sb.String()
}
