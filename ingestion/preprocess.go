package ingestion

import (
	"regexp"
	"strings"
)

type rewrite struct {
	re   *regexp.Regexp
	repl string
}

// Rewrites applied in order by Preprocess. They drop site chrome that
// pollutes retrieval and normalize markdown left over from HTML exports.
var rewrites = []rewrite{
	// empty code blocks
	{regexp.MustCompile("```\\w*\\s*```"), ""},
	// html comments
	{regexp.MustCompile(`(?s)<!--.*?-->`), ""},
	// navigation chrome
	{regexp.MustCompile(`(?mi)^\s*-\s*\[[^\]]*\]\(#[^)]*\)\s*$`), ""},
	{regexp.MustCompile(`(?i)skip to (?:main )?content`), ""},
	{regexp.MustCompile(`(?i)(?:previous|next):\s*\[[^\]]*\]\([^)]*\)`), ""},
	{regexp.MustCompile(`(?i)\[edit (?:this page )?on github\][^\n]*`), ""},
	{regexp.MustCompile(`(?i)was this (?:page )?helpful\?[^\n]*`), ""},
	{regexp.MustCompile(`\[\]\([^)]*\)`), ""},
	// links with an empty target keep their text
	{regexp.MustCompile(`\[([^\]]+)\]\(\s*\)`), "$1"},
	// inline layout tags
	{regexp.MustCompile(`(?i)<(?:div|span|p|br|hr)[^>]*/?>`), ""},
	{regexp.MustCompile(`(?i)</(?:div|span|p)>`), ""},
	// trailing whitespace
	{regexp.MustCompile(`(?m)[ \t]+$`), ""},
	// more than two blank lines
	{regexp.MustCompile(`\n{4,}`), "\n\n\n"},
}

// Preprocess cleans documentation markdown before splitting.
func Preprocess(text string) string {
	for _, r := range rewrites {
		text = r.re.ReplaceAllString(text, r.repl)
	}
	return strings.TrimSpace(text)
}
