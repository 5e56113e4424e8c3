package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/serenity-spa/spachat/internal/model"
)

// Citation references one numbered context block in a reply.
type Citation struct {
	Idx        int     `json:"idx"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

// absenceMarker is what the grounding prompt carries when no context of any
// kind could be assembled. It is the mechanism that keeps the model from
// answering out of training knowledge, so it is never silently omitted.
const absenceMarker = "(no domain context found)"

const bizContextTag = "【BIZ】"

// BuildContextBlock renders matches as numbered passages with a parallel
// citation list. Deterministic: the same matches always produce identical
// text and numbering. Empty input is a valid state, not an error.
func BuildContextBlock(matches []model.KnowledgeMatch) (string, []Citation) {
	if len(matches) == 0 {
		return "", nil
	}
	lines := make([]string, 0, len(matches))
	citations := make([]Citation, 0, len(matches))
	for i, m := range matches {
		lines = append(lines, fmt.Sprintf("【%d】 (%s)\n%s", i+1, m.Title, m.Chunk))
		citations = append(citations, Citation{
			Idx:        i + 1,
			Title:      m.Title,
			Similarity: m.Similarity,
		})
	}
	return strings.Join(lines, "\n\n"), citations
}

// GroundedSystemPrompt prepends the caller's system instruction with the
// grounding clause and appends the context block, or the explicit absence
// marker when there is none.
func GroundedSystemPrompt(system, context string) string {
	if context == "" {
		context = absenceMarker
	}
	return system + "\n\n" +
		"Answer using ONLY the context below. If the answer is not in the context, say you don't know and recommend contacting the spa.\n" +
		"Keep answers concise and accurate.\n\n" +
		"CONTEXT:\n" + context + "\n"
}

// QueryExpansion is one row of the pass-2 widening policy: when a query
// matches Pattern, Suffix is appended before re-embedding.
type QueryExpansion struct {
	Pattern *regexp.Regexp
	Suffix  string
}

// DefaultExpansions compensates for short, under-specified questions whose
// embeddings drift away from longer knowledge-base passages.
func DefaultExpansions() []QueryExpansion {
	return []QueryExpansion{
		{
			Pattern: regexp.MustCompile(`(?i)\b(hours?|open|opening|closing|saturday|weekend)\b`),
			Suffix:  "business hours schedule opening times",
		},
		{
			Pattern: regexp.MustCompile(`(?i)\b(address|where.*located|location|directions?)\b`),
			Suffix:  "address location where located",
		},
	}
}

// ExpandQuery applies the first matching expansion and leaves non-matching
// queries untouched.
func ExpandQuery(query string, expansions []QueryExpansion) string {
	for _, e := range expansions {
		if e.Pattern.MatchString(query) {
			return query + ". " + e.Suffix
		}
	}
	return query
}
