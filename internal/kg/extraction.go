package kg

import (
	"log"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/orbitalmind/kernel/internal/types"
)

// Extraction is deterministic: no LLM call, no external agent invocation.
// It is intentionally conservative, trading recall for predictability —
// moderation exists precisely because automatic extraction is not trusted
// to promote on its own.

var (
	capitalizedPhrase = regexp.MustCompile(`\b([A-Z][a-zA-Z0-9_]*(?:\s[A-Z][a-zA-Z0-9_]*){0,3})\b`)
	quotedTerm        = regexp.MustCompile(`"([^"]{2,64})"|` + "`([^`]{2,64})`")
	relationPattern   = regexp.MustCompile(`(?i)\b([A-Z][\w ]{1,40}?)\s+(uses|relates to|depends on|is a|extends|calls|implements)\s+([A-Z][\w ]{1,40}?)\b`)
)

var stopWords = map[string]bool{
	"The": true, "This": true, "That": true, "It": true, "We": true, "I": true,
	"A": true, "An": true, "And": true, "But": true, "So": true, "If": true,
}

// ExtractEntityCandidates scans thought content for capitalized phrases and
// quoted terms, staging each distinct term as a pending entity candidate.
// Confidence is higher for quoted terms (explicit emphasis) than bare
// capitalization (could just be sentence-initial).
func ExtractEntityCandidates(thoughtID, content string) []*types.EntityCandidate {
	seen := map[string]bool{}
	var out []*types.EntityCandidate

	for _, m := range capitalizedPhrase.FindAllString(content, -1) {
		name := strings.TrimSpace(m)
		if name == "" || stopWords[name] || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, &types.EntityCandidate{
			ID:              uuid.NewString(),
			Name:            name,
			Type:            "concept",
			Confidence:      0.4,
			Status:          types.CandidatePending,
			SourceThoughtID: thoughtID,
		})
	}

	for _, m := range quotedTerm.FindAllStringSubmatch(content, -1) {
		name := strings.TrimSpace(firstNonEmpty(m[1], m[2]))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, &types.EntityCandidate{
			ID:              uuid.NewString(),
			Name:            name,
			Type:            "term",
			Confidence:      0.7,
			Status:          types.CandidatePending,
			SourceThoughtID: thoughtID,
		})
	}

	log.Printf("[KG] extracted %d entity candidates from thought %s", len(out), thoughtID)
	return out
}

// ExtractEdgeCandidates looks for simple subject-relation-object patterns
// ("X uses Y", "X is a Y") and stages them as pending edge candidates,
// referenced by name since the entities may not exist yet.
func ExtractEdgeCandidates(thoughtID, content string) []*types.EdgeCandidate {
	var out []*types.EdgeCandidate
	for _, m := range relationPattern.FindAllStringSubmatch(content, -1) {
		source := strings.TrimSpace(m[1])
		relation := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(m[2]), " ", "_"))
		target := strings.TrimSpace(m[3])
		if source == "" || target == "" || source == target {
			continue
		}
		out = append(out, &types.EdgeCandidate{
			ID:              uuid.NewString(),
			SourceName:      source,
			TargetName:      target,
			Relation:        relation,
			Confidence:      0.5,
			Status:          types.CandidatePending,
			SourceThoughtID: thoughtID,
		})
	}
	log.Printf("[KG] extracted %d edge candidates from thought %s", len(out), thoughtID)
	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
