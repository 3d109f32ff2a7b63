package search

import (
	"strings"

	"github.com/shaibs/reqsearch/internal/query"
)

// labelAdjacencyWindow is how far past a field label (in bytes) the entity
// may start and still count as adjacent. Chunk content is "label: value"
// lines, so a small window is enough.
const labelAdjacencyWindow = 80

// chunkBoost returns the multiplier for one chunk. Top tier: the boost
// entity sits next to one of its expected field labels. Middle tier: the
// entity appears anywhere in the chunk. Otherwise 1.0.
func (r *Ranker) chunkBoost(content string, parsed *query.Parsed) float64 {
	entity := boostEntity(parsed)
	if entity == "" || content == "" {
		return 1
	}
	lcContent := strings.ToLower(content)
	lcEntity := strings.ToLower(entity)
	if !strings.Contains(lcContent, lcEntity) {
		return 1
	}
	for _, field := range parsed.TargetFields {
		for _, label := range r.labels[field] {
			if labelAdjacent(lcContent, strings.ToLower(label), lcEntity) {
				return r.policy.LabelBoost
			}
		}
	}
	return r.policy.MentionBoost
}

// boostEntity picks the entity value the boost tiers apply to: the one
// matching the query's primary intent.
func boostEntity(parsed *query.Parsed) string {
	switch parsed.Intent {
	case query.IntentPerson:
		return parsed.Entities.PersonName
	case query.IntentProject:
		return parsed.Entities.ProjectName
	}
	return ""
}

// labelAdjacent reports whether value starts inside the adjacency window
// after any occurrence of label. Inputs are already lowercased.
func labelAdjacent(content, label, value string) bool {
	if label == "" {
		return false
	}
	from := 0
	for {
		i := strings.Index(content[from:], label)
		if i < 0 {
			return false
		}
		start := from + i + len(label)
		end := start + labelAdjacencyWindow
		if end > len(content) {
			end = len(content)
		}
		if strings.Contains(content[start:end], value) {
			return true
		}
		from = start
	}
}
