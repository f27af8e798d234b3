package aggregate

import (
	"strings"

	"github.com/spoolkit/spool/unit"
)

// Merge deduplicates extracted items across units. Two items are duplicates
// when their normalized texts are equal or one contains the other; the
// longer item wins because it is strictly more informative. A single pass
// both adds new entries and retroactively evicts previously kept shorter
// ones. Pure function: the input slice is never mutated.
//
// Quadratic in item count, which stays small: units x the per-unit cap the
// processor's prompt enforces.
func Merge(items []unit.ExtractedItem) []unit.ExtractedItem {
	var kept []unit.ExtractedItem

	for _, candidate := range items {
		normCandidate := Normalize(candidate.Text)
		if normCandidate == "" {
			continue
		}

		subsumed := false
		next := kept[:0:0]
		for _, existing := range kept {
			normExisting := Normalize(existing.Text)

			if normExisting == normCandidate || strings.Contains(normExisting, normCandidate) {
				// Candidate adds nothing.
				subsumed = true
				next = append(next, existing)
				continue
			}
			if strings.Contains(normCandidate, normExisting) {
				// Candidate supersedes this shorter item; evict it.
				continue
			}
			next = append(next, existing)
		}

		if !subsumed {
			next = append(next, candidate)
		}
		kept = next
	}

	return kept
}

// Normalize case-folds and collapses whitespace for dedup comparison.
func Normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// TotalLength sums the items' extracted lengths.
func TotalLength(items []unit.ExtractedItem) int {
	total := 0
	for _, it := range items {
		total += it.Length
	}
	return total
}
