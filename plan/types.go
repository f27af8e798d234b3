// Package plan decomposes a large document, or a large target output, into
// an ordered sequence of units the pipeline processes one at a time.
package plan

// Kind distinguishes the two job shapes the pipeline supports.
type Kind string

const (
	// KindGenerative writes a long document section by section.
	KindGenerative Kind = "generative"

	// KindAnalysis slices a large source text and extracts structured
	// items from each slice.
	KindAnalysis Kind = "analysis"
)

// IsValid reports whether the kind is known.
func (k Kind) IsValid() bool {
	return k == KindGenerative || k == KindAnalysis
}

// Unit describes one element of a job's linear decomposition. Units are
// immutable once the plan is built; ID is the 1-based ordinal that defines
// processing order.
type Unit struct {
	ID         int      `json:"id"`
	Label      string   `json:"label"`
	Goal       string   `json:"goal"`
	TargetSize int      `json:"target_size"` // words
	KeyPoints  []string `json:"key_points,omitempty"`

	// Slice is the literal source text this unit covers. Analysis jobs only.
	Slice string `json:"slice,omitempty"`
}

// JobPlan is the skeleton built once per job and read by every unit.
type JobPlan struct {
	Kind        Kind     `json:"kind"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary"` // thesis or task summary
	Units       []Unit   `json:"units"`
	Constraints []string `json:"constraints,omitempty"`

	// Degraded marks a plan built from the generic fallback because the
	// model's skeleton was unusable. Non-fatal; surfaced for quality
	// reporting.
	Degraded bool `json:"degraded,omitempty"`
}

// TotalTargetSize sums the per-unit targets. Always >= the requested total:
// rounding during planning only ever rounds up.
func (p *JobPlan) TotalTargetSize() int {
	total := 0
	for _, u := range p.Units {
		total += u.TargetSize
	}
	return total
}

// Unit returns the descriptor with the given ordinal, or nil.
func (p *JobPlan) Unit(id int) *Unit {
	for i := range p.Units {
		if p.Units[i].ID == id {
			return &p.Units[i]
		}
	}
	return nil
}
