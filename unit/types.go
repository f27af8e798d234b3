// Package unit executes a single planned unit: it assembles the full
// instruction, makes exactly one generation call per attempt, and classifies
// the outcome.
package unit

// Status classifies the outcome of one unit attempt.
type Status string

const (
	// StatusSuccess means the output parsed cleanly.
	StatusSuccess Status = "success"

	// StatusDegraded means the output could not be parsed into the
	// expected structure but was preserved raw. A quality flag, not a
	// failure: losing data to a parse miss is worse than keeping slightly
	// malformed data.
	StatusDegraded Status = "degraded"

	// StatusFailed means the generation call itself errored.
	StatusFailed Status = "failed"
)

// ExtractedItem is one structured item pulled from a source slice during an
// analysis job.
type ExtractedItem struct {
	// Text is the extracted passage, verbatim.
	Text string `json:"text"`

	// Attribution names the speaker or author, when identifiable.
	Attribution string `json:"attribution,omitempty"`

	// SourceLabel is the label of the unit the item came from.
	SourceLabel string `json:"source_label,omitempty"`

	// Length is the item's text length in runes, computed at parse time.
	Length int `json:"length"`
}

// Result is the immutable record of one unit attempt.
type Result struct {
	UnitID int    `json:"unit_id"`
	Label  string `json:"label"`
	Status Status `json:"status"`

	// Text is the generated prose (generative jobs) or the raw model
	// output retained on a degraded parse.
	Text string `json:"text,omitempty"`

	// Items holds extracted items. Analysis jobs only.
	Items []ExtractedItem `json:"items,omitempty"`

	// Error captures the provider error verbatim when Status is failed.
	Error string `json:"error,omitempty"`
}

// Ok reports whether the result carries usable output.
func (r Result) Ok() bool {
	return r.Status == StatusSuccess || r.Status == StatusDegraded
}
