// Package model manages the registry of generation endpoints and the
// capability-based selection between them, including per-endpoint health
// tracking with a circuit breaker.
package model

// Capability is a semantic class of generation work. Each pipeline stage
// requests a capability rather than a concrete model, and the registry
// resolves it to an endpoint chain.
type Capability string

const (
	// CapabilityPlanning is used to produce the document skeleton.
	CapabilityPlanning Capability = "planning"

	// CapabilityWriting is used to generate section prose.
	CapabilityWriting Capability = "writing"

	// CapabilitySummarizing is used to compress rolling memory.
	CapabilitySummarizing Capability = "summarizing"

	// CapabilityExtraction is used to pull structured items out of
	// source text slices.
	CapabilityExtraction Capability = "extraction"
)

// AllCapabilities lists every capability the pipeline requests.
var AllCapabilities = []Capability{
	CapabilityPlanning,
	CapabilityWriting,
	CapabilitySummarizing,
	CapabilityExtraction,
}

// IsValid reports whether the capability is one the pipeline understands.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityPlanning, CapabilityWriting, CapabilitySummarizing, CapabilityExtraction:
		return true
	}
	return false
}

func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts a string to a Capability.
// Returns the empty Capability for unknown strings.
func ParseCapability(s string) Capability {
	c := Capability(s)
	if c.IsValid() {
		return c
	}
	return ""
}
