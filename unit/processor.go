package unit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spoolkit/spool/llm"
	"github.com/spoolkit/spool/model"
	"github.com/spoolkit/spool/plan"
)

// DefaultMaxItems caps extracted items per unit. The cap rides in the
// prompt, which keeps downstream deduplication quadratic over a bounded set.
const DefaultMaxItems = 25

// Processor executes one unit per call.
type Processor struct {
	completer llm.Completer
	logger    *slog.Logger
	maxItems  int
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithMaxItems overrides the per-unit extracted item cap.
func WithMaxItems(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxItems = n
		}
	}
}

// NewProcessor creates a Processor.
func NewProcessor(completer llm.Completer, opts ...Option) *Processor {
	p := &Processor{
		completer: completer,
		logger:    slog.Default(),
		maxItems:  DefaultMaxItems,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one unit attempt: build the instruction, make exactly one
// generation call, classify the outcome. A provider error yields a failed
// Result with the error captured verbatim; the caller decides whether to
// halt or skip.
func (p *Processor) Process(ctx context.Context, u plan.Unit, jp *plan.JobPlan, memoryView string) Result {
	instruction := p.buildInstruction(u, jp, memoryView)

	capability := model.CapabilityWriting
	if jp.Kind == plan.KindAnalysis {
		capability = model.CapabilityExtraction
	}

	resp, err := p.completer.Complete(ctx, llm.Request{
		Capability: capability.String(),
		Messages: []llm.Message{
			{Role: "user", Content: instruction},
		},
	})
	if err != nil {
		p.logger.Warn("Unit generation call failed",
			"unit", u.ID,
			"label", u.Label,
			"error", err)
		return Result{
			UnitID: u.ID,
			Label:  u.Label,
			Status: StatusFailed,
			Error:  err.Error(),
		}
	}

	return p.classify(u, jp, resp.Content)
}

// classify turns raw model output into a Result.
func (p *Processor) classify(u plan.Unit, jp *plan.JobPlan, content string) Result {
	result := Result{
		UnitID: u.ID,
		Label:  u.Label,
		Status: StatusSuccess,
	}

	if jp.Kind == plan.KindGenerative {
		text := strings.TrimSpace(content)
		if text == "" {
			result.Status = StatusDegraded
		}
		result.Text = text
		return result
	}

	items, degraded := ParseItems(content, u.Label)
	result.Items = items
	if degraded {
		result.Status = StatusDegraded
		result.Text = strings.TrimSpace(content)
		p.logger.Warn("Unit output kept raw after parse miss",
			"unit", u.ID,
			"label", u.Label)
	}
	return result
}

// buildInstruction assembles the full per-unit instruction: original task,
// whole-plan overview, bounded memory, this unit's goal, and (analysis) the
// literal source slice. Every unit sees the whole document's shape, not just
// its neighbor.
func (p *Processor) buildInstruction(u plan.Unit, jp *plan.JobPlan, memoryView string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Task: %s\n\n", jp.Summary)
	fmt.Fprintf(&b, "Document: %s\n", jp.Title)
	b.WriteString("Overall structure:\n")
	for _, other := range jp.Units {
		marker := "  "
		if other.ID == u.ID {
			marker = "> "
		}
		fmt.Fprintf(&b, "%s%d. %s", marker, other.ID, other.Label)
		if other.Goal != "" {
			fmt.Fprintf(&b, ": %s", other.Goal)
		}
		b.WriteString("\n")
	}

	if len(jp.Constraints) > 0 {
		b.WriteString("\nConstraints:\n")
		for _, c := range jp.Constraints {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}

	if memoryView != "" {
		b.WriteString("\nWhat has been produced so far (compressed):\n")
		b.WriteString(memoryView)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nYou are now working on unit %d: %s\n", u.ID, u.Label)
	if u.Goal != "" {
		fmt.Fprintf(&b, "Goal: %s\n", u.Goal)
	}
	if len(u.KeyPoints) > 0 {
		b.WriteString("Key points to cover:\n")
		for _, kp := range u.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", kp)
		}
	}

	if jp.Kind == plan.KindAnalysis {
		fmt.Fprintf(&b, "\nExtract the most significant passages from the source below. "+
			"Return at most %d items as a JSON array of "+
			`{"text": "...", "attribution": "..."} objects. JSON only.`+"\n", p.maxItems)
		b.WriteString("\nSource text:\n")
		b.WriteString(u.Slice)
	} else {
		fmt.Fprintf(&b, "\nWrite this unit now, approximately %d words. "+
			"Do not repeat earlier material; continue from it.\n", u.TargetSize)
	}

	return b.String()
}
