package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spoolkit/spool/llm"
	"github.com/spoolkit/spool/model"
)

// Config holds the decomposition policy.
type Config struct {
	// MinUnits is the lower bound on units per job.
	MinUnits int

	// MaxUnitSize is the largest target size (words) a single unit may
	// carry. Larger jobs get more units.
	MaxUnitSize int
}

// DefaultConfig returns the standard decomposition policy.
func DefaultConfig() Config {
	return Config{
		MinUnits:    2,
		MaxUnitSize: 1500,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MinUnits <= 0 {
		return fmt.Errorf("MinUnits must be positive, got %d", c.MinUnits)
	}
	if c.MaxUnitSize <= 0 {
		return fmt.Errorf("MaxUnitSize must be positive, got %d", c.MaxUnitSize)
	}
	return nil
}

// Request describes the job to decompose.
type Request struct {
	// Kind selects generative or analysis decomposition.
	Kind Kind

	// Task is the original user task. For generative jobs this is the
	// writing prompt; for analysis jobs, the analysis instruction.
	Task string

	// SourceText is the document to analyze. Analysis jobs only.
	SourceText string

	// TargetTotalSize is the requested output size in words. Generative
	// jobs only; analysis jobs size themselves from the source.
	TargetTotalSize int

	// Constraints are carried verbatim into the plan.
	Constraints []string
}

// Planner builds a JobPlan, asking the model for structural metadata and
// falling back to a generic evenly sized plan when that fails. Planning
// never hard-fails on model output alone.
type Planner struct {
	config    Config
	completer llm.Completer
	logger    *slog.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) {
		p.logger = logger
	}
}

// New creates a Planner. Returns an error if the configuration is invalid.
func New(completer llm.Completer, cfg Config, opts ...Option) (*Planner, error) {
	if cfg.MinUnits == 0 && cfg.MaxUnitSize == 0 {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Planner{
		config:    cfg,
		completer: completer,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Plan decomposes the request into an ordered unit sequence.
func (p *Planner) Plan(ctx context.Context, req Request) (*JobPlan, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	size := req.TargetTotalSize
	if req.Kind == KindAnalysis {
		size = CountWords(req.SourceText)
	}

	unitCount := ceilDiv(size, p.config.MaxUnitSize)
	if unitCount < p.config.MinUnits {
		unitCount = p.config.MinUnits
	}
	perUnit := ceilDiv(size, unitCount)

	skeleton, err := p.proposeSkeleton(ctx, req, unitCount)
	degraded := false
	if err != nil {
		p.logger.Warn("Skeleton generation failed, using generic plan",
			"kind", req.Kind,
			"units", unitCount,
			"error", err)
		skeleton = defaultSkeleton(req, unitCount)
		degraded = true
	}

	jp := &JobPlan{
		Kind:        req.Kind,
		Title:       skeleton.Title,
		Summary:     skeleton.Summary,
		Constraints: req.Constraints,
		Degraded:    degraded,
		Units:       make([]Unit, unitCount),
	}
	if jp.Title == "" {
		jp.Title = fallbackTitle(req)
	}
	if jp.Summary == "" {
		jp.Summary = req.Task
	}

	for i := 0; i < unitCount; i++ {
		u := Unit{
			ID:         i + 1,
			TargetSize: perUnit,
		}
		if i < len(skeleton.Units) {
			u.Label = skeleton.Units[i].Label
			u.Goal = skeleton.Units[i].Goal
			u.KeyPoints = skeleton.Units[i].KeyPoints
		}
		if u.Label == "" {
			u.Label = genericLabel(req.Kind, i+1)
		}
		jp.Units[i] = u
	}

	if req.Kind == KindAnalysis {
		slices := distributeSource(req.SourceText, unitCount)
		for i := range jp.Units {
			jp.Units[i].Slice = slices[i]
		}
	}

	return jp, nil
}

func validateRequest(req Request) error {
	if !req.Kind.IsValid() {
		return fmt.Errorf("invalid job kind %q", req.Kind)
	}
	if req.Task == "" {
		return fmt.Errorf("task is required")
	}
	switch req.Kind {
	case KindGenerative:
		if req.TargetTotalSize <= 0 {
			return fmt.Errorf("generative jobs require a positive target size")
		}
	case KindAnalysis:
		if strings.TrimSpace(req.SourceText) == "" {
			return fmt.Errorf("analysis jobs require source text")
		}
	}
	return nil
}

// skeleton is the structural metadata the model proposes.
type skeleton struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Units   []struct {
		Label     string   `json:"label"`
		Goal      string   `json:"goal"`
		KeyPoints []string `json:"key_points"`
	} `json:"units"`
}

const skeletonPrompt = `You are planning a %d-part %s.

Task:
%s

Respond with JSON only, in this exact shape:
{"title": "...", "summary": "...", "units": [{"label": "...", "goal": "...", "key_points": ["..."]}]}

Provide exactly %d units in reading order. Labels are short headings; goals
are one sentence; key_points list 2-4 concrete things the unit must cover.`

// proposeSkeleton asks the model for the plan's structural metadata.
func (p *Planner) proposeSkeleton(ctx context.Context, req Request, unitCount int) (*skeleton, error) {
	target := "document"
	if req.Kind == KindAnalysis {
		target = "document analysis"
	}

	task := req.Task
	if req.Kind == KindAnalysis {
		// Give the model a taste of the source so labels fit the material.
		task += "\n\nOpening of the source text:\n" + head(req.SourceText, 2000)
	}

	resp, err := p.completer.Complete(ctx, llm.Request{
		Capability: model.CapabilityPlanning.String(),
		Messages: []llm.Message{
			{Role: "user", Content: fmt.Sprintf(skeletonPrompt, unitCount, target, task, unitCount)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("skeleton call: %w", err)
	}

	sk, err := parseSkeleton(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("skeleton parse: %w", err)
	}
	return sk, nil
}

// parseSkeleton tries direct JSON, then a fenced block, then the first
// balanced object.
func parseSkeleton(content string) (*skeleton, error) {
	candidates := []string{
		strings.TrimSpace(content),
		llm.ExtractFenced(content),
		llm.ExtractBalanced(content),
	}

	var lastErr error
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		var sk skeleton
		if err := json.Unmarshal([]byte(candidate), &sk); err != nil {
			lastErr = err
			continue
		}
		if len(sk.Units) == 0 {
			lastErr = fmt.Errorf("skeleton has no units")
			continue
		}
		return &sk, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no JSON found in skeleton response")
	}
	return nil, lastErr
}

// defaultSkeleton builds the generic fallback structure.
func defaultSkeleton(req Request, unitCount int) *skeleton {
	sk := &skeleton{
		Title:   fallbackTitle(req),
		Summary: req.Task,
	}
	sk.Units = make([]struct {
		Label     string   `json:"label"`
		Goal      string   `json:"goal"`
		KeyPoints []string `json:"key_points"`
	}, unitCount)
	for i := range sk.Units {
		sk.Units[i].Label = genericLabel(req.Kind, i+1)
	}
	return sk
}

func genericLabel(kind Kind, ordinal int) string {
	if kind == KindAnalysis {
		return fmt.Sprintf("Segment %d", ordinal)
	}
	return fmt.Sprintf("Part %d", ordinal)
}

func fallbackTitle(req Request) string {
	title := strings.TrimSpace(req.Task)
	if idx := strings.IndexAny(title, ".\n"); idx > 0 {
		title = title[:idx]
	}
	return head(title, 120)
}

// head returns at most n bytes of s, cut at a rune boundary.
func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}
