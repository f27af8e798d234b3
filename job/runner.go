package job

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/spoolkit/spool/llm"
	"github.com/spoolkit/spool/memory"
	"github.com/spoolkit/spool/plan"
	"github.com/spoolkit/spool/progress"
	"github.com/spoolkit/spool/unit"
)

// Mode selects the pacing policy between units.
type Mode string

const (
	// ModeInteractive paces lightly so a watching user sees steady output.
	ModeInteractive Mode = "interactive"
	// ModeBatch paces conservatively for unattended runs.
	ModeBatch Mode = "batch"
)

// RunnerConfig tunes the run loop.
type RunnerConfig struct {
	// MemoryBudget bounds the memory view passed into each unit prompt.
	MemoryBudget int
	// CompressEvery triggers window compression after this many completed
	// units. Zero disables count-based compression.
	CompressEvery int
	// CompressRawLimit triggers compression when the window's raw size
	// exceeds it. Zero disables size-based compression.
	CompressRawLimit int
	// Mode selects the inter-unit delay policy.
	Mode Mode
	// InteractiveDelay and BatchDelay are the per-mode pauses between units.
	InteractiveDelay time.Duration
	BatchDelay       time.Duration
	// CallsPerMinute rate-limits generation calls across the run.
	// Zero means unlimited.
	CallsPerMinute int
}

// DefaultRunnerConfig returns production defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		MemoryBudget:     4000,
		CompressEvery:    4,
		CompressRawLimit: 16000,
		Mode:             ModeInteractive,
		InteractiveDelay: 500 * time.Millisecond,
		BatchDelay:       3 * time.Second,
		CallsPerMinute:   30,
	}
}

// Validate checks config sanity.
func (c RunnerConfig) Validate() error {
	if c.MemoryBudget <= 0 {
		return fmt.Errorf("memory budget must be positive, got %d", c.MemoryBudget)
	}
	if c.Mode != ModeInteractive && c.Mode != ModeBatch {
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	return nil
}

func (c RunnerConfig) interUnitDelay() time.Duration {
	if c.Mode == ModeBatch {
		return c.BatchDelay
	}
	return c.InteractiveDelay
}

// RunObserver receives pipeline lifecycle notifications, typically for
// metrics. Implementations must be cheap and non-blocking.
type RunObserver interface {
	UnitDone(status string)
	CompressionDone()
}

type nopObserver struct{}

func (nopObserver) UnitDone(string)   {}
func (nopObserver) CompressionDone() {}

// Runner drives jobs through the pipeline: plan, process units in order,
// accumulate results, persist state after every transition.
type Runner struct {
	store     Store
	completer llm.Completer
	planner   *plan.Planner
	proc      *unit.Processor
	sink      progress.Sink
	observer  RunObserver
	limiter   *rate.Limiter
	cfg       RunnerConfig
	logger    *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithSink sets the progress sink. Defaults to discarding events.
func WithSink(sink progress.Sink) RunnerOption {
	return func(r *Runner) {
		r.sink = sink
	}
}

// WithProcessor overrides the unit processor, for instrumented variants.
func WithProcessor(proc *unit.Processor) RunnerOption {
	return func(r *Runner) {
		r.proc = proc
	}
}

// WithObserver sets the run observer, typically metrics.
func WithObserver(obs RunObserver) RunnerOption {
	return func(r *Runner) {
		r.observer = obs
	}
}

// NewRunner creates a runner over a store and a generation backend.
func NewRunner(store Store, completer llm.Completer, planner *plan.Planner, cfg RunnerConfig, opts ...RunnerOption) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("runner config: %w", err)
	}
	r := &Runner{
		store:     store,
		completer: completer,
		planner:   planner,
		proc:      unit.NewProcessor(completer),
		sink:      progress.NopSink{},
		observer:  nopObserver{},
		cfg:       cfg,
		logger:    slog.Default(),
	}
	if cfg.CallsPerMinute > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(float64(cfg.CallsPerMinute)/60.0), 1)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// StartRequest describes a new job.
type StartRequest struct {
	DocumentID      string
	Task            string
	Kind            plan.Kind
	SourceText      string
	TargetTotalSize int
	Constraints     []string
	Selection       Selection
}

// Start plans a new job, persists it, and runs the selected units.
// The returned record reflects state at the end of the run, even on error.
func (r *Runner) Start(ctx context.Context, req StartRequest) (*Record, error) {
	jobID := uuid.NewString()

	p, err := r.planner.Plan(ctx, plan.Request{
		Kind:            req.Kind,
		Task:            req.Task,
		SourceText:      req.SourceText,
		TargetTotalSize: req.TargetTotalSize,
		Constraints:     req.Constraints,
	})
	if err != nil {
		return nil, fmt.Errorf("planning job: %w", err)
	}

	rec := NewRecord(jobID, req.DocumentID, req.Task, *p)
	if err := r.store.SaveJob(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: saving new job: %v", ErrPersistence, err)
	}

	r.emit(rec, progress.Event{
		Phase:   progress.PhasePlanning,
		Message: fmt.Sprintf("planned %d units", len(p.Units)),
		Total:   len(p.Units),
	})

	return rec, r.run(ctx, rec, req.Selection)
}

// Resume loads a persisted job and processes the selected units. Units
// already done keep their results and are never re-run.
func (r *Runner) Resume(ctx context.Context, jobID string, sel Selection) (*Record, error) {
	rec, err := r.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("loading job %s: %w", jobID, err)
	}
	rec.Status = RunActive
	return rec, r.run(ctx, rec, sel)
}

// run processes the selection against a record, lowest ordinal first.
func (r *Runner) run(ctx context.Context, rec *Record, sel Selection) error {
	ids, err := sel.Resolve(rec)
	if err != nil {
		return err
	}

	// Done units are skipped; everything else queues. Units are only moved
	// to Selected when their turn comes, so a halted run leaves untouched
	// units in their prior state.
	var queue []int
	for _, id := range ids {
		if rec.UnitState(id).Status == UnitDone {
			continue
		}
		queue = append(queue, id)
	}
	sort.Ints(queue)

	window := memory.Restore(rec.Memory, memory.WithLogger(r.logger))
	var persistErr error
	persist := func() {
		rec.Memory = window.Entries()
		if err := r.store.SaveJob(ctx, rec); err != nil && persistErr == nil {
			persistErr = err
			r.logger.Error("Job persistence failed, run continues unresumable",
				"job_id", rec.ID, "error", err)
		}
	}
	persist()

	doneSinceCompress := 0
	for i, id := range queue {
		if i > 0 {
			if err := r.pause(ctx); err != nil {
				return r.cancel(ctx, rec, err)
			}
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return r.cancel(ctx, rec, err)
			}
		}

		u := rec.Plan.Unit(id)
		if st := rec.UnitState(id); st.Status == UnitPending || st.Status == UnitFailed {
			if err := rec.Transition(id, UnitSelected); err != nil {
				return err
			}
		}
		if err := rec.Transition(id, UnitInProgress); err != nil {
			return err
		}
		persist()
		r.emit(rec, progress.Event{
			Phase:   progress.PhaseProcessing,
			Message: fmt.Sprintf("processing unit %d: %s", id, u.Label),
			Current: rec.CountByStatus(UnitDone),
			Total:   len(rec.Units),
			UnitID:  id,
		})

		res := r.proc.Process(ctx, *u, &rec.Plan, window.Get(r.cfg.MemoryBudget))
		if ctx.Err() != nil {
			// The attempt was cut short; put the unit back in the queue
			// so a resume retries it.
			return r.cancel(ctx, rec, ctx.Err())
		}

		r.observer.UnitDone(string(res.Status))

		if !res.Ok() {
			rec.SetResult(res)
			if err := rec.Transition(id, UnitFailed); err != nil {
				return err
			}
			rec.Status = RunFailed
			persist()
			r.emit(rec, progress.Event{
				Phase:   progress.PhaseError,
				Message: fmt.Sprintf("unit %d (%s) failed: %s", id, u.Label, res.Error),
				Current: rec.CountByStatus(UnitDone),
				Total:   len(rec.Units),
				UnitID:  id,
			})
			if persistErr != nil {
				return fmt.Errorf("%w: %v (also: unit %d: %v)", ErrPersistence, persistErr, id, ErrUnitFailed)
			}
			return fmt.Errorf("unit %d (%s): %w: %s", id, u.Label, ErrUnitFailed, res.Error)
		}

		rec.SetResult(res)
		if err := rec.Transition(id, UnitDone); err != nil {
			return err
		}
		window.Append(memoryEntry(res))
		persist()
		doneSinceCompress++

		r.emit(rec, progress.Event{
			Phase:          progress.PhaseProcessing,
			Message:        fmt.Sprintf("unit %d (%s) done", id, u.Label),
			Current:        rec.CountByStatus(UnitDone),
			Total:          len(rec.Units),
			UnitID:         id,
			PartialContent: Artifact(rec),
		})

		if r.shouldCompress(window, doneSinceCompress) {
			r.emit(rec, progress.Event{
				Phase:   progress.PhaseWindowing,
				Message: "compressing working memory",
			})
			if err := window.Compress(ctx, r.completer); err != nil {
				// Non-fatal: the window truncates on read anyway.
				r.logger.Warn("Memory compression failed", "job_id", rec.ID, "error", err)
			} else {
				r.observer.CompressionDone()
			}
			doneSinceCompress = 0
			persist()
		}
	}

	r.emit(rec, progress.Event{
		Phase:   progress.PhaseAggregating,
		Message: "combining unit results",
	})

	if rec.CountByStatus(UnitDone) == len(rec.Units) {
		rec.Status = RunComplete
	}
	persist()

	r.emit(rec, progress.Event{
		Phase:          progress.PhaseComplete,
		Message:        fmt.Sprintf("%d of %d units done", rec.CountByStatus(UnitDone), len(rec.Units)),
		Current:        rec.CountByStatus(UnitDone),
		Total:          len(rec.Units),
		PartialContent: Artifact(rec),
	})

	if persistErr != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, persistErr)
	}
	return nil
}

// cancel reverts any in-progress unit to selected and persists, so the
// job never sticks in InProgress across a restart.
func (r *Runner) cancel(ctx context.Context, rec *Record, cause error) error {
	for i := range rec.Units {
		if rec.Units[i].Status == UnitInProgress {
			rec.Units[i].Status = UnitSelected
			rec.Units[i].UpdatedAt = time.Now().UTC()
		}
	}
	rec.Status = RunCancelled
	// Persist with a fresh context: the run context is already cancelled.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.store.SaveJob(saveCtx, rec); err != nil {
		r.logger.Error("Failed to persist cancelled job", "job_id", rec.ID, "error", err)
	}
	return fmt.Errorf("run cancelled: %w", cause)
}

func (r *Runner) pause(ctx context.Context) error {
	d := r.cfg.interUnitDelay()
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *Runner) shouldCompress(w *memory.Window, doneSince int) bool {
	if r.cfg.CompressEvery > 0 && doneSince >= r.cfg.CompressEvery {
		return true
	}
	if r.cfg.CompressRawLimit > 0 && w.RawSize() > r.cfg.CompressRawLimit {
		return true
	}
	return false
}

func (r *Runner) emit(rec *Record, ev progress.Event) {
	ev.JobID = rec.ID
	r.sink.Emit(ev)
}

// memoryEntry renders a completed unit as a working-memory entry.
func memoryEntry(res unit.Result) string {
	if len(res.Items) > 0 {
		var b strings.Builder
		fmt.Fprintf(&b, "%s:", res.Label)
		for _, item := range res.Items {
			b.WriteString("\n- ")
			b.WriteString(item.Text)
		}
		return b.String()
	}
	return fmt.Sprintf("%s:\n%s", res.Label, res.Text)
}
