// Package memory maintains the bounded rolling summary of everything a job
// has produced so far, so later units stay consistent with earlier ones
// without resending the whole document.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spoolkit/spool/llm"
	"github.com/spoolkit/spool/model"
)

// TruncationMarker prefixes the window view when older entries were cut.
const TruncationMarker = "[earlier content truncated]"

// entrySeparator joins entries in the rendered view.
const entrySeparator = "\n\n"

// Window accumulates one entry per completed unit and renders a view that
// never exceeds a caller-supplied character budget. Everything here is pure
// in-memory string work except Compress, which makes one generation call.
type Window struct {
	mu      sync.Mutex
	entries []string
	logger  *slog.Logger
}

// Option configures a Window.
type Option func(*Window)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Window) {
		w.logger = logger
	}
}

// NewWindow creates an empty Window.
func NewWindow(opts ...Option) *Window {
	w := &Window{logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Restore creates a Window preloaded with persisted entries.
func Restore(entries []string, opts ...Option) *Window {
	w := NewWindow(opts...)
	w.entries = append(w.entries, entries...)
	return w
}

// Append records one completed unit's contribution. Empty entries are
// dropped.
func (w *Window) Append(entry string) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, entry)
}

// Entries returns a copy of the raw buffered entries, for persistence.
func (w *Window) Entries() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.entries...)
}

// RawSize returns the total size in bytes of the buffered entries.
func (w *Window) RawSize() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	size := 0
	for _, e := range w.entries {
		size += len(e)
	}
	return size
}

// Get renders the newest entries that fit within budget characters. When not
// every entry fits, the view opens with TruncationMarker followed by the
// tail of the newest entry that didn't fit whole. The newest entry is never
// cut: truncation only ever consumes the oldest side.
func (w *Window) Get(budget int) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if budget <= 0 || len(w.entries) == 0 {
		return ""
	}

	// Walk backwards, keeping whole entries while they fit.
	kept := 0
	used := 0
	for i := len(w.entries) - 1; i >= 0; i-- {
		cost := len(w.entries[i])
		if kept > 0 {
			cost += len(entrySeparator)
		}
		if used+cost > budget {
			break
		}
		used += cost
		kept++
	}

	first := len(w.entries) - kept

	if kept == 0 {
		// Not even the newest whole entry fits; keep its tail so the most
		// recent information survives.
		newest := w.entries[len(w.entries)-1]
		avail := budget - len(TruncationMarker) - len(entrySeparator)
		if avail <= 0 {
			return tail(newest, budget)
		}
		return TruncationMarker + entrySeparator + tail(newest, avail)
	}

	var b strings.Builder
	if first > 0 {
		// Older entries were dropped whole; prepend the marker plus a
		// fragment of the next-oldest entry if room remains.
		b.WriteString(TruncationMarker)
		avail := budget - used - len(TruncationMarker) - len(entrySeparator)
		if avail > 0 {
			b.WriteString(" ...")
			b.WriteString(tail(w.entries[first-1], avail-4))
		}
		b.WriteString(entrySeparator)
		// The marker block must itself fit; shrink by dropping it when the
		// oldest kept entry would push us over.
		if b.Len()+used > budget {
			b.Reset()
		}
	}

	for i := first; i < len(w.entries); i++ {
		if i > first {
			b.WriteString(entrySeparator)
		}
		b.WriteString(w.entries[i])
	}

	out := b.String()
	if len(out) > budget {
		// Defensive clamp; drops from the front so the newest text stays.
		out = tail(out, budget)
	}
	return out
}

const compressPrompt = `Compress the following working notes into a single dense summary.
Preserve names, claims, decisions, and anything a writer would need to stay
consistent with what came before. Respond with the summary only.

Notes:
%s`

// Compress replaces all buffered entries with one synthetic summary produced
// by a single generation call. On failure the window is left as-is and the
// error is returned; callers fall back to truncation via Get, so a failed
// compression never stops a job.
func (w *Window) Compress(ctx context.Context, completer llm.Completer) error {
	w.mu.Lock()
	joined := strings.Join(w.entries, entrySeparator)
	count := len(w.entries)
	w.mu.Unlock()

	if count <= 1 {
		return nil
	}

	resp, err := completer.Complete(ctx, llm.Request{
		Capability: model.CapabilitySummarizing.String(),
		Messages: []llm.Message{
			{Role: "user", Content: fmt.Sprintf(compressPrompt, joined)},
		},
	})
	if err != nil {
		return fmt.Errorf("compress memory: %w", err)
	}

	summary := strings.TrimSpace(resp.Content)
	if summary == "" {
		return fmt.Errorf("compress memory: empty summary")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// Entries appended while the call was in flight survive on top of the
	// summary.
	fresh := w.entries[count:]
	w.entries = append([]string{summary}, fresh...)

	w.logger.Debug("Compressed memory window",
		"entries_before", count,
		"entries_after", len(w.entries),
		"summary_bytes", len(summary))
	return nil
}

// tail returns at most n bytes from the end of s, cut at a rune boundary.
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !isRuneStart(s[start]) {
		start++
	}
	return s[start:]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
