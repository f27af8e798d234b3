package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spoolkit/spool/llm"
	"github.com/spoolkit/spool/llm/testutil"
)

func TestGetReturnsAllWhenWithinBudget(t *testing.T) {
	w := NewWindow()
	w.Append("first entry")
	w.Append("second entry")

	got := w.Get(1000)
	want := "first entry\n\nsecond entry"
	if got != want {
		t.Errorf("Get() = %q, want %q", got, want)
	}
	if strings.Contains(got, TruncationMarker) {
		t.Error("no truncation marker expected when everything fits")
	}
}

func TestGetDropsOldestFirst(t *testing.T) {
	w := NewWindow()
	w.Append(strings.Repeat("a", 50))
	w.Append(strings.Repeat("b", 50))
	w.Append(strings.Repeat("c", 50))

	got := w.Get(80)
	if !strings.Contains(got, strings.Repeat("c", 50)) {
		t.Error("newest entry must survive intact")
	}
	if strings.Contains(got, strings.Repeat("a", 50)) {
		t.Error("oldest entry should have been dropped")
	}
}

func TestGetMarkerWhenTruncated(t *testing.T) {
	w := NewWindow()
	w.Append(strings.Repeat("old ", 100))
	w.Append("newest")

	got := w.Get(70)
	if !strings.HasPrefix(got, TruncationMarker) {
		t.Errorf("expected truncation marker prefix, got %q", got)
	}
	if !strings.HasSuffix(got, "newest") {
		t.Errorf("newest entry must close the view, got %q", got)
	}
}

func TestGetNewestNeverSplitFromEnd(t *testing.T) {
	w := NewWindow()
	w.Append("ancient history")
	w.Append("the very latest finding")

	// Budget too small for both, big enough for the newest.
	got := w.Get(40)
	if !strings.HasSuffix(got, "the very latest finding") {
		t.Errorf("newest entry must survive intact, got %q", got)
	}
}

func TestGetBudgetBound(t *testing.T) {
	// Property: len(Get(B)) <= B for any append history and budget.
	w := NewWindow()
	for i := 0; i < 40; i++ {
		w.Append(strings.Repeat(fmt.Sprintf("entry%d ", i), i+1))
	}

	for _, budget := range []int{1, 5, 10, 33, 64, 100, 256, 1000, 5000, 100000} {
		if got := w.Get(budget); len(got) > budget {
			t.Errorf("budget %d exceeded: len=%d", budget, len(got))
		}
	}
}

func TestGetEmptyAndZeroBudget(t *testing.T) {
	w := NewWindow()
	if got := w.Get(100); got != "" {
		t.Errorf("empty window should render empty, got %q", got)
	}
	w.Append("something")
	if got := w.Get(0); got != "" {
		t.Errorf("zero budget should render empty, got %q", got)
	}
}

func TestAppendIgnoresEmpty(t *testing.T) {
	w := NewWindow()
	w.Append("   ")
	w.Append("")
	if n := len(w.Entries()); n != 0 {
		t.Errorf("blank entries should be dropped, have %d", n)
	}
}

func TestCompressReplacesEntries(t *testing.T) {
	w := NewWindow()
	w.Append("unit one wrote about ships")
	w.Append("unit two wrote about storms")

	mock := &testutil.MockCompleter{
		Responses: []*llm.Response{{Content: "ships, then storms"}},
	}
	if err := w.Compress(context.Background(), mock); err != nil {
		t.Fatalf("Compress: %v", err)
	}

	entries := w.Entries()
	if len(entries) != 1 || entries[0] != "ships, then storms" {
		t.Errorf("entries after compress: %v", entries)
	}
	if mock.CallCount() != 1 {
		t.Errorf("compress must make exactly one call, made %d", mock.CallCount())
	}
}

func TestCompressFailureLeavesWindowIntact(t *testing.T) {
	w := NewWindow()
	w.Append("a")
	w.Append("b")

	mock := &testutil.MockCompleter{Err: errors.New("provider down")}
	err := w.Compress(context.Background(), mock)
	if err == nil {
		t.Fatal("expected error")
	}

	if got := w.Get(1000); got != "a\n\nb" {
		t.Errorf("window should be untouched after failed compress, got %q", got)
	}
}

func TestCompressSingleEntryNoop(t *testing.T) {
	w := NewWindow()
	w.Append("only")

	mock := &testutil.MockCompleter{}
	if err := w.Compress(context.Background(), mock); err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if mock.CallCount() != 0 {
		t.Error("single-entry window should not spend a generation call")
	}
}

func TestRestore(t *testing.T) {
	w := Restore([]string{"x", "y"})
	if got := w.Get(100); got != "x\n\ny" {
		t.Errorf("restored window renders %q", got)
	}
}
