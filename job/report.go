package job

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spoolkit/spool/aggregate"
	"github.com/spoolkit/spool/plan"
	"github.com/spoolkit/spool/unit"
)

// Report is the aggregated view of a job's accumulated results.
type Report struct {
	Content string
	// Items, SignalRatio and Score are populated for analysis jobs only.
	Items       []unit.ExtractedItem
	SignalRatio float64
	Score       float64
	UnitsDone   int
	UnitsTotal  int
}

// orderedResults returns the stored results in plan unit order. Results
// for units without a stored result are skipped, so the artifact stays
// stable across partial runs.
func orderedResults(rec *Record) []unit.Result {
	results := make([]unit.Result, 0, len(rec.Results))
	for _, u := range rec.Plan.Units {
		if res := rec.Result(u.ID); res != nil {
			results = append(results, *res)
		}
	}
	return results
}

// Artifact renders the combined output for whatever results exist so far.
func Artifact(rec *Record) string {
	results := orderedResults(rec)
	if rec.Plan.Kind == plan.KindAnalysis {
		return renderItems(rec.Plan.Title, results, aggregate.Merge(collectItems(results)))
	}
	return aggregate.Combine(rec.Plan.Title, results)
}

// BuildReport aggregates a job's results, deduplicating and scoring
// analysis output.
func BuildReport(rec *Record) Report {
	rep := Report{
		UnitsDone:  rec.CountByStatus(UnitDone),
		UnitsTotal: len(rec.Units),
	}
	results := orderedResults(rec)

	if rec.Plan.Kind == plan.KindAnalysis {
		rep.Items = aggregate.Merge(collectItems(results))
		rep.SignalRatio = aggregate.SignalRatio(rep.Items, inputLength(rec.Plan))
		rep.Score = aggregate.Score(rep.SignalRatio)
		rep.Content = renderItems(rec.Plan.Title, results, rep.Items)
		return rep
	}

	rep.Content = aggregate.Combine(rec.Plan.Title, results)
	return rep
}

func collectItems(results []unit.Result) []unit.ExtractedItem {
	var items []unit.ExtractedItem
	for _, r := range results {
		items = append(items, r.Items...)
	}
	return items
}

// inputLength is the rune count of the analysed source across all slices.
func inputLength(p plan.JobPlan) int {
	n := 0
	for _, u := range p.Units {
		n += utf8.RuneCountInString(u.Slice)
	}
	return n
}

// renderItems writes merged analysis items as a markdown list. Failed
// units still surface as placeholders so partial output is inspectable.
func renderItems(title string, results []unit.Result, items []unit.ExtractedItem) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item.Text)
		if item.Attribution != "" {
			fmt.Fprintf(&b, " (%s)", item.Attribution)
		}
		b.WriteString("\n")
	}
	for _, r := range results {
		if r.Status == unit.StatusFailed {
			fmt.Fprintf(&b, "\n[unit %d (%s) failed: %s]\n", r.UnitID, r.Label, r.Error)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
