// Package aggregate merges per-unit outputs into a single artifact: ordered
// concatenation for generative jobs, dedupe plus a signal score for
// analysis jobs.
package aggregate

import (
	"fmt"
	"strings"

	"github.com/spoolkit/spool/unit"
)

// Combine concatenates unit outputs in unit order, each prefixed with its
// heading and the first with the document title. Nothing is dropped
// silently: a failed unit renders as a visible placeholder naming the unit
// and the error, so partial output is always inspectable.
func Combine(title string, results []unit.Result) string {
	var b strings.Builder

	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}

	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}

		fmt.Fprintf(&b, "## %s\n\n", r.Label)

		switch r.Status {
		case unit.StatusFailed:
			fmt.Fprintf(&b, "[unit %d (%s) failed: %s]", r.UnitID, r.Label, r.Error)
		default:
			b.WriteString(strings.TrimSpace(r.Text))
		}
	}

	return b.String()
}
