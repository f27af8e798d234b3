package aggregate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spoolkit/spool/unit"
)

func TestCombineOrdersUnits(t *testing.T) {
	out := Combine("Voyage", []unit.Result{
		{UnitID: 1, Label: "Departure", Status: unit.StatusSuccess, Text: "We left at dawn."},
		{UnitID: 2, Label: "Open Water", Status: unit.StatusSuccess, Text: "Days of grey."},
		{UnitID: 3, Label: "Landfall", Status: unit.StatusSuccess, Text: "Cliffs at last."},
	})

	assert.True(t, strings.HasPrefix(out, "# Voyage\n"))

	i1 := strings.Index(out, "## Departure")
	i2 := strings.Index(out, "## Open Water")
	i3 := strings.Index(out, "## Landfall")
	assert.True(t, i1 >= 0 && i1 < i2 && i2 < i3, "headings must appear in unit order")
}

func TestCombineFailedUnitPlaceholder(t *testing.T) {
	out := Combine("Doc", []unit.Result{
		{UnitID: 1, Label: "One", Status: unit.StatusSuccess, Text: "fine"},
		{UnitID: 2, Label: "Two", Status: unit.StatusFailed, Error: "connection reset"},
	})

	assert.Contains(t, out, "[unit 2 (Two) failed: connection reset]")
	assert.Contains(t, out, "fine", "successful units are preserved alongside the placeholder")
}

func TestCombineDegradedKeepsText(t *testing.T) {
	out := Combine("Doc", []unit.Result{
		{UnitID: 1, Label: "One", Status: unit.StatusDegraded, Text: "raw but usable"},
	})
	assert.Contains(t, out, "raw but usable")
}

func TestCombineNoTitle(t *testing.T) {
	out := Combine("", []unit.Result{
		{UnitID: 1, Label: "Solo", Status: unit.StatusSuccess, Text: "body"},
	})
	assert.True(t, strings.HasPrefix(out, "## Solo"))
}
