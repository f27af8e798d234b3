package job

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Selection names the subset of plan units a run should process.
// Presets divide by ordinal position; Explicit lists unit IDs directly.
type Selection struct {
	Preset   string
	Explicit []int
}

// Selection presets.
const (
	SelectAll        = "all"
	SelectFirstHalf  = "first-half"
	SelectSecondHalf = "second-half"
	SelectFirstThird = "first-third"
	SelectRemaining  = "remaining"
)

// ParseSelection parses a CLI selection expression: a preset name or a
// comma-separated list of unit IDs ("1,3,7").
func ParseSelection(expr string) (Selection, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Selection{Preset: SelectAll}, nil
	}
	switch expr {
	case SelectAll, SelectFirstHalf, SelectSecondHalf, SelectFirstThird, SelectRemaining:
		return Selection{Preset: expr}, nil
	}

	parts := strings.Split(expr, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Selection{}, fmt.Errorf("invalid selection %q: %w", expr, err)
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return Selection{Explicit: ids}, nil
}

// Resolve returns the unit IDs this selection covers for a record, in
// ordinal order. Unknown explicit IDs are an error; the remaining preset
// picks every unit that is not yet done.
func (s Selection) Resolve(rec *Record) ([]int, error) {
	n := len(rec.Units)
	all := make([]int, n)
	for i := range rec.Units {
		all[i] = rec.Units[i].UnitID
	}

	if len(s.Explicit) > 0 {
		for _, id := range s.Explicit {
			if rec.UnitState(id) == nil {
				return nil, fmt.Errorf("unit %d: %w", id, ErrUnknownUnit)
			}
		}
		return append([]int(nil), s.Explicit...), nil
	}

	switch s.Preset {
	case "", SelectAll:
		return all, nil
	case SelectFirstHalf:
		return all[:(n+1)/2], nil
	case SelectSecondHalf:
		return all[(n+1)/2:], nil
	case SelectFirstThird:
		return all[:(n+2)/3], nil
	case SelectRemaining:
		var ids []int
		for i := range rec.Units {
			if rec.Units[i].Status != UnitDone {
				ids = append(ids, rec.Units[i].UnitID)
			}
		}
		return ids, nil
	}
	return nil, fmt.Errorf("unknown selection preset %q", s.Preset)
}
