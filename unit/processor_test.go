package unit_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spoolkit/spool/llm"
	"github.com/spoolkit/spool/llm/testutil"
	"github.com/spoolkit/spool/plan"
	"github.com/spoolkit/spool/unit"
)

func generativePlan() *plan.JobPlan {
	return &plan.JobPlan{
		Kind:    plan.KindGenerative,
		Title:   "The Sea",
		Summary: "Write about the sea.",
		Units: []plan.Unit{
			{ID: 1, Label: "Tides", Goal: "Explain tides.", TargetSize: 500, KeyPoints: []string{"moon", "sun"}},
			{ID: 2, Label: "Storms", Goal: "Describe storms.", TargetSize: 500},
		},
	}
}

func analysisPlan() *plan.JobPlan {
	return &plan.JobPlan{
		Kind:    plan.KindAnalysis,
		Title:   "Critique of Practical Reason",
		Summary: "Extract key positions.",
		Units: []plan.Unit{
			{ID: 1, Label: "Segment 1", TargetSize: 100, Slice: "Freedom is the ratio essendi of the moral law."},
		},
	}
}

func TestProcessGenerative(t *testing.T) {
	mock := &testutil.MockCompleter{
		Responses: []*llm.Response{{Content: "The tide rises, the tide falls."}},
	}
	p := unit.NewProcessor(mock)

	jp := generativePlan()
	res := p.Process(context.Background(), jp.Units[0], jp, "earlier prose summary")

	assert.Equal(t, unit.StatusSuccess, res.Status)
	assert.Equal(t, 1, res.UnitID)
	assert.Equal(t, "The tide rises, the tide falls.", res.Text)
	assert.Equal(t, 1, mock.CallCount(), "exactly one call per attempt")

	// The instruction carries the task, the whole plan, the memory, and
	// this unit's metadata.
	instruction := mock.LastRequest().Messages[0].Content
	assert.Contains(t, instruction, "Write about the sea.")
	assert.Contains(t, instruction, "Tides")
	assert.Contains(t, instruction, "Storms")
	assert.Contains(t, instruction, "earlier prose summary")
	assert.Contains(t, instruction, "moon")
	assert.Contains(t, instruction, "500 words")
}

func TestProcessAnalysisParsesItems(t *testing.T) {
	mock := &testutil.MockCompleter{
		Responses: []*llm.Response{{Content: `[{"text": "Freedom is the ratio essendi of the moral law.", "attribution": "Kant"}]`}},
	}
	p := unit.NewProcessor(mock)

	jp := analysisPlan()
	res := p.Process(context.Background(), jp.Units[0], jp, "")

	require.Equal(t, unit.StatusSuccess, res.Status)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Kant", res.Items[0].Attribution)
	assert.Equal(t, "Segment 1", res.Items[0].SourceLabel)
	assert.Equal(t, 46, res.Items[0].Length)

	instruction := mock.LastRequest().Messages[0].Content
	assert.Contains(t, instruction, jp.Units[0].Slice)
	assert.Equal(t, "extraction", mock.LastRequest().Capability)
}

func TestProcessAnalysisParseLadder(t *testing.T) {
	tests := []struct {
		name    string
		content string
		status  unit.Status
		items   int
	}{
		{
			name:    "direct json array",
			content: `[{"text": "a quote"}]`,
			status:  unit.StatusSuccess,
			items:   1,
		},
		{
			name:    "items envelope",
			content: `{"items": [{"text": "a quote"}, {"text": "another"}]}`,
			status:  unit.StatusSuccess,
			items:   2,
		},
		{
			name:    "fenced block",
			content: "Here are the results:\n```json\n[{\"text\": \"fenced quote\"}]\n```",
			status:  unit.StatusSuccess,
			items:   1,
		},
		{
			name:    "balanced region in prose",
			content: `I found these: [{"text": "embedded quote"}] - hope that helps!`,
			status:  unit.StatusSuccess,
			items:   1,
		},
		{
			name:    "raw fallback",
			content: "The key passage is where freedom is discussed.",
			status:  unit.StatusDegraded,
			items:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &testutil.MockCompleter{
				Responses: []*llm.Response{{Content: tt.content}},
			}
			p := unit.NewProcessor(mock)

			jp := analysisPlan()
			res := p.Process(context.Background(), jp.Units[0], jp, "")

			assert.Equal(t, tt.status, res.Status)
			assert.Len(t, res.Items, tt.items)
		})
	}
}

func TestProcessCallFailure(t *testing.T) {
	mock := &testutil.MockCompleter{Err: errors.New("connection refused")}
	p := unit.NewProcessor(mock)

	jp := generativePlan()
	res := p.Process(context.Background(), jp.Units[0], jp, "")

	assert.Equal(t, unit.StatusFailed, res.Status)
	assert.Equal(t, "connection refused", res.Error)
	assert.False(t, res.Ok())
}

func TestProcessEmptyGenerativeOutputDegraded(t *testing.T) {
	mock := &testutil.MockCompleter{
		Responses: []*llm.Response{{Content: "   "}},
	}
	p := unit.NewProcessor(mock)

	jp := generativePlan()
	res := p.Process(context.Background(), jp.Units[0], jp, "")
	assert.Equal(t, unit.StatusDegraded, res.Status)
}

func TestMaxItemsRidesInPrompt(t *testing.T) {
	mock := &testutil.MockCompleter{
		Responses: []*llm.Response{{Content: `[{"text":"x"}]`}},
	}
	p := unit.NewProcessor(mock, unit.WithMaxItems(7))

	jp := analysisPlan()
	p.Process(context.Background(), jp.Units[0], jp, "")

	assert.Contains(t, mock.LastRequest().Messages[0].Content, "at most 7 items")
}

func TestParseItemsSkipsBlankText(t *testing.T) {
	items, degraded := unit.ParseItems(`[{"text": ""}, {"text": "kept"}]`, "Segment 2")
	require.False(t, degraded)
	require.Len(t, items, 1)
	assert.Equal(t, "kept", items[0].Text)
}

func TestParseItemsAuthorAlias(t *testing.T) {
	items, degraded := unit.ParseItems(`[{"text": "q", "author": "Mill"}]`, "s")
	require.False(t, degraded)
	assert.Equal(t, "Mill", items[0].Attribution)
}

func TestParseItemsEmptyContent(t *testing.T) {
	items, degraded := unit.ParseItems("   ", "s")
	assert.True(t, degraded)
	assert.Empty(t, items)
}

func TestParseItemsRuneLength(t *testing.T) {
	items, _ := unit.ParseItems(`[{"text": "héllo"}]`, "s")
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Length, "length counts runes, not bytes")
}

func TestInstructionMarksCurrentUnit(t *testing.T) {
	mock := &testutil.MockCompleter{
		Responses: []*llm.Response{{Content: "prose"}},
	}
	p := unit.NewProcessor(mock)

	jp := generativePlan()
	p.Process(context.Background(), jp.Units[1], jp, "")

	instruction := mock.LastRequest().Messages[0].Content
	assert.True(t, strings.Contains(instruction, "> 2. Storms"),
		"current unit should be marked in the overview")
	assert.Contains(t, instruction, "working on unit 2")
}
