package unit

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/spoolkit/spool/llm"
)

// Parsing analysis output is a ladder of tiers, each a pure function tried
// in order: direct JSON, fenced block, first balanced bracket region, and
// finally the raw text as a degraded single item.

// itemParser attempts to produce a JSON candidate from model output.
type itemParser func(content string) string

var itemParsers = []itemParser{
	func(content string) string { return strings.TrimSpace(content) },
	llm.ExtractFenced,
	llm.ExtractBalanced,
}

// itemsEnvelope accepts both a bare array and an object wrapping one.
type itemsEnvelope struct {
	Items []rawItem `json:"items"`
}

type rawItem struct {
	Text        string `json:"text"`
	Attribution string `json:"attribution"`
	Author      string `json:"author"` // models use either key
}

// ParseItems runs the parse ladder over model output. degraded is true when
// no tier produced structured items and the raw text was kept instead.
func ParseItems(content, sourceLabel string) (items []ExtractedItem, degraded bool) {
	for _, parse := range itemParsers {
		candidate := parse(content)
		if candidate == "" {
			continue
		}
		if raw, ok := decodeItems(candidate); ok {
			return finalizeItems(raw, sourceLabel), false
		}
	}

	// Raw fallback: the whole response becomes one degraded item.
	text := strings.TrimSpace(content)
	if text == "" {
		return nil, true
	}
	return []ExtractedItem{{
		Text:        text,
		SourceLabel: sourceLabel,
		Length:      utf8.RuneCountInString(text),
	}}, true
}

// decodeItems tries a bare array first, then an {"items": [...]} envelope.
func decodeItems(candidate string) ([]rawItem, bool) {
	var list []rawItem
	if err := json.Unmarshal([]byte(candidate), &list); err == nil && len(list) > 0 {
		return list, true
	}

	var env itemsEnvelope
	if err := json.Unmarshal([]byte(candidate), &env); err == nil && len(env.Items) > 0 {
		return env.Items, true
	}
	return nil, false
}

func finalizeItems(raw []rawItem, sourceLabel string) []ExtractedItem {
	items := make([]ExtractedItem, 0, len(raw))
	for _, r := range raw {
		text := strings.TrimSpace(r.Text)
		if text == "" {
			continue
		}
		attribution := r.Attribution
		if attribution == "" {
			attribution = r.Author
		}
		items = append(items, ExtractedItem{
			Text:        text,
			Attribution: attribution,
			SourceLabel: sourceLabel,
			Length:      utf8.RuneCountInString(text),
		})
	}
	return items
}
