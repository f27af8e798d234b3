package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSynthesizeSkeleton(t *testing.T) {
	content := synthesize("You are planning a 4-part document analysis.\n\nTask:\nfind claims")

	var sk struct {
		Title string `json:"title"`
		Units []struct {
			Label string `json:"label"`
		} `json:"units"`
	}
	if err := json.Unmarshal([]byte(content), &sk); err != nil {
		t.Fatalf("skeleton is not JSON: %v\n%s", err, content)
	}
	if len(sk.Units) != 4 {
		t.Errorf("got %d units, want 4", len(sk.Units))
	}
}

func TestSynthesizeItemsUsesSourceSentences(t *testing.T) {
	prompt := "You are now working on unit 2: Shoreline\n" +
		"Return a JSON array of items. JSON only.\n" +
		"Source text:\nCrabs hide under rocks. Anemones close at low tide. Gulls patrol above."

	content := synthesize(prompt)

	var items []struct {
		Text        string `json:"text"`
		Attribution string `json:"attribution"`
	}
	if err := json.Unmarshal([]byte(content), &items); err != nil {
		t.Fatalf("items are not JSON: %v\n%s", err, content)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	if items[0].Text != "Crabs hide under rocks." {
		t.Errorf("first item: got %q", items[0].Text)
	}
	if items[0].Attribution != "Shoreline" {
		t.Errorf("attribution: got %q", items[0].Attribution)
	}
}

func TestSynthesizeProseHitsWordTarget(t *testing.T) {
	prompt := "You are now working on unit 3: The Middle\nWrite this unit now, approximately 80 words."

	content := synthesize(prompt)

	if got := countWords(content); got < 80 {
		t.Errorf("got %d words, want >= 80", got)
	}
	if !strings.Contains(content, "Unit 3, The Middle.") {
		t.Errorf("prose missing unit heading:\n%s", content)
	}
}

func TestSynthesizeSummary(t *testing.T) {
	content := synthesize("Compress the following working notes into a single dense summary.\n\nnotes one two three")
	if !strings.HasPrefix(content, "So far:") {
		t.Errorf("got %q", content)
	}
}

func TestLoadFixturesOrdering(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("writer.2.txt", "second")
	write("writer.1.txt", "first")
	write("writer.txt", "fallback")

	fixtures, err := loadFixtures(dir)
	if err != nil {
		t.Fatalf("loadFixtures: %v", err)
	}
	want := []string{"first", "second", "fallback"}
	got := fixtures["writer"]
	if len(got) != len(want) {
		t.Fatalf("got %d fixtures, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fixture %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHandleChatServesFixturesThenRepeats(t *testing.T) {
	s := &server{
		fixtures: map[string][]string{"m": {"one", "two"}},
		calls:    map[string]int{},
	}

	ask := func() string {
		t.Helper()
		body := `{"model": "m", "messages": [{"role": "user", "content": "hi"}]}`
		req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
		w := httptest.NewRecorder()
		s.handleChat(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status %d", w.Code)
		}
		var resp chatResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		return resp.Choices[0].Message.Content
	}

	for i, want := range []string{"one", "two", "two"} {
		if got := ask(); got != want {
			t.Errorf("call %d: got %q, want %q", i+1, got, want)
		}
	}
}
