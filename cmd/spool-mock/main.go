// Package main implements an offline generation backend for pipeline
// development. It serves OpenAI-compatible /v1/chat/completions responses
// without a real model: each request is answered deterministically from
// the shape of the prompt (outline, extraction, compression or prose),
// so full jobs run fast and reproducibly with the stock local endpoint.
//
// Usage:
//
//	spool-mock -port 11434
//	spool-mock -fixtures ./fixtures
//
// With -fixtures, files named <model>.txt override synthesis for that
// model. Numbered files (<model>.1.txt, <model>.2.txt) are served in
// call order, the unnumbered file repeating after they are exhausted.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type server struct {
	mu       sync.Mutex
	fixtures map[string][]string
	calls    map[string]int
	total    int
}

func main() {
	fixtureDir := flag.String("fixtures", "", "directory of scripted responses (optional)")
	port := flag.Int("port", 11434, "port to listen on")
	flag.Parse()

	s := &server{
		fixtures: map[string][]string{},
		calls:    map[string]int{},
	}
	if *fixtureDir != "" {
		fixtures, err := loadFixtures(*fixtureDir)
		if err != nil {
			log.Fatalf("load fixtures from %s: %v", *fixtureDir, err)
		}
		s.fixtures = fixtures
		log.Printf("loaded fixtures for %d model(s)", len(fixtures))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/chat/completions", s.handleChat)
	mux.HandleFunc("/stats", s.handleStats)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("mock generation backend listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.total++
	callNum := s.total
	index := s.calls[req.Model]
	s.calls[req.Model] = index + 1
	seq := s.fixtures[req.Model]
	s.mu.Unlock()

	var content string
	switch {
	case len(seq) > 0 && index < len(seq):
		content = seq[index]
	case len(seq) > 0:
		content = seq[len(seq)-1]
	default:
		content = synthesize(lastUserMessage(req))
	}

	log.Printf("[call %d] model=%s bytes=%d", callNum, req.Model, len(content))

	resp := chatResponse{
		ID:      fmt.Sprintf("mock-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []chatChoice{{
			Message:      chatMessage{Role: "assistant", Content: content},
			FinishReason: "stop",
		}},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	byModel := make(map[string]int, len(s.calls))
	for m, n := range s.calls {
		byModel[m] = n
	}
	total := s.total
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"total_calls":    total,
		"calls_by_model": byModel,
	})
}

func lastUserMessage(req chatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Content
		}
	}
	return ""
}

// Prompt shapes the pipeline produces.
var (
	planParts  = regexp.MustCompile(`planning a (\d+)-part`)
	unitMarker = regexp.MustCompile(`working on unit (\d+): (.*)`)
	wordCount  = regexp.MustCompile(`approximately (\d+) words`)
	sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]`)
)

// synthesize builds a deterministic response matching what the prompt
// asks for.
func synthesize(prompt string) string {
	if m := planParts.FindStringSubmatch(prompt); m != nil {
		return synthesizeSkeleton(atoi(m[1], 2))
	}
	if strings.Contains(prompt, "Compress the following working notes") {
		return synthesizeSummary(prompt)
	}
	if strings.Contains(prompt, "JSON array") && strings.Contains(prompt, "Source text:") {
		return synthesizeItems(prompt)
	}
	if m := wordCount.FindStringSubmatch(prompt); m != nil {
		return synthesizeProse(prompt, atoi(m[1], 120))
	}
	return "Acknowledged."
}

func synthesizeSkeleton(parts int) string {
	type unit struct {
		Label     string   `json:"label"`
		Goal      string   `json:"goal"`
		KeyPoints []string `json:"key_points"`
	}
	units := make([]unit, parts)
	for i := range units {
		units[i] = unit{
			Label:     fmt.Sprintf("Part %d", i+1),
			Goal:      fmt.Sprintf("Cover part %d of the material.", i+1),
			KeyPoints: []string{fmt.Sprintf("point %d.1", i+1), fmt.Sprintf("point %d.2", i+1)},
		}
	}
	out, _ := json.Marshal(map[string]any{
		"title":   "Mock Plan",
		"summary": "A deterministic outline for offline runs.",
		"units":   units,
	})
	return string(out)
}

// synthesizeItems returns the opening sentences of the source slice as
// extracted items, so dedup and scoring see realistic overlapping text.
func synthesizeItems(prompt string) string {
	_, src, _ := strings.Cut(prompt, "Source text:")
	sentences := sentenceRe.FindAllString(src, 3)

	type item struct {
		Text        string `json:"text"`
		Attribution string `json:"attribution"`
	}
	items := make([]item, 0, len(sentences))
	attribution := "source"
	if m := unitMarker.FindStringSubmatch(prompt); m != nil {
		attribution = strings.TrimSpace(m[2])
	}
	for _, s := range sentences {
		items = append(items, item{Text: strings.TrimSpace(s), Attribution: attribution})
	}
	if len(items) == 0 {
		items = append(items, item{Text: "No extractable sentences.", Attribution: attribution})
	}
	out, _ := json.Marshal(items)
	return string(out)
}

func synthesizeSummary(prompt string) string {
	_, notes, _ := strings.Cut(prompt, "notes")
	words := strings.Fields(notes)
	if len(words) > 60 {
		words = words[:60]
	}
	return "So far: " + strings.Join(words, " ")
}

func synthesizeProse(prompt string, words int) string {
	label := "this section"
	unitNum := "1"
	if m := unitMarker.FindStringSubmatch(prompt); m != nil {
		unitNum = m[1]
		label = strings.TrimSpace(m[2])
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Unit %s, %s.", unitNum, label)
	sentence := fmt.Sprintf(" Deterministic filler prose for %s continues the document without repeating earlier units.", label)
	for countWords(sb.String()) < words {
		sb.WriteString(sentence)
	}
	return sb.String()
}

func countWords(s string) int {
	return len(strings.Fields(s))
}

func atoi(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

var numberedFile = regexp.MustCompile(`^(.+)\.(\d+)\.txt$`)

// loadFixtures reads <model>.txt and <model>.N.txt files into per-model
// response sequences, numbered files first in numeric order.
func loadFixtures(dir string) (map[string][]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	base := map[string]string{}
	numbered := map[string]map[int]string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if m := numberedFile.FindStringSubmatch(e.Name()); m != nil {
			idx, _ := strconv.Atoi(m[2])
			if numbered[m[1]] == nil {
				numbered[m[1]] = map[int]string{}
			}
			numbered[m[1]][idx] = string(data)
			continue
		}
		base[strings.TrimSuffix(e.Name(), ".txt")] = string(data)
	}

	fixtures := map[string][]string{}
	for model, byIndex := range numbered {
		indices := make([]int, 0, len(byIndex))
		for idx := range byIndex {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		for _, idx := range indices {
			fixtures[model] = append(fixtures[model], byIndex[idx])
		}
	}
	for model, content := range base {
		fixtures[model] = append(fixtures[model], content)
	}
	if len(fixtures) == 0 {
		return nil, fmt.Errorf("no .txt fixtures in %s", dir)
	}
	return fixtures, nil
}
