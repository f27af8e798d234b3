package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveGlobs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "# A")
	writeFile(t, dir, "b.txt", "B")
	writeFile(t, dir, "nested/deep/c.md", "# C")
	writeFile(t, dir, "skip.bin", "binary")

	paths, err := ResolveGlobs([]string{filepath.Join(dir, "**", "*.md")})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 markdown files, got %v", paths)
	}

	// Literal paths pass through, duplicates collapse.
	literal := filepath.Join(dir, "b.txt")
	paths, err = ResolveGlobs([]string{literal, literal})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 || paths[0] != literal {
		t.Errorf("literal resolution: got %v", paths)
	}
}

func TestLoadFileMarkdown(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.md", "# Field Notes\n\nSome content.")

	doc, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "Field Notes" {
		t.Errorf("title: got %q", doc.Title)
	}
	if doc.ID != path {
		t.Errorf("id: got %q", doc.ID)
	}
}

func TestLoadFileTitleFromFilename(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "meeting-notes_2026.txt", "no heading here")

	doc, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "meeting notes 2026" {
		t.Errorf("title: got %q", doc.Title)
	}
}

func TestLoadFileHTML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "page.html",
		`<html><head><title>The Page</title></head><body><h1>Heading</h1><p>Body text.</p></body></html>`)

	doc, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "The Page" {
		t.Errorf("title: got %q", doc.Title)
	}
	if want := "Body text."; !strings.Contains(doc.Text, want) {
		t.Errorf("text missing %q: %q", want, doc.Text)
	}
	if strings.Contains(doc.Text, "<p>") {
		t.Errorf("text still contains HTML: %q", doc.Text)
	}
}
