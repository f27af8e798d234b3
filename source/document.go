// Package source loads pipeline input documents: local files resolved by
// glob pattern, web pages reduced to markdown, and a directory watcher
// that surfaces changed documents.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Document is one unit of pipeline input.
type Document struct {
	// ID identifies the document to the job store; for files it is the
	// cleaned path, for URLs the URL itself.
	ID    string
	Title string
	Text  string
}

// ResolveGlobs expands glob patterns (doublestar syntax, so ** crosses
// directories) into a sorted, deduplicated list of matching files.
// A literal path that exists is returned as-is.
func ResolveGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string

	for _, pattern := range patterns {
		if info, err := os.Stat(pattern); err == nil && !info.IsDir() {
			p := filepath.Clean(pattern)
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
			continue
		}

		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			p := filepath.Clean(m)
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}

	sort.Strings(paths)
	return paths, nil
}

// LoadFile reads a document from disk. HTML, AsciiDoc and RST files are
// reduced to markdown and PDFs to plain text; everything else is taken
// verbatim.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	doc := &Document{ID: filepath.Clean(path)}

	switch ext {
	case ".html", ".htm":
		title, markdown, err := htmlToMarkdown(data)
		if err != nil {
			return nil, fmt.Errorf("converting %s: %w", path, err)
		}
		doc.Title = title
		doc.Text = markdown
	case ".adoc", ".asciidoc":
		doc.Title, doc.Text = asciidocToMarkdown(string(data))
	case ".rst":
		doc.Title, doc.Text = rstToMarkdown(string(data))
	case ".pdf":
		text, err := pdfToText(data)
		if err != nil {
			return nil, fmt.Errorf("converting %s: %w", path, err)
		}
		doc.Text = text
	default:
		doc.Text = string(data)
		doc.Title = markdownTitle(doc.Text)
	}

	if doc.Title == "" {
		doc.Title = titleFromFilename(path)
	}
	return doc, nil
}

// markdownTitle returns the first H1 heading, if any.
func markdownTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// titleFromFilename derives a readable title from the base filename.
func titleFromFilename(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return strings.TrimSpace(base)
}
