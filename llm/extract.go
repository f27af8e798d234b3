package llm

import (
	"regexp"
	"strings"
)

// Helpers for digging structured JSON out of model output. Models wrap JSON
// in markdown fences, add commentary around it, and emit trailing commas;
// callers layer these helpers into an ordered parse ladder.

var (
	// fencedBlockPattern matches the contents of a ```json fenced block.
	fencedBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)```")
	// trailingCommaPattern matches trailing commas before ] or }.
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractFenced returns the contents of the first fenced code block, cleaned
// of common JSON artifacts. Returns "" when no fence is present.
func ExtractFenced(content string) string {
	if matches := fencedBlockPattern.FindStringSubmatch(content); len(matches) > 1 {
		return CleanJSON(strings.TrimSpace(matches[1]))
	}
	return ""
}

// ExtractBalanced returns the first balanced {...} or [...] substring,
// cleaned of common JSON artifacts. String literals are respected so braces
// inside values don't end the scan. Returns "" when no balanced region
// exists.
func ExtractBalanced(content string) string {
	start := -1
	var open, close byte
	for i := 0; i < len(content); i++ {
		if content[i] == '{' {
			start, open, close = i, '{', '}'
			break
		}
		if content[i] == '[' {
			start, open, close = i, '[', ']'
			break
		}
	}
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		ch := content[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			depth++
		case ch == close:
			depth--
			if depth == 0 {
				return CleanJSON(content[start : i+1])
			}
		}
	}
	return ""
}

// CleanJSON removes JavaScript-style line comments and trailing commas,
// which models commonly produce inside otherwise valid JSON.
func CleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, stripLineComment(line))
	}
	result := strings.Join(cleaned, "\n")

	return trailingCommaPattern.ReplaceAllString(result, "$1")
}

// stripLineComment removes a // comment from a line, respecting string
// values so URLs like "http://example.com" survive.
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}

	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/' {
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
