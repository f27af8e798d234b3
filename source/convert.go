package source

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// AsciiDoc patterns.
var (
	adocSectionTitle = regexp.MustCompile(`^(={1,6})\s+(.+)$`)
	adocAttribute    = regexp.MustCompile(`^:([^:]+):\s*(.*)$`)
	adocSourceBlock  = regexp.MustCompile(`^\[source(?:,\s*([^\]]+))?\]`)
	adocListingBlock = regexp.MustCompile(`^----$`)
	adocLiteralBlock = regexp.MustCompile(`^\.\.\.\.+$`)
	adocAdmonition   = regexp.MustCompile(`^(NOTE|TIP|IMPORTANT|WARNING|CAUTION):\s*(.*)$`)
)

// asciidocToMarkdown rewrites AsciiDoc prose as markdown so the rest of
// the pipeline sees one format. Header attributes are dropped; the
// document title is returned separately.
func asciidocToMarkdown(content string) (title, markdown string) {
	lines := strings.Split(content, "\n")
	result := make([]string, 0, len(lines))
	inCode := false
	pendingLang := ""

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if adocListingBlock.MatchString(trimmed) || adocLiteralBlock.MatchString(trimmed) {
			if inCode {
				result = append(result, "```")
			} else {
				result = append(result, "```"+pendingLang)
			}
			pendingLang = ""
			inCode = !inCode
			continue
		}
		if inCode {
			result = append(result, line)
			continue
		}

		if m := adocSourceBlock.FindStringSubmatch(trimmed); m != nil {
			pendingLang = m[1]
			continue
		}
		if m := adocSectionTitle.FindStringSubmatch(trimmed); m != nil {
			if len(m[1]) == 1 && title == "" {
				title = m[2]
				continue
			}
			result = append(result, strings.Repeat("#", len(m[1]))+" "+m[2])
			continue
		}
		if adocAttribute.MatchString(trimmed) {
			continue
		}
		if m := adocAdmonition.FindStringSubmatch(trimmed); m != nil {
			result = append(result, "**"+m[1]+":** "+m[2])
			continue
		}
		result = append(result, line)
	}
	if inCode {
		result = append(result, "```")
	}

	return title, strings.TrimLeft(strings.Join(result, "\n"), "\n")
}

// reStructuredText patterns.
var (
	rstSectionUnderline = regexp.MustCompile(`^(={3,}|-{3,}|~{3,}|\^{3,}|\+{3,}|#{3,}|\*{3,}|_{3,})$`)
	rstFieldList        = regexp.MustCompile(`^:([^:]+):(.*)$`)
	rstDirective        = regexp.MustCompile(`^\.\. ([a-z-]+)::`)
)

// rstToMarkdown rewrites reStructuredText section structure as markdown
// headings. Underline characters map to heading levels in order of first
// appearance, which matches how RST assigns nesting.
func rstToMarkdown(content string) (title, markdown string) {
	lines := strings.Split(content, "\n")
	result := make([]string, 0, len(lines))
	levelFor := make(map[byte]int)
	nextLevel := 1

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if i+1 < len(lines) {
			underline := strings.TrimSpace(lines[i+1])
			if trimmed != "" && rstSectionUnderline.MatchString(underline) && len(underline) >= len(trimmed) {
				level, ok := levelFor[underline[0]]
				if !ok {
					level = nextLevel
					levelFor[underline[0]] = level
					if nextLevel < 6 {
						nextLevel++
					}
				}
				if level == 1 && title == "" {
					title = trimmed
				}
				result = append(result, strings.Repeat("#", level)+" "+trimmed)
				i++
				continue
			}
		}

		if rstDirective.MatchString(trimmed) {
			continue
		}
		if m := rstFieldList.FindStringSubmatch(line); m != nil {
			result = append(result, "**"+m[1]+":**"+m[2])
			continue
		}
		result = append(result, line)
	}

	return title, strings.TrimLeft(strings.Join(result, "\n"), "\n")
}

// pdfToText extracts plain text from a PDF, pages separated by blank
// lines. Pages that fail to decode are skipped; image-only documents
// yield an error rather than an empty job.
func pdfToText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var sb strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil || text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("no extractable text in %d pages", pages)
	}
	return sb.String(), nil
}
