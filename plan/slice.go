package plan

import (
	"strings"
	"unicode"
)

// CountWords counts whitespace-delimited words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// distributeSource assigns each unit its share of the source text. Shares
// are proportional word counts, and cuts land on whitespace so no word is
// ever split. The final unit absorbs any remainder, so the slices always
// cover the whole text.
func distributeSource(text string, n int) []string {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []string{text}
	}

	starts := wordStarts(text)
	total := len(starts)
	if total == 0 {
		slices := make([]string, n)
		slices[0] = text
		return slices
	}

	perUnit := (total + n - 1) / n

	slices := make([]string, n)
	for i := 0; i < n; i++ {
		from := i * perUnit
		if from >= total {
			slices[i] = ""
			continue
		}

		to := from + perUnit
		var hi int
		if i == n-1 || to >= total {
			hi = len(text)
		} else {
			hi = starts[to]
		}
		slices[i] = strings.TrimSpace(text[starts[from]:hi])
	}
	return slices
}

// wordStarts returns the byte offset of every word start in text.
func wordStarts(text string) []int {
	var starts []int
	inWord := false
	for i, r := range text {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			starts = append(starts, i)
			inWord = true
		}
	}
	return starts
}
