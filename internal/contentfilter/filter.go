// Package contentfilter is the text-filter collaborator applied to message
// content before persistence.
package contentfilter

import "strings"

// Filter rewrites message text before it is stored. Implementations must be
// pure and must not grow the text past length limits.
type Filter interface {
	Filter(text string) string
}

// Noop passes text through unchanged.
type Noop struct{}

func (Noop) Filter(text string) string { return text }

// WordList masks each configured word with asterisks, case-insensitively.
type WordList struct {
	words []string
}

func NewWordList(words []string) *WordList {
	cleaned := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(strings.ToLower(w)); w != "" {
			cleaned = append(cleaned, w)
		}
	}
	return &WordList{words: cleaned}
}

func (f *WordList) Filter(text string) string {
	if len(f.words) == 0 {
		return text
	}
	lower := strings.ToLower(text)
	var b strings.Builder
	i := 0
	for i < len(text) {
		matched := 0
		for _, w := range f.words {
			if strings.HasPrefix(lower[i:], w) {
				matched = len(w)
				break
			}
		}
		if matched > 0 {
			b.WriteString(strings.Repeat("*", matched))
			i += matched
			continue
		}
		b.WriteByte(text[i])
		i++
	}
	return b.String()
}
