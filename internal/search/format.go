package search

import (
	"fmt"
	"strings"
)

// Format renders results as Title/URL/Content blocks separated by blank lines.
// Each result's content is clipped to perResultLimit characters (0 = no limit).
func Format(results []Result, perResultLimit int) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		content := r.Content
		if perResultLimit > 0 {
			content = Clip(content, perResultLimit)
		}
		blocks = append(blocks, fmt.Sprintf("Title: %s\nURL: %s\nContent: %s", r.Title, r.URL, content))
	}
	return strings.Join(blocks, "\n\n")
}

// Clip returns at most n characters of s without splitting a UTF-8 sequence.
func Clip(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
