package answer

import (
	"strings"
	"unicode/utf8"
)

// truncateSummary flattens an answer to a single line and cuts it at the last
// whitespace boundary before maxChars, appending an ellipsis marker.
func truncateSummary(text string, maxChars int) string {
	flat := strings.Join(strings.Fields(text), " ")
	if flat == "" {
		return ""
	}
	if maxChars <= 0 || utf8.RuneCountInString(flat) <= maxChars {
		return flat
	}
	cut := maxChars - 3
	if cut < 1 {
		cut = 1
	}
	head := string([]rune(flat)[:cut])
	if idx := strings.LastIndex(head, " "); idx > 0 {
		head = head[:idx]
	}
	return head + "..."
}
