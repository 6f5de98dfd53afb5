package qa

import (
	"regexp"
	"strings"
)

// The phrase set is deliberately narrow: a false positive triggers an
// unwanted auto-reply or a junk index entry, a false negative only means a
// human answers one more time.
var questionPhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bhow\s+(?:do|can)\s+(?:i|we|someone)\b`),
	regexp.MustCompile(`(?i)\bwhat\s+(?:is|are)\s+the\b`),
	regexp.MustCompile(`(?i)\bwhere\s+do\b`),
	regexp.MustCompile(`(?i)\b(?:who|which)\s+can\b`),
	regexp.MustCompile(`(?i)\bdoes\s+anyone\b`),
	regexp.MustCompile(`(?i)\bis\s+there\s+an?\b`),
	regexp.MustCompile(`(?i)\b(?:why|when)\s+do\s+(?:we|i)\b`),
}

// IsQuestion reports whether text looks like a question worth indexing or
// answering. Pure heuristic, never panics.
func IsQuestion(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if strings.HasSuffix(trimmed, "?") {
		return true
	}
	for _, phrase := range questionPhrases {
		if phrase.MatchString(trimmed) {
			return true
		}
	}
	return false
}
