package qa

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsQuestion(t *testing.T) {
	cases := []struct {
		name string
		text string
		want bool
	}{
		{"question mark", "Is the staging cluster down?", true},
		{"question mark with trailing space", "anyone seen this error?  ", true},
		{"how do i", "how do I rotate the API keys", true},
		{"how can we", "How can we get access to the dashboard", true},
		{"what is the", "what is the oncall rotation for this week", true},
		{"where do", "where do deploy logs end up", true},
		{"who can", "who can approve this PR", true},
		{"does anyone", "does anyone know the wifi password", true},
		{"is there a", "is there a runbook for failovers", true},
		{"why do we", "why do we pin the compiler version", true},
		{"statement", "deployed the fix to production", false},
		{"empty", "", false},
		{"whitespace only", "   \n\t ", false},
		{"contains how mid-word", "showcase the new design", false},
		{"question word without phrase", "what a mess", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, IsQuestion(tc.text))
		})
	}
}
