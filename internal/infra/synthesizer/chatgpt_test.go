package synthesizer

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/answered-once/internal/domain/qa"
	apperrors "github.com/yanqian/answered-once/pkg/errors"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSummarizeWithoutClientReportsUnavailable(t *testing.T) {
	synth := NewChatGPTSynthesizer(nil, "gpt-4o-mini", 0.2, newTestLogger())

	_, err := synth.Summarize(context.Background(), "q?", []qa.Candidate{
		{Record: qa.QARecord{QuestionText: "q?", AnswerText: "a"}},
	})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "synthesizer_unavailable"))
}

func TestBuildUserPromptKeepsNearestCandidate(t *testing.T) {
	synth := NewChatGPTSynthesizer(nil, "gpt-4o-mini", 0.2, newTestLogger())

	prompt := synth.buildUserPrompt("how do we rotate keys?", []qa.Candidate{
		{Record: qa.QARecord{QuestionText: "how do we rotate keys?", AnswerText: "run the rotate script"}},
		{Record: qa.QARecord{QuestionText: "rotate keys how?", AnswerText: "same script"}},
	})
	require.Contains(t, prompt, "User asked: how do we rotate keys?")
	require.Contains(t, prompt, "[1] Question:")
	require.Contains(t, prompt, "run the rotate script")
	require.Contains(t, prompt, "Do not invent information.")
}
