package synthesizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/yanqian/answered-once/internal/domain/answer"
	"github.com/yanqian/answered-once/internal/domain/qa"
	"github.com/yanqian/answered-once/internal/infra/llm/chatgpt"
	apperrors "github.com/yanqian/answered-once/pkg/errors"
)

const systemPrompt = `You are a helpful assistant that summarizes past Q&A discussions.
Given a user's question and several relevant Q&A pairs from past discussions, produce a single concise, accurate summary answer.
Use only information present in the provided Q&A pairs. Do not invent or add information.
Write in a clear, direct style. Keep the summary brief (a few sentences or a short paragraph).
The "Answer" for a pair may be a long thread with multiple replies (e.g. acknowledgments, updates, and a final resolution). Summarize the key outcome or resolution rather than repeating early replies.`

const (
	defaultEncoding = "cl100k_base"
	maxPromptTokens = 6000
	maxAnswerTokens = 1024
)

// ChatGPTSynthesizer produces grounded answers via an OpenAI-compatible chat
// API. A nil client marks the synthesizer as unconfigured; Summarize then
// fails with code "synthesizer_unavailable" so callers fall back cleanly.
type ChatGPTSynthesizer struct {
	client      *chatgpt.Client
	model       string
	temperature float32
	logger      *slog.Logger
	encoder     *tiktoken.Tiktoken
}

// NewChatGPTSynthesizer constructs the synthesizer. client may be nil.
func NewChatGPTSynthesizer(client *chatgpt.Client, model string, temperature float32, logger *slog.Logger) *ChatGPTSynthesizer {
	encoder, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoder, err = tiktoken.GetEncoding(defaultEncoding)
		if err != nil {
			encoder = nil
		}
	}
	return &ChatGPTSynthesizer{
		client:      client,
		model:       model,
		temperature: temperature,
		logger:      logger.With("component", "synthesizer.chatgpt"),
		encoder:     encoder,
	}
}

// Summarize asks the model for one concise answer grounded in the candidates.
func (s *ChatGPTSynthesizer) Summarize(ctx context.Context, question string, candidates []qa.Candidate) (string, error) {
	if s.client == nil {
		return "", apperrors.Wrap("synthesizer_unavailable", "no LLM credential configured", nil)
	}
	if len(candidates) == 0 {
		return "", nil
	}

	resp, err := s.client.CreateChatCompletion(ctx, chatgpt.ChatCompletionRequest{
		Model:       s.model,
		Temperature: s.temperature,
		MaxTokens:   maxAnswerTokens,
		Messages: []chatgpt.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: s.buildUserPrompt(question, candidates)},
		},
	})
	if err != nil {
		return "", apperrors.Wrap("synthesizer_failed", "summarization call failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.Wrap("synthesizer_failed", "summarization returned no choices", nil)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// buildUserPrompt lays out the question and candidates, dropping trailing
// candidates once the token budget is spent. The nearest match always fits.
func (s *ChatGPTSynthesizer) buildUserPrompt(question string, candidates []qa.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User asked: %s\n\nRelevant Q&A pairs from past discussions:\n", question)

	budget := maxPromptTokens - s.countTokens(b.String())
	for i, c := range candidates {
		block := fmt.Sprintf("[%d] Question: %s\n    Answer: %s\n\n", i+1, c.Record.QuestionText, c.Record.AnswerText)
		cost := s.countTokens(block)
		if i > 0 && cost > budget {
			s.logger.Debug("prompt budget reached, dropping candidates", "kept", i, "total", len(candidates))
			break
		}
		b.WriteString(block)
		budget -= cost
	}

	b.WriteString("Provide a concise summary answer that best addresses the user's question based only on the above. Do not invent information.")
	return b.String()
}

func (s *ChatGPTSynthesizer) countTokens(text string) int {
	if s.encoder == nil {
		// Rough upper-biased estimate when no encoding is available.
		return len(text) / 2
	}
	return len(s.encoder.Encode(text, nil, nil))
}

var _ answer.Synthesizer = (*ChatGPTSynthesizer)(nil)
