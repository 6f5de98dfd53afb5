package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yanqian/answered-once/internal/domain/answer"
	"github.com/yanqian/answered-once/internal/domain/qa"
	"github.com/yanqian/answered-once/pkg/metrics"
)

// Service orchestrates both directions of the Q&A flow: answering root-level
// questions from the store and indexing human replies back into it. All
// failures are handled here; the webhook has already been acknowledged, so
// nothing propagates and nothing is retried.
type Service struct {
	cfg      Config
	store    *qa.Store
	embedder qa.Embedder
	selector *answer.Selector
	chat     ChatClient
	counters *metrics.PipelineCounters
	logger   *slog.Logger
}

// NewService wires the pipeline.
func NewService(cfg Config, store *qa.Store, embedder qa.Embedder, selector *answer.Selector, chat ChatClient, counters *metrics.PipelineCounters, logger *slog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		store:    store,
		embedder: embedder,
		selector: selector,
		chat:     chat,
		counters: counters,
		logger:   logger.With("component", "pipeline"),
	}
}

// HandleMessage processes a root-level message: if it is a question with a
// confident match, reply threaded under it.
func (s *Service) HandleMessage(ctx context.Context, ev Event) {
	text := strings.TrimSpace(ev.Text)
	if text == "" || !qa.IsQuestion(text) {
		return
	}
	if !s.chatAllowed(ev.ChatID) {
		return
	}

	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		s.counters.Errors.Add(1)
		s.logger.Error("embedding failed", "message_id", ev.MessageID, "error", err)
		return
	}

	var candidates []qa.Candidate
	switch s.cfg.Mode {
	case answer.ModeSummarize:
		candidates, err = s.store.FindCandidates(ctx, embedding, ev.ChatID, s.cfg.TopK, -1)
	default:
		var best qa.Candidate
		var found bool
		best, found, err = s.store.FindBest(ctx, embedding, ev.ChatID, 1, -1)
		if found {
			candidates = []qa.Candidate{best}
		}
	}
	if err != nil {
		s.counters.Errors.Add(1)
		s.logger.Error("candidate search failed", "message_id", ev.MessageID, "error", err)
		return
	}

	result := s.selector.Select(ctx, text, candidates)
	if result.Text == "" {
		s.counters.NoMatch.Add(1)
		return
	}

	sentID, err := s.sendReply(ctx, ev, result)
	if err != nil {
		// Best-effort notification: log and move on.
		s.counters.Errors.Add(1)
		s.logger.Warn("failed to send reply", "message_id", ev.MessageID, "error", err)
		return
	}
	s.counters.Replied.Add(1)
	matchedRoot := ""
	if result.Source != nil {
		matchedRoot = result.Source.Record.RootID
	}
	s.logger.Info("replied", "message_id", ev.MessageID, "matched_root", matchedRoot, "sent_id", sentID, "synthesized", result.Synthesized)
}

// HandleReply processes a threaded reply: if the thread root is a question,
// merge the reply into the store. Replaying the same event re-appends; the
// per-root merge is the only idempotency the store offers.
func (s *Service) HandleReply(ctx context.Context, ev Event) {
	root := ev.ThreadRoot()
	reply := strings.TrimSpace(ev.Text)
	if root == "" || reply == "" {
		return
	}

	rootMsg, found, err := s.chat.GetMessage(ctx, root)
	if err != nil {
		s.counters.Errors.Add(1)
		s.logger.Warn("failed to fetch thread root", "root_id", root, "error", err)
		return
	}
	if !found || !qa.IsQuestion(rootMsg.Text) {
		return
	}

	answerTime := ev.CreateTime
	if answerTime.IsZero() {
		answerTime = rootMsg.CreateTime
	}
	err = s.store.AppendReply(ctx, qa.AppendRequest{
		ChatID:       ev.ChatID,
		RootID:       root,
		QuestionText: rootMsg.Text,
		ReplyText:    reply,
		AnswererName: answererDisplay(ev.SenderID),
		AnswererID:   ev.SenderID,
		AnswerTime:   answerTime,
	})
	if err != nil {
		s.counters.Errors.Add(1)
		s.logger.Error("failed to index reply", "root_id", root, "error", err)
		return
	}
	s.counters.Indexed.Add(1)
	s.logger.Info("indexed reply", "root_id", root, "chat_id", ev.ChatID)
}

func (s *Service) sendReply(ctx context.Context, ev Event, result answer.Result) (string, error) {
	if result.Source == nil {
		return s.chat.SendText(ctx, ev.ChatID, result.Text, ev.MessageID)
	}
	rec := result.Source.Record
	link := s.chat.ThreadLink(rec.ChatID, rec.RootID)
	if rec.AnswererID != "" {
		return s.chat.SendPost(ctx, ev.ChatID, buildPostContent(rec, result.Text, link), ev.MessageID)
	}
	return s.chat.SendText(ctx, ev.ChatID, formatReplyText(rec, result.Text, link), ev.MessageID)
}

func (s *Service) chatAllowed(chatID string) bool {
	if len(s.cfg.AllowedChats) == 0 {
		return true
	}
	for _, allowed := range s.cfg.AllowedChats {
		if allowed == chatID {
			return true
		}
	}
	return false
}

// answererDisplay derives a display label when only the opaque sender ID is
// known; user-profile lookups are out of scope.
func answererDisplay(senderID string) string {
	if senderID == "" {
		return "Someone"
	}
	if len(senderID) > 12 {
		return fmt.Sprintf("User (%s...)", senderID[:12])
	}
	return fmt.Sprintf("User (%s)", senderID)
}
