package qa

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/yanqian/answered-once/pkg/errors"
)

const (
	// answerDelimiter joins successive replies merged onto the same root.
	answerDelimiter = "\n"

	defaultMaxAnswerRunes = 10000
	defaultTopK           = 3
)

// Store owns the Q&A collection: persistence through the vector index plus
// the ranking that turns raw distances into thresholded candidates.
type Store struct {
	cfg      Config
	index    VectorIndex
	embedder Embedder
	logger   *slog.Logger
}

// NewStore wires the store against an index and an embedder.
func NewStore(cfg Config, index VectorIndex, embedder Embedder, logger *slog.Logger) *Store {
	if cfg.MaxAnswerRunes <= 0 {
		cfg.MaxAnswerRunes = defaultMaxAnswerRunes
	}
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	return &Store{
		cfg:      cfg,
		index:    index,
		embedder: embedder,
		logger:   logger.With("component", "qa.store"),
	}
}

// HasRecordForRoot reports whether a record already exists for the thread root.
func (s *Store) HasRecordForRoot(ctx context.Context, rootID string) (bool, error) {
	if strings.TrimSpace(rootID) == "" {
		return false, nil
	}
	_, found, err := s.index.FindByRoot(ctx, rootID)
	return found, err
}

// GetRecordForRoot fetches the record for a thread root.
func (s *Store) GetRecordForRoot(ctx context.Context, rootID string) (QARecord, bool, error) {
	if strings.TrimSpace(rootID) == "" {
		return QARecord{}, false, nil
	}
	entry, found, err := s.index.FindByRoot(ctx, rootID)
	if err != nil || !found {
		return QARecord{}, false, err
	}
	return entry.Record, true, nil
}

// AddRecord embeds the question and persists the record under a fresh ID.
func (s *Store) AddRecord(ctx context.Context, record QARecord) error {
	if strings.TrimSpace(record.QuestionText) == "" {
		return apperrors.Wrap("invalid_input", "question text cannot be empty", nil)
	}
	if strings.TrimSpace(record.AnswerText) == "" {
		return apperrors.Wrap("invalid_input", "answer text cannot be empty", nil)
	}
	record.AnswerText = truncateRunes(record.AnswerText, s.cfg.MaxAnswerRunes)

	embedding, err := s.embedder.Embed(ctx, record.QuestionText)
	if err != nil {
		return apperrors.Wrap("embedding_error", "failed to embed question", err)
	}
	entry := IndexEntry{
		ID:        uuid.NewString(),
		Record:    record,
		Embedding: embedding,
	}
	if err := s.index.Insert(ctx, entry); err != nil {
		return apperrors.Wrap("index_error", "failed to insert record", err)
	}
	return nil
}

// AppendRequest carries one human reply destined for the index.
type AppendRequest struct {
	ChatID       string
	RootID       string
	QuestionText string
	ReplyText    string
	AnswererName string
	AnswererID   string
	AnswerTime   time.Time
}

// AppendReply merges a reply into the record for its root, creating the record
// on first reply. The backing index cannot update in place, so a merge is
// delete-then-reinsert under a new ID; the embedding is reused because the
// question text does not change.
func (s *Store) AppendReply(ctx context.Context, req AppendRequest) error {
	reply := strings.TrimSpace(req.ReplyText)
	if reply == "" {
		return apperrors.Wrap("invalid_input", "reply text cannot be empty", nil)
	}

	existing, found, err := s.index.FindByRoot(ctx, req.RootID)
	if err != nil {
		return apperrors.Wrap("index_error", "failed to look up root", err)
	}
	if !found {
		return s.AddRecord(ctx, QARecord{
			QuestionText: req.QuestionText,
			AnswerText:   reply,
			AnswererName: req.AnswererName,
			AnswererID:   req.AnswererID,
			AnswerTime:   req.AnswerTime,
			ChatID:       req.ChatID,
			RootID:       req.RootID,
			ThreadID:     req.RootID,
		})
	}

	merged := existing.Record
	merged.AnswerText = truncateRunes(merged.AnswerText+answerDelimiter+reply, s.cfg.MaxAnswerRunes)
	merged.AnswererName = req.AnswererName
	merged.AnswererID = req.AnswererID
	merged.AnswerTime = req.AnswerTime

	embedding := existing.Embedding
	if len(embedding) == 0 {
		if embedding, err = s.embedder.Embed(ctx, merged.QuestionText); err != nil {
			return apperrors.Wrap("embedding_error", "failed to re-embed question", err)
		}
	}

	if err := s.index.DeleteByID(ctx, existing.ID); err != nil {
		return apperrors.Wrap("index_error", "failed to delete stale record", err)
	}
	if err := s.index.Insert(ctx, IndexEntry{
		ID:        uuid.NewString(),
		Record:    merged,
		Embedding: embedding,
	}); err != nil {
		return apperrors.Wrap("index_error", "failed to reinsert merged record", err)
	}
	return nil
}

// FindCandidates ranks nearest neighbours for a query embedding. The search is
// restricted to chatID first and falls back to all scopes when that yields
// nothing, so seeded reference data can answer in any channel. Distances are
// converted to scores via 1 - dist^2/2 (cosine similarity for unit vectors)
// and anything below minScore is dropped. Pass a negative minScore to use the
// configured threshold. topK bounds the index request, not the result count.
func (s *Store) FindCandidates(ctx context.Context, embedding []float32, chatID string, topK int, minScore float64) ([]Candidate, error) {
	if topK <= 0 {
		topK = s.cfg.TopK
	}
	if minScore < 0 {
		minScore = s.cfg.SimilarityThreshold
	}

	scopes := []string{""}
	if chatID != "" {
		scopes = []string{chatID, ""}
	}

	var matches []DistanceMatch
	for _, scope := range scopes {
		var err error
		matches, err = s.index.Nearest(ctx, embedding, scope, topK)
		if err != nil {
			return nil, apperrors.Wrap("index_error", "nearest neighbour query failed", err)
		}
		if len(matches) > 0 {
			break
		}
	}

	candidates := make([]Candidate, 0, len(matches))
	for _, match := range matches {
		score := 1.0 - (match.Distance*match.Distance)/2.0
		if score < minScore {
			continue
		}
		candidates = append(candidates, Candidate{Record: match.Entry.Record, Score: score})
	}
	return candidates, nil
}

// FindBest returns the single top-ranked candidate, if any.
func (s *Store) FindBest(ctx context.Context, embedding []float32, chatID string, topK int, minScore float64) (Candidate, bool, error) {
	candidates, err := s.FindCandidates(ctx, embedding, chatID, topK, minScore)
	if err != nil || len(candidates) == 0 {
		return Candidate{}, false, err
	}
	return candidates[0], true, nil
}

func truncateRunes(text string, max int) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
