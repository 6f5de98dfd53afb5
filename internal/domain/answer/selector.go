package answer

import (
	"context"
	"log/slog"
	"time"

	"github.com/yanqian/answered-once/internal/domain/qa"
	apperrors "github.com/yanqian/answered-once/pkg/errors"
)

// Mode selects how an answer is produced from ranked candidates.
type Mode string

const (
	// ModeSingle answers from the single nearest candidate.
	ModeSingle Mode = "single"
	// ModeSummarize synthesizes one answer from the top-K candidates.
	ModeSummarize Mode = "summarize"
)

// NoAnswerText is sent when summarize mode has nothing to ground an answer in.
const NoAnswerText = "I don't know of a previous answer to that question yet."

const defaultMaxSummaryChars = 500

// Synthesizer produces a grounded answer from past Q&A candidates. It must
// fail with code "synthesizer_unavailable" when no credential is configured
// (expected, handled by fallback) and "synthesizer_failed" on call errors.
type Synthesizer interface {
	Summarize(ctx context.Context, question string, candidates []qa.Candidate) (string, error)
}

// Cache stores synthesized answers keyed by the matched root so repeated hits
// skip the LLM round trip.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, text string, ttl time.Duration) error
}

// Config holds selector knobs.
type Config struct {
	Mode            Mode
	Policy          qa.SelectionPolicy
	MaxSummaryChars int
	CacheTTL        time.Duration
}

// Result is the selector's outcome. An empty Text means nothing to send.
type Result struct {
	Text        string
	Source      *qa.Candidate
	Synthesized bool
}

// Selector turns ranked candidates into one outgoing answer.
type Selector struct {
	cfg    Config
	synth  Synthesizer
	cache  Cache
	logger *slog.Logger
}

// NewSelector constructs a Selector.
func NewSelector(cfg Config, synth Synthesizer, cache Cache, logger *slog.Logger) *Selector {
	if cfg.MaxSummaryChars <= 0 {
		cfg.MaxSummaryChars = defaultMaxSummaryChars
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeSingle
	}
	return &Selector{
		cfg:    cfg,
		synth:  synth,
		cache:  cache,
		logger: logger.With("component", "answer.selector"),
	}
}

// Select produces the reply text for a question given ranked candidates.
// Synthesizer unavailability or failure degrades to deterministic fallbacks
// and never surfaces as an error. With zero candidates, summarize mode emits
// the fixed no-answer text and single mode stays silent.
func (s *Selector) Select(ctx context.Context, question string, candidates []qa.Candidate) Result {
	if len(candidates) == 0 {
		if s.cfg.Mode == ModeSummarize {
			return Result{Text: NoAnswerText}
		}
		return Result{}
	}

	switch s.cfg.Mode {
	case ModeSummarize:
		return s.selectSummarize(ctx, question, candidates)
	default:
		return s.selectSingle(ctx, question, candidates)
	}
}

func (s *Selector) selectSingle(ctx context.Context, question string, candidates []qa.Candidate) Result {
	best := candidates[0]
	if text, ok := s.synthesize(ctx, question, best.Record.RootID, []qa.Candidate{best}); ok {
		return Result{Text: text, Source: &best, Synthesized: true}
	}
	return Result{
		Text:   truncateSummary(best.Record.AnswerText, s.cfg.MaxSummaryChars),
		Source: &best,
	}
}

func (s *Selector) selectSummarize(ctx context.Context, question string, candidates []qa.Candidate) Result {
	best := candidates[0]
	if text, ok := s.synthesize(ctx, question, best.Record.RootID, candidates); ok {
		return Result{Text: text, Source: &best, Synthesized: true}
	}
	picked, ok := qa.PickBest(candidates, s.cfg.Policy)
	if !ok {
		return Result{Text: NoAnswerText}
	}
	return Result{
		Text:   truncateSummary(picked.Record.AnswerText, s.cfg.MaxSummaryChars),
		Source: &picked,
	}
}

func (s *Selector) synthesize(ctx context.Context, question, cacheKey string, candidates []qa.Candidate) (string, bool) {
	if s.synth == nil {
		return "", false
	}

	if cached, found := s.cacheGet(ctx, cacheKey); found {
		return cached, true
	}

	text, err := s.synth.Summarize(ctx, question, candidates)
	if err != nil {
		if apperrors.IsCode(err, "synthesizer_unavailable") {
			s.logger.Warn("synthesizer not configured, using fallback", "error", err)
		} else {
			s.logger.Error("synthesizer call failed, using fallback", "error", err)
		}
		return "", false
	}
	if text == "" {
		return "", false
	}
	s.cacheSet(ctx, cacheKey, text)
	return text, true
}

func (s *Selector) cacheGet(ctx context.Context, key string) (string, bool) {
	if s.cache == nil || key == "" {
		return "", false
	}
	text, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("answer cache read failed", "error", err)
		return "", false
	}
	return text, found && text != ""
}

func (s *Selector) cacheSet(ctx context.Context, key, text string) {
	if s.cache == nil || key == "" {
		return
	}
	if err := s.cache.Set(ctx, key, text, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("answer cache write failed", "error", err)
	}
}
