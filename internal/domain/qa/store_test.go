package qa_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/answered-once/internal/domain/qa"
	"github.com/yanqian/answered-once/internal/infra/embedder"
	"github.com/yanqian/answered-once/internal/infra/qaindex"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(cfg qa.Config) (*qa.Store, *embedder.DeterministicEmbedder) {
	emb := embedder.NewDeterministicEmbedder(32)
	return qa.NewStore(cfg, qaindex.NewMemoryIndex(), emb, newTestLogger()), emb
}

func testConfig() qa.Config {
	return qa.Config{SimilarityThreshold: 0.78, TopK: 3, MaxAnswerRunes: 10000}
}

func TestAddAndGetRecordForRoot(t *testing.T) {
	store, _ := newTestStore(testConfig())
	ctx := context.Background()

	found, err := store.HasRecordForRoot(ctx, "root-1")
	require.NoError(t, err)
	require.False(t, found)

	err = store.AddRecord(ctx, qa.QARecord{
		QuestionText: "how do we rotate the signing keys?",
		AnswerText:   "run the rotate script in ops/",
		ChatID:       "chat-1",
		RootID:       "root-1",
	})
	require.NoError(t, err)

	record, found, err := store.GetRecordForRoot(ctx, "root-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "run the rotate script in ops/", record.AnswerText)
}

func TestAddRecordRejectsEmptyFields(t *testing.T) {
	store, _ := newTestStore(testConfig())
	ctx := context.Background()

	err := store.AddRecord(ctx, qa.QARecord{QuestionText: "  ", AnswerText: "x"})
	require.Error(t, err)
	err = store.AddRecord(ctx, qa.QARecord{QuestionText: "q?", AnswerText: "  "})
	require.Error(t, err)
}

func TestAppendReplyCreatesThenMerges(t *testing.T) {
	store, _ := newTestStore(testConfig())
	ctx := context.Background()
	when := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

	req := qa.AppendRequest{
		ChatID:       "chat-1",
		RootID:       "root-9",
		QuestionText: "where do deploy logs end up?",
		ReplyText:    "check the artifacts bucket",
		AnswererName: "Dana",
		AnswererID:   "ou_dana",
		AnswerTime:   when,
	}
	require.NoError(t, store.AppendReply(ctx, req))

	req.ReplyText = "also mirrored to the log archive"
	req.AnswererName = "Eli"
	req.AnswererID = "ou_eli"
	req.AnswerTime = when.Add(time.Minute)
	require.NoError(t, store.AppendReply(ctx, req))

	record, found, err := store.GetRecordForRoot(ctx, "root-9")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "check the artifacts bucket\nalso mirrored to the log archive", record.AnswerText)
	require.Equal(t, "Eli", record.AnswererName)
	require.Equal(t, "ou_eli", record.AnswererID)
	require.Equal(t, when.Add(time.Minute), record.AnswerTime)
	require.Equal(t, "root-9", record.ThreadID)
}

func TestAppendReplyRejectsEmptyReply(t *testing.T) {
	store, _ := newTestStore(testConfig())
	err := store.AppendReply(context.Background(), qa.AppendRequest{RootID: "r", QuestionText: "q?", ReplyText: "   "})
	require.Error(t, err)
}

func TestFindBestIdenticalQuestionScoresOne(t *testing.T) {
	store, emb := newTestStore(testConfig())
	ctx := context.Background()
	question := "is there a runbook for failovers?"

	require.NoError(t, store.AddRecord(ctx, qa.QARecord{
		QuestionText: question,
		AnswerText:   "yes, pinned in the ops channel",
		ChatID:       "chat-1",
		RootID:       "root-1",
	}))

	embedding, err := emb.Embed(ctx, question)
	require.NoError(t, err)

	best, found, err := store.FindBest(ctx, embedding, "chat-1", 1, -1)
	require.NoError(t, err)
	require.True(t, found)
	require.InDelta(t, 1.0, best.Score, 1e-6)
	require.Equal(t, "root-1", best.Record.RootID)
}

func TestFindCandidatesFiltersBelowMinScore(t *testing.T) {
	store, emb := newTestStore(testConfig())
	ctx := context.Background()

	require.NoError(t, store.AddRecord(ctx, qa.QARecord{
		QuestionText: "how do we get VPN access?",
		AnswerText:   "file an IT ticket",
		ChatID:       "chat-1",
		RootID:       "root-1",
	}))

	embedding, err := emb.Embed(ctx, "how do we get VPN access?")
	require.NoError(t, err)

	candidates, err := store.FindCandidates(ctx, embedding, "chat-1", 3, 1.1)
	require.NoError(t, err)
	require.Empty(t, candidates)
}

func TestFindCandidatesUnrelatedQuestionBelowThreshold(t *testing.T) {
	store, emb := newTestStore(testConfig())
	ctx := context.Background()

	require.NoError(t, store.AddRecord(ctx, qa.QARecord{
		QuestionText: "how do we get VPN access?",
		AnswerText:   "file an IT ticket",
		ChatID:       "chat-1",
		RootID:       "root-1",
	}))

	// A different text hashes to an unrelated direction, so the score lands
	// far below the 0.78 threshold.
	embedding, err := emb.Embed(ctx, "completely unrelated message about lunch plans")
	require.NoError(t, err)

	candidates, err := store.FindCandidates(ctx, embedding, "chat-1", 3, -1)
	require.NoError(t, err)
	require.Empty(t, candidates)
}

func TestFindCandidatesFallsBackToAllScopes(t *testing.T) {
	store, emb := newTestStore(testConfig())
	ctx := context.Background()
	question := "what is the guest wifi password?"

	require.NoError(t, store.AddRecord(ctx, qa.QARecord{
		QuestionText: question,
		AnswerText:   "posted on the kitchen wall",
		ChatID:       "seed",
		RootID:       "seed-1",
	}))

	embedding, err := emb.Embed(ctx, question)
	require.NoError(t, err)

	candidates, err := store.FindCandidates(ctx, embedding, "some-other-chat", 3, -1)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "seed-1", candidates[0].Record.RootID)
}

func TestFindCandidatesEmptyStore(t *testing.T) {
	store, emb := newTestStore(testConfig())
	ctx := context.Background()

	embedding, err := emb.Embed(ctx, "anything?")
	require.NoError(t, err)

	candidates, err := store.FindCandidates(ctx, embedding, "chat-1", 3, -1)
	require.NoError(t, err)
	require.Empty(t, candidates)
}

func TestAnswerTruncatedToMaxRunes(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAnswerRunes = 10
	store, _ := newTestStore(cfg)
	ctx := context.Background()

	require.NoError(t, store.AddRecord(ctx, qa.QARecord{
		QuestionText: "q?",
		AnswerText:   "0123456789ABCDEF",
		ChatID:       "chat-1",
		RootID:       "root-1",
	}))

	record, found, err := store.GetRecordForRoot(ctx, "root-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "0123456789", record.AnswerText)
}
