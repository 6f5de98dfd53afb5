package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/yanqian/answered-once/internal/bootstrap"
	"github.com/yanqian/answered-once/internal/domain/qa"
	"github.com/yanqian/answered-once/internal/infra/chat/lark"
	"github.com/yanqian/answered-once/internal/infra/config"
	"github.com/yanqian/answered-once/pkg/logger"
)

// backfill walks a chat's message history and indexes every answered
// question thread, so the bot starts with knowledge of past conversations.
func main() {
	chatID := flag.String("chat", "", "chat id to backfill (required)")
	pageSize := flag.Int("page-size", 50, "history page size")
	flag.Parse()

	if strings.TrimSpace(*chatID) == "" {
		log.Fatal("backfill: -chat is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("backfill: load config: %v", err)
	}
	slogger := logger.New()
	if strings.TrimSpace(cfg.Store.Postgres.DSN) == "" {
		log.Fatal("backfill: QA_POSTGRES_DSN must be set; backfilling a memory index is lost on exit")
	}

	llmClient := bootstrap.NewChatGPTClient(cfg, slogger)
	store := qa.NewStore(qa.Config{
		SimilarityThreshold: cfg.Match.SimilarityThreshold,
		TopK:                cfg.Match.TopK,
		MaxAnswerRunes:      cfg.Match.MaxAnswerRunes,
	}, bootstrap.NewVectorIndex(cfg, slogger), bootstrap.NewEmbedder(cfg, llmClient, slogger), slogger)

	chat := lark.NewClient(lark.Config{
		AppID:     cfg.Lark.AppID,
		AppSecret: cfg.Lark.AppSecret,
		BaseURL:   cfg.Lark.BaseURL,
	}, slogger)

	indexed, err := run(ctx, store, chat, *chatID, *pageSize)
	if err != nil {
		log.Fatalf("backfill: %v", err)
	}
	slogger.Info("backfill complete", "chat_id", *chatID, "replies_indexed", indexed)
}

func run(ctx context.Context, store *qa.Store, chat *lark.Client, chatID string, pageSize int) (int, error) {
	messages, err := chat.ListMessages(ctx, chatID, pageSize)
	if err != nil {
		return 0, fmt.Errorf("list messages: %w", err)
	}

	roots := make(map[string]lark.HistoryMessage)
	replies := make(map[string][]lark.HistoryMessage)
	for _, msg := range messages {
		root := msg.RootID
		if root == "" || root == msg.MessageID {
			roots[msg.MessageID] = msg
			continue
		}
		replies[root] = append(replies[root], msg)
	}

	indexed := 0
	for rootID, thread := range replies {
		root, ok := roots[rootID]
		if !ok || !qa.IsQuestion(root.Text) {
			continue
		}
		sort.Slice(thread, func(i, j int) bool {
			return thread[i].CreateTime.Before(thread[j].CreateTime)
		})
		for _, reply := range thread {
			if strings.TrimSpace(reply.Text) == "" {
				continue
			}
			err := store.AppendReply(ctx, qa.AppendRequest{
				ChatID:       chatID,
				RootID:       rootID,
				QuestionText: root.Text,
				ReplyText:    reply.Text,
				AnswererName: displayName(reply.SenderID),
				AnswererID:   reply.SenderID,
				AnswerTime:   reply.CreateTime,
			})
			if err != nil {
				return indexed, fmt.Errorf("index reply %s: %w", reply.MessageID, err)
			}
			indexed++
		}
	}
	return indexed, nil
}

func displayName(senderID string) string {
	if senderID == "" {
		return "Someone"
	}
	if len(senderID) > 12 {
		return fmt.Sprintf("User (%s...)", senderID[:12])
	}
	return fmt.Sprintf("User (%s)", senderID)
}
