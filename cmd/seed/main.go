package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yanqian/answered-once/internal/bootstrap"
	"github.com/yanqian/answered-once/internal/domain/qa"
	"github.com/yanqian/answered-once/internal/infra/config"
	"github.com/yanqian/answered-once/pkg/logger"
	"github.com/yanqian/answered-once/pkg/util"
)

type seedRecord struct {
	Question     string    `json:"question"`
	Answer       string    `json:"answer"`
	AnswererName string    `json:"answererName"`
	ChatID       string    `json:"chatId"`
	AnswerTime   time.Time `json:"answerTime"`
}

// seed loads curated Q&A records from a JSON file into the index. Records
// without a chat id land in the shared "seed" scope, which the store falls
// back to when a chat-scoped search comes up empty.
func main() {
	file := flag.String("file", "seed.json", "path to the JSON seed file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("seed: load config: %v", err)
	}
	slogger := logger.New()

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("seed: read file: %v", err)
	}
	var records []seedRecord
	if err := json.Unmarshal(data, &records); err != nil {
		log.Fatalf("seed: parse file: %v", err)
	}

	llmClient := bootstrap.NewChatGPTClient(cfg, slogger)
	store := qa.NewStore(qa.Config{
		SimilarityThreshold: cfg.Match.SimilarityThreshold,
		TopK:                cfg.Match.TopK,
		MaxAnswerRunes:      cfg.Match.MaxAnswerRunes,
	}, bootstrap.NewVectorIndex(cfg, slogger), bootstrap.NewEmbedder(cfg, llmClient, slogger), slogger)

	inserted := 0
	for i, item := range records {
		record := qa.QARecord{
			QuestionText: item.Question,
			AnswerText:   item.Answer,
			AnswererName: item.AnswererName,
			AnswerTime:   item.AnswerTime,
			ChatID:       item.ChatID,
		}
		if record.ChatID == "" {
			record.ChatID = "seed"
		}
		if record.AnswerTime.IsZero() {
			record.AnswerTime = util.NowUTC()
		}
		if err := store.AddRecord(ctx, record); err != nil {
			log.Fatalf("seed: record %d: %v", i, err)
		}
		inserted++
	}
	slogger.Info("seed complete", "file", *file, "inserted", inserted)
}
