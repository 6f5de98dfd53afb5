package main

import (
	"log/slog"

	"github.com/yanqian/answered-once/internal/bootstrap"
	"github.com/yanqian/answered-once/internal/domain/answer"
	"github.com/yanqian/answered-once/internal/domain/pipeline"
	"github.com/yanqian/answered-once/internal/domain/qa"
	"github.com/yanqian/answered-once/internal/infra/chat/lark"
	"github.com/yanqian/answered-once/internal/infra/config"
	"github.com/yanqian/answered-once/internal/infra/llm/chatgpt"
	"github.com/yanqian/answered-once/internal/infra/synthesizer"
)

func provideQAConfig(cfg *config.Config) qa.Config {
	return qa.Config{
		SimilarityThreshold: cfg.Match.SimilarityThreshold,
		TopK:                cfg.Match.TopK,
		MaxAnswerRunes:      cfg.Match.MaxAnswerRunes,
	}
}

func provideAnswerConfig(cfg *config.Config) answer.Config {
	return answer.Config{
		Mode:            answer.Mode(cfg.Match.Mode),
		Policy:          qa.SelectionPolicy(cfg.Match.Policy),
		MaxSummaryChars: cfg.Match.MaxSummaryChars,
		CacheTTL:        cfg.Cache.TTL,
	}
}

func providePipelineConfig(cfg *config.Config) pipeline.Config {
	return pipeline.Config{
		AllowedChats: cfg.Lark.AllowedChats,
		Mode:         answer.Mode(cfg.Match.Mode),
		TopK:         cfg.Match.TopK,
	}
}

func provideLarkClient(cfg *config.Config, logger *slog.Logger) *lark.Client {
	return lark.NewClient(lark.Config{
		AppID:     cfg.Lark.AppID,
		AppSecret: cfg.Lark.AppSecret,
		BaseURL:   cfg.Lark.BaseURL,
	}, logger)
}

func provideSynthesizer(cfg *config.Config, client *chatgpt.Client, logger *slog.Logger) answer.Synthesizer {
	return synthesizer.NewChatGPTSynthesizer(client, cfg.LLM.Model, cfg.LLM.Temperature, logger)
}

func provideEmbedder(cfg *config.Config, client *chatgpt.Client, logger *slog.Logger) qa.Embedder {
	return bootstrap.NewEmbedder(cfg, client, logger)
}

func provideVectorIndex(cfg *config.Config, logger *slog.Logger) qa.VectorIndex {
	return bootstrap.NewVectorIndex(cfg, logger)
}

func provideAnswerCache(cfg *config.Config, logger *slog.Logger) answer.Cache {
	return bootstrap.NewAnswerCache(cfg, logger)
}
