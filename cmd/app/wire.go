//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/answered-once/internal/bootstrap"
	"github.com/yanqian/answered-once/internal/domain/answer"
	"github.com/yanqian/answered-once/internal/domain/pipeline"
	"github.com/yanqian/answered-once/internal/domain/qa"
	"github.com/yanqian/answered-once/internal/infra/chat/lark"
	"github.com/yanqian/answered-once/internal/infra/config"
	httpiface "github.com/yanqian/answered-once/internal/interface/http"
	"github.com/yanqian/answered-once/pkg/logger"
	"github.com/yanqian/answered-once/pkg/metrics"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		metrics.NewPipelineCounters,
		bootstrap.NewChatGPTClient,
		provideQAConfig,
		provideAnswerConfig,
		providePipelineConfig,
		provideLarkClient,
		provideSynthesizer,
		provideEmbedder,
		provideVectorIndex,
		provideAnswerCache,
		qa.NewStore,
		answer.NewSelector,
		pipeline.NewService,
		wire.Bind(new(pipeline.ChatClient), new(*lark.Client)),
		wire.Bind(new(httpiface.Pipeline), new(*pipeline.Service)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
