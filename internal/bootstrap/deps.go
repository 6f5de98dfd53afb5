package bootstrap

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/answered-once/internal/domain/answer"
	"github.com/yanqian/answered-once/internal/domain/qa"
	"github.com/yanqian/answered-once/internal/infra/answercache"
	"github.com/yanqian/answered-once/internal/infra/config"
	"github.com/yanqian/answered-once/internal/infra/embedder"
	"github.com/yanqian/answered-once/internal/infra/llm/chatgpt"
	"github.com/yanqian/answered-once/internal/infra/qaindex"
)

// NewChatGPTClient builds the OpenAI-compatible client, or nil when no API
// key is configured. Callers treat nil as "LLM features disabled".
func NewChatGPTClient(cfg *config.Config, logger *slog.Logger) *chatgpt.Client {
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		logger.Info("llm api key not set, llm features disabled")
		return nil
	}
	client, err := chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL)
	if err != nil {
		logger.Error("failed to create llm client, llm features disabled", "error", err)
		return nil
	}
	return client
}

// NewEmbedder returns the question embedder. Without an LLM client it falls
// back to a deterministic hash embedder so the service stays runnable in
// development; matches are then only exact-text quality.
func NewEmbedder(cfg *config.Config, client *chatgpt.Client, logger *slog.Logger) qa.Embedder {
	if client == nil {
		logger.Warn("using deterministic embedder; semantic matching degraded")
		return embedder.NewDeterministicEmbedder(cfg.Store.VectorDim)
	}
	return embedder.NewChatGPTEmbedder(client, cfg.LLM.EmbeddingModel, logger)
}

// NewVectorIndex builds the pgvector-backed index, falling back to memory
// when Postgres is not configured or unreachable.
func NewVectorIndex(cfg *config.Config, logger *slog.Logger) qa.VectorIndex {
	fallback := qaindex.NewMemoryIndex()
	dsn := strings.TrimSpace(cfg.Store.Postgres.DSN)
	if dsn == "" {
		logger.Info("qa postgres dsn not set, using memory index")
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory index", "error", err)
		return fallback
	}
	if cfg.Store.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Store.Postgres.MaxConns
	}
	if cfg.Store.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Store.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory index", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory index", "error", err)
		pool.Close()
		return fallback
	}
	index := qaindex.NewPostgresIndex(pool)
	if err := index.EnsureSchema(ctx, cfg.Store.VectorDim); err != nil {
		logger.Error("failed to ensure qa schema, using memory index", "error", err)
		pool.Close()
		return fallback
	}
	logger.Info("qa postgres index enabled")
	return index
}

// NewAnswerCache builds the synthesized-answer cache, preferring Valkey when
// enabled and reachable.
func NewAnswerCache(cfg *config.Config, logger *slog.Logger) answer.Cache {
	if cfg.Cache.Redis.Enabled {
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory cache", "error", err)
			return answercache.NewMemoryCache()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory cache", "error", err)
			return answercache.NewMemoryCache()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory cache", "error", err)
		} else {
			logger.Info("valkey answer cache enabled", "addr", cfg.Cache.Redis.Addr)
			return answercache.NewValkeyCache(client, "answer")
		}
	}
	return answercache.NewMemoryCache()
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.Cache.Redis.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.Cache.Redis.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.Cache.Redis.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}
