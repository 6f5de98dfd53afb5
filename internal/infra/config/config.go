package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP  HTTPConfig  `yaml:"http"`
	Lark  LarkConfig  `yaml:"lark"`
	LLM   LLMConfig   `yaml:"llm"`
	Match MatchConfig `yaml:"match"`
	Store StoreConfig `yaml:"store"`
	Cache CacheConfig `yaml:"cache"`
	Admin AdminConfig `yaml:"admin"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address      string          `yaml:"address"`
	ReadTimeout  time.Duration   `yaml:"readTimeout"`
	WriteTimeout time.Duration   `yaml:"writeTimeout"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware on the admin API.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// LarkConfig identifies the Lark app and scopes it to specific chats.
type LarkConfig struct {
	AppID        string   `yaml:"appId"`
	AppSecret    string   `yaml:"appSecret"`
	BaseURL      string   `yaml:"baseUrl"`
	AllowedChats []string `yaml:"allowedChats"`
}

// LLMConfig contains ChatGPT/OpenAI settings.
type LLMConfig struct {
	APIKey         string  `yaml:"apiKey"`
	BaseURL        string  `yaml:"baseUrl"`
	Model          string  `yaml:"model"`
	EmbeddingModel string  `yaml:"embeddingModel"`
	Temperature    float32 `yaml:"temperature"`
}

// MatchConfig controls question matching and answer selection.
type MatchConfig struct {
	SimilarityThreshold float64 `yaml:"similarityThreshold"`
	TopK                int     `yaml:"topK"`
	Mode                string  `yaml:"mode"`
	Policy              string  `yaml:"policy"`
	MaxSummaryChars     int     `yaml:"maxSummaryChars"`
	MaxAnswerRunes      int     `yaml:"maxAnswerRunes"`
}

// StoreConfig controls the vector index backend.
type StoreConfig struct {
	Postgres  PostgresConfig `yaml:"postgres"`
	VectorDim int            `yaml:"vectorDim"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// CacheConfig controls the synthesized answer cache.
type CacheConfig struct {
	Redis RedisConfig   `yaml:"redis"`
	TTL   time.Duration `yaml:"ttl"`
}

// RedisConfig contains connection information for cache storage.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// AdminConfig secures the admin API. An empty secret disables the routes.
type AdminConfig struct {
	JWTSecret string `yaml:"jwtSecret"`
}

// Load reads configuration from an optional .env file, a YAML file, and
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("LARK_APP_ID"); v != "" {
		cfg.Lark.AppID = v
	}
	if v := os.Getenv("LARK_APP_SECRET"); v != "" {
		cfg.Lark.AppSecret = v
	}
	if v := os.Getenv("LARK_BASE_URL"); v != "" {
		cfg.Lark.BaseURL = v
	}
	if v := os.Getenv("ANSWERED_ONCE_CHAT_IDS"); v != "" {
		var chats []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				chats = append(chats, part)
			}
		}
		cfg.Lark.AllowedChats = chats
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_EMBEDDING_MODEL"); v != "" {
		cfg.LLM.EmbeddingModel = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	if v := os.Getenv("SIMILARITY_THRESHOLD"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Match.SimilarityThreshold = parsed
		}
	}
	if v := os.Getenv("MATCH_TOP_K"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Match.TopK = parsed
		}
	}
	if v := os.Getenv("ANSWER_MODE"); v != "" {
		cfg.Match.Mode = v
	}
	if v := os.Getenv("PICK_POLICY"); v != "" {
		cfg.Match.Policy = v
	}
	if v := os.Getenv("MAX_SUMMARY_CHARS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Match.MaxSummaryChars = parsed
		}
	}
	if v := os.Getenv("MAX_ANSWER_RUNES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Match.MaxAnswerRunes = parsed
		}
	}
	if v := os.Getenv("QA_POSTGRES_DSN"); v != "" {
		cfg.Store.Postgres.DSN = v
	}
	if v := os.Getenv("QA_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Store.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("QA_POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Store.Postgres.MinConns = int32(parsed)
		}
	}
	if v := os.Getenv("QA_VECTOR_DIM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Store.VectorDim = parsed
		}
	}
	if v := os.Getenv("CACHE_REDIS_ENABLED"); v != "" {
		cfg.Cache.Redis.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("CACHE_REDIS_ADDR"); v != "" {
		cfg.Cache.Redis.Addr = v
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = parsed
		}
	}
	if v := os.Getenv("ADMIN_JWT_SECRET"); v != "" {
		cfg.Admin.JWTSecret = v
	}
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
		},
		LLM: LLMConfig{
			Model:          "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			Temperature:    0.2,
		},
		Match: MatchConfig{
			SimilarityThreshold: 0.78,
			TopK:                3,
			Mode:                "single",
			Policy:              "similarity",
			MaxSummaryChars:     500,
			MaxAnswerRunes:      10000,
		},
		Store: StoreConfig{
			Postgres: PostgresConfig{
				DSN:      "",
				MaxConns: 4,
				MinConns: 0,
			},
			VectorDim: 1536,
		},
		Cache: CacheConfig{
			Redis: RedisConfig{
				Enabled: false,
				Addr:    "",
			},
			TTL: 6 * time.Hour,
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.Match.SimilarityThreshold < 0 || c.Match.SimilarityThreshold > 1 {
		return errors.New("match.similarityThreshold must be within [0, 1]")
	}
	if c.Match.TopK <= 0 {
		return errors.New("match.topK must be positive")
	}
	if c.Match.Mode != "single" && c.Match.Mode != "summarize" {
		return errors.New("match.mode must be single or summarize")
	}
	switch c.Match.Policy {
	case "similarity", "recency", "longest":
	default:
		return errors.New("match.policy must be similarity, recency, or longest")
	}
	if c.Match.MaxSummaryChars <= 0 {
		return errors.New("match.maxSummaryChars must be positive")
	}
	if c.Match.MaxAnswerRunes <= 0 {
		return errors.New("match.maxAnswerRunes must be positive")
	}
	if c.Store.VectorDim <= 0 {
		return errors.New("store.vectorDim must be positive")
	}
	if c.Cache.TTL < 0 {
		return errors.New("cache.ttl cannot be negative")
	}
	if c.Cache.Redis.Enabled && strings.TrimSpace(c.Cache.Redis.Addr) == "" {
		return errors.New("cache.redis.addr cannot be empty when redis cache is enabled")
	}
	if strings.TrimSpace(c.LLM.EmbeddingModel) == "" {
		return errors.New("llm.embeddingModel cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	return nil
}
