package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the grading API service.
type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	JWTSecret string

	RedisURL string
	NATSURL  string

	WeaviateScheme    string
	WeaviateHost      string
	WeaviateClassName string
	RetrievalTopK     int
	RetrievalTimeout  time.Duration
	RetrievalCacheTTL time.Duration

	AIProvider          string
	OpenAIAPIKey        string
	AnthropicAPIKey     string
	GenerationModel     string
	GenerationMaxTokens int
	RubricTemperature   float32
	EvalTemperature     float32
	GenerationTimeout   time.Duration

	ConsensusRuns     int
	VarianceThreshold float64

	EventSubjectBase string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("DRONA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Drona Grading API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("weaviate.scheme", "http")
	v.SetDefault("weaviate.host", "localhost:8081")
	v.SetDefault("weaviate.class", "TextbookChunk")
	v.SetDefault("retrieval.top_k", 3)
	v.SetDefault("retrieval.timeout", "10s")
	v.SetDefault("retrieval.cache_ttl", "10m")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.max_tokens", 4096)
	v.SetDefault("ai.rubric_temperature", 0.1)
	v.SetDefault("ai.eval_temperature", 0.4)
	v.SetDefault("ai.timeout", "90s")
	v.SetDefault("consensus.runs", 3)
	v.SetDefault("consensus.variance_threshold", 2.0)
	v.SetDefault("events.subject_base", "drona.grading")

	retrievalTimeout, err := time.ParseDuration(v.GetString("retrieval.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid retrieval timeout: %w", err)
	}

	cacheTTL, err := time.ParseDuration(v.GetString("retrieval.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid retrieval cache ttl: %w", err)
	}

	generationTimeout, err := time.ParseDuration(v.GetString("ai.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid ai timeout: %w", err)
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		JWTSecret:           v.GetString("jwt.secret"),
		RedisURL:            v.GetString("redis.url"),
		NATSURL:             v.GetString("nats.url"),
		WeaviateScheme:      v.GetString("weaviate.scheme"),
		WeaviateHost:        v.GetString("weaviate.host"),
		WeaviateClassName:   v.GetString("weaviate.class"),
		RetrievalTopK:       v.GetInt("retrieval.top_k"),
		RetrievalTimeout:    retrievalTimeout,
		RetrievalCacheTTL:   cacheTTL,
		AIProvider:          strings.ToLower(v.GetString("ai.provider")),
		OpenAIAPIKey:        v.GetString("openai_api_key"),
		AnthropicAPIKey:     v.GetString("anthropic_api_key"),
		GenerationModel:     v.GetString("ai.model"),
		GenerationMaxTokens: v.GetInt("ai.max_tokens"),
		RubricTemperature:   float32(v.GetFloat64("ai.rubric_temperature")),
		EvalTemperature:     float32(v.GetFloat64("ai.eval_temperature")),
		GenerationTimeout:   generationTimeout,
		ConsensusRuns:       v.GetInt("consensus.runs"),
		VarianceThreshold:   v.GetFloat64("consensus.variance_threshold"),
		EventSubjectBase:    v.GetString("events.subject_base"),
	}

	if cfg.RetrievalTopK <= 0 {
		cfg.RetrievalTopK = 3
	}

	if cfg.ConsensusRuns <= 0 {
		cfg.ConsensusRuns = 3
	}

	if cfg.VarianceThreshold <= 0 {
		cfg.VarianceThreshold = 2.0
	}

	return cfg, nil
}
