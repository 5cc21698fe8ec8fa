package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "drona",
		Subsystem: "ai",
		Name:      "generation_duration_seconds",
		Help:      "Duration of structured generation requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "drona",
		Subsystem: "ai",
		Name:      "generation_failures_total",
		Help:      "Number of structured generation failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI generator.
type OpenAIConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	Logger    zerolog.Logger
}

// OpenAIGenerator implements Generator against the OpenAI chat completion API.
type OpenAIGenerator struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIGenerator builds a new generator using the provided configuration.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}

	tracer := otel.Tracer("github.com/drona-ai/grading-api/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAIGenerator{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// Generate sends the structured prompt to OpenAI, extracts the JSON body
// of the reply, and validates it against the request schema before
// returning it.
func (g *OpenAIGenerator) Generate(parent context.Context, req GenerationRequest) (json.RawMessage, error) {
	ctx, span := g.tracer.Start(parent, "openai.generate", trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
	))
	defer span.End()

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	request := openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: req.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: req.SystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.UserPrompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, request)
	duration := time.Since(start)
	aiDuration.WithLabelValues(g.cfg.Model).Observe(duration.Seconds())
	if err != nil {
		aiFailures.WithLabelValues(g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("openai generate: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		aiFailures.WithLabelValues(g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	raw := ExtractJSON(resp.Choices[0].Message.Content)
	if err := ValidateAgainst(req.Schema, raw); err != nil {
		aiFailures.WithLabelValues(g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	g.logger.Debug().
		Str("model", g.cfg.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Dur("duration", duration).
		Msg("structured generation completed")

	return raw, nil
}

// ExtractJSON strips markdown code fences some models wrap around JSON
// replies and trims surrounding whitespace.
func ExtractJSON(content string) json.RawMessage {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	return json.RawMessage(trimmed)
}
