package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/drona-ai/grading-api/internal/dto"
	"github.com/drona-ai/grading-api/internal/models"
	"github.com/drona-ai/grading-api/internal/retrieval"
	"github.com/drona-ai/grading-api/pkg/ai"
)

// RubricService runs the rubric pipeline: two context retrievals fanned
// out concurrently, then one structured-generation call that decomposes
// the reference answer into a gradeable rubric.
type RubricService interface {
	Generate(ctx context.Context, payload dto.RubricGenerateRequest) (dto.RubricResponse, error)
}

// RubricConfig tunes the rubric pipeline.
type RubricConfig struct {
	RetrievalTopK int
	Temperature   float32
}

type rubricService struct {
	retriever retrieval.ContextRetriever
	generator ai.Generator
	events    EventPublisher
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	cfg       RubricConfig
}

// NewRubricService constructs the rubric pipeline service.
func NewRubricService(retriever retrieval.ContextRetriever, generator ai.Generator, events EventPublisher, validate *validator.Validate, logger zerolog.Logger, cfg RubricConfig) RubricService {
	if cfg.RetrievalTopK <= 0 {
		cfg.RetrievalTopK = 3
	}

	return &rubricService{
		retriever: retriever,
		generator: generator,
		events:    events,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "rubric_service").Logger(),
		tracer:    otel.Tracer("github.com/drona-ai/grading-api/internal/service/rubric"),
		cfg:       cfg,
	}
}

func (s *rubricService) Generate(ctx context.Context, payload dto.RubricGenerateRequest) (dto.RubricResponse, error) {
	ctx, span := s.tracer.Start(ctx, "rubric.generate")
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.RubricResponse{}, err
	}

	question := strings.TrimSpace(s.sanitizer.Sanitize(payload.Question))
	referenceAnswer := strings.TrimSpace(s.sanitizer.Sanitize(payload.ReferenceAnswer))
	studentAnswer := strings.TrimSpace(s.sanitizer.Sanitize(payload.StudentAnswer))
	if question == "" || referenceAnswer == "" || studentAnswer == "" {
		span.SetStatus(codes.Error, "empty_input")
		return dto.RubricResponse{}, ErrEmptyInput
	}

	payload.ApplyDefaults()
	span.SetAttributes(
		attribute.String("rubric.subject", payload.Subject),
		attribute.Float64("rubric.total_score", payload.TotalScore),
	)

	// The two retrievals are independent; both must finish (or degrade
	// to empty) before generation proceeds.
	var baseContext, studentContext []models.RetrievedChunk
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		baseContext = s.retriever.Retrieve(ctx, question+" "+referenceAnswer, s.cfg.RetrievalTopK)
	}()
	go func() {
		defer wg.Done()
		studentContext = s.retriever.Retrieve(ctx, question+" "+studentAnswer, s.cfg.RetrievalTopK)
	}()
	wg.Wait()

	span.SetAttributes(
		attribute.Int("rubric.base_context_chunks", len(baseContext)),
		attribute.Int("rubric.student_context_chunks", len(studentContext)),
	)

	schema, err := ai.RubricSchema()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "schema_unavailable")
		return dto.RubricResponse{}, fmt.Errorf("%w: %v", ErrRubricGeneration, err)
	}

	raw, err := s.generator.Generate(ctx, ai.GenerationRequest{
		SystemPrompt: rubricSystemPrompt(),
		UserPrompt:   buildRubricPrompt(question, referenceAnswer, studentAnswer, payload.TotalScore, baseContext, studentContext),
		Schema:       schema,
		Temperature:  s.cfg.Temperature,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation_failed")
		return dto.RubricResponse{}, fmt.Errorf("%w: %v", ErrRubricGeneration, err)
	}

	var rubric models.Rubric
	if err := json.Unmarshal(raw, &rubric); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode_failed")
		return dto.RubricResponse{}, fmt.Errorf("%w: %v", ErrRubricGeneration, err)
	}

	// The service, not the model, is authoritative for metadata, the
	// score budget, and context provenance.
	rubric.SubClass = payload.ClassLevel
	rubric.Subject = payload.Subject
	rubric.Chapter = payload.ChapterName
	rubric.TotalPossibleScore = payload.TotalScore
	rubric.BaseRetrievedContext = baseContext
	rubric.StudentRetrievedContext = studentContext

	if err := rubric.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rubric_incomplete")
		return dto.RubricResponse{}, fmt.Errorf("%w: %v", ErrRubricGeneration, err)
	}

	if delta, balanced := rubric.WeightImbalance(); !balanced {
		s.logger.Warn().
			Float64("delta", delta).
			Float64("total_possible_score", rubric.TotalPossibleScore).
			Msg("reference decomposition weights do not partition the total score")
	}

	if s.events != nil {
		s.events.Publish(ctx, EventRubricGenerated, map[string]interface{}{
			"subject":              rubric.Subject,
			"chapter":              rubric.Chapter,
			"total_possible_score": rubric.TotalPossibleScore,
			"reference_units":      len(rubric.BaseAnswerDecomposition),
			"alternative_points":   len(rubric.AlternativeValidPoints),
		})
	}

	s.logger.Info().
		Int("reference_units", len(rubric.BaseAnswerDecomposition)).
		Int("student_claims", len(rubric.StudentAnswerDecomposition)).
		Msg("rubric generated")

	return dto.RubricResponse{Rubric: rubric}, nil
}
