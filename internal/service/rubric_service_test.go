package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/drona-ai/grading-api/internal/dto"
	"github.com/drona-ai/grading-api/internal/models"
)

// stubRetriever returns a fixed chunk set and records the queries it saw.
type stubRetriever struct {
	mu      sync.Mutex
	chunks  []models.RetrievedChunk
	queries []string
}

func (s *stubRetriever) Retrieve(_ context.Context, query string, _ int) []models.RetrievedChunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	return s.chunks
}

func rubricJSON(t *testing.T) string {
	t.Helper()
	rubric := models.Rubric{
		SubClass:           "model-invented-class",
		Subject:            "model-invented-subject",
		Chapter:            "model-invented-chapter",
		TotalPossibleScore: 99,
		BaseAnswerDecomposition: []models.AtomicContentUnit{
			{ACUType: models.ACUTypeConcept, Content: "evaporation absorbs heat", MaxWeight: 2.0},
			{ACUType: models.ACUTypeLogicalStep, Content: "sweat cooling the body", MaxWeight: 1.0},
		},
		StudentAnswerDecomposition: []models.AtomicContentUnit{
			{ACUType: models.ACUTypeConcept, Content: "evaporation takes heat away", MaxWeight: 2.0},
		},
		LogicGuidelines: models.EvaluationLogic{
			QuestionIntent:      "explain evaporative cooling",
			Assumptions:         []string{"latent heat and absorbed heat are interchangeable"},
			StrictPolicies:      []string{"no credit without mentioning heat transfer"},
			FlexibilityStrategy: "accept everyday examples backed by the textbook",
		},
	}
	data, err := json.Marshal(rubric)
	require.NoError(t, err)
	return string(data)
}

func rubricRequest() dto.RubricGenerateRequest {
	return dto.RubricGenerateRequest{
		Question:        "Why does evaporation cause cooling?",
		ReferenceAnswer: "Evaporation absorbs latent heat from the surroundings, for example sweat cooling the body.",
		StudentAnswer:   "Evaporation takes heat away from the surface.",
		TotalScore:      3.0,
		ClassLevel:      "9",
		Subject:         "Science",
		ChapterName:     "Matter in Our Surroundings",
	}
}

func newRubricService(t *testing.T, retriever *stubRetriever, generator *stubGenerator) RubricService {
	t.Helper()
	validate := validator.New(validator.WithRequiredStructEnabled())
	return NewRubricService(retriever, generator, nil, validate, zerolog.Nop(), RubricConfig{RetrievalTopK: 3})
}

func TestGenerateRubricOverridesModelMetadata(t *testing.T) {
	retriever := &stubRetriever{chunks: []models.RetrievedChunk{
		{Content: "Evaporation is a surface phenomenon.", SourceMetadata: "Textbook", RelevanceReason: "Similarity: 0.9123"},
	}}
	generator := &stubGenerator{responses: []string{rubricJSON(t)}}
	svc := newRubricService(t, retriever, generator)

	resp, err := svc.Generate(context.Background(), rubricRequest())
	require.NoError(t, err)

	rubric := resp.Rubric
	require.Equal(t, "9", rubric.SubClass)
	require.Equal(t, "Science", rubric.Subject)
	require.Equal(t, "Matter in Our Surroundings", rubric.Chapter)
	require.InDelta(t, 3.0, rubric.TotalPossibleScore, 1e-9)
	require.Len(t, rubric.BaseRetrievedContext, 1)
	require.Len(t, rubric.StudentRetrievedContext, 1)
	require.Len(t, rubric.BaseAnswerDecomposition, 2)
	require.Len(t, retriever.queries, 2, "one retrieval per perspective")
}

func TestGenerateRubricAppliesMetadataDefaults(t *testing.T) {
	retriever := &stubRetriever{}
	generator := &stubGenerator{responses: []string{rubricJSON(t)}}
	svc := newRubricService(t, retriever, generator)

	payload := rubricRequest()
	payload.ClassLevel = ""
	payload.Subject = ""
	payload.ChapterName = ""

	resp, err := svc.Generate(context.Background(), payload)
	require.NoError(t, err)

	require.Equal(t, "10", resp.Rubric.SubClass)
	require.Equal(t, "Science", resp.Rubric.Subject)
	require.Equal(t, "General", resp.Rubric.Chapter)
}

func TestGenerateRubricSurvivesEmptyRetrieval(t *testing.T) {
	retriever := &stubRetriever{}
	generator := &stubGenerator{responses: []string{rubricJSON(t)}}
	svc := newRubricService(t, retriever, generator)

	resp, err := svc.Generate(context.Background(), rubricRequest())
	require.NoError(t, err)

	require.Empty(t, resp.Rubric.BaseRetrievedContext)
	require.Empty(t, resp.Rubric.StudentRetrievedContext)
	require.NotEmpty(t, resp.Rubric.BaseAnswerDecomposition)
}

func TestGenerateRubricWrapsGeneratorFailure(t *testing.T) {
	retriever := &stubRetriever{}
	generator := &stubGenerator{responses: []string{""}}
	svc := newRubricService(t, retriever, generator)

	_, err := svc.Generate(context.Background(), rubricRequest())
	require.ErrorIs(t, err, ErrRubricGeneration)
}

func TestGenerateRubricRejectsMarkupOnlyInput(t *testing.T) {
	retriever := &stubRetriever{}
	generator := &stubGenerator{responses: []string{rubricJSON(t)}}
	svc := newRubricService(t, retriever, generator)

	payload := rubricRequest()
	payload.StudentAnswer = "<script>alert(1)</script>"

	_, err := svc.Generate(context.Background(), payload)
	require.ErrorIs(t, err, ErrEmptyInput)
	require.Zero(t, generator.callCount())
}

func TestGenerateRubricValidatesPayload(t *testing.T) {
	retriever := &stubRetriever{}
	generator := &stubGenerator{}
	svc := newRubricService(t, retriever, generator)

	payload := rubricRequest()
	payload.TotalScore = 0

	_, err := svc.Generate(context.Background(), payload)
	require.Error(t, err)

	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
}

func TestGenerateRubricRejectsEmptyDecomposition(t *testing.T) {
	empty := models.Rubric{
		TotalPossibleScore: 3.0,
		LogicGuidelines: models.EvaluationLogic{
			QuestionIntent: "explain evaporative cooling",
		},
	}
	data, err := json.Marshal(empty)
	require.NoError(t, err)

	retriever := &stubRetriever{}
	generator := &stubGenerator{responses: []string{string(data)}}
	svc := newRubricService(t, retriever, generator)

	_, err = svc.Generate(context.Background(), rubricRequest())
	require.ErrorIs(t, err, ErrRubricGeneration)
}
