package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/drona-ai/grading-api/internal/dto"
	"github.com/drona-ai/grading-api/internal/handler"
	"github.com/drona-ai/grading-api/internal/models"
	"github.com/drona-ai/grading-api/internal/service"
	"github.com/drona-ai/grading-api/internal/utils"
)

type stubRubricService struct {
	response dto.RubricResponse
	err      error
}

func (s *stubRubricService) Generate(context.Context, dto.RubricGenerateRequest) (dto.RubricResponse, error) {
	return s.response, s.err
}

type stubEvaluationService struct {
	response dto.ConsensusResponse
	err      error
}

func (s *stubEvaluationService) Evaluate(context.Context, dto.EvaluateRequest) (dto.ConsensusResponse, error) {
	return s.response, s.err
}

func newTestApp(rubrics service.RubricService, evaluations service.EvaluationService) *fiber.App {
	app := fiber.New()
	h := handler.NewGradingHandler(rubrics, evaluations, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())
	h.Register(app.Group("/api/v1/grading"))
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) (*http.Response, utils.APIResponse) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var envelope utils.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp, envelope
}

func TestGenerateRubricSuccess(t *testing.T) {
	rubrics := &stubRubricService{response: dto.RubricResponse{Rubric: models.Rubric{
		Subject:            "Science",
		TotalPossibleScore: 3.0,
	}}}
	app := newTestApp(rubrics, &stubEvaluationService{})

	resp, envelope := postJSON(t, app, "/api/v1/grading/rubric", dto.RubricGenerateRequest{
		Question:        "Why does evaporation cause cooling?",
		ReferenceAnswer: "Evaporation absorbs latent heat.",
		StudentAnswer:   "It takes heat away.",
		TotalScore:      3.0,
	})

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, envelope.Success)
	require.Equal(t, "rubric generated", envelope.Message)
	require.NotNil(t, envelope.Data)
}

func TestGenerateRubricRejectsMalformedBody(t *testing.T) {
	app := newTestApp(&stubRubricService{}, &stubEvaluationService{})

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/grading/rubric", bytes.NewReader([]byte("{not json")))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestEvaluateSuccess(t *testing.T) {
	evaluations := &stubEvaluationService{response: dto.ConsensusResponse{Report: models.ConsensusReport{
		ConsensusScore: 2.17,
		ScoreVariance:  0.5,
	}}}
	app := newTestApp(&stubRubricService{}, evaluations)

	resp, envelope := postJSON(t, app, "/api/v1/grading/evaluate", map[string]interface{}{
		"student_answer": "It takes heat away.",
		"rubric":         map[string]interface{}{"total_possible_score": 3.0},
	})

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, envelope.Success)
	require.Equal(t, "evaluation completed", envelope.Message)
}

func TestHandlerErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"empty input", service.ErrEmptyInput, fiber.StatusBadRequest},
		{"invalid rubric", fmt.Errorf("%w: no decomposition", service.ErrInvalidRubric), fiber.StatusUnprocessableEntity},
		{"generation failure", fmt.Errorf("%w: upstream timeout", service.ErrRubricGeneration), fiber.StatusBadGateway},
		{"consensus failure", fmt.Errorf("%w: 1 of 3 runs", service.ErrConsensusFailure), fiber.StatusBadGateway},
		{"unexpected", fmt.Errorf("boom"), fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(&stubRubricService{err: tc.err}, &stubEvaluationService{err: tc.err})

			resp, envelope := postJSON(t, app, "/api/v1/grading/rubric", dto.RubricGenerateRequest{
				Question:        "Why does evaporation cause cooling?",
				ReferenceAnswer: "Evaporation absorbs latent heat.",
				StudentAnswer:   "It takes heat away.",
				TotalScore:      3.0,
			})
			require.Equal(t, tc.wantStatus, resp.StatusCode)
			require.False(t, envelope.Success)
		})
	}
}
