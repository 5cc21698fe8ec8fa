package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/drona-ai/grading-api/internal/dto"
	"github.com/drona-ai/grading-api/internal/models"
	"github.com/drona-ai/grading-api/pkg/ai"
)

var (
	consensusVariance = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "drona",
		Subsystem: "grading",
		Name:      "consensus_variance",
		Help:      "Score spread (max-min) across consensus runs",
		Buckets:   []float64{0, 0.25, 0.5, 1.0, 1.5, 2.0, 3.0, 5.0},
	})

	hitlFlagged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "drona",
		Subsystem: "grading",
		Name:      "hitl_flagged_total",
		Help:      "Number of evaluations flagged for human review",
	})

	runFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "drona",
		Subsystem: "grading",
		Name:      "run_failures_total",
		Help:      "Number of individual consensus runs that failed",
	})
)

// EvaluationService runs the consensus grading procedure: N independent
// grading runs against a fixed rubric, reconciled into one authoritative
// report with a disagreement signal.
type EvaluationService interface {
	Evaluate(ctx context.Context, payload dto.EvaluateRequest) (dto.ConsensusResponse, error)
}

// ConsensusConfig tunes the consensus procedure.
type ConsensusConfig struct {
	Runs              int
	VarianceThreshold float64
	Temperature       float32
}

type consensusService struct {
	generator ai.Generator
	events    EventPublisher
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	cfg       ConsensusConfig
}

// NewEvaluationService constructs the consensus evaluation service.
func NewEvaluationService(generator ai.Generator, events EventPublisher, validate *validator.Validate, logger zerolog.Logger, cfg ConsensusConfig) EvaluationService {
	if cfg.Runs <= 0 {
		cfg.Runs = 3
	}
	if cfg.VarianceThreshold <= 0 {
		cfg.VarianceThreshold = 2.0
	}

	return &consensusService{
		generator: generator,
		events:    events,
		validator: validate,
		logger:    logger.With().Str("component", "consensus_service").Logger(),
		tracer:    otel.Tracer("github.com/drona-ai/grading-api/internal/service/consensus"),
		cfg:       cfg,
	}
}

func (s *consensusService) Evaluate(ctx context.Context, payload dto.EvaluateRequest) (dto.ConsensusResponse, error) {
	ctx, span := s.tracer.Start(ctx, "consensus.evaluate")
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.ConsensusResponse{}, err
	}

	runs := payload.Runs
	if runs <= 0 {
		runs = s.cfg.Runs
	}
	threshold := payload.VarianceThreshold
	if threshold <= 0 {
		threshold = s.cfg.VarianceThreshold
	}

	// Fail fast on a structurally incomplete rubric before any external call.
	if err := payload.Rubric.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid_rubric")
		return dto.ConsensusResponse{}, fmt.Errorf("%w: %v", ErrInvalidRubric, err)
	}

	span.SetAttributes(
		attribute.Int("consensus.runs", runs),
		attribute.Float64("consensus.variance_threshold", threshold),
		attribute.Float64("consensus.total_possible_score", payload.Rubric.TotalPossibleScore),
	)

	schema, err := ai.GradingReportSchema()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "schema_unavailable")
		return dto.ConsensusResponse{}, fmt.Errorf("%w: %v", ErrEvaluationRun, err)
	}

	request := ai.GenerationRequest{
		SystemPrompt: evaluationSystemPrompt(),
		UserPrompt:   buildEvaluationPrompt(payload.StudentAnswer, payload.Rubric),
		Schema:       schema,
		Temperature:  s.cfg.Temperature,
	}

	// The runs are independent and unordered: each goroutine writes only
	// its own slot, and no run observes another run's output.
	reports := make([]*models.GradingReport, runs)
	errs := make([]error, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			report, err := s.runGrading(ctx, request, payload.Rubric.TotalPossibleScore)
			if err != nil {
				errs[slot] = err
				return
			}
			reports[slot] = report
		}(i)
	}
	wg.Wait()

	valid := make([]models.GradingReport, 0, runs)
	for i := 0; i < runs; i++ {
		if errs[i] != nil {
			runFailures.Inc()
			s.logger.Warn().Err(errs[i]).Int("run", i).Msg("consensus run failed")
			span.RecordError(errs[i])
			continue
		}
		valid = append(valid, *reports[i])
	}

	// Quorum policy: failed runs are excluded, at least two valid
	// reports are required (one when a single run was requested); fewer
	// means no trustworthy consensus exists.
	if len(valid) < minQuorum(runs) {
		span.SetStatus(codes.Error, "quorum_not_met")
		return dto.ConsensusResponse{}, fmt.Errorf("%w: %d of %d runs produced valid reports", ErrConsensusFailure, len(valid), runs)
	}

	report := computeConsensus(valid, threshold)
	if len(valid) < runs {
		// A degraded quorum is reduced confidence: force human review
		// even when the surviving runs agree.
		report.HITLFlag = true
	}

	consensusVariance.Observe(report.ScoreVariance)
	if report.HITLFlag {
		hitlFlagged.Inc()
	}

	span.SetAttributes(
		attribute.Float64("consensus.score", report.ConsensusScore),
		attribute.Float64("consensus.score_variance", report.ScoreVariance),
		attribute.Bool("consensus.hitl_flag", report.HITLFlag),
		attribute.Int("consensus.valid_runs", len(valid)),
	)

	if s.events != nil {
		s.events.Publish(ctx, EventEvaluationCompleted, map[string]interface{}{
			"consensus_score": report.ConsensusScore,
			"score_variance":  report.ScoreVariance,
			"hitl_flag":       report.HITLFlag,
			"valid_runs":      len(valid),
			"requested_runs":  runs,
		})
	}

	s.logger.Info().
		Float64("consensus_score", report.ConsensusScore).
		Float64("score_variance", report.ScoreVariance).
		Bool("hitl_flag", report.HITLFlag).
		Int("valid_runs", len(valid)).
		Msg("consensus evaluation completed")

	return dto.ConsensusResponse{Report: report}, nil
}

// runGrading executes one independent grading run and normalizes the
// result: schema conformance is checked by the generator, enum and range
// checks happen here, and the final score is clamped to the rubric's
// score range.
func (s *consensusService) runGrading(ctx context.Context, request ai.GenerationRequest, totalPossible float64) (*models.GradingReport, error) {
	raw, err := s.generator.Generate(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEvaluationRun, err)
	}

	var report models.GradingReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("%w: decode report: %v", ErrEvaluationRun, err)
	}

	for i, verdict := range report.Verdicts {
		if !verdict.Status.IsValid() {
			return nil, fmt.Errorf("%w: verdict %d has unknown status %q", ErrEvaluationRun, i, verdict.Status)
		}
	}

	if report.StudentID == "" {
		report.StudentID = "student_01"
	}
	report.MaxPossible = totalPossible
	report.FinalScore = clamp(report.FinalScore, 0, totalPossible)

	return &report, nil
}

func minQuorum(runs int) int {
	if runs <= 1 {
		return 1
	}
	return 2
}

// computeConsensus reconciles a fixed set of grading reports into the
// aggregate result. Deterministic given the reports: repeated calls with
// the same input yield identical output.
func computeConsensus(reports []models.GradingReport, threshold float64) models.ConsensusReport {
	min := reports[0].FinalScore
	max := reports[0].FinalScore
	var sum float64
	for _, report := range reports {
		sum += report.FinalScore
		if report.FinalScore < min {
			min = report.FinalScore
		}
		if report.FinalScore > max {
			max = report.FinalScore
		}
	}

	variance := max - min

	return models.ConsensusReport{
		ConsensusScore: round2(sum / float64(len(reports))),
		ScoreVariance:  round2(variance),
		HITLFlag:       variance > threshold,
		IndividualRuns: reports,
	}
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func clamp(value, low, high float64) float64 {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
