package models

import (
	"fmt"
	"math"
	"strings"
)

// ACUType classifies an atomic content unit.
type ACUType string

// Supported atomic content unit types.
const (
	ACUTypeDefinition     ACUType = "definition"
	ACUTypeConcept        ACUType = "concept"
	ACUTypeFormula        ACUType = "formula"
	ACUTypeUnit           ACUType = "unit"
	ACUTypeLogicalStep    ACUType = "logical_step"
	ACUTypeDiagramElement ACUType = "diagram_element"
)

// ValidACUTypes lists every accepted acu_type value.
var ValidACUTypes = []ACUType{
	ACUTypeDefinition,
	ACUTypeConcept,
	ACUTypeFormula,
	ACUTypeUnit,
	ACUTypeLogicalStep,
	ACUTypeDiagramElement,
}

// IsValid reports whether the type is one of the supported enum values.
func (t ACUType) IsValid() bool {
	for _, candidate := range ValidACUTypes {
		if t == candidate {
			return true
		}
	}
	return false
}

// RetrievedChunk is one reference passage returned by the semantic search
// collaborator. Immutable once created.
type RetrievedChunk struct {
	Content         string `json:"content"`
	SourceMetadata  string `json:"source_metadata"`
	RelevanceReason string `json:"relevance_reason"`
}

// AtomicContentUnit is the smallest independently gradeable fact, step or
// requirement extracted from an answer.
type AtomicContentUnit struct {
	ACUType        ACUType `json:"acu_type"`
	Content        string  `json:"content"`
	MaxWeight      float64 `json:"max_weight"`
	RawStudentText string  `json:"raw_student_text,omitempty"`
	Reasoning      string  `json:"reasoning,omitempty"`
}

// EvaluationLogic carries the grading policy metadata that applies at
// evaluation time, separate from the factual decomposition.
type EvaluationLogic struct {
	QuestionIntent      string   `json:"question_intent"`
	Assumptions         []string `json:"assumptions"`
	StrictPolicies      []string `json:"strict_policies"`
	FlexibilityStrategy string   `json:"flexibility_strategy"`
}

// Rubric is the structured grading map for one question: the scored
// decomposition of the reference answer, the student's claims, retrieved
// context, and evaluation policy. Generated once, immutable thereafter,
// and owned by the caller between the two grading phases.
type Rubric struct {
	SubClass                   string              `json:"sub_class"`
	Subject                    string              `json:"subject"`
	Chapter                    string              `json:"chapter"`
	TotalPossibleScore         float64             `json:"total_possible_score"`
	BaseRetrievedContext       []RetrievedChunk    `json:"base_retrieved_context"`
	StudentRetrievedContext    []RetrievedChunk    `json:"student_retrieved_context"`
	BaseAnswerDecomposition    []AtomicContentUnit `json:"base_answer_decomposition"`
	StudentAnswerDecomposition []AtomicContentUnit `json:"student_answer_decomposition"`
	LogicGuidelines            EvaluationLogic     `json:"logic_guidelines"`
	AlternativeValidPoints     []AtomicContentUnit `json:"alternative_valid_points"`
}

// weightTolerance absorbs floating point drift when comparing ACU weight
// sums against the rubric total.
const weightTolerance = 1e-6

// Validate checks that the rubric is structurally complete enough to grade
// against: a positive total and a non-empty reference decomposition with
// sane unit weights.
func (r Rubric) Validate() error {
	if r.TotalPossibleScore <= 0 {
		return fmt.Errorf("total_possible_score must be positive, got %v", r.TotalPossibleScore)
	}
	if len(r.BaseAnswerDecomposition) == 0 {
		return fmt.Errorf("base_answer_decomposition must not be empty")
	}
	for i, unit := range r.BaseAnswerDecomposition {
		if strings.TrimSpace(unit.Content) == "" {
			return fmt.Errorf("base_answer_decomposition[%d]: content must not be empty", i)
		}
		if unit.MaxWeight < 0 {
			return fmt.Errorf("base_answer_decomposition[%d]: max_weight must not be negative", i)
		}
		if !unit.ACUType.IsValid() {
			return fmt.Errorf("base_answer_decomposition[%d]: unknown acu_type %q", i, unit.ACUType)
		}
	}
	return nil
}

// ReferenceWeightSum returns the total max_weight across the reference
// decomposition.
func (r Rubric) ReferenceWeightSum() float64 {
	var sum float64
	for _, unit := range r.BaseAnswerDecomposition {
		sum += unit.MaxWeight
	}
	return sum
}

// WeightImbalance reports how far the reference decomposition weights are
// from partitioning the total possible score, and whether they do. The
// imbalance is a data-quality signal, not a validation failure: generated
// rubrics with skewed weights still grade, but are worth flagging.
func (r Rubric) WeightImbalance() (delta float64, balanced bool) {
	delta = r.ReferenceWeightSum() - r.TotalPossibleScore
	return delta, math.Abs(delta) <= weightTolerance
}
