package dto

import (
	"github.com/drona-ai/grading-api/internal/models"
)

// RubricGenerateRequest is the payload for phase one: building a grading
// rubric from a question, its reference answer, and the student's answer.
type RubricGenerateRequest struct {
	Question        string  `json:"question" validate:"required,min=3"`
	ReferenceAnswer string  `json:"reference_answer" validate:"required,min=3"`
	StudentAnswer   string  `json:"student_answer" validate:"required,min=1"`
	TotalScore      float64 `json:"total_score" validate:"required,gt=0"`
	ClassLevel      string  `json:"class_level" validate:"omitempty,max=32"`
	Subject         string  `json:"subject" validate:"omitempty,max=64"`
	ChapterName     string  `json:"chapter" validate:"omitempty,max=128"`
}

// ApplyDefaults fills the metadata fields the caller left blank.
func (r *RubricGenerateRequest) ApplyDefaults() {
	if r.ClassLevel == "" {
		r.ClassLevel = "10"
	}
	if r.Subject == "" {
		r.Subject = "Science"
	}
	if r.ChapterName == "" {
		r.ChapterName = "General"
	}
}

// RubricResponse wraps the generated rubric for API clients. The rubric is
// returned whole; the caller must store it and supply it back unchanged
// when requesting an evaluation.
type RubricResponse struct {
	Rubric models.Rubric `json:"rubric"`
}

// EvaluateRequest is the payload for phase two: grading a student answer
// against a previously generated rubric. Runs and VarianceThreshold are
// optional overrides; zero values fall back to server configuration.
type EvaluateRequest struct {
	StudentAnswer     string        `json:"student_answer" validate:"required,min=1"`
	Rubric            models.Rubric `json:"rubric" validate:"required"`
	Runs              int           `json:"runs" validate:"omitempty,gte=1,lte=9"`
	VarianceThreshold float64       `json:"variance_threshold" validate:"omitempty,gt=0"`
}

// ConsensusResponse carries the reconciled grading result.
type ConsensusResponse struct {
	Report models.ConsensusReport `json:"report"`
}
