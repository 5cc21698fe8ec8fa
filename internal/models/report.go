package models

// VerdictStatus is the outcome category for one judged claim.
type VerdictStatus string

// Verdict statuses emitted by the grading procedure.
const (
	VerdictFullMatch          VerdictStatus = "Full Match"
	VerdictPartialMatch       VerdictStatus = "Partial Match"
	VerdictAlternativeCorrect VerdictStatus = "Alternative Correct"
	VerdictIncorrect          VerdictStatus = "Incorrect"
)

// ValidVerdictStatuses lists every accepted verdict status.
var ValidVerdictStatuses = []VerdictStatus{
	VerdictFullMatch,
	VerdictPartialMatch,
	VerdictAlternativeCorrect,
	VerdictIncorrect,
}

// IsValid reports whether the status is one of the supported enum values.
func (s VerdictStatus) IsValid() bool {
	for _, candidate := range ValidVerdictStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// ClaimVerdict is the judgment for a single claim extracted from the
// student's answer, tied back to the rubric item it was matched against.
type ClaimVerdict struct {
	StudentClaim      string        `json:"student_claim"`
	RubricItemMatched string        `json:"rubric_item_matched"`
	Status            VerdictStatus `json:"status"`
	MarksAwarded      float64       `json:"marks_awarded"`
	Reasoning         string        `json:"reasoning"`
}

// GradingReport is the result of one independent consensus run. Created
// fresh per run by the grading collaborator and never mutated afterwards.
type GradingReport struct {
	StudentID           string              `json:"student_id"`
	ScoringLogicSummary string              `json:"scoring_logic_summary"`
	FinalScore          float64             `json:"final_score"`
	MaxPossible         float64             `json:"max_possible"`
	ConfidenceScore     float64             `json:"confidence_score"`
	Verdicts            []ClaimVerdict      `json:"verdicts"`
	PolicyDeductions    []map[string]string `json:"policy_deductions"`
	HITLFlag            bool                `json:"hitl_flag"`
	FeedbackForStudent  string              `json:"feedback_for_student"`
}

// ConsensusReport reconciles N independent grading runs into one
// authoritative result. Every individual run is retained verbatim for
// audit.
type ConsensusReport struct {
	ConsensusScore float64         `json:"consensus_score"`
	ScoreVariance  float64         `json:"score_variance"`
	HITLFlag       bool            `json:"hitl_flag"`
	IndividualRuns []GradingReport `json:"individual_runs"`
}
