package service

import "errors"

// ErrEmptyInput indicates a text field was empty once sanitized.
var ErrEmptyInput = errors.New("input text empty after sanitization")

// ErrRubricGeneration indicates the generation collaborator failed or
// returned a non-conforming rubric. No partial rubric is ever returned.
var ErrRubricGeneration = errors.New("rubric generation failed")

// ErrInvalidRubric indicates the caller supplied a structurally
// incomplete rubric to evaluation. Surfaced before any external call.
var ErrInvalidRubric = errors.New("invalid rubric")

// ErrEvaluationRun marks the failure of one individual consensus run.
var ErrEvaluationRun = errors.New("evaluation run failed")

// ErrConsensusFailure indicates too few consensus runs produced valid
// reports to compute a trustworthy result. Distinct from a successful
// low-confidence evaluation, which is reported with hitl_flag set.
var ErrConsensusFailure = errors.New("consensus quorum not met")
