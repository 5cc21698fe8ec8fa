package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func baseRubric() Rubric {
	return Rubric{
		SubClass:           "10",
		Subject:            "Science",
		Chapter:            "Laws of Motion",
		TotalPossibleScore: 3.0,
		BaseAnswerDecomposition: []AtomicContentUnit{
			{ACUType: ACUTypeConcept, Content: "force changes the state of motion", MaxWeight: 2.0},
			{ACUType: ACUTypeLogicalStep, Content: "kicking a ball sets it in motion", MaxWeight: 1.0},
		},
		LogicGuidelines: EvaluationLogic{
			QuestionIntent: "understanding of force",
		},
	}
}

func TestRubricValidate(t *testing.T) {
	require.NoError(t, baseRubric().Validate())
}

func TestRubricValidateRejectsNonPositiveTotal(t *testing.T) {
	rubric := baseRubric()
	rubric.TotalPossibleScore = 0
	require.Error(t, rubric.Validate())

	rubric.TotalPossibleScore = -1
	require.Error(t, rubric.Validate())
}

func TestRubricValidateRejectsEmptyDecomposition(t *testing.T) {
	rubric := baseRubric()
	rubric.BaseAnswerDecomposition = nil
	require.Error(t, rubric.Validate())
}

func TestRubricValidateRejectsBlankUnitContent(t *testing.T) {
	rubric := baseRubric()
	rubric.BaseAnswerDecomposition[0].Content = "   "
	require.Error(t, rubric.Validate())
}

func TestRubricValidateRejectsNegativeWeight(t *testing.T) {
	rubric := baseRubric()
	rubric.BaseAnswerDecomposition[1].MaxWeight = -0.5
	require.Error(t, rubric.Validate())
}

func TestRubricValidateRejectsUnknownACUType(t *testing.T) {
	rubric := baseRubric()
	rubric.BaseAnswerDecomposition[0].ACUType = "opinion"
	require.Error(t, rubric.Validate())
}

func TestWeightImbalance(t *testing.T) {
	rubric := baseRubric()
	delta, balanced := rubric.WeightImbalance()
	require.True(t, balanced)
	require.InDelta(t, 0.0, delta, 1e-9)

	rubric.BaseAnswerDecomposition[0].MaxWeight = 2.5
	delta, balanced = rubric.WeightImbalance()
	require.False(t, balanced)
	require.InDelta(t, 0.5, delta, 1e-9)
}

func TestACUTypeIsValid(t *testing.T) {
	for _, valid := range ValidACUTypes {
		require.True(t, valid.IsValid())
	}
	require.False(t, ACUType("opinion").IsValid())
	require.False(t, ACUType("").IsValid())
}
