package ai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

const validRubricDocument = `{
  "sub_class": "10",
  "subject": "Science",
  "chapter": "Laws of Motion",
  "total_possible_score": 3.0,
  "base_retrieved_context": [
    {"content": "Force changes the state of motion.", "source_metadata": "Textbook", "relevance_reason": "Similarity: 0.9312"}
  ],
  "student_retrieved_context": [],
  "base_answer_decomposition": [
    {"acu_type": "concept", "content": "force changes the state of motion", "max_weight": 2.0},
    {"acu_type": "logical_step", "content": "give one everyday example", "max_weight": 1.0}
  ],
  "student_answer_decomposition": [
    {"acu_type": "concept", "content": "force changes motion", "max_weight": 2.0, "raw_student_text": "force changes motion"}
  ],
  "logic_guidelines": {
    "question_intent": "understanding of force",
    "assumptions": ["push and pull count as force"],
    "strict_policies": ["deduct 0.5 for missing units"],
    "flexibility_strategy": "credit textbook-backed alternatives"
  },
  "alternative_valid_points": []
}`

const validReportDocument = `{
  "student_id": "student_01",
  "scoring_logic_summary": "matched one concept out of two units",
  "final_score": 2.0,
  "max_possible": 3.0,
  "confidence_score": 0.85,
  "verdicts": [
    {
      "student_claim": "force changes motion",
      "rubric_item_matched": "force changes the state of motion",
      "status": "Full Match",
      "marks_awarded": 2.0,
      "reasoning": "the claim restates the rubric item"
    }
  ],
  "policy_deductions": [],
  "hitl_flag": false,
  "feedback_for_student": "add an everyday example"
}`

func TestRubricSchemaAcceptsValidDocument(t *testing.T) {
	schema, err := RubricSchema()
	require.NoError(t, err)
	require.NoError(t, ValidateAgainst(schema, json.RawMessage(validRubricDocument)))
}

func TestRubricSchemaRejectsBadDocuments(t *testing.T) {
	schema, err := RubricSchema()
	require.NoError(t, err)

	cases := map[string]string{
		"missing decomposition": `{"sub_class":"10","subject":"Science","chapter":"c","total_possible_score":3,"student_answer_decomposition":[],"logic_guidelines":{"question_intent":"q","assumptions":[],"strict_policies":[],"flexibility_strategy":"f"}}`,
		"zero total":            `{"sub_class":"10","subject":"Science","chapter":"c","total_possible_score":0,"base_answer_decomposition":[{"acu_type":"concept","content":"x","max_weight":1}],"student_answer_decomposition":[],"logic_guidelines":{"question_intent":"q","assumptions":[],"strict_policies":[],"flexibility_strategy":"f"}}`,
		"unknown acu_type":      `{"sub_class":"10","subject":"Science","chapter":"c","total_possible_score":3,"base_answer_decomposition":[{"acu_type":"opinion","content":"x","max_weight":1}],"student_answer_decomposition":[],"logic_guidelines":{"question_intent":"q","assumptions":[],"strict_policies":[],"flexibility_strategy":"f"}}`,
	}

	for name, document := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, ValidateAgainst(schema, json.RawMessage(document)))
		})
	}
}

func TestGradingReportSchemaAcceptsValidDocument(t *testing.T) {
	schema, err := GradingReportSchema()
	require.NoError(t, err)
	require.NoError(t, ValidateAgainst(schema, json.RawMessage(validReportDocument)))
}

func TestGradingReportSchemaRejectsUnknownStatus(t *testing.T) {
	schema, err := GradingReportSchema()
	require.NoError(t, err)

	document := `{"scoring_logic_summary":"s","final_score":1,"max_possible":3,"confidence_score":0.5,` +
		`"verdicts":[{"student_claim":"c","rubric_item_matched":"r","status":"Maybe","marks_awarded":1,"reasoning":"q"}],` +
		`"feedback_for_student":"f"}`
	require.Error(t, ValidateAgainst(schema, json.RawMessage(document)))
}

func TestValidateAgainstRejectsMalformedJSON(t *testing.T) {
	schema, err := RubricSchema()
	require.NoError(t, err)
	require.Error(t, ValidateAgainst(schema, json.RawMessage("{not json")))
}

func TestExtractJSONStripsCodeFences(t *testing.T) {
	cases := map[string]string{
		"plain":          `{"a":1}`,
		"fenced":         "```json\n{\"a\":1}\n```",
		"fence no lang":  "```\n{\"a\":1}\n```",
		"padded":         "  {\"a\":1}  ",
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			require.JSONEq(t, `{"a":1}`, string(ExtractJSON(input)))
		})
	}
}
