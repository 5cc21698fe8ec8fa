package service

import (
	"fmt"
	"strings"

	"github.com/drona-ai/grading-api/internal/models"
)

func rubricSystemPrompt() string {
	return "You are an expert Lead Teacher creating a precise grading rubric. " +
		"Respond with a single JSON object conforming exactly to the rubric schema you were given. " +
		"Use the textbook context as the ultimate scientific truth when verifying claims."
}

// buildRubricPrompt assembles the structured instruction for rubric
// generation. The five numbered instructions mirror the grading design:
// weight-partitioned decomposition, student claim analysis, the
// flexibility check feeding alternative_valid_points, intent/policy
// separation, and claim-to-rubric mapping rationale.
func buildRubricPrompt(question, referenceAnswer, studentAnswer string, totalScore float64, baseContext, studentContext []models.RetrievedChunk) string {
	builder := strings.Builder{}
	builder.WriteString("TASK:\n")
	builder.WriteString("Analyze the provided question, perfect answer, and student response. Use the ")
	builder.WriteString("Textbook Context as the ultimate scientific truth to verify all claims.\n")

	builder.WriteString("\nINPUT DATA:\n")
	builder.WriteString("- Question: ")
	builder.WriteString(question)
	builder.WriteString("\n- Perfect Answer: ")
	builder.WriteString(referenceAnswer)
	builder.WriteString("\n- Student's Written Answer: ")
	builder.WriteString(studentAnswer)
	builder.WriteString("\n- Textbook Context (Standard):\n")
	writeChunks(&builder, baseContext)
	builder.WriteString("- Textbook Context (Student-specific):\n")
	writeChunks(&builder, studentContext)

	builder.WriteString("\nINSTRUCTIONS:\n")
	fmt.Fprintf(&builder, "1. THE BREAKDOWN: Break the 'Perfect Answer' into the smallest individual facts or steps. "+
		"Assign a portion of the total %.2f marks to each unit; the max_weight values must sum to exactly %.2f.\n", totalScore, totalScore)
	builder.WriteString("2. STUDENT ANALYSIS: Identify and list every individual claim the student made in their written answer.\n")
	builder.WriteString("3. FLEXIBILITY CHECK: Look at the 'Student-specific Textbook Context'. If the student mentioned a " +
		"fact that is correct according to the textbook but NOT in the perfect answer, list it as an alternative_valid_point.\n")
	builder.WriteString("4. INTENT & POLICY: Identify the core concept the student must prove they understand (question_intent). " +
		"Set 'assumptions' (acceptable variations such as synonyms or rounding). " +
		"Set 'strict_policies' (deduction rules such as marks lost for missing units). " +
		"Policies apply at evaluation time, not now.\n")
	builder.WriteString("5. MAPPING: For each of the student's claims, explain in the 'reasoning' field how well it matches " +
		"the perfect answer or the textbook notes.\n")
	builder.WriteString("\nReturn JSON only.")

	return builder.String()
}

func evaluationSystemPrompt() string {
	return "You are a Lead Academic Examiner known for extreme precision. " +
		"Respond with a single JSON object conforming exactly to the grading report schema you were given. " +
		"You must justify every fraction of a mark awarded or deducted by quoting the student's text."
}

// buildEvaluationPrompt assembles the grading instruction used for every
// consensus run. The instruction is identical across runs; only the
// model's sampling differs.
func buildEvaluationPrompt(studentAnswer string, rubric models.Rubric) string {
	builder := strings.Builder{}
	builder.WriteString("TASK: Grade the STUDENT ANSWER strictly against the provided MASTER RUBRIC.\n")

	builder.WriteString("\n--- 1. THE DATA ---\n")
	builder.WriteString("STUDENT ANSWER: \"")
	builder.WriteString(studentAnswer)
	builder.WriteString("\"\n\nMASTER RUBRIC:\n")
	builder.WriteString("A. ESSENTIAL FACTS (max marks per item shown):\n")
	writeUnits(&builder, rubric.BaseAnswerDecomposition)
	builder.WriteString("B. ALTERNATIVE ALLOWED FACTS (credit these only if the matching essential fact is missing):\n")
	writeUnits(&builder, rubric.AlternativeValidPoints)
	builder.WriteString("C. GRADING ASSUMPTIONS (acceptable variations):\n")
	writeLines(&builder, rubric.LogicGuidelines.Assumptions)
	builder.WriteString("D. NEGATIVE MARKING POLICIES (strict deductions):\n")
	writeLines(&builder, rubric.LogicGuidelines.StrictPolicies)
	fmt.Fprintf(&builder, "E. TOTAL MAX SCORE: %.2f\n", rubric.TotalPossibleScore)

	builder.WriteString("\n--- 2. THE STRICT GRADING PROCEDURE ---\n")
	builder.WriteString("STEP 1: CLAIM EXTRACTION & MATCHING\n")
	builder.WriteString("- Identify every distinct claim in the Student Answer.\n")
	builder.WriteString("- Compare each claim against the ESSENTIAL FACTS.\n")
	builder.WriteString("  - IF MATCH (exact or semantic): award full marks. Status = \"Full Match\". Quote the rubric item matched.\n")
	builder.WriteString("  - IF NO MATCH: check the ALTERNATIVE ALLOWED FACTS.\n")
	builder.WriteString("    - IF MATCH: award full marks. Status = \"Alternative Correct\".\n")
	builder.WriteString("STEP 2: PARTIAL CREDIT CHECK\n")
	builder.WriteString("- If a claim matched nothing but is vaguely correct, check the GRADING ASSUMPTIONS.\n")
	builder.WriteString("- If an assumption makes the claim acceptably close, Status = \"Partial Match\" and award 50% of the item's marks.\n")
	builder.WriteString("- Otherwise award 0 marks. Status = \"Incorrect\".\n")
	builder.WriteString("STEP 3: POLICY AUDIT (DEDUCTIONS)\n")
	builder.WriteString("- Scan the ENTIRE answer against every NEGATIVE MARKING POLICY, independent of claim matching.\n")
	builder.WriteString("- If a rule is violated, apply the deduction and record the exact policy text and the amount deducted.\n")
	builder.WriteString("STEP 4: FINAL CALCULATION\n")
	fmt.Fprintf(&builder, "- final_score = (sum of marks from claims) - (total deductions), capped to the range [0, %.2f].\n", rubric.TotalPossibleScore)
	builder.WriteString("STEP 5: GENERATE REPORT\n")
	builder.WriteString("- scoring_logic_summary: a plain-text narration of the arithmetic (e.g. \"Earned 2.0 from facts, 1.0 from an alternative point, lost 0.5 for missing units.\").\n")
	builder.WriteString("- verdicts: the judgment for every claim, each justified by quoting the student's text.\n")
	builder.WriteString("- feedback_for_student: constructive feedback based on what was missing.\n")
	builder.WriteString("\nReturn JSON only.")

	return builder.String()
}

func writeChunks(builder *strings.Builder, chunks []models.RetrievedChunk) {
	if len(chunks) == 0 {
		builder.WriteString("  (no textbook grounding available for this query)\n")
		return
	}
	for _, chunk := range chunks {
		builder.WriteString("  - ")
		builder.WriteString(chunk.Content)
		builder.WriteString("\n")
	}
}

func writeUnits(builder *strings.Builder, units []models.AtomicContentUnit) {
	if len(units) == 0 {
		builder.WriteString("  (none)\n")
		return
	}
	for _, unit := range units {
		fmt.Fprintf(builder, "  - [%s, max %.2f] %s\n", unit.ACUType, unit.MaxWeight, unit.Content)
	}
}

func writeLines(builder *strings.Builder, lines []string) {
	if len(lines) == 0 {
		builder.WriteString("  (none)\n")
		return
	}
	for _, line := range lines {
		builder.WriteString("  - ")
		builder.WriteString(line)
		builder.WriteString("\n")
	}
}
