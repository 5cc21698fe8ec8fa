package ai

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/rubric.schema.json
var rubricSchemaJSON string

//go:embed schemas/grading_report.schema.json
var gradingReportSchemaJSON string

var (
	schemaOnce          sync.Once
	rubricSchema        *jsonschema.Schema
	gradingReportSchema *jsonschema.Schema
	schemaErr           error
)

func compileSchemas() {
	schemaOnce.Do(func() {
		rubricSchema, schemaErr = compileSchema("rubric.schema.json", rubricSchemaJSON)
		if schemaErr != nil {
			return
		}
		gradingReportSchema, schemaErr = compileSchema("grading_report.schema.json", gradingReportSchemaJSON)
	})
}

func compileSchema(name, document string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(document)); err != nil {
		return nil, fmt.Errorf("add schema resource %s: %w", name, err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return schema, nil
}

// RubricSchema returns the compiled JSON Schema a generated rubric must
// satisfy.
func RubricSchema() (*jsonschema.Schema, error) {
	compileSchemas()
	if schemaErr != nil {
		return nil, schemaErr
	}
	return rubricSchema, nil
}

// GradingReportSchema returns the compiled JSON Schema a grading run
// report must satisfy.
func GradingReportSchema() (*jsonschema.Schema, error) {
	compileSchemas()
	if schemaErr != nil {
		return nil, schemaErr
	}
	return gradingReportSchema, nil
}

// ValidateAgainst checks a raw JSON document against the given schema.
// Model output is never trusted until it passes this check.
func ValidateAgainst(schema *jsonschema.Schema, raw json.RawMessage) error {
	if schema == nil {
		return fmt.Errorf("schema must not be nil")
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("decode generated json: %w", err)
	}

	if err := schema.Validate(decoded); err != nil {
		return fmt.Errorf("generated output violates schema: %w", err)
	}

	return nil
}
