package ai

import (
	"context"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// GenerationRequest describes one structured-generation call: the prompt,
// the schema the answer must conform to, and the sampling temperature.
// The same request issued twice may yield different conforming results.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	Schema       *jsonschema.Schema
	Temperature  float32
}

// Generator describes a text-generation model that returns structured JSON
// conforming to a target schema. Implementations must validate the model
// output against the request schema before returning it.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (json.RawMessage, error)
}
