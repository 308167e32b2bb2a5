// Package schema compiles and evaluates JSON Schema documents. Agent
// action parameters arrive as raw schema maps from the agent spec
// endpoint; the task worker validates tool arguments against them before
// dispatching any call.
package schema

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonschema"
)

// Schema is a raw JSON Schema document.
type Schema map[string]any

// Compile parses the document. A nil schema compiles to nil, which
// Validate treats as accept-everything.
func (s *Schema) Compile() (*jsonschema.Schema, error) {
	if s == nil {
		return nil, nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	compiled, err := compiler.Compile(raw)
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	return compiled, nil
}

// Validate evaluates value against the schema.
func (s *Schema) Validate(_ context.Context, value any) error {
	compiled, err := s.Compile()
	if err != nil {
		return err
	}
	if compiled == nil {
		return nil
	}
	result := compiled.Validate(value)
	if result.Valid {
		return nil
	}
	return fmt.Errorf("schema validation failed: %v", result.Errors)
}
