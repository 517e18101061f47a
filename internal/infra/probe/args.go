package probe

import (
	"context"
	"encoding/json"

	"mcpdrift/internal/domain"
)

// SchemaArgumentSource derives placeholder arguments from a tool's declared
// input schema: one entry per top-level property, valued by type. It is the
// fallback when no richer generator is injected; ledger substitution then
// replaces placeholders that reference earlier outputs.
type SchemaArgumentSource struct{}

// NewSchemaArgumentSource creates the schema-driven argument source.
func NewSchemaArgumentSource() *SchemaArgumentSource {
	return &SchemaArgumentSource{}
}

type inputSchemaShape struct {
	Properties map[string]propertyShape `json:"properties"`
}

type propertyShape struct {
	Type    string `json:"type"`
	Default any    `json:"default"`
	Enum    []any  `json:"enum"`
}

// Arguments builds placeholder arguments for one call.
func (s *SchemaArgumentSource) Arguments(_ context.Context, tool domain.ToolDefinition) (map[string]any, error) {
	args := make(map[string]any)
	if len(tool.InputSchema) == 0 {
		return args, nil
	}
	var shape inputSchemaShape
	if err := json.Unmarshal(tool.InputSchema, &shape); err != nil {
		// A schema the server itself produced but we cannot read is not a
		// reason to skip the tool; probe it with empty arguments.
		return args, nil
	}
	for name, property := range shape.Properties {
		args[name] = placeholderFor(property)
	}
	return args, nil
}

func placeholderFor(property propertyShape) any {
	if property.Default != nil {
		return property.Default
	}
	if len(property.Enum) > 0 {
		return property.Enum[0]
	}
	switch property.Type {
	case "string":
		return "example"
	case "number":
		return 1.0
	case "integer":
		return 1
	case "boolean":
		return true
	case "array":
		return []any{}
	case "object":
		return map[string]any{}
	default:
		return "example"
	}
}
