package domain

import "encoding/json"

// ToolAnnotations carries the behavior hints a server declares for a tool.
type ToolAnnotations struct {
	ReadOnlyHint    bool  `json:"readOnlyHint,omitempty"`
	DestructiveHint *bool `json:"destructiveHint,omitempty"`
	IdempotentHint  bool  `json:"idempotentHint,omitempty"`
}

// ToolDefinition is a tool signature as discovered from a server.
type ToolDefinition struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	InputSchema json.RawMessage  `json:"inputSchema,omitempty"`
	Annotations *ToolAnnotations `json:"annotations,omitempty"`
}

// IsDestructive reports whether the tool declares a destructive hint.
func (t ToolDefinition) IsDestructive() bool {
	return t.Annotations != nil && t.Annotations.DestructiveHint != nil && *t.Annotations.DestructiveHint
}

// IsReadOnly reports whether the tool declares a read-only hint.
func (t ToolDefinition) IsReadOnly() bool {
	return t.Annotations != nil && t.Annotations.ReadOnlyHint
}

// DependencyEdge states that output of From feeds input of To.
type DependencyEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DependencyGraph is the externally computed tool dependency graph. Layers
// partition tools so that no edge points from a later layer to an earlier one;
// tools absent from the map belong to layer 0.
type DependencyGraph struct {
	Edges  []DependencyEdge `json:"edges"`
	Layers map[string]int   `json:"layers"`
}

// Layer returns the layer index for a tool, defaulting to 0.
func (g DependencyGraph) Layer(tool string) int {
	if g.Layers == nil {
		return 0
	}
	return g.Layers[tool]
}
