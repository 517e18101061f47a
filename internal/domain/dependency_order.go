package domain

import "sort"

// Annotation priorities for intra-layer ordering. Read-only tools run first
// and destructive tools last so a destructive call cannot corrupt state that
// other tools in the same layer still need.
const (
	priorityReadOnly    = 0
	priorityUnannotated = 1
	priorityDestructive = 2
)

// DependencyOrder returns tools in execution order: ascending dependency
// layer, then annotation priority, then name. The input slice is not
// modified. A tool is never sequenced before one in a strictly earlier layer,
// and ties break alphabetically so runs are reproducible.
func DependencyOrder(tools []ToolDefinition, graph DependencyGraph) []ToolDefinition {
	ordered := append([]ToolDefinition(nil), tools...)
	sort.SliceStable(ordered, func(i, j int) bool {
		left, right := ordered[i], ordered[j]
		leftLayer, rightLayer := graph.Layer(left.Name), graph.Layer(right.Name)
		if leftLayer != rightLayer {
			return leftLayer < rightLayer
		}
		leftPriority, rightPriority := annotationPriority(left), annotationPriority(right)
		if leftPriority != rightPriority {
			return leftPriority < rightPriority
		}
		return left.Name < right.Name
	})
	return ordered
}

func annotationPriority(tool ToolDefinition) int {
	switch {
	case tool.IsDestructive():
		return priorityDestructive
	case tool.IsReadOnly():
		return priorityReadOnly
	default:
		return priorityUnannotated
	}
}
