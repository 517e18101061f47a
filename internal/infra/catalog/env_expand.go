package catalog

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// expandEnv substitutes ${VAR} references in a raw YAML probe config while
// preserving node structure, so expansion cannot change the shape of the
// document. Unset variables under server.* are errors: a launch command or
// child environment with silently blanked pieces would probe the wrong
// server. Everywhere else they expand to empty and are reported by name.
func expandEnv(raw []byte) (string, []string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return "", nil, fmt.Errorf("parse config: %w", err)
	}

	exp := envExpander{
		missing: make(map[string]struct{}),
		fatal:   make(map[string]struct{}),
	}
	exp.walk(&root, "")

	if len(exp.fatal) > 0 {
		return "", nil, fmt.Errorf("unset environment variables in server config: %s",
			strings.Join(sortedNames(exp.fatal), ", "))
	}

	expanded, err := yaml.Marshal(&root)
	if err != nil {
		return "", nil, fmt.Errorf("encode expanded config: %w", err)
	}
	return string(expanded), sortedNames(exp.missing), nil
}

type envExpander struct {
	missing map[string]struct{}
	fatal   map[string]struct{}
}

func (e *envExpander) walk(node *yaml.Node, path string) {
	switch node.Kind {
	case yaml.DocumentNode:
		for _, child := range node.Content {
			e.walk(child, path)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			e.walk(node.Content[i+1], childPath(path, node.Content[i].Value))
		}
	case yaml.SequenceNode:
		for _, child := range node.Content {
			e.walk(child, path)
		}
	case yaml.AliasNode:
		if node.Alias != nil {
			e.walk(node.Alias, path)
		}
	case yaml.ScalarNode:
		e.substituteScalar(node, path)
	}
}

func childPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func (e *envExpander) substituteScalar(node *yaml.Node, path string) {
	if node.Tag != "" && node.Tag != "!!str" {
		return
	}
	if !strings.Contains(node.Value, "$") {
		return
	}

	serverScoped := path == "server" || strings.HasPrefix(path, "server.")
	expanded := os.Expand(node.Value, func(name string) string {
		value, ok := os.LookupEnv(name)
		if !ok {
			if serverScoped {
				e.fatal[name] = struct{}{}
			} else {
				e.missing[name] = struct{}{}
			}
		}
		return value
	})
	if expanded == node.Value {
		return
	}

	// Quoted scalars stay strings no matter what the variable held.
	if node.Style != 0 {
		node.Tag = "!!str"
		node.Value = expanded
		return
	}
	node.Tag, node.Value = retagPlainScalar(expanded)
}

// retagPlainScalar re-resolves the tag of a plain scalar after substitution,
// so ${PORT} can feed an int field and ${ENABLED} a bool one.
func retagPlainScalar(value string) (string, string) {
	trimmed := strings.TrimSpace(value)
	switch {
	case trimmed == "":
		return "!!str", value
	case trimmed == "null" || trimmed == "~":
		return "!!null", "null"
	case trimmed == "true" || trimmed == "false":
		return "!!bool", trimmed
	}
	if _, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return "!!int", trimmed
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return "!!float", trimmed
	}
	return "!!str", value
}

func sortedNames(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
