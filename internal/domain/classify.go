package domain

import (
	"regexp"
	"strings"
)

// ResponseKind classifies the shape of a tool response.
type ResponseKind string

const (
	ResponseKindJSON     ResponseKind = "json"
	ResponseKindMarkdown ResponseKind = "markdown"
	ResponseKindText     ResponseKind = "text"
	ResponseKindBinary   ResponseKind = "binary"
)

// Markdown markers the classifier tests for, in reporting order.
const (
	MarkerHeading = "heading"
	MarkerTable   = "table"
	MarkerFence   = "fence"
)

var (
	headingPattern = regexp.MustCompile(`(?m)^#{1,6}\s+\S`)
	tablePattern   = regexp.MustCompile(`(?m)^\s*\|.+\|\s*$`)
	fencePattern   = regexp.MustCompile("(?m)^```")
)

// ResponseFingerprint captures the classified shape of one response.
// Classification is deterministic for identical input.
type ResponseFingerprint struct {
	Kind            ResponseKind `json:"kind"`
	Hash            string       `json:"hash,omitempty"`
	Schema          any          `json:"schema,omitempty"`
	MarkdownMarkers []string     `json:"markdownMarkers,omitempty"`
}

// ClassifyResponse classifies a result's content. Text that parses as JSON
// yields a structural schema and its hash; otherwise markdown markers are
// tested; remaining text hashes raw. A result with only non-text blocks is
// binary and carries no fingerprint hash.
func ClassifyResponse(result ToolResult) ResponseFingerprint {
	text, hasText := ExtractText(result)
	if !hasText {
		if HasBinary(result) {
			return ResponseFingerprint{Kind: ResponseKindBinary}
		}
		return ResponseFingerprint{Kind: ResponseKindText, Hash: HashBytes(nil)}
	}

	if parsed, ok := parseStrictJSON(text); ok {
		schema := InferSchema(parsed)
		hash, err := HashValue(schema)
		if err != nil {
			hash = HashBytes([]byte(text))
		}
		return ResponseFingerprint{Kind: ResponseKindJSON, Hash: hash, Schema: schema}
	}

	if markers := markdownMarkers(text); len(markers) > 0 {
		return ResponseFingerprint{
			Kind:            ResponseKindMarkdown,
			Hash:            HashBytes([]byte(text)),
			MarkdownMarkers: markers,
		}
	}

	return ResponseFingerprint{Kind: ResponseKindText, Hash: HashBytes([]byte(text))}
}

// InferSchema reduces a parsed JSON value to its type shape. Objects map
// field names to shapes, arrays reduce to the shape of their first element,
// scalars reduce to their type name.
func InferSchema(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		shape := make(map[string]any, len(typed))
		for key, item := range typed {
			shape[key] = InferSchema(item)
		}
		return shape
	case []any:
		if len(typed) == 0 {
			return []any{}
		}
		return []any{InferSchema(typed[0])}
	case string:
		return "string"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return "number"
	}
}

func markdownMarkers(text string) []string {
	var markers []string
	if headingPattern.MatchString(text) {
		markers = append(markers, MarkerHeading)
	}
	if tableLooksReal(text) {
		markers = append(markers, MarkerTable)
	}
	if fencePattern.MatchString(text) {
		markers = append(markers, MarkerFence)
	}
	return markers
}

// tableLooksReal requires at least two pipe-delimited lines so a stray "|"
// in prose does not classify as markdown.
func tableLooksReal(text string) bool {
	matches := tablePattern.FindAllString(text, 2)
	return len(matches) >= 2 && strings.Contains(text, "|")
}
