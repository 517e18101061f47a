package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyResponse_JSON(t *testing.T) {
	fingerprint := ClassifyResponse(textResult(`{"a":1}`))

	require.Equal(t, ResponseKindJSON, fingerprint.Kind)
	require.NotEmpty(t, fingerprint.Hash)
	require.Equal(t, map[string]any{"a": "number"}, fingerprint.Schema)
}

func TestClassifyResponse_JSONSchemaIgnoresValues(t *testing.T) {
	first := ClassifyResponse(textResult(`{"id":"abc","count":1}`))
	second := ClassifyResponse(textResult(`{"count":99,"id":"zzz"}`))

	require.Equal(t, first.Hash, second.Hash)

	third := ClassifyResponse(textResult(`{"id":"abc","count":"1"}`))
	require.NotEqual(t, first.Hash, third.Hash)
}

func TestClassifyResponse_Markdown(t *testing.T) {
	fingerprint := ClassifyResponse(textResult("# Title\n\nSome body text."))

	require.Equal(t, ResponseKindMarkdown, fingerprint.Kind)
	require.Equal(t, []string{MarkerHeading}, fingerprint.MarkdownMarkers)
	require.NotEmpty(t, fingerprint.Hash)
}

func TestClassifyResponse_MarkdownTableAndFence(t *testing.T) {
	text := "| col | val |\n| --- | --- |\n\n```go\ncode\n```\n"
	fingerprint := ClassifyResponse(textResult(text))

	require.Equal(t, ResponseKindMarkdown, fingerprint.Kind)
	require.Equal(t, []string{MarkerTable, MarkerFence}, fingerprint.MarkdownMarkers)
}

func TestClassifyResponse_PlainText(t *testing.T) {
	fingerprint := ClassifyResponse(textResult("plain sentence."))

	require.Equal(t, ResponseKindText, fingerprint.Kind)
	require.Equal(t, HashBytes([]byte("plain sentence.")), fingerprint.Hash)
	require.Nil(t, fingerprint.Schema)
}

func TestClassifyResponse_Binary(t *testing.T) {
	fingerprint := ClassifyResponse(ToolResult{
		Content: []ContentBlock{BinaryContent{Data: []byte{0x89, 0x50}, MIMEType: "image/png"}},
	})

	require.Equal(t, ResponseKindBinary, fingerprint.Kind)
	require.Empty(t, fingerprint.Hash)
}

func TestClassifyResponse_Deterministic(t *testing.T) {
	result := textResult(`{"nested":{"list":[1,2,3],"flag":true}}`)

	first := ClassifyResponse(result)
	second := ClassifyResponse(result)

	require.Equal(t, first, second)
}

func TestInferSchema(t *testing.T) {
	parsed, ok := parseStrictJSON(`{"s":"x","n":1.5,"b":false,"z":null,"arr":[{"k":"v"},{"k":"w"}],"empty":[]}`)
	require.True(t, ok)

	shape := InferSchema(parsed)

	require.Equal(t, map[string]any{
		"s":     "string",
		"n":     "number",
		"b":     "boolean",
		"z":     "null",
		"arr":   []any{map[string]any{"k": "string"}},
		"empty": []any{},
	}, shape)
}
