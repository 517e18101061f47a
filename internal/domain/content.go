package domain

import "strings"

// ContentBlock is one block of a tool response. Implementations are
// TextContent and BinaryContent; the closed set makes the text/binary
// distinction checkable at compile time.
type ContentBlock interface {
	isContentBlock()
}

// TextContent is a plain text block.
type TextContent struct {
	Text string `json:"text"`
}

// BinaryContent is a decoded binary block with its declared mime type.
type BinaryContent struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mimeType"`
}

func (TextContent) isContentBlock()   {}
func (BinaryContent) isContentBlock() {}

// ToolResult is a materialized tool response as handed in by the transport.
type ToolResult struct {
	Content []ContentBlock
	IsError bool
}

// ExtractText joins the textual content of a result. Text blocks win; when
// none exist, binary blocks with a textual or JSON mime type are decoded
// instead. The second return is false when the result carries no text at all.
func ExtractText(result ToolResult) (string, bool) {
	var parts []string
	for _, block := range result.Content {
		if text, ok := block.(TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n"), true
	}
	for _, block := range result.Content {
		bin, ok := block.(BinaryContent)
		if !ok {
			continue
		}
		if IsTextualMIME(bin.MIMEType) {
			parts = append(parts, string(bin.Data))
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n"), true
	}
	return "", false
}

// HasBinary reports whether the result carries at least one binary block.
func HasBinary(result ToolResult) bool {
	for _, block := range result.Content {
		if _, ok := block.(BinaryContent); ok {
			return true
		}
	}
	return false
}

// IsTextualMIME reports whether a mime type declares decodable text.
func IsTextualMIME(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mimeType, "text/"):
		return true
	case mimeType == "application/json":
		return true
	case strings.HasSuffix(mimeType, "+json"):
		return true
	case mimeType == "application/xml", strings.HasSuffix(mimeType, "+xml"):
		return true
	default:
		return false
	}
}
