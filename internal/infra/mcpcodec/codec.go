// Package mcpcodec converts MCP wire types into the domain model consumed by
// the probe core.
package mcpcodec

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"mcpdrift/internal/domain"
)

// ToolFromMCP converts an MCP tool to a domain definition.
func ToolFromMCP(tool *mcp.Tool) domain.ToolDefinition {
	if tool == nil {
		return domain.ToolDefinition{}
	}
	definition := domain.ToolDefinition{
		Name:        tool.Name,
		Description: tool.Description,
		Annotations: annotationsFromMCP(tool.Annotations),
	}
	if tool.InputSchema != nil {
		if raw, err := json.Marshal(tool.InputSchema); err == nil {
			definition.InputSchema = raw
		}
	}
	return definition
}

// ToolsFromMCP converts a listed tool set to domain definitions.
func ToolsFromMCP(tools []*mcp.Tool) []domain.ToolDefinition {
	if len(tools) == 0 {
		return nil
	}
	definitions := make([]domain.ToolDefinition, 0, len(tools))
	for _, tool := range tools {
		definitions = append(definitions, ToolFromMCP(tool))
	}
	return definitions
}

// ResultFromMCP converts a call result into the domain's tagged content
// blocks. Text stays text; image, audio, and blob resources become binary
// blocks carrying their decoded bytes and declared mime type. Unknown block
// types are dropped rather than guessed at.
func ResultFromMCP(result *mcp.CallToolResult) domain.ToolResult {
	if result == nil {
		return domain.ToolResult{}
	}
	converted := domain.ToolResult{IsError: result.IsError}
	for _, content := range result.Content {
		switch block := content.(type) {
		case *mcp.TextContent:
			converted.Content = append(converted.Content, domain.TextContent{Text: block.Text})
		case *mcp.ImageContent:
			converted.Content = append(converted.Content, domain.BinaryContent{
				Data:     block.Data,
				MIMEType: block.MIMEType,
			})
		case *mcp.AudioContent:
			converted.Content = append(converted.Content, domain.BinaryContent{
				Data:     block.Data,
				MIMEType: block.MIMEType,
			})
		case *mcp.EmbeddedResource:
			if block.Resource == nil {
				continue
			}
			if block.Resource.Text != "" {
				converted.Content = append(converted.Content, domain.TextContent{Text: block.Resource.Text})
				continue
			}
			converted.Content = append(converted.Content, domain.BinaryContent{
				Data:     block.Resource.Blob,
				MIMEType: block.Resource.MIMEType,
			})
		}
	}
	return converted
}

func annotationsFromMCP(annotations *mcp.ToolAnnotations) *domain.ToolAnnotations {
	if annotations == nil {
		return nil
	}
	return &domain.ToolAnnotations{
		ReadOnlyHint:    annotations.ReadOnlyHint,
		DestructiveHint: annotations.DestructiveHint,
		IdempotentHint:  annotations.IdempotentHint,
	}
}
