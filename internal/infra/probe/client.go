package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"mcpdrift/internal/domain"
	"mcpdrift/internal/infra/mcpcodec"
)

// StdioClient is a ToolCaller over a stdio-launched MCP server process.
type StdioClient struct {
	session *mcp.ClientSession
}

// DialStdio launches the server command and performs the MCP handshake.
func DialStdio(ctx context.Context, command []string, env map[string]string, cwd string) (*StdioClient, error) {
	if len(command) == 0 {
		return nil, errors.New("server command is required")
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Dir = cwd
	cmd.Env = os.Environ()
	for key, value := range env {
		cmd.Env = append(cmd.Env, key+"="+value)
	}

	transport := &mcp.CommandTransport{Command: cmd}
	client := mcp.NewClient(&mcp.Implementation{Name: "mcpdrift", Version: "0.1.0"}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connect stdio server: %w", err)
	}
	return &StdioClient{session: session}, nil
}

// ListTools lists the server's tools as domain definitions.
func (c *StdioClient) ListTools(ctx context.Context) ([]domain.ToolDefinition, error) {
	result, err := c.session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	return mcpcodec.ToolsFromMCP(result.Tools), nil
}

// CallTool invokes one tool and converts the result. A transport error
// returns err; a tool-level failure comes back as a result with IsError set.
func (c *StdioClient) CallTool(ctx context.Context, name string, args map[string]any) (domain.ToolResult, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return domain.ToolResult{}, fmt.Errorf("marshal arguments: %w", err)
	}
	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: json.RawMessage(raw),
	})
	if err != nil {
		return domain.ToolResult{}, err
	}
	return mcpcodec.ResultFromMCP(result), nil
}

// Close shuts the session down, terminating the server process.
func (c *StdioClient) Close() error {
	return c.session.Close()
}
