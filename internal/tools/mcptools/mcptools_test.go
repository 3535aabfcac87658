package mcptools

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfateev/yada-go/internal/config"
	"github.com/mfateev/yada-go/internal/tools"
)

type echoArgs struct {
	Text   string `json:"text"`
	Repeat int    `json:"repeat,omitempty"`
}

type removeArgs struct {
	Path string `json:"path"`
}

func startServer(t *testing.T) mcp.Transport {
	t.Helper()
	server := mcp.NewServer(&mcp.Implementation{Name: "files", Version: "v0.0.1"}, nil)
	mcp.AddTool(server, &mcp.Tool{Name: "echo", Description: "Echo text back."},
		func(_ context.Context, _ *mcp.CallToolRequest, args echoArgs) (*mcp.CallToolResult, any, error) {
			text := args.Text
			for i := 1; i < args.Repeat; i++ {
				text += args.Text
			}
			return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil, nil
		})
	mcp.AddTool(server, &mcp.Tool{Name: "remove", Description: "Remove a path."},
		func(_ context.Context, _ *mcp.CallToolRequest, args removeArgs) (*mcp.CallToolResult, any, error) {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: "cannot remove " + args.Path}},
			}, nil, nil
		})

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	session, err := server.Connect(context.Background(), serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return clientTransport
}

func attach(t *testing.T, safe ...string) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()
	bridge := NewBridge("test", nil)
	require.NoError(t, bridge.Attach(context.Background(), "files", startServer(t), safe, reg))
	t.Cleanup(func() { _ = bridge.Close() })
	return reg
}

func TestAttach_RegistersPrefixedTools(t *testing.T) {
	reg := attach(t, "echo")

	assert.ElementsMatch(t, []string{"files__echo", "files__remove"}, reg.Names())
	assert.False(t, reg.IsSensitive("files__echo"), "listed in safe_tools")
	assert.True(t, reg.IsSensitive("files__remove"), "sensitive by default")

	spec, ok := reg.Spec("files__echo")
	require.True(t, ok)
	assert.Equal(t, "Echo text back.", spec.Description)
	text, ok := spec.Parameter("text")
	require.True(t, ok)
	assert.Equal(t, "string", text.Type)
	assert.True(t, text.Required)
	repeat, ok := spec.Parameter("repeat")
	require.True(t, ok)
	assert.Equal(t, "integer", repeat.Type)
	assert.False(t, repeat.Required)
}

func TestRemoteTool_Call(t *testing.T) {
	reg := attach(t)

	out, err := reg.Execute(context.Background(), &tools.ToolInvocation{
		ToolName: "files__echo", Arguments: map[string]any{"text": "ab", "repeat": 2.0},
	})
	require.NoError(t, err)
	assert.False(t, out.Failed())
	assert.Equal(t, "abab", out.Content)
}

func TestRemoteTool_ErrorResult(t *testing.T) {
	reg := attach(t)

	out, err := reg.Execute(context.Background(), &tools.ToolInvocation{
		ToolName: "files__remove", Arguments: map[string]any{"path": "/etc"},
	})
	require.NoError(t, err)
	assert.True(t, out.Failed())
	assert.Equal(t, "cannot remove /etc", out.Content)
}

func TestConnectAll_RejectsIncompleteServer(t *testing.T) {
	bridge := NewBridge("test", nil)
	err := bridge.ConnectAll(context.Background(), []config.MCPServer{{Name: "broken"}}, tools.NewRegistry())
	assert.ErrorContains(t, err, "broken")
}

func TestSchemaType(t *testing.T) {
	assert.Equal(t, "string", schemaType("string"))
	assert.Equal(t, "integer", schemaType([]any{"null", "integer"}))
	assert.Equal(t, "any", schemaType(nil))
}

func TestContentText(t *testing.T) {
	got := contentText([]mcp.Content{
		&mcp.TextContent{Text: "line one"},
		&mcp.ImageContent{MIMEType: "image/png", Data: []byte{1}},
		&mcp.TextContent{Text: "line two"},
	})
	assert.Equal(t, "line one\n[image image/png]\nline two", got)
}
