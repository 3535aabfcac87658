// Package mcptools exposes the tools of MCP servers through the tool
// registry. Each remote tool is registered as <server>__<tool> and is
// sensitive unless the server configuration lists it as safe.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mfateev/yada-go/internal/config"
	"github.com/mfateev/yada-go/internal/tools"
)

// NameSeparator joins the server and tool names.
const NameSeparator = "__"

// Bridge owns the client sessions of every connected server.
type Bridge struct {
	client   *mcp.Client
	sessions []*mcp.ClientSession
	logger   *slog.Logger
}

// NewBridge creates a bridge identifying itself with version.
func NewBridge(version string, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		client: mcp.NewClient(&mcp.Implementation{Name: "yada", Version: version}, nil),
		logger: logger,
	}
}

// ConnectAll starts every configured server over stdio and registers its
// tools. On error, sessions opened so far stay open until Close.
func (b *Bridge) ConnectAll(ctx context.Context, servers []config.MCPServer, reg *tools.Registry) error {
	for _, s := range servers {
		if s.Name == "" || s.Command == "" {
			return fmt.Errorf("mcp server %q: name and command are required", s.Name)
		}
		transport := &mcp.CommandTransport{Command: exec.Command(s.Command, s.Args...)}
		if err := b.Attach(ctx, s.Name, transport, s.SafeTools, reg); err != nil {
			return err
		}
	}
	return nil
}

// Attach connects to one server over transport and registers its tools.
func (b *Bridge) Attach(ctx context.Context, server string, transport mcp.Transport, safeTools []string, reg *tools.Registry) error {
	session, err := b.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connect mcp server %s: %w", server, err)
	}
	b.sessions = append(b.sessions, session)

	count := 0
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			return fmt.Errorf("list tools of mcp server %s: %w", server, err)
		}
		spec, err := specFromTool(server, tool)
		if err != nil {
			return fmt.Errorf("mcp server %s: %w", server, err)
		}
		safety := tools.Sensitive
		if slices.Contains(safeTools, tool.Name) {
			safety = tools.Safe
		}
		handler := &remoteTool{session: session, remoteName: tool.Name, spec: spec}
		if err := reg.Register(handler, safety); err != nil {
			return fmt.Errorf("mcp server %s: %w", server, err)
		}
		count++
	}
	b.logger.Debug("Connected MCP server", "server", server, "tools", count)
	return nil
}

// Close ends every session.
func (b *Bridge) Close() error {
	var errs []error
	for _, s := range b.sessions {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	b.sessions = nil
	return errors.Join(errs...)
}

// remoteTool forwards calls to an MCP session.
type remoteTool struct {
	session    *mcp.ClientSession
	remoteName string
	spec       tools.ToolSpec
}

func (t *remoteTool) Spec() tools.ToolSpec { return t.spec }

func (t *remoteTool) Handle(ctx context.Context, invocation *tools.ToolInvocation) (*tools.ToolOutput, error) {
	args := invocation.Arguments
	if args == nil {
		args = map[string]any{}
	}
	res, err := t.session.CallTool(ctx, &mcp.CallToolParams{Name: t.remoteName, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", t.remoteName, err)
	}
	text := contentText(res.Content)
	if res.IsError {
		return tools.Failure(text), nil
	}
	return tools.Succeeded(text), nil
}

func contentText(content []mcp.Content) string {
	parts := make([]string, 0, len(content))
	for _, c := range content {
		switch v := c.(type) {
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.ImageContent:
			parts = append(parts, "[image "+v.MIMEType+"]")
		case *mcp.AudioContent:
			parts = append(parts, "[audio "+v.MIMEType+"]")
		default:
			data, err := json.Marshal(c)
			if err == nil {
				parts = append(parts, string(data))
			}
		}
	}
	return strings.Join(parts, "\n")
}

// inputSchema is the subset of JSON schema mapped onto tool parameters.
type inputSchema struct {
	Properties map[string]struct {
		Type        any    `json:"type"`
		Description string `json:"description"`
		Default     any    `json:"default"`
		Items       *struct {
			Type any `json:"type"`
		} `json:"items"`
	} `json:"properties"`
	Required []string `json:"required"`
}

func specFromTool(server string, tool *mcp.Tool) (tools.ToolSpec, error) {
	spec := tools.ToolSpec{
		Name:        server + NameSeparator + tool.Name,
		Description: tool.Description,
	}
	if tool.InputSchema == nil {
		return spec, nil
	}
	data, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return tools.ToolSpec{}, fmt.Errorf("tool %s: encode schema: %w", tool.Name, err)
	}
	var schema inputSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return tools.ToolSpec{}, fmt.Errorf("tool %s: decode schema: %w", tool.Name, err)
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		prop := schema.Properties[name]
		p := tools.ToolParameter{
			Name:        name,
			Type:        schemaType(prop.Type),
			Description: prop.Description,
			Required:    slices.Contains(schema.Required, name),
			Default:     prop.Default,
		}
		if prop.Items != nil {
			p.Items = schemaType(prop.Items.Type)
		}
		spec.Parameters = append(spec.Parameters, p)
	}
	return spec, nil
}

// schemaType picks the first non-null type of a "type" keyword, which may
// be a string or a list of strings.
func schemaType(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok && s != "null" {
				return s
			}
		}
	}
	return "any"
}
