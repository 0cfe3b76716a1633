package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allTools = []string{"apply_migration", "find_usages", "preview_migration", "reindex"}

func toolNames(tools []mcp.Tool) []string {
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	return names
}

// newEngineServer registers every tool against a server backed by project.
func newEngineServer(t *testing.T) *server.MCPServer {
	t.Helper()
	srv, _ := newTestServer(t, project)
	return New(srv.engine, srv.loader)
}

// TestStreamableHTTPTransport lists tools and runs find_usages over streamable-http
func TestStreamableHTTPTransport(t *testing.T) {
	h := server.NewStreamableHTTPServer(newEngineServer(t))
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	cli, err := NewHTTPClient(ctx, ts.URL)
	require.NoError(t, err)
	defer func() { _ = cli.Close() }()

	tools, err := cli.Tools(ctx)
	require.NoError(t, err)
	assert.Equal(t, allTools, toolNames(tools))

	res, err := cli.Call(ctx, "find_usages", map[string]any{"fqn": "pkg.core.Old"})
	require.NoError(t, err)
	require.False(t, res.IsError, "%+v", res.Content)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, `"count":3`)
}

// TestSSETransport lists tools over SSE; without an engine calls are errors
func TestSSETransport(t *testing.T) {
	sse := server.NewSSEServer(New(nil, nil),
		server.WithStaticBasePath("/mcp"),
	)
	mux := http.NewServeMux()
	mux.Handle("/mcp/sse", sse.SSEHandler())
	mux.Handle("/mcp/message", sse.MessageHandler())
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	cli, err := NewSSEClient(ctx, ts.URL+"/mcp/sse")
	require.NoError(t, err)
	defer func() { _ = cli.Close() }()

	tools, err := cli.Tools(ctx)
	require.NoError(t, err)
	assert.Equal(t, allTools, toolNames(tools))

	res, err := cli.Call(ctx, "find_usages", map[string]any{"fqn": "pkg.core.Old"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

// TestInProcessClient drives the tools through the in-process client
func TestInProcessClient(t *testing.T) {
	srv, _ := newTestServer(t, project)
	s := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(true))
	s.AddTool(newFindUsagesTool(), srv.handleFindUsages)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	cli, err := NewInProcessClient(ctx, s)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer func() { _ = cli.Close() }()

	tools, err := cli.Tools(ctx)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	if len(tools) != 1 {
		t.Fatalf("expected one tool, got %d", len(tools))
	}

	res, err := cli.Call(ctx, "find_usages", map[string]any{"fqn": "pkg.core.Old"})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %+v", res.Content)
	}
}
