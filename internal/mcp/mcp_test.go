package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	mcpproto "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prbarcelon/cliproxy/internal/client"
	"github.com/prbarcelon/cliproxy/internal/config"
	"github.com/prbarcelon/cliproxy/internal/protocol"
)

type requestLog struct {
	mu   sync.Mutex
	uris []string
}

func (l *requestLog) add(uri string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.uris = append(l.uris, uri)
}

func (l *requestLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.uris...)
}

func newBridge(t *testing.T, status int, body string, seen *requestLog) *Bridge {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			seen.add(r.URL.RequestURI())
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	cli := client.New(config.EndpointConfig{BaseURL: srv.URL, Policy: protocol.PolicyPath}, nil)
	b := NewBridge(cli, nil)
	b.getwd = func() (string, error) { return "/bridge", nil }
	return b
}

func callRequest(args map[string]interface{}) mcpproto.CallToolRequest {
	req := mcpproto.CallToolRequest{}
	req.Params.Name = ExecToolName
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcpproto.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcpproto.TextContent)
	require.True(t, ok, "unexpected content type %T", res.Content[0])
	return text.Text
}

func TestHandleExecForwardsArgs(t *testing.T) {
	seen := &requestLog{}
	b := newBridge(t, http.StatusOK, "Service web started", seen)

	res, err := b.HandleExec(context.Background(), callRequest(map[string]interface{}{
		"args": []interface{}{"start", "web", "--wait"},
		"cwd":  "/home/u",
	}))

	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "Service web started", resultText(t, res))
	assert.Equal(t, []string{"/cli-proxy/start/web?cwd=%2Fhome%2Fu&wait=true"}, seen.all())
}

func TestHandleExecDefaultsCwd(t *testing.T) {
	seen := &requestLog{}
	b := newBridge(t, http.StatusOK, "ok", seen)

	_, err := b.HandleExec(context.Background(), callRequest(map[string]interface{}{
		"args": []interface{}{"list"},
	}))

	require.NoError(t, err)
	assert.Equal(t, []string{"/cli-proxy/list?cwd=%2Fbridge"}, seen.all())
}

func TestHandleExecRequiresArgs(t *testing.T) {
	seen := &requestLog{}
	b := newBridge(t, http.StatusOK, "ok", seen)

	res, err := b.HandleExec(context.Background(), callRequest(map[string]interface{}{}))

	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Empty(t, seen.all())
}

func TestHandleExecRemoteError(t *testing.T) {
	b := newBridge(t, http.StatusBadGateway, "Service api not found", nil)

	res, err := b.HandleExec(context.Background(), callRequest(map[string]interface{}{
		"args": []interface{}{"restart", "api"},
	}))

	require.NoError(t, err)
	assert.True(t, res.IsError)
	text := resultText(t, res)
	assert.Contains(t, text, "HTTP 502")
	assert.Contains(t, text, "Service api not found")
}

func TestHandleExecWorkingDirectoryFailure(t *testing.T) {
	b := newBridge(t, http.StatusOK, "ok", nil)
	b.getwd = func() (string, error) { return "", errors.New("gone") }

	res, err := b.HandleExec(context.Background(), callRequest(map[string]interface{}{
		"args": []interface{}{"list"},
	}))

	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "gone")
}

func TestExecToolSchema(t *testing.T) {
	b := newBridge(t, http.StatusOK, "ok", nil)
	tool := b.ExecTool()
	assert.Equal(t, ExecToolName, tool.Name)

	data, err := json.Marshal(tool.InputSchema)
	require.NoError(t, err)
	var schema struct {
		Required   []string                          `json:"required"`
		Properties map[string]map[string]interface{} `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, []string{"args"}, schema.Required)
	assert.Equal(t, "array", schema.Properties["args"]["type"])
	assert.Equal(t, "string", schema.Properties["cwd"]["type"])
}

func TestNewServerRegistersTool(t *testing.T) {
	b := newBridge(t, http.StatusOK, "ok", nil)
	s := NewServer(b, "test")
	require.NotNil(t, s)

	resp := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), ExecToolName)
}
