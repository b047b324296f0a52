package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	mcpproto "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/prbarcelon/cliproxy/internal/client"
	"github.com/prbarcelon/cliproxy/internal/protocol"
)

const ExecToolName = "cli_proxy_exec"

// Bridge exposes the CLI proxy forwarder as an MCP tool.
type Bridge struct {
	client *client.Client
	getwd  func() (string, error)
	logger *slog.Logger
}

func NewBridge(cli *client.Client, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{client: cli, getwd: os.Getwd, logger: logger}
}

func (b *Bridge) ExecTool() mcpproto.Tool {
	return mcpproto.NewTool(ExecToolName,
		mcpproto.WithDescription("Forward a command line to the local CLI proxy and return its output verbatim."),
		mcpproto.WithArray("args",
			mcpproto.Required(),
			mcpproto.Description("Command line arguments, without a program name. The first element is the command."),
			mcpproto.WithStringItems(),
		),
		mcpproto.WithString("cwd",
			mcpproto.Description("Working directory reported to the proxy. Defaults to the bridge's own working directory."),
		),
	)
}

func (b *Bridge) HandleExec(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	args := req.GetStringSlice("args", nil)
	if len(args) == 0 {
		return mcpproto.NewToolResultError("args must contain at least one string"), nil
	}
	cwd := strings.TrimSpace(req.GetString("cwd", ""))
	if cwd == "" {
		dir, err := b.getwd()
		if err != nil {
			return mcpproto.NewToolResultError(fmt.Sprintf("working directory: %v", err)), nil
		}
		cwd = dir
	}

	res, err := b.client.Do(ctx, protocol.Invocation{Args: args, Cwd: cwd})
	if err != nil {
		b.logger.Warn("forward failed", "command", args[0], "error", err)
		var remoteErr *client.RemoteError
		if errors.As(err, &remoteErr) && res != nil {
			return mcpproto.NewToolResultError(fmt.Sprintf("%v\n%s", err, res.Body)), nil
		}
		return mcpproto.NewToolResultError(err.Error()), nil
	}
	return mcpproto.NewToolResultText(res.Body), nil
}

func NewServer(b *Bridge, version string) *server.MCPServer {
	s := server.NewMCPServer("cliproxy", version, server.WithToolCapabilities(false))
	s.AddTool(b.ExecTool(), b.HandleExec)
	return s
}

// ServeStdio blocks serving MCP over stdin/stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
