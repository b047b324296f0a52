package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/prbarcelon/cliproxy/internal/client"
	"github.com/prbarcelon/cliproxy/internal/config"
	"github.com/prbarcelon/cliproxy/internal/mcp"
)

const version = "dev"

func main() {
	configPath := pflag.String("config", config.DefaultConfigPath(), "path to cliproxy config")
	baseURL := pflag.String("url", "", "override the CLI proxy base url")
	debug := pflag.Bool("debug", config.Debug(), "debug logging on stderr")
	showVersion := pflag.Bool("version", false, "print version")
	pflag.Parse()

	if *showVersion {
		fmt.Println("cliproxy-mcp " + version)
		os.Exit(0)
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		if err := config.SetBaseURL(cfg, *baseURL); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
	}

	// stdout carries the MCP stream; logs must stay on stderr.
	logger := client.NewLogger(os.Stderr, *debug)
	bridge := mcp.NewBridge(client.FromConfig(cfg, logger), logger)
	if err := mcp.ServeStdio(mcp.NewServer(bridge, version)); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
