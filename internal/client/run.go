package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prbarcelon/cliproxy/internal/config"
	"github.com/prbarcelon/cliproxy/internal/protocol"
)

const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// Env is the process state a forwarded invocation depends on.
type Env struct {
	Stdout     io.Writer
	Stderr     io.Writer
	Getwd      func() (string, error)
	ConfigPath string
}

func Run(binaryName string, argv []string) int {
	if binaryName == "" {
		binaryName = filepath.Base(os.Args[0])
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	return Execute(ctx, binaryName, argv, Env{
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Getwd:      os.Getwd,
		ConfigPath: config.DefaultConfigPath(),
	})
}

// Execute forwards argv and returns the process exit code. The response body
// is written to env.Stdout whatever the HTTP status.
func Execute(ctx context.Context, binaryName string, argv []string, env Env) int {
	if len(argv) == 0 {
		usage(env.Stderr, binaryName)
		return ExitUsage
	}
	logger := NewLogger(env.Stderr, config.Debug())

	cfg, err := config.LoadOrDefault(env.ConfigPath)
	if err != nil {
		fmt.Fprintf(env.Stderr, "%s: config: %v\n", binaryName, err)
		return ExitError
	}
	getwd := env.Getwd
	if getwd == nil {
		getwd = os.Getwd
	}
	cwd, err := getwd()
	if err != nil {
		fmt.Fprintf(env.Stderr, "%s: working directory: %v\n", binaryName, err)
		return ExitError
	}

	inv := protocol.Invocation{Args: append([]string(nil), argv...), Cwd: cwd}
	res, err := FromConfig(cfg, logger).Do(ctx, inv)
	if res != nil {
		fmt.Fprintln(env.Stdout, res.Body)
	}
	if err != nil {
		fmt.Fprintf(env.Stderr, "%s: %v\n", binaryName, err)
		return ExitError
	}
	return ExitOK
}

func usage(w io.Writer, binaryName string) {
	fmt.Fprintf(w, "Usage: %s <command> --key value [--key value ...]\n", binaryName)
}

// NewLogger returns the stderr logger shared by the cliproxy binaries.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
