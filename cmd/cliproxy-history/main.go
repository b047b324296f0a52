package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/prbarcelon/cliproxy/internal/config"
	"github.com/prbarcelon/cliproxy/internal/protocol"
	"github.com/prbarcelon/cliproxy/internal/store"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(argv []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("cliproxy-history", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", config.DefaultConfigPath(), "path to cliproxy config")
	limit := flags.Int("limit", store.DefaultLimit, fmt.Sprintf("max entries to show, capped at %d (0 or less means %d)", store.MaxLimit, store.DefaultLimit))
	failed := flags.Bool("failed", false, "only show failed invocations")
	jsonOut := flags.Bool("json", false, "print entries as a json array")
	if err := flags.Parse(argv); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if _, err := os.Stat(cfg.History.DBPath); os.IsNotExist(err) {
		if !cfg.History.Enabled {
			fmt.Fprintf(stderr, "history is disabled; set history.enabled in %s\n", *configPath)
		}
		return 0
	}

	dbStore, err := store.Open(cfg.History.DBPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer dbStore.Close()

	items, err := dbStore.ListHistory(*failed, *limit)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if *jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(items); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		return 0
	}
	printHistory(stdout, items)
	return 0
}

func printHistory(w io.Writer, items []protocol.HistoryItem) {
	for _, h := range items {
		status := "ok"
		if !h.Success {
			status = "error"
		}
		code := "-"
		if h.StatusCode != 0 {
			code = fmt.Sprintf("%d", h.StatusCode)
		}
		fmt.Fprintf(w, "%s %s %s %s (%dms) %s\n", h.At.Format(time.RFC3339), h.Policy, status, code, h.DurationMs, strings.Join(h.Args, " "))
		fmt.Fprintf(w, "  cwd: %s\n", h.Cwd)
		if !h.Success && h.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", h.Error)
		}
	}
}
