package protocol

import (
	"fmt"
	"strings"
	"time"
)

// Policy selects the wire format used to address the CLI proxy.
type Policy string

const (
	// PolicyExec sends the raw argument vector as a JSON array to /cli-proxy/exec.
	PolicyExec Policy = "exec"
	// PolicyPath maps positionals to path segments and --flags to query parameters.
	PolicyPath Policy = "path"
)

const (
	DefaultBaseURL = "http://localhost:8888"
	DefaultAuth    = "localhost"
	PathPrefix     = "/cli-proxy"
)

func ParsePolicy(value string) (Policy, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "exec", "json":
		return PolicyExec, nil
	case "path", "rest":
		return PolicyPath, nil
	default:
		return "", fmt.Errorf("unsupported policy %q (expected exec or path)", value)
	}
}

// Invocation is one forwarded command line: the arguments after the program
// name and the directory it was run from.
type Invocation struct {
	Args []string `json:"args"`
	Cwd  string   `json:"cwd"`
}

type HistoryItem struct {
	At         time.Time `json:"at"`
	Policy     Policy    `json:"policy"`
	URL        string    `json:"url"`
	Cwd        string    `json:"cwd"`
	Args       []string  `json:"args,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
}
