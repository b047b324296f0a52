package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prbarcelon/cliproxy/internal/protocol"
	"github.com/prbarcelon/cliproxy/internal/store"
)

func setup(t *testing.T, enabled bool) (configPath string, dbPath string) {
	t.Helper()
	for _, key := range []string{"CLIPROXY_URL", "CLIPROXY_POLICY", "CLIPROXY_AUTH", "CLIPROXY_TIMEOUT"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "history.db")
	configPath = filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf("history:\n  enabled: %t\n  db_path: %s\n", enabled, dbPath)
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0o600))
	return configPath, dbPath
}

func seed(t *testing.T, dbPath string) {
	t.Helper()
	dbStore, err := store.Open(dbPath)
	require.NoError(t, err)
	defer dbStore.Close()
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	require.NoError(t, dbStore.InsertHistory(protocol.HistoryItem{
		At: at, Policy: protocol.PolicyExec, URL: "http://localhost:8888/cli-proxy/exec", Cwd: "/srv",
		Args: []string{"list"}, StatusCode: 200, Success: true, DurationMs: 4,
	}))
	require.NoError(t, dbStore.InsertHistory(protocol.HistoryItem{
		At: at.Add(time.Minute), Policy: protocol.PolicyExec, URL: "http://localhost:8888/cli-proxy/exec", Cwd: "/srv",
		Args: []string{"stop", "web"}, Error: "connection refused", DurationMs: 1,
	}))
}

func TestRunPrintsHistory(t *testing.T) {
	configPath, dbPath := setup(t, true)
	seed(t, dbPath)
	var stdout, stderr bytes.Buffer

	code := run([]string{"--config", configPath}, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "2026-05-04T10:00:00Z exec ok 200 (4ms) list\n"+
		"  cwd: /srv\n"+
		"2026-05-04T10:01:00Z exec error - (1ms) stop web\n"+
		"  cwd: /srv\n"+
		"  error: connection refused\n", stdout.String())
}

func TestRunFailedJSON(t *testing.T) {
	configPath, dbPath := setup(t, true)
	seed(t, dbPath)
	var stdout, stderr bytes.Buffer

	code := run([]string{"--config", configPath, "--failed", "--json"}, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	var items []protocol.HistoryItem
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, []string{"stop", "web"}, items[0].Args)
}

func TestRunDisabledWithoutDatabase(t *testing.T) {
	configPath, _ := setup(t, false)
	var stdout, stderr bytes.Buffer

	code := run([]string{"--config", configPath}, &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "history is disabled")
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run([]string{"--bogus"}, &stdout, &stderr))
}

func TestRunHelpExitsZero(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{"--help"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "--limit")
}
