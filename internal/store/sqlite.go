package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prbarcelon/cliproxy/internal/protocol"

	_ "github.com/mattn/go-sqlite3"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS invocations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	at_utc TEXT NOT NULL,
	policy TEXT NOT NULL,
	url TEXT NOT NULL,
	cwd TEXT NOT NULL,
	args_json TEXT,
	status_code INTEGER NOT NULL,
	success INTEGER NOT NULL,
	error TEXT,
	duration_ms INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_invocations_at ON invocations(at_utc, id);
CREATE INDEX IF NOT EXISTS idx_invocations_success ON invocations(success, id);
`)
	if err != nil {
		return fmt.Errorf("init sqlite schema: %w", err)
	}
	return nil
}

func (s *Store) InsertHistory(item protocol.HistoryItem) error {
	var argsJSON string
	if len(item.Args) > 0 {
		data, err := json.Marshal(item.Args)
		if err != nil {
			return fmt.Errorf("marshal history args: %w", err)
		}
		argsJSON = string(data)
	}

	_, err := s.db.Exec(`
INSERT INTO invocations (at_utc, policy, url, cwd, args_json, status_code, success, error, duration_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		item.At.UTC().Format(time.RFC3339Nano),
		string(item.Policy),
		item.URL,
		item.Cwd,
		argsJSON,
		item.StatusCode,
		boolToInt(item.Success),
		item.Error,
		item.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// ListHistory returns up to limit of the most recent invocations, oldest
// first. A non-positive limit means DefaultLimit; larger values are capped at
// MaxLimit.
func (s *Store) ListHistory(failedOnly bool, limit int) ([]protocol.HistoryItem, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	query := `SELECT at_utc, policy, url, cwd, args_json, status_code, success, error, duration_ms FROM invocations`
	if failedOnly {
		query += ` WHERE success = 0`
	}
	query += ` ORDER BY id DESC LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	out := make([]protocol.HistoryItem, 0, limit)
	for rows.Next() {
		var atUTC string
		var policy string
		var rawURL string
		var cwd string
		var argsJSON sql.NullString
		var statusCode int
		var success int
		var errText sql.NullString
		var durationMs int64
		if err := rows.Scan(&atUTC, &policy, &rawURL, &cwd, &argsJSON, &statusCode, &success, &errText, &durationMs); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		at, err := time.Parse(time.RFC3339Nano, atUTC)
		if err != nil {
			at = time.Time{}
		}
		item := protocol.HistoryItem{
			At:         at,
			Policy:     protocol.Policy(policy),
			URL:        rawURL,
			Cwd:        cwd,
			StatusCode: statusCode,
			Success:    success == 1,
			DurationMs: durationMs,
		}
		if errText.Valid {
			item.Error = errText.String
		}
		if argsJSON.Valid && argsJSON.String != "" {
			var args []string
			if err := json.Unmarshal([]byte(argsJSON.String), &args); err == nil {
				item.Args = args
			}
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	for left, right := 0, len(out)-1; left < right; left, right = left+1, right-1 {
		out[left], out[right] = out[right], out[left]
	}

	return out, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
