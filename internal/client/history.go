package client

import (
	"errors"
	"time"

	"github.com/prbarcelon/cliproxy/internal/protocol"
	"github.com/prbarcelon/cliproxy/internal/store"
)

func historyItem(started time.Time, policy protocol.Policy, endpoint string, inv protocol.Invocation, res *Result, err error) protocol.HistoryItem {
	item := protocol.HistoryItem{
		At:         started.UTC(),
		Policy:     policy,
		URL:        endpoint,
		Cwd:        inv.Cwd,
		Args:       inv.Args,
		Success:    err == nil,
		DurationMs: int64(time.Since(started) / time.Millisecond),
	}
	if res != nil {
		item.StatusCode = res.StatusCode
	}
	var readErr *ResponseReadError
	if errors.As(err, &readErr) {
		item.StatusCode = readErr.StatusCode
	}
	if err != nil {
		item.Error = err.Error()
	}
	return item
}

// record never fails the invocation; problems are logged.
func (c *Client) record(item protocol.HistoryItem) {
	dbStore, err := store.Open(c.HistoryDB)
	if err != nil {
		c.logger().Warn("history unavailable", "path", c.HistoryDB, "error", err)
		return
	}
	defer dbStore.Close()
	if err := dbStore.InsertHistory(item); err != nil {
		c.logger().Warn("history not recorded", "path", c.HistoryDB, "error", err)
	}
}
