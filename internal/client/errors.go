package client

import (
	"fmt"
	"net/http"
)

// UsageError means there was nothing to forward. No request is made.
type UsageError struct{}

func (e *UsageError) Error() string {
	return "a command is required"
}

// TransportError means the request could not be sent or no response arrived.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ResponseReadError means a response arrived but its body could not be read.
type ResponseReadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *ResponseReadError) Error() string {
	return fmt.Sprintf("read response from %s (HTTP %d): %v", e.URL, e.StatusCode, e.Err)
}

func (e *ResponseReadError) Unwrap() error { return e.Err }

// RemoteError reports a non-2xx status. The body has still been read and is
// available on the accompanying Result.
type RemoteError struct {
	URL        string
	StatusCode int
}

func (e *RemoteError) Error() string {
	text := http.StatusText(e.StatusCode)
	if text == "" {
		return fmt.Sprintf("cli proxy returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("cli proxy returned HTTP %d %s", e.StatusCode, text)
}
