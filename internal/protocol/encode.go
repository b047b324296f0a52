package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

var (
	ErrNoArguments = errors.New("no arguments to forward")
	ErrInvalidUTF8 = errors.New("argument is not valid UTF-8")
)

// Encode builds the request URL for inv under the given policy. The result
// depends only on its inputs.
func Encode(baseURL string, policy Policy, auth string, inv Invocation) (string, error) {
	if len(inv.Args) == 0 {
		return "", ErrNoArguments
	}
	base, err := endpointBase(baseURL)
	if err != nil {
		return "", err
	}
	switch policy {
	case PolicyExec, "":
		return encodeExec(base, auth, inv)
	case PolicyPath:
		return encodePath(base, inv), nil
	default:
		return "", fmt.Errorf("unsupported policy %q", policy)
	}
}

func endpointBase(baseURL string) (string, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid base url %q: scheme and host are required", baseURL)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", fmt.Errorf("invalid base url %q: query and fragment are not allowed", baseURL)
	}
	return strings.TrimRight(u.String(), "/") + PathPrefix, nil
}

func encodeExec(base string, auth string, inv Invocation) (string, error) {
	// encoding/json would silently substitute U+FFFD.
	for i, arg := range inv.Args {
		if !utf8.ValidString(arg) {
			return "", fmt.Errorf("argument %d %q: %w", i, arg, ErrInvalidUTF8)
		}
	}
	var payload bytes.Buffer
	enc := json.NewEncoder(&payload)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(inv.Args); err != nil {
		return "", fmt.Errorf("encode arguments: %w", err)
	}
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("/exec?")
	if auth != "" {
		b.WriteString("auth=")
		b.WriteString(Escape(auth))
		b.WriteByte('&')
	}
	b.WriteString("cmd=")
	b.WriteString(Escape(strings.TrimSuffix(payload.String(), "\n")))
	b.WriteString("&cwd=")
	b.WriteString(Escape(inv.Cwd))
	return b.String(), nil
}

// Param is one query parameter produced from a --flag.
type Param struct {
	Key   string
	Value string
}

func encodePath(base string, inv Invocation) string {
	segments, params := SplitArgs(inv.Args)

	var b strings.Builder
	b.WriteString(base)
	for _, segment := range segments {
		b.WriteByte('/')
		b.WriteString(EscapeSegment(segment))
	}
	b.WriteString("?cwd=")
	b.WriteString(Escape(inv.Cwd))
	for _, p := range params {
		b.WriteByte('&')
		b.WriteString(Escape(p.Key))
		b.WriteByte('=')
		b.WriteString(Escape(p.Value))
	}
	return b.String()
}

// EscapeSegment escapes one path segment. "." and ".." are fully
// percent-encoded so dot-segment removal cannot drop them. An empty
// positional stays an empty segment.
func EscapeSegment(s string) string {
	switch s {
	case ".":
		return "%2E"
	case "..":
		return "%2E%2E"
	}
	return Escape(s)
}

// SplitArgs separates positionals from --flag pairs. A flag followed by
// another flag, or by nothing, gets the value "true".
func SplitArgs(args []string) ([]string, []Param) {
	segments := make([]string, 0, len(args))
	params := make([]Param, 0, len(args))
	pending := ""
	hasPending := false
	for _, item := range args {
		if strings.HasPrefix(item, "--") {
			if hasPending {
				params = append(params, Param{Key: pending, Value: "true"})
			}
			pending = strings.TrimPrefix(item, "--")
			hasPending = true
			continue
		}
		if hasPending {
			params = append(params, Param{Key: pending, Value: item})
			hasPending = false
			continue
		}
		segments = append(segments, item)
	}
	if hasPending {
		params = append(params, Param{Key: pending, Value: "true"})
	}
	return segments, params
}

// Escape percent-encodes everything outside the RFC 3986 unreserved set, so
// the result is safe both as a path segment and as a query component.
func Escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
