package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

const (
	// StatusNetwork marks a request that never got an HTTP response.
	StatusNetwork = 0
	maxMessageLen = 200
)

var ErrNotFound = errors.New("not found")

// APIError is a failed call to the cart API. Status is the HTTP status, 0 for a
// network failure or open circuit, 408 for a client-side timeout.
type APIError struct {
	Status  int
	Message string
	URL     string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == StatusNetwork {
		return fmt.Sprintf("cart api unreachable (%s): %s", e.URL, e.Message)
	}
	return fmt.Sprintf("cart api returned %d (%s): %s", e.Status, e.URL, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is matches ErrNotFound for 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

func (e *APIError) Timeout() bool {
	return e.Status == http.StatusRequestTimeout
}

// Retryable reports whether the failure says nothing about the request itself.
func (e *APIError) Retryable() bool {
	return e.Status == StatusNetwork || e.Status == http.StatusRequestTimeout || e.Status >= 500
}

// StatusOf returns the APIError status in err's chain, or -1 if there is none.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return -1
}

var reprMessage = regexp.MustCompile(`['"](?:error|detail|message)['"]\s*:\s*['"]([^'"]+)['"]`)

// errorMessage pulls a human-readable message out of an error body. It accepts
// JSON objects, dict-repr text and plain text.
func errorMessage(body []byte, status int) string {
	var parsed map[string]any
	if json.Unmarshal(body, &parsed) == nil {
		for _, k := range []string{"error", "detail", "message"} {
			if msg := messageFrom(parsed[k]); msg != "" {
				return msg
			}
		}
	}

	if m := reprMessage.FindSubmatch(body); m != nil {
		return string(m[1])
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		if len(text) > maxMessageLen {
			text = text[:maxMessageLen] + "..."
		}
		return text
	}

	if text := http.StatusText(status); text != "" {
		return text
	}
	return "request failed"
}

func messageFrom(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		// validation errors come as a list of {"msg": ...}
		for _, item := range t {
			if obj, ok := item.(map[string]any); ok {
				if msg, ok := obj["msg"].(string); ok && msg != "" {
					return msg
				}
			}
		}
	case map[string]any:
		if msg, ok := t["message"].(string); ok {
			return msg
		}
	}
	return ""
}
