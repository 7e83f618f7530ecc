package upstream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// StatusError is an upstream response with status >= 400. Body holds the
// exact bytes the upstream sent; the bridge relays them unchanged.
type StatusError struct {
	StatusCode  int
	ContentType string
	Body        []byte
	RequestID   string
}

func (e *StatusError) Error() string {
	status := fmt.Sprintf("%d", e.StatusCode)
	if text := http.StatusText(e.StatusCode); text != "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, text)
	}
	msg := fmt.Sprintf("upstream returned HTTP %s", status)
	if detail := extractErrorMessage(e.Body); detail != "" {
		msg += ": " + detail
	}
	if e.RequestID != "" {
		msg += " (request_id: " + e.RequestID + ")"
	}
	return msg
}

// Sample returns at most n bytes of the body for logging.
func (e *StatusError) Sample(n int) string {
	return Sample(e.Body, n)
}

// ReadStatusError drains and closes an error response.
func ReadStatusError(resp *Response) (*StatusError, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream error body: %w", err)
	}
	return &StatusError{
		StatusCode:  resp.StatusCode,
		ContentType: resp.ContentType("application/json"),
		Body:        body,
		RequestID:   resp.RequestID,
	}, nil
}

// Sample truncates body to n bytes as a string.
func Sample(body []byte, n int) string {
	if len(body) > n {
		body = body[:n]
	}
	return string(body)
}

func extractErrorMessage(rawBody []byte) string {
	trimmed := strings.TrimSpace(string(rawBody))
	if trimmed == "" {
		return ""
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return ""
	}
	return extractErrorMessageFromMap(payload)
}

func extractErrorMessageFromMap(payload map[string]any) string {
	if payload == nil {
		return ""
	}
	for _, key := range []string{"message", "detail", "error_description"} {
		if v := trimmedString(payload[key]); v != "" {
			return v
		}
	}
	if nested, ok := payload["error"].(map[string]any); ok {
		if msg := extractErrorMessageFromMap(nested); msg != "" {
			return msg
		}
	}
	return trimmedString(payload["error"])
}

func trimmedString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}
