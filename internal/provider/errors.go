// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/ocr2md/internal/httputil"
)

// ErrNotConfigured is returned by every network operation when no API key
// has been set.
var ErrNotConfigured = errors.New("OCR provider API key is not configured")

// unavailableGuidance is appended to 5xx errors.
const unavailableGuidance = `The OCR service is temporarily unavailable. Possible causes:
  - the document exceeds the provider's 50 MB upload limit
  - a transient outage on the provider side (try again in a few minutes)
  - rate limiting after many requests in a short period`

// ProviderError is a non-2xx response from the provider.
type ProviderError struct {
	// Op names the failing call ("upload", "signed url", "ocr", "validate").
	Op         string
	StatusCode int
	Message    string
}

// Unavailable reports whether the provider failed on its side (HTTP 5xx).
func (e *ProviderError) Unavailable() bool {
	return e.StatusCode >= 500
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s failed with HTTP %d", e.Op, e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Unavailable() {
		msg += "\n\n" + unavailableGuidance
	}
	return msg
}

// IsUnavailable reports whether err is a provider-side (5xx) failure.
func IsUnavailable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Unavailable()
}

// newProviderError classifies a response body into a ProviderError.
func newProviderError(op string, status int, body []byte) *ProviderError {
	return &ProviderError{
		Op:         op,
		StatusCode: status,
		Message:    errorMessage(status, body),
	}
}

// errorMessage extracts a readable message from a structured or plain-text
// error body, falling back to the HTTP status text.
func errorMessage(status int, body []byte) string {
	if httputil.LooksLikeJSON(body) {
		var parsed map[string]any
		if err := json.Unmarshal(body, &parsed); err == nil {
			if msg := messageField(parsed); msg != "" {
				return msg
			}
		}
	}
	if s := httputil.Snippet(body, 500); s != "" {
		return s
	}
	return http.StatusText(status)
}

func messageField(m map[string]any) string {
	for _, key := range []string{"message", "error", "detail"} {
		switch v := m[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case map[string]any:
			if s := messageField(v); s != "" {
				return s
			}
		case []any:
			// FastAPI-style validation errors: [{"msg": "..."}]
			var parts []string
			for _, item := range v {
				if obj, ok := item.(map[string]any); ok {
					if s, ok := obj["msg"].(string); ok && s != "" {
						parts = append(parts, s)
					}
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, "; ")
			}
		}
	}
	return ""
}
