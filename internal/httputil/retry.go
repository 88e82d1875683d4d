// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers for the provider client.
package httputil

import (
	"bytes"
	"context"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// HTTP 429 responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

// DoWithRetry executes an HTTP request and, when maxRetries is positive,
// retries on HTTP 429 (Too Many Requests) with exponential backoff starting
// at RetryBaseDelay. A maxRetries of zero sends the request exactly once.
//
// Requests with a body must set GetBody (http.NewRequest does this for
// bytes.Reader and strings.Reader bodies) so each attempt can resend it.
// On each 429 the response body is drained and closed before sleeping. If
// the context is cancelled during a wait the function returns ctx.Err().
// After exhausting retries the last 429 response is returned as-is.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests || attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// LooksLikeJSON reports whether body appears to hold a JSON object. Error
// pages from proxies and gateways are often plain text or HTML, so callers
// check this before attempting to decode.
func LooksLikeJSON(body []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(body), []byte("{"))
}

// Snippet returns body trimmed and cut to at most n bytes, for error
// messages. The cut never splits a UTF-8 sequence.
func Snippet(body []byte, n int) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= n {
		return s
	}
	cut := max(n, 0)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
