// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"net/http"

	"golang.org/x/time/rate"
)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithBaseURL points the client at a different API root.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.url = url
	}
}

// WithLimiter throttles every outbound request through l.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// SupportedExtensions lists the file types the provider accepts.
var SupportedExtensions = []string{
	".pdf", ".png", ".jpg", ".jpeg", ".webp", ".tif", ".tiff", ".avif",
}
