// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider talks to the OCR provider's REST API: it uploads a
// document, obtains a short-lived signed URL for it, and submits the OCR
// request. Responses are returned undecoded into any shape so the normalizer
// can deal with whatever the provider sends back.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/pdiddy/ocr2md/internal/httputil"
	"github.com/pdiddy/ocr2md/pkg/types"
)

const (
	defaultBaseURL   = "https://api.mistral.ai/v1"
	defaultModel     = "mistral-ocr-latest"
	defaultExpiry    = 24
	defaultUserAgent = "ocr2md/0.1"
)

// Client is the credentialed transport to the OCR provider. The configured
// API key is the only mutable state and may be swapped at any time. A
// per-call credential in types.Options takes precedence and never touches
// the configured key.
type Client struct {
	client  *http.Client
	limiter *rate.Limiter

	url       string
	model     string
	expiry    int
	retries   int
	userAgent string

	mu    sync.RWMutex
	token string
}

// New creates a client from cfg. Zero-valued fields fall back to defaults.
func New(cfg types.ProviderConfig, options ...Option) *Client {
	c := &Client{
		client:    &http.Client{Timeout: cfg.Timeout},
		url:       defaultBaseURL,
		model:     defaultModel,
		expiry:    defaultExpiry,
		retries:   cfg.RateLimitRetries,
		userAgent: defaultUserAgent,
		token:     strings.TrimSpace(cfg.APIKey),
	}

	if cfg.BaseURL != "" {
		c.url = cfg.BaseURL
	}
	if cfg.Model != "" {
		c.model = cfg.Model
	}
	if cfg.SignedURLExpiry > 0 {
		c.expiry = cfg.SignedURLExpiry
	}
	if cfg.UserAgent != "" {
		c.userAgent = cfg.UserAgent
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	for _, option := range options {
		option(c)
	}

	c.url = strings.TrimRight(c.url, "/")
	return c
}

// Configure replaces the API key.
func (c *Client) Configure(credential string) {
	c.mu.Lock()
	c.token = strings.TrimSpace(credential)
	c.mu.Unlock()
}

// IsConfigured reports whether an API key is set.
func (c *Client) IsConfigured() bool {
	return c.credential() != ""
}

func (c *Client) credential() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// tokenFor returns override when set, else the configured key.
func (c *Client) tokenFor(override string) string {
	if t := strings.TrimSpace(override); t != "" {
		return t
	}
	return c.credential()
}

// Validate probes the provider with a cheap authenticated call. It never
// returns an error; problems are reported in the result.
func (c *Client) Validate(ctx context.Context) types.ValidationResult {
	token := c.credential()
	if token == "" {
		return types.ValidationResult{Error: ErrNotConfigured.Error()}
	}

	req, err := c.newRequest(ctx, token, http.MethodGet, "/models", nil)
	if err != nil {
		return types.ValidationResult{Error: err.Error()}
	}

	if _, err := c.do(req, "validate"); err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) {
			return types.ValidationResult{Error: pe.Message}
		}
		return types.ValidationResult{Error: err.Error()}
	}
	return types.ValidationResult{Valid: true}
}

// Upload stores data with the provider and returns its file ID.
func (c *Client) Upload(ctx context.Context, data []byte, name string) (string, error) {
	return c.upload(ctx, c.credential(), data, name)
}

func (c *Client) upload(ctx context.Context, token string, data []byte, name string) (string, error) {
	if token == "" {
		return "", ErrNotConfigured
	}
	if name == "" {
		name = "document.pdf"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("purpose", "ocr"); err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	part, err := mw.CreateFormFile("file", path.Base(name))
	if err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}

	req, err := c.newRequest(ctx, token, http.MethodPost, "/files", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	body, err := c.do(req, "upload")
	if err != nil {
		return "", err
	}

	var fr fileResponse
	if err := decodeJSON(body, &fr); err != nil {
		return "", fmt.Errorf("parsing upload response: %w", err)
	}
	if fr.ID == "" {
		return "", fmt.Errorf("upload response did not include a file id")
	}
	return fr.ID, nil
}

// SignedURL returns a temporary URL granting read access to an uploaded file.
func (c *Client) SignedURL(ctx context.Context, fileID string) (string, error) {
	return c.signedURL(ctx, c.credential(), fileID)
}

func (c *Client) signedURL(ctx context.Context, token, fileID string) (string, error) {
	if token == "" {
		return "", ErrNotConfigured
	}

	endpoint := fmt.Sprintf("/files/%s/url?%s", url.PathEscape(fileID), url.Values{
		"expiry": {fmt.Sprintf("%d", c.expiry)},
	}.Encode())

	req, err := c.newRequest(ctx, token, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	body, err := c.do(req, "signed url")
	if err != nil {
		return "", err
	}

	var sr signedURLResponse
	if err := decodeJSON(body, &sr); err != nil {
		return "", fmt.Errorf("parsing signed url response: %w", err)
	}
	if sr.URL == "" {
		return "", fmt.Errorf("signed url response did not include a url")
	}
	return sr.URL, nil
}

// Submit runs OCR on the document at documentURL and returns the decoded
// response without interpreting it.
func (c *Client) Submit(ctx context.Context, documentURL string, opts types.Options) (any, error) {
	token := c.tokenFor(opts.Credential)
	if token == "" {
		return nil, ErrNotConfigured
	}

	payload := map[string]any{}
	for k, v := range opts.Extra {
		payload[k] = v
	}

	model := c.model
	if opts.Model != "" {
		model = opts.Model
	}
	payload["model"] = model
	payload["document"] = documentRef(documentURL, opts.Name)
	payload["include_image_base64"] = opts.IncludeImages

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding ocr request: %w", err)
	}

	req, err := c.newRequest(ctx, token, http.MethodPost, "/ocr", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, "ocr")
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[' || trimmed[0] == '"') {
		var raw any
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("parsing ocr response: %w", err)
		}
		return raw, nil
	}

	// Some gateways answer 200 with bare text; hand it over as-is.
	return string(trimmed), nil
}

// Process uploads data, obtains a signed URL, and submits it for OCR. All
// three calls use the same key, resolved once from opts.Credential or the
// configured key.
func (c *Client) Process(ctx context.Context, data []byte, name string, opts types.Options) (any, error) {
	token := c.tokenFor(opts.Credential)

	fileID, err := c.upload(ctx, token, data, name)
	if err != nil {
		return nil, err
	}

	signed, err := c.signedURL(ctx, token, fileID)
	if err != nil {
		return nil, err
	}

	if opts.Name == "" {
		opts.Name = name
	}
	opts.Credential = token
	return c.Submit(ctx, signed, opts)
}

func (c *Client) newRequest(ctx context.Context, token, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

// do sends req and returns the body of a 2xx response. Non-2xx responses
// become a *ProviderError.
func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	ctx := req.Context()
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	resp, err := httputil.DoWithRetry(ctx, c.client, req, c.retries)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newProviderError(op, resp.StatusCode, body)
	}
	return body, nil
}

func decodeJSON(body []byte, v any) error {
	if !httputil.LooksLikeJSON(body) {
		return fmt.Errorf("expected JSON object, got %q", httputil.Snippet(body, 120))
	}
	return json.Unmarshal(body, v)
}

// documentRef builds the request's document reference. Images use the
// image_url form; everything else is sent as a document.
func documentRef(documentURL, name string) map[string]any {
	ext := strings.ToLower(path.Ext(name))
	if ext != "" && ext != ".pdf" && slices.Contains(SupportedExtensions, ext) {
		return map[string]any{
			"type":      "image_url",
			"image_url": documentURL,
		}
	}
	doc := map[string]any{
		"type":         "document_url",
		"document_url": documentURL,
	}
	if name != "" {
		doc["document_name"] = path.Base(name)
	}
	return doc
}
