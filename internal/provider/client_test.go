// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/ocr2md/pkg/types"
)

const sampleOCRJSON = `{
  "model": "mistral-ocr-2505",
  "pages": [
    {"index": 0, "markdown": "# Title\n\nHello"},
    {"index": 1, "markdown": "World"}
  ],
  "usage_info": {"pages_processed": 2, "doc_size_bytes": 1024}
}`

// fakeAPI records the requests it receives and serves canned responses for
// the upload, signed url, and ocr endpoints.
type fakeAPI struct {
	calls      int32
	ocrStatus  int
	ocrBody    string
	lastOCRReq map[string]any
	uploadName string
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.calls, 1)
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"message":"Unauthorized"}`)
			return
		}

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/files":
			if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
				return
			}
			assert.Equal(t, "ocr", r.FormValue("purpose"))
			_, header, err := r.FormFile("file")
			if !assert.NoError(t, err) {
				return
			}
			f.uploadName = header.Filename
			fmt.Fprint(w, `{"id":"file-123","object":"file","purpose":"ocr"}`)

		case r.Method == http.MethodGet && r.URL.Path == "/files/file-123/url":
			assert.Equal(t, "24", r.URL.Query().Get("expiry"))
			fmt.Fprint(w, `{"url":"https://signed.example/file-123"}`)

		case r.Method == http.MethodPost && r.URL.Path == "/ocr":
			data, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(data, &f.lastOCRReq)
			if f.ocrStatus != 0 {
				w.WriteHeader(f.ocrStatus)
			}
			fmt.Fprint(w, f.ocrBody)

		case r.Method == http.MethodGet && r.URL.Path == "/models":
			fmt.Fprint(w, `{"data":[]}`)

		default:
			http.NotFound(w, r)
		}
	})
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	ts := httptest.NewServer(api.handler(t))
	t.Cleanup(ts.Close)
	return New(types.ProviderConfig{APIKey: "test-key"}, WithBaseURL(ts.URL), WithHTTPClient(ts.Client()))
}

func TestConfigure(t *testing.T) {
	c := New(types.ProviderConfig{})
	assert.False(t, c.IsConfigured())

	c.Configure("  key  ")
	assert.True(t, c.IsConfigured())
	assert.Equal(t, "key", c.credential())

	c.Configure("")
	assert.False(t, c.IsConfigured())
}

func TestProcess(t *testing.T) {
	api := &fakeAPI{ocrBody: sampleOCRJSON}
	c := newTestClient(t, api)

	raw, err := c.Process(context.Background(), []byte("%PDF-1.4"), "scan.pdf", types.Options{})
	require.NoError(t, err)

	obj, ok := raw.(map[string]any)
	require.True(t, ok, "expected object response, got %T", raw)
	pages, ok := obj["pages"].([]any)
	require.True(t, ok)
	assert.Len(t, pages, 2)

	assert.Equal(t, "scan.pdf", api.uploadName)
	assert.Equal(t, "mistral-ocr-latest", api.lastOCRReq["model"])
	doc, ok := api.lastOCRReq["document"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "document_url", doc["type"])
	assert.Equal(t, "https://signed.example/file-123", doc["document_url"])
	assert.Equal(t, int32(3), atomic.LoadInt32(&api.calls))
}

func TestProcess_PerCallCredential(t *testing.T) {
	api := &fakeAPI{ocrBody: sampleOCRJSON}
	ts := httptest.NewServer(api.handler(t))
	defer ts.Close()
	c := New(types.ProviderConfig{APIKey: "other-key"}, WithBaseURL(ts.URL), WithHTTPClient(ts.Client()))

	_, err := c.Process(context.Background(), []byte("%PDF-1.4"), "scan.pdf", types.Options{Credential: "test-key"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&api.calls), "upload, signed url and ocr all use the per-call key")
	assert.Equal(t, "other-key", c.credential())

	_, err = c.Process(context.Background(), []byte("%PDF-1.4"), "scan.pdf", types.Options{})
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
}

func TestSubmit_ImageAndPassThrough(t *testing.T) {
	api := &fakeAPI{ocrBody: sampleOCRJSON}
	c := newTestClient(t, api)

	_, err := c.Submit(context.Background(), "https://signed.example/x", types.Options{
		Name:  "photo.PNG",
		Model: "custom-ocr",
		Extra: map[string]any{"pages": []int{0}, "model": "ignored"},
	})
	require.NoError(t, err)

	assert.Equal(t, "custom-ocr", api.lastOCRReq["model"])
	doc := api.lastOCRReq["document"].(map[string]any)
	assert.Equal(t, "image_url", doc["type"])
	assert.Equal(t, "https://signed.example/x", doc["image_url"])
	assert.Contains(t, api.lastOCRReq, "pages")
}

func TestSubmit_PlainTextSuccessBody(t *testing.T) {
	api := &fakeAPI{ocrBody: "just text"}
	c := newTestClient(t, api)

	raw, err := c.Submit(context.Background(), "u", types.Options{})
	require.NoError(t, err)
	assert.Equal(t, "just text", raw)
}

func TestSubmit_ErrorClassification(t *testing.T) {
	tests := []struct {
		name            string
		status          int
		body            string
		wantUnavailable bool
		wantContains    []string
	}{
		{
			name:            "server error gets guidance",
			status:          http.StatusInternalServerError,
			body:            `{"message":"internal failure"}`,
			wantUnavailable: true,
			wantContains:    []string{"500", "internal failure", "50 MB", "rate limiting"},
		},
		{
			name:            "plain text gateway page",
			status:          http.StatusBadGateway,
			body:            "Bad Gateway",
			wantUnavailable: true,
			wantContains:    []string{"502", "Bad Gateway"},
		},
		{
			name:         "client error surfaced verbatim",
			status:       http.StatusBadRequest,
			body:         `{"detail":[{"msg":"document_url is invalid"}]}`,
			wantContains: []string{"400", "document_url is invalid"},
		},
		{
			name:         "nested error object",
			status:       http.StatusUnprocessableEntity,
			body:         `{"error":{"message":"file too large"}}`,
			wantContains: []string{"422", "file too large"},
		},
		{
			name:         "empty body uses status text",
			status:       http.StatusForbidden,
			body:         "",
			wantContains: []string{"403", "Forbidden"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{ocrStatus: tt.status, ocrBody: tt.body}
			c := newTestClient(t, api)

			_, err := c.Submit(context.Background(), "u", types.Options{})
			require.Error(t, err)

			var pe *ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.status, pe.StatusCode)
			assert.Equal(t, tt.wantUnavailable, IsUnavailable(err))
			for _, want := range tt.wantContains {
				assert.Contains(t, err.Error(), want)
			}
			if !tt.wantUnavailable {
				assert.NotContains(t, err.Error(), "temporarily unavailable")
			}
		})
	}
}

func TestNotConfigured(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer ts.Close()

	c := New(types.ProviderConfig{}, WithBaseURL(ts.URL))
	ctx := context.Background()

	_, err := c.Upload(ctx, []byte("x"), "a.pdf")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = c.SignedURL(ctx, "id")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = c.Submit(ctx, "u", types.Options{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = c.Process(ctx, []byte("x"), "a.pdf", types.Options{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	res := c.Validate(ctx)
	assert.False(t, res.Valid)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestValidate(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	res := c.Validate(context.Background())
	assert.True(t, res.Valid)
	assert.Empty(t, res.Error)

	c.Configure("wrong-key")
	res = c.Validate(context.Background())
	assert.False(t, res.Valid)
	assert.Equal(t, "Unauthorized", res.Error)
}

func TestUpload_MissingID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"object":"file"}`)
	}))
	defer ts.Close()

	c := New(types.ProviderConfig{APIKey: "k"}, WithBaseURL(ts.URL+"/"))
	_, err := c.Upload(context.Background(), []byte("x"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file id")
}

func TestSignedURL_NonJSONBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html>ok</html>")
	}))
	defer ts.Close()

	c := New(types.ProviderConfig{APIKey: "k"}, WithBaseURL(ts.URL))
	_, err := c.SignedURL(context.Background(), "f")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "expected JSON"))
}

func TestContextCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()

	c := New(types.ProviderConfig{APIKey: "k"}, WithBaseURL(ts.URL))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Submit(ctx, "u", types.Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
