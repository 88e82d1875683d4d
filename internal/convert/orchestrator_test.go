// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/ocr2md/internal/provider"
	"github.com/pdiddy/ocr2md/internal/storage"
	"github.com/pdiddy/ocr2md/pkg/types"
)

// fakeProvider implements Provider with a canned response or a custom
// process function.
type fakeProvider struct {
	mu      sync.Mutex
	key     string
	raw     any
	err     error
	process func(ctx context.Context) (any, error)
	calls   int32
	names   []string
	creds   []string
}

func (f *fakeProvider) Configure(credential string) {
	f.mu.Lock()
	f.key = credential
	f.mu.Unlock()
}

func (f *fakeProvider) IsConfigured() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.key != ""
}

func (f *fakeProvider) Validate(context.Context) types.ValidationResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.key == "good" {
		return types.ValidationResult{Valid: true}
	}
	return types.ValidationResult{Error: "Unauthorized"}
}

func (f *fakeProvider) Process(ctx context.Context, _ []byte, name string, opts types.Options) (any, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.names = append(f.names, name)
	cred := opts.Credential
	if cred == "" {
		cred = f.key
	}
	f.creds = append(f.creds, cred)
	f.mu.Unlock()
	if f.process != nil {
		return f.process(ctx)
	}
	return f.raw, f.err
}

// gatedExtractor blocks every Extract until gate is closed.
type gatedExtractor struct {
	gate    chan struct{}
	entered chan struct{}
}

func (g gatedExtractor) Extract(ctx context.Context, path string) (types.SourceMetadata, error) {
	g.entered <- struct{}{}
	<-g.gate
	return types.SourceMetadata{FileName: filepath.Base(path)}, nil
}

// failingRemove is a ByteStore whose Remove always fails.
type failingRemove struct {
	storage.FS
}

func (failingRemove) Remove(string) error { return errors.New("disk on fire") }

type fakeRecorder struct {
	mu   sync.Mutex
	jobs []types.ConversionJob
	size []int64
}

func (r *fakeRecorder) Record(_ context.Context, job types.ConversionJob, size int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	r.size = append(r.size, size)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestOrchestrator returns an orchestrator whose temp dirs live under the
// returned root.
func newTestOrchestrator(t *testing.T, p Provider, opts ...Option) (*Orchestrator, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "tmp")
	o := New(Deps{
		Provider: p,
		Store:    storage.FS{Root: root},
		Logger:   quietLogger(),
	}, opts...)
	return o, root
}

func writeSource(t *testing.T, name string, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

// drain collects every event until the channel closes.
func drain(t *testing.T, events <-chan types.ProgressEvent) []types.ProgressEvent {
	t.Helper()
	var got []types.ProgressEvent
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatal("timed out waiting for progress events")
		}
	}
}

func assertEmptyDir(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary directories left behind")
}

func TestStart_CompletesTwoPageDocument(t *testing.T) {
	p := &fakeProvider{key: "k", raw: map[string]any{
		"pages": []any{
			map[string]any{"page_number": 1.0, "text": "Hello"},
			map[string]any{"page_number": 2.0, "text": ""},
		},
	}}
	o, root := newTestOrchestrator(t, p)
	src := writeSource(t, "two-page.png", "image bytes")

	id, events, err := o.Start(context.Background(), src, types.Options{})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got := drain(t, events)
	require.NotEmpty(t, got)

	assert.Equal(t, types.StatusStarting, got[0].Status)
	last := got[len(got)-1]
	assert.Equal(t, types.StatusCompleted, last.Status)
	assert.Equal(t, 100, last.Progress)
	assert.Contains(t, last.Content, "Hello")
	assert.Equal(t, 1, strings.Count(last.Content, "[Page "))
	assert.Contains(t, last.Content, "[Page 1]")

	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i].Progress, got[i-1].Progress, "progress went backwards at event %d", i)
		assert.Equal(t, id, got[i].JobID)
	}

	job, ok := o.Job(id)
	require.True(t, ok)
	assert.Equal(t, types.StatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.Result)
	assert.Equal(t, last.Content, *job.Result)
	assert.Empty(t, job.TempDir)
	assert.Equal(t, []string{"two-page.png"}, p.names)

	assertEmptyDir(t, root)
}

func TestStart_ProviderServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/files":
			fmt.Fprint(w, `{"id":"f1"}`)
		case r.URL.Path == "/files/f1/url":
			fmt.Fprint(w, `{"url":"https://signed.example/f1"}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"message":"boom"}`)
		}
	}))
	defer ts.Close()

	client := provider.New(types.ProviderConfig{APIKey: "k"}, provider.WithBaseURL(ts.URL), provider.WithHTTPClient(ts.Client()))
	rec := &fakeRecorder{}
	root := filepath.Join(t.TempDir(), "tmp")
	o := New(Deps{Provider: client, Store: storage.FS{Root: root}, Recorder: rec, Logger: quietLogger()})
	src := writeSource(t, "scan.pdf", "%PDF-1.4 not really")

	id, events, err := o.Start(context.Background(), src, types.Options{})
	require.NoError(t, err)

	got := drain(t, events)
	last := got[len(got)-1]
	assert.Equal(t, types.StatusFailed, last.Status)
	assert.Contains(t, last.Error, "500")
	assert.Contains(t, last.Content, "## Conversion Error")

	job, ok := o.Job(id)
	require.True(t, ok)
	assert.Equal(t, types.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "500")
	assert.Nil(t, job.Result)

	assertEmptyDir(t, root)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.jobs, 1)
	assert.Equal(t, types.StatusFailed, rec.jobs[0].Status)
	assert.Equal(t, int64(len("%PDF-1.4 not really")), rec.size[0])
}

func TestStart_NotConfigured(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer ts.Close()

	client := provider.New(types.ProviderConfig{}, provider.WithBaseURL(ts.URL))
	o, root := newTestOrchestrator(t, client)

	id, events, err := o.Start(context.Background(), "/does/not/matter.pdf", types.Options{})
	require.Error(t, err)

	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
	assert.ErrorIs(t, err, provider.ErrNotConfigured)
	assert.Empty(t, id)
	assert.Nil(t, events)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	assert.Empty(t, o.Jobs())

	_, statErr := os.Stat(root)
	assert.True(t, os.IsNotExist(statErr), "no temp root should have been created")
}

func TestStart_CredentialOption(t *testing.T) {
	p := &fakeProvider{raw: "text"}
	o, _ := newTestOrchestrator(t, p)
	src := writeSource(t, "a.png", "x")

	_, events, err := o.Start(context.Background(), src, types.Options{Credential: "from-options"})
	require.NoError(t, err)
	drain(t, events)
	assert.Equal(t, []string{"from-options"}, p.creds)
	assert.Empty(t, p.key, "a per-job credential must not replace the configured one")
}

func TestStart_PerJobCredentialsDoNotLeak(t *testing.T) {
	p := &fakeProvider{key: "configured", raw: map[string]any{"content": "ok"}}
	gate := gatedExtractor{gate: make(chan struct{}), entered: make(chan struct{}, 3)}
	o := New(Deps{
		Provider: p,
		Metadata: gate,
		Store:    storage.FS{Root: filepath.Join(t.TempDir(), "tmp")},
		Logger:   quietLogger(),
	})

	idA, _, err := o.Start(context.Background(), writeSource(t, "a.png", "x"), types.Options{Credential: "key-A"})
	require.NoError(t, err)
	idB, _, err := o.Start(context.Background(), writeSource(t, "b.png", "x"), types.Options{Credential: "key-B"})
	require.NoError(t, err)
	idC, _, err := o.Start(context.Background(), writeSource(t, "c.png", "x"), types.Options{})
	require.NoError(t, err)
	for range 3 {
		<-gate.entered
	}
	close(gate.gate)
	o.Wait()

	byName := map[string]string{}
	p.mu.Lock()
	for i, name := range p.names {
		byName[name] = p.creds[i]
	}
	p.mu.Unlock()
	assert.Equal(t, map[string]string{"a.png": "key-A", "b.png": "key-B", "c.png": "configured"}, byName)
	assert.Equal(t, "configured", p.key)

	for _, id := range []types.JobID{idA, idB, idC} {
		job, ok := o.Job(id)
		require.True(t, ok)
		assert.Equal(t, types.StatusCompleted, job.Status)
	}
}

func TestStart_MissingSource(t *testing.T) {
	p := &fakeProvider{key: "k", raw: "text"}
	o, root := newTestOrchestrator(t, p)

	_, events, err := o.Start(context.Background(), filepath.Join(t.TempDir(), "gone.pdf"), types.Options{})
	require.NoError(t, err)

	got := drain(t, events)
	last := got[len(got)-1]
	assert.Equal(t, types.StatusFailed, last.Status)
	assert.Contains(t, last.Error, "extracting metadata")
	assert.Equal(t, int32(0), atomic.LoadInt32(&p.calls))
	assertEmptyDir(t, root)
}

func TestStart_ProviderPanics(t *testing.T) {
	p := &fakeProvider{key: "k", process: func(context.Context) (any, error) { panic("provider exploded") }}
	o, root := newTestOrchestrator(t, p)
	src := writeSource(t, "a.png", "x")

	id, events, err := o.Start(context.Background(), src, types.Options{})
	require.NoError(t, err)
	drain(t, events)

	job, _ := o.Job(id)
	assert.Equal(t, types.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "provider exploded")
	assertEmptyDir(t, root)
}

func TestStart_ReleaseFailureDoesNotFailJob(t *testing.T) {
	p := &fakeProvider{key: "k", raw: map[string]any{"content": "ok"}}
	root := filepath.Join(t.TempDir(), "tmp")
	o := New(Deps{Provider: p, Store: failingRemove{storage.FS{Root: root}}, Logger: quietLogger()})
	src := writeSource(t, "a.png", "x")

	id, events, err := o.Start(context.Background(), src, types.Options{})
	require.NoError(t, err)
	drain(t, events)

	job, _ := o.Job(id)
	assert.Equal(t, types.StatusCompleted, job.Status)
}

func TestStart_DroppedConsumer(t *testing.T) {
	p := &fakeProvider{key: "k", raw: map[string]any{"content": "ok"}}
	o, _ := newTestOrchestrator(t, p)
	src := writeSource(t, "a.png", "x")

	id, _, err := o.Start(context.Background(), src, types.Options{})
	require.NoError(t, err)

	o.Wait()
	job, ok := o.Job(id)
	require.True(t, ok)
	assert.Equal(t, types.StatusCompleted, job.Status)
}

func TestStart_ConcurrentJobs(t *testing.T) {
	p := &fakeProvider{key: "k", raw: map[string]any{"content": "ok"}}
	o, root := newTestOrchestrator(t, p)

	var ids []types.JobID
	for i := range 8 {
		src := writeSource(t, fmt.Sprintf("doc-%d.png", i), "x")
		id, _, err := o.Start(context.Background(), src, types.Options{})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	o.Wait()

	assert.Len(t, o.Jobs(), 8)
	for _, id := range ids {
		job, ok := o.Job(id)
		require.True(t, ok)
		assert.Equal(t, types.StatusCompleted, job.Status)
	}
	assertEmptyDir(t, root)
}

func TestCancel(t *testing.T) {
	entered := make(chan struct{})
	p := &fakeProvider{key: "k", process: func(ctx context.Context) (any, error) {
		close(entered)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	o, root := newTestOrchestrator(t, p)
	src := writeSource(t, "slow.png", "x")

	id, events, err := o.Start(context.Background(), src, types.Options{})
	require.NoError(t, err)

	<-entered
	require.NoError(t, o.Cancel(id))

	got := drain(t, events)
	last := got[len(got)-1]
	assert.Equal(t, types.StatusFailed, last.Status)
	assert.Equal(t, ErrCancelled.Error(), last.Error)
	assertEmptyDir(t, root)

	assert.ErrorIs(t, o.Cancel(id), ErrUnknownJob)
	assert.ErrorIs(t, o.Cancel("nope"), ErrUnknownJob)
}

func TestCancel_TerminalJobBeforeCleanup(t *testing.T) {
	p := &fakeProvider{key: "k", raw: map[string]any{"content": "ok"}}
	o, _ := newTestOrchestrator(t, p)

	id, events, err := o.Start(context.Background(), writeSource(t, "a.png", "x"), types.Options{})
	require.NoError(t, err)
	drain(t, events)
	o.Wait()

	// Re-register a cancel func as if the run goroutine had not cleaned up yet.
	cancelled := false
	o.mu.Lock()
	o.cancels[id] = func() { cancelled = true }
	o.mu.Unlock()

	assert.ErrorIs(t, o.Cancel(id), ErrUnknownJob)
	assert.False(t, cancelled)
	job, _ := o.Job(id)
	assert.Equal(t, types.StatusCompleted, job.Status)
}

func TestStart_CallerContextDoesNotCancelJob(t *testing.T) {
	p := &fakeProvider{key: "k", raw: map[string]any{"content": "ok"}}
	o, _ := newTestOrchestrator(t, p)
	src := writeSource(t, "a.png", "x")

	ctx, cancel := context.WithCancel(context.Background())
	_, events, err := o.Start(ctx, src, types.Options{})
	require.NoError(t, err)
	cancel()

	got := drain(t, events)
	assert.Equal(t, types.StatusCompleted, got[len(got)-1].Status)
}

func TestConvertInline_SingleContentField(t *testing.T) {
	p := &fakeProvider{key: "k", raw: map[string]any{"content": "Inline body", "model": "mistral-ocr-2505"}}
	o, root := newTestOrchestrator(t, p)

	res := o.ConvertInline(context.Background(), []byte("image bytes"), types.Options{Name: "photo.png"})
	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Content, "Inline body")
	assert.Equal(t, 1, strings.Count(res.Content, "[Page "))
	require.NotNil(t, res.Metadata)
	assert.Equal(t, "photo.png", res.Metadata.FileName)
	assert.Equal(t, int64(len("image bytes")), res.Metadata.FileSize)
	require.NotNil(t, res.OCRInfo)
	assert.Equal(t, "mistral-ocr-2505", res.OCRInfo.Model)
	assert.Empty(t, res.Error)
	assert.Empty(t, o.Jobs(), "inline conversions are not tracked as jobs")

	assertEmptyDir(t, root)
}

func TestConvertInline_Failure(t *testing.T) {
	p := &fakeProvider{key: "k", err: errors.New("ocr failed with HTTP 400: bad document")}
	o, root := newTestOrchestrator(t, p)

	res := o.ConvertInline(context.Background(), []byte("x"), types.Options{})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "bad document")
	assert.Contains(t, res.Content, "## Conversion Error")
	assert.Contains(t, res.Content, "bad document")
	assert.Equal(t, []string{defaultDocName}, p.names)

	assertEmptyDir(t, root)
}

func TestConvertInline_NotConfigured(t *testing.T) {
	p := &fakeProvider{}
	o, root := newTestOrchestrator(t, p)

	res := o.ConvertInline(context.Background(), []byte("x"), types.Options{Name: "a.pdf"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "not configured")
	assert.Contains(t, res.Content, "# a")
	assert.Equal(t, int32(0), atomic.LoadInt32(&p.calls))

	_, err := os.Stat(root)
	assert.True(t, os.IsNotExist(err))
}

func TestCheckCredential(t *testing.T) {
	p := &fakeProvider{key: "bad"}
	o, _ := newTestOrchestrator(t, p)

	res := o.CheckCredential(context.Background(), "")
	assert.False(t, res.Valid)
	assert.Equal(t, "Unauthorized", res.Error)

	res = o.CheckCredential(context.Background(), "good")
	assert.True(t, res.Valid)
	assert.Equal(t, "good", p.key)
}

func TestNew_WithoutProvider(t *testing.T) {
	o := New(Deps{Logger: quietLogger()})
	_, _, err := o.Start(context.Background(), "x", types.Options{})
	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestSendTerminal_FullChannel(t *testing.T) {
	events := make(chan types.ProgressEvent, 1)
	send(events, types.ProgressEvent{Message: "first"})
	send(events, types.ProgressEvent{Message: "dropped"})

	done := make(chan struct{})
	go func() {
		defer close(done)
		sendTerminal(events, types.ProgressEvent{Status: types.StatusCompleted})
	}()

	first := <-events
	<-done
	final := <-events
	assert.Equal(t, "first", first.Message)
	assert.Equal(t, types.StatusCompleted, final.Status)
}
