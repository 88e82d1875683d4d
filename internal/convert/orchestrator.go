// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert drives conversions end to end. For each job it extracts
// source metadata, submits the document to the OCR provider, normalizes the
// response, and renders Markdown, tracking progress in a JobStore and
// reporting it on a per-job channel.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/ocr2md/internal/metadata"
	"github.com/pdiddy/ocr2md/internal/normalize"
	"github.com/pdiddy/ocr2md/internal/provider"
	"github.com/pdiddy/ocr2md/internal/render"
	"github.com/pdiddy/ocr2md/internal/storage"
	"github.com/pdiddy/ocr2md/pkg/types"
)

const (
	tempPrefix     = "ocr2md-"
	eventBuffer    = 16
	terminalGrace  = time.Second
	defaultDocName = "document.pdf"
)

// Provider is the OCR service the orchestrator submits documents to.
// Process must prefer opts.Credential over the configured key.
type Provider interface {
	Configure(credential string)
	IsConfigured() bool
	Validate(ctx context.Context) types.ValidationResult
	Process(ctx context.Context, data []byte, name string, opts types.Options) (any, error)
}

// Extractor reports metadata for a source file.
type Extractor interface {
	Extract(ctx context.Context, path string) (types.SourceMetadata, error)
}

// ByteStore reads sources and manages temporary directories.
type ByteStore interface {
	CreateTempDir(prefix string) (string, error)
	Read(path string) ([]byte, error)
	Write(path string, data []byte) error
	Remove(path string) error
}

// Recorder persists finished jobs.
type Recorder interface {
	Record(ctx context.Context, job types.ConversionJob, bytes int64) error
}

// Deps are the collaborators an Orchestrator composes. Provider is required;
// the rest default to the local filesystem, the PDF-aware extractor, no
// history, and slog.Default.
type Deps struct {
	Provider Provider
	Metadata Extractor
	Store    ByteStore
	Recorder Recorder
	Logger   *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRenderer replaces the document renderer.
func WithRenderer(r *render.Renderer) Option {
	return func(o *Orchestrator) { o.renderer = r }
}

// WithJobStore replaces the job store.
func WithJobStore(s *JobStore) Option {
	return func(o *Orchestrator) { o.jobs = s }
}

// WithClock sets the time source used for job timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator runs conversions and tracks their jobs.
type Orchestrator struct {
	provider Provider
	meta     Extractor
	store    ByteStore
	recorder Recorder
	logger   *slog.Logger
	renderer *render.Renderer
	jobs     *JobStore
	now      func() time.Time

	mu      sync.Mutex
	cancels map[types.JobID]context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an Orchestrator from deps.
func New(deps Deps, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider: deps.Provider,
		meta:     deps.Metadata,
		store:    deps.Store,
		recorder: deps.Recorder,
		logger:   deps.Logger,
		now:      time.Now,
		cancels:  make(map[types.JobID]context.CancelFunc),
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.meta == nil {
		o.meta = metadata.NewExtractor(o.logger)
	}
	if o.store == nil {
		o.store = storage.FS{}
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.jobs == nil {
		o.jobs = NewJobStore(DefaultMaxFinishedJobs)
		o.jobs.now = o.now
	}
	if o.renderer == nil {
		o.renderer = &render.Renderer{Logger: o.logger}
	}
	return o
}

// Start registers a conversion of sourcePath and runs it in the background.
// It returns the job ID and a channel of progress events that is closed
// after the terminal event. Consumers may stop reading at any time; events
// they miss are dropped.
//
// opts.Credential, when set, is used for this job only. If neither it nor a
// configured credential is present Start returns a *ConfigurationError and
// performs no I/O.
func (o *Orchestrator) Start(ctx context.Context, sourcePath string, opts types.Options) (types.JobID, <-chan types.ProgressEvent, error) {
	if err := o.configure(opts); err != nil {
		return "", nil, err
	}

	tempDir, err := o.store.CreateTempDir(tempPrefix)
	if err != nil {
		return "", nil, &ResourceError{Op: "create", Err: err}
	}

	now := o.now().UTC()
	job := &types.ConversionJob{
		ID:         types.JobID(uuid.NewString()),
		Status:     types.StatusStarting,
		SourcePath: sourcePath,
		TempDir:    tempDir,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	o.jobs.Add(job)

	// The job outlives the call; only Cancel stops it.
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	o.mu.Lock()
	o.cancels[job.ID] = cancel
	o.mu.Unlock()

	events := make(chan types.ProgressEvent, eventBuffer)
	send(events, types.ProgressEvent{JobID: job.ID, Status: types.StatusStarting, Message: "Conversion started"})

	o.logger.Info("conversion started", "job", job.ID, "source", sourcePath)

	o.wg.Add(1)
	go o.run(jobCtx, job.ID, sourcePath, tempDir, opts, events)

	return job.ID, events, nil
}

// Cancel stops an in-flight job. The job ends failed with ErrCancelled once
// its current stage observes the cancellation.
func (o *Orchestrator) Cancel(id types.JobID) error {
	o.mu.Lock()
	cancel, ok := o.cancels[id]
	o.mu.Unlock()
	if ok {
		// The cancel func outlives the terminal transition briefly.
		if job, found := o.jobs.Get(id); !found || job.Status.Terminal() {
			ok = false
		}
	}
	if !ok {
		return fmt.Errorf("%w: %s is not running", ErrUnknownJob, id)
	}
	cancel()
	return nil
}

// Job returns a snapshot of the job with id.
func (o *Orchestrator) Job(id types.JobID) (*types.ConversionJob, bool) {
	return o.jobs.Get(id)
}

// Jobs returns snapshots of every retained job, oldest first.
func (o *Orchestrator) Jobs() []*types.ConversionJob {
	return o.jobs.List()
}

// Wait blocks until every started job has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// CheckCredential validates candidate, or the configured credential when
// candidate is empty. A non-empty candidate replaces the configured one.
func (o *Orchestrator) CheckCredential(ctx context.Context, candidate string) types.ValidationResult {
	if candidate != "" {
		o.provider.Configure(candidate)
	}
	return o.provider.Validate(ctx)
}

func (o *Orchestrator) configure(opts types.Options) error {
	if o.provider == nil {
		return &ConfigurationError{Err: errors.New("no OCR provider")}
	}
	if strings.TrimSpace(opts.Credential) == "" && !o.provider.IsConfigured() {
		return &ConfigurationError{Err: provider.ErrNotConfigured}
	}
	return nil
}

// run executes the pipeline for one job and publishes its terminal state.
func (o *Orchestrator) run(ctx context.Context, id types.JobID, sourcePath, tempDir string, opts types.Options, events chan types.ProgressEvent) {
	defer o.wg.Done()
	defer close(events)
	defer func() {
		o.mu.Lock()
		if cancel, ok := o.cancels[id]; ok {
			cancel()
			delete(o.cancels, id)
		}
		o.mu.Unlock()
	}()

	step := func(status types.JobStatus, progress int, msg string) {
		job, err := o.jobs.Advance(id, status, progress, nil)
		if err != nil {
			o.logger.Error("advancing job", "job", id, "error", err)
			return
		}
		send(events, types.ProgressEvent{JobID: id, Status: job.Status, Progress: job.Progress, Message: msg})
	}

	out, err := o.convert(ctx, sourcePath, tempDir, opts, step)

	var terminal types.ProgressEvent
	var job *types.ConversionJob
	if err != nil {
		msg := err.Error()
		job, _ = o.jobs.Advance(id, types.StatusFailed, 0, func(j *types.ConversionJob) {
			j.Error = msg
			j.TempDir = ""
		})
		terminal = types.ProgressEvent{
			JobID:   id,
			Status:  types.StatusFailed,
			Message: "Conversion failed",
			Error:   msg,
			Content: o.renderer.RenderError(out.meta, opts, err, ""),
		}
		o.logger.Error("conversion failed", "job", id, "source", sourcePath, "error", err)
	} else {
		content := out.content
		job, _ = o.jobs.Advance(id, types.StatusCompleted, 100, func(j *types.ConversionJob) {
			j.Result = &content
			j.TempDir = ""
		})
		terminal = types.ProgressEvent{
			JobID:    id,
			Status:   types.StatusCompleted,
			Progress: 100,
			Message:  "Conversion complete",
			Content:  content,
		}
		o.logger.Info("conversion completed", "job", id, "source", sourcePath, "pages", len(out.result.Pages))
	}
	if job != nil {
		terminal.Progress = job.Progress
		o.record(*job, out.size)
	}
	sendTerminal(events, terminal)
}

// outcome carries what the pipeline produced, including partial results
// from before a failure.
type outcome struct {
	meta    types.SourceMetadata
	result  types.OCRResult
	content string
	size    int64
}

type stepFunc func(status types.JobStatus, progress int, msg string)

// convert runs the stages for the source at path. tempDir is released on
// every exit path before convert returns. A panic in any stage becomes an
// error.
func (o *Orchestrator) convert(ctx context.Context, path, tempDir string, opts types.Options, step stepFunc) (out outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("conversion panicked: %v", r)
		}
		if err != nil && ctx.Err() != nil {
			err = ErrCancelled
		}
	}()
	defer o.release(tempDir)

	step(types.StatusExtractingMetadata, 10, "Extracting metadata")
	if out.meta, err = o.meta.Extract(ctx, path); err != nil {
		return out, fmt.Errorf("extracting metadata: %w", err)
	}

	step(types.StatusProcessingOCR, 20, "Reading document")
	if err = ctx.Err(); err != nil {
		return out, err
	}
	data, err := o.store.Read(path)
	if err != nil {
		return out, fmt.Errorf("reading source: %w", err)
	}
	out.size = int64(len(data))

	name := opts.Name
	if name == "" {
		name = filepath.Base(path)
	}

	step(types.StatusProcessingOCR, 30, "Submitting to OCR provider")
	raw, err := o.provider.Process(ctx, data, name, opts)
	if err != nil {
		return out, err
	}
	step(types.StatusProcessingOCR, 60, "OCR complete")

	step(types.StatusProcessingResults, 70, "Processing OCR results")
	if err = ctx.Err(); err != nil {
		return out, err
	}
	out.result = normalize.Normalize(raw)
	if opts.Language != "" && out.result.DocumentInfo.Language == "" {
		out.result.DocumentInfo.Language = opts.Language
	}

	step(types.StatusGeneratingMarkdown, 90, "Generating Markdown")
	if err = ctx.Err(); err != nil {
		return out, err
	}
	out.content = o.renderer.Render(out.meta, out.result, opts)
	return out, nil
}

// release removes a temporary directory. Failures are logged only.
func (o *Orchestrator) release(dir string) {
	if dir == "" {
		return
	}
	if err := o.store.Remove(dir); err != nil {
		o.logger.Warn("releasing temp dir", "error", &ResourceError{Op: "remove", Path: dir, Err: err})
	}
}

func (o *Orchestrator) record(job types.ConversionJob, size int64) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.Record(context.Background(), job, size); err != nil {
		o.logger.Warn("recording conversion history", "job", job.ID, "error", err)
	}
}

// send delivers ev if the channel has room.
func send(events chan<- types.ProgressEvent, ev types.ProgressEvent) {
	select {
	case events <- ev:
	default:
	}
}

// sendTerminal waits briefly for room so a slow consumer still sees the
// final event.
func sendTerminal(events chan<- types.ProgressEvent, ev types.ProgressEvent) {
	select {
	case events <- ev:
		return
	default:
	}
	t := time.NewTimer(terminalGrace)
	defer t.Stop()
	select {
	case events <- ev:
	case <-t.C:
	}
}
