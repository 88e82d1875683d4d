// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/ocr2md/pkg/types"
)

// FileStatus is the outcome of converting one file in a batch.
type FileStatus int

const (
	FileConverted FileStatus = iota
	FileSkipped
	FileFailed
)

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Skipped   int
	Failed    int
}

// Total returns the number of files processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any file failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// OutputPath returns where the Markdown for sourcePath is written.
func OutputPath(sourcePath, outDir string) string {
	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	if outDir == "" {
		outDir = filepath.Dir(sourcePath)
	}
	return filepath.Join(outDir, base+".md")
}

// ConvertFile converts one file and writes its Markdown next to the source,
// or into outDir when set. Existing output is left alone. A failed
// conversion writes its error report to <name>.error.md. Per-file status is
// printed to w; progress goes to the logger.
func (o *Orchestrator) ConvertFile(ctx context.Context, sourcePath, outDir string, opts types.Options, w io.Writer) FileStatus {
	mdPath := OutputPath(sourcePath, outDir)
	base := filepath.Base(mdPath)

	if _, err := os.Stat(mdPath); err == nil {
		fmt.Fprintf(w, "skipped: %s (already exists)\n", base)
		return FileSkipped
	}

	id, events, err := o.Start(ctx, sourcePath, opts)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
		return FileFailed
	}

	var final types.ProgressEvent
	done := ctx.Done()
	for ev := range events {
		if ev.Status.Terminal() {
			final = ev
		} else {
			o.logger.Info("progress", "file", filepath.Base(sourcePath), "status", ev.Status, "percent", ev.Progress, "message", ev.Message)
		}
		select {
		case <-done:
			_ = o.Cancel(id)
			done = nil
		default:
		}
	}

	if final.Status != types.StatusCompleted {
		msg := final.Error
		if msg == "" {
			msg = "no result received"
		}
		if final.Content != "" {
			errPath := strings.TrimSuffix(mdPath, ".md") + ".error.md"
			if err := o.store.Write(errPath, []byte(final.Content)); err != nil {
				o.logger.Warn("writing error report", "path", errPath, "error", err)
			}
		}
		fmt.Fprintf(w, "failed:  %s (%s)\n", base, msg)
		return FileFailed
	}

	if err := o.store.Write(mdPath, []byte(final.Content)); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
		return FileFailed
	}

	fmt.Fprintf(w, "converted: %s\n", base)
	return FileConverted
}

// ConvertBatch converts paths with up to concurrency conversions in flight,
// printing per-file status to w and returning a summary.
func (o *Orchestrator) ConvertBatch(ctx context.Context, paths []string, outDir string, opts types.Options, concurrency int, w io.Writer) BatchResult {
	if concurrency <= 0 {
		concurrency = 1
	}

	var (
		mu     sync.Mutex
		result BatchResult
	)
	out := &lockedWriter{w: w}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, p := range paths {
		g.Go(func() error {
			status := o.ConvertFile(gctx, p, outDir, opts, out)
			mu.Lock()
			defer mu.Unlock()
			switch status {
			case FileConverted:
				result.Converted++
			case FileSkipped:
				result.Skipped++
			case FileFailed:
				result.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Total())
	return result
}

// lockedWriter serializes writes from concurrent conversions.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
