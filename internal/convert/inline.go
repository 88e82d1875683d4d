// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"path/filepath"

	"github.com/pdiddy/ocr2md/pkg/types"
)

// ConvertInline converts data in memory and returns the outcome instead of
// tracking a job. The bytes are staged in a temporary directory that is
// removed before ConvertInline returns. Failures are reported in the result,
// with an error report as Content.
func (o *Orchestrator) ConvertInline(ctx context.Context, data []byte, opts types.Options) types.InlineResult {
	name := filepath.Base(opts.Name)
	if opts.Name == "" || name == "." || name == string(filepath.Separator) {
		name = defaultDocName
	}
	opts.Name = name

	fail := func(meta types.SourceMetadata, err error) types.InlineResult {
		o.logger.Error("inline conversion failed", "name", name, "error", err)
		return types.InlineResult{
			Error:   err.Error(),
			Content: o.renderer.RenderError(meta, opts, err, ""),
		}
	}

	if err := o.configure(opts); err != nil {
		return fail(types.SourceMetadata{FileName: name}, err)
	}

	tempDir, err := o.store.CreateTempDir(tempPrefix)
	if err != nil {
		return fail(types.SourceMetadata{FileName: name}, &ResourceError{Op: "create", Err: err})
	}

	path := filepath.Join(tempDir, name)
	if err := o.store.Write(path, data); err != nil {
		o.release(tempDir)
		return fail(types.SourceMetadata{FileName: name}, err)
	}

	out, err := o.convert(ctx, path, tempDir, opts, func(status types.JobStatus, progress int, msg string) {
		o.logger.Debug("inline conversion", "name", name, "status", status, "progress", progress, "message", msg)
	})
	if err != nil {
		return fail(out.meta, err)
	}

	meta := out.meta
	info := out.result.DocumentInfo
	return types.InlineResult{
		Success:  true,
		Content:  out.content,
		Metadata: &meta,
		OCRInfo:  &info,
	}
}
