// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render turns source metadata and a normalized OCR result into a
// Markdown document with YAML frontmatter. Rendering never fails: a broken
// section is dropped, and a failure of the whole document produces an error
// report instead.
package render

import (
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pdiddy/ocr2md/pkg/types"
)

const (
	converterName   = "ocr2md"
	documentType    = "ocr-document"
	untitled        = "Untitled Document"
	noTextSentence  = "No text content could be extracted from this document."
	timestampLayout = time.RFC3339
)

// Renderer builds Markdown documents. The zero value is ready to use.
type Renderer struct {
	// Now supplies the conversion timestamp. Defaults to time.Now.
	Now func() time.Time

	// Logger receives section failures. Defaults to slog.Default.
	Logger *slog.Logger
}

var defaultRenderer = &Renderer{}

// Render builds a document with the default renderer.
func Render(meta types.SourceMetadata, result types.OCRResult, opts types.Options) string {
	return defaultRenderer.Render(meta, result, opts)
}

// RenderError builds an error report with the default renderer.
func RenderError(meta types.SourceMetadata, opts types.Options, err error, salvaged string) string {
	return defaultRenderer.RenderError(meta, opts, err, salvaged)
}

// Render builds the Markdown document for result. The output is identical
// for identical inputs apart from the converted timestamp.
func (r *Renderer) Render(meta types.SourceMetadata, result types.OCRResult, opts types.Options) (doc string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger().Error("rendering document", "error", rec)
			doc = r.RenderError(meta, opts, fmt.Errorf("%v", rec), salvage(result))
		}
	}()

	title := Title(meta, opts)

	var b strings.Builder
	b.WriteString(r.section("frontmatter", func() string { return r.frontmatter(title, meta, result, opts) }))
	b.WriteString("\n# " + title + "\n\n")

	for _, s := range []struct {
		name  string
		build func() string
	}{
		{"document information", func() string { return metadataTable(meta, result).String() }},
		{"ocr processing", func() string { return processingTable(result.DocumentInfo).String() }},
		{"content", func() string { return content(result) }},
	} {
		if out := r.section(s.name, s.build); out != "" {
			b.WriteString(out)
			b.WriteString("\n")
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// section runs build and swallows a panic, reporting the section as empty.
func (r *Renderer) section(name string, build func() string) (out string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger().Warn("skipping section", "section", name, "error", rec)
			out = ""
		}
	}()
	return build()
}

func (r *Renderer) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Renderer) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Renderer) frontmatter(title string, meta types.SourceMetadata, result types.OCRResult, opts types.Options) string {
	fm := newFrontmatter()
	fm.str("title", title)
	fm.str("converted", r.now().UTC().Format(timestampLayout))
	fm.str("type", documentType)
	fm.str("fileType", meta.FileType)
	fm.str("filename", meta.FileName)
	fm.int("pages", int64(pageCount(meta, result)))
	fm.int("fileSize", meta.FileSize)
	fm.str("author", meta.Author)
	fm.str("subject", meta.Subject)
	fm.str("keywords", meta.Keywords)
	fm.str("created", meta.CreationDate)
	fm.str("modified", meta.ModificationDate)
	fm.str("producer", meta.Producer)
	for _, k := range slices.Sorted(maps.Keys(meta.Extra)) {
		if !reservedKeys[k] && !fm.has(k) {
			fm.str(k, meta.Extra[k])
		}
	}
	fm.str("creator", meta.Creator)
	fm.str("converter", converterName)
	if opts.Name != "" && opts.Name != meta.FileName {
		fm.str("originalFile", opts.Name)
	}
	return fm.String()
}

// reservedKeys are frontmatter keys format-specific metadata may not claim.
var reservedKeys = map[string]bool{
	"title": true, "converted": true, "type": true, "fileType": true,
	"filename": true, "pages": true, "fileSize": true, "creator": true,
	"converter": true, "originalFile": true, "status": true,
}

// Title picks the document title: the caller override, the source's own
// title, the file name without extension, then a fixed placeholder.
func Title(meta types.SourceMetadata, opts types.Options) string {
	for _, candidate := range []string{opts.Title, meta.Title, stem(meta.FileName), stem(opts.Name)} {
		if c := strings.TrimSpace(candidate); c != "" {
			return firstLine(c)
		}
	}
	return untitled
}

func stem(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

func pageCount(meta types.SourceMetadata, result types.OCRResult) int {
	if meta.PageCount > 0 {
		return meta.PageCount
	}
	return len(result.Pages)
}

func metadataTable(meta types.SourceMetadata, result types.OCRResult) *table {
	t := &table{heading: "Document Information"}
	t.row("File Name", meta.FileName)
	t.row("File Type", meta.FileType)
	if meta.FileSize > 0 {
		t.row("File Size", fmt.Sprintf("%s (%d bytes)", humanize.Bytes(uint64(meta.FileSize)), meta.FileSize))
	}
	if n := pageCount(meta, result); n > 0 {
		t.row("Pages", fmt.Sprintf("%d", n))
	}
	t.row("Author", meta.Author)
	t.row("Subject", meta.Subject)
	t.row("Keywords", meta.Keywords)
	t.row("Creator", meta.Creator)
	t.row("Producer", meta.Producer)
	t.row("Created", meta.CreationDate)
	t.row("Modified", meta.ModificationDate)
	for _, k := range slices.Sorted(maps.Keys(meta.Extra)) {
		t.row(k, meta.Extra[k])
	}
	return t
}

func processingTable(info types.DocumentInfo) *table {
	t := &table{heading: "OCR Processing"}
	t.row("Model", info.Model)
	t.row("Language", info.Language)
	if info.Usage != nil {
		if info.Usage.PagesProcessed > 0 {
			t.row("Pages Processed", fmt.Sprintf("%d", info.Usage.PagesProcessed))
		}
		if info.Usage.DocSizeBytes > 0 {
			t.row("Document Size", humanize.Bytes(uint64(info.Usage.DocSizeBytes)))
		}
	}
	if info.OverallConfidence > 0 {
		t.row("Confidence", fmt.Sprintf("%.1f%%", confidencePercent(info.OverallConfidence)))
	}
	if info.ProcessingTime > 0 {
		t.row("Processing Time", fmt.Sprintf("%.2fs", info.ProcessingTime))
	}
	t.row("Note", info.Error)
	return t
}

// confidencePercent accepts either a 0..1 fraction or a 0..100 percentage.
func confidencePercent(c float64) float64 {
	if c <= 1 {
		return c * 100
	}
	return c
}

func content(result types.OCRResult) string {
	var texts []string
	var markers []string
	for _, p := range result.Pages {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		texts = append(texts, p.Text)
		markers = append(markers, fmt.Sprintf("[Page %d]", p.PageNumber))
	}

	var b strings.Builder
	b.WriteString("## Content\n\n")
	if len(texts) == 0 {
		b.WriteString(noTextSentence + "\n")
		if strings.TrimSpace(result.Text) != "" {
			b.WriteString("\n### Document Content\n\n")
			b.WriteString(result.Text)
			b.WriteString("\n")
		}
		return b.String()
	}

	b.WriteString(strings.Join(texts, "\n\n"))
	b.WriteString("\n\n")
	b.WriteString(strings.Join(markers, "\n\n"))
	b.WriteString("\n")
	return b.String()
}

// salvage collects whatever page text survives for an error report.
func salvage(result types.OCRResult) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	var parts []string
	for _, p := range result.Pages {
		if strings.TrimSpace(p.Text) != "" {
			parts = append(parts, p.Text)
		}
	}
	if len(parts) == 0 {
		return result.Text
	}
	return strings.Join(parts, "\n\n")
}
