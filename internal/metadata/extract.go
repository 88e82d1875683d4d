// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metadata reports descriptive metadata for source documents. PDFs
// are opened to read their page count and Info dictionary; every other
// format gets file-level facts only.
package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/ocr2md/pkg/types"
)

// infoKeys maps PDF Info dictionary entries to metadata fields.
var infoKeys = []struct {
	key string
	set func(*types.SourceMetadata, string)
}{
	{"Title", func(m *types.SourceMetadata, v string) { m.Title = v }},
	{"Author", func(m *types.SourceMetadata, v string) { m.Author = v }},
	{"Subject", func(m *types.SourceMetadata, v string) { m.Subject = v }},
	{"Keywords", func(m *types.SourceMetadata, v string) { m.Keywords = v }},
	{"Creator", func(m *types.SourceMetadata, v string) { m.Creator = v }},
	{"Producer", func(m *types.SourceMetadata, v string) { m.Producer = v }},
	{"CreationDate", func(m *types.SourceMetadata, v string) { m.CreationDate = PDFDate(v) }},
	{"ModDate", func(m *types.SourceMetadata, v string) { m.ModificationDate = PDFDate(v) }},
}

// Extractor reads source metadata from files on disk.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor returns an extractor that logs parse problems to logger.
// A nil logger uses slog.Default.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract returns metadata for the file at path. A file that cannot be
// stat'ed is an error; a PDF that cannot be parsed degrades to file-level
// metadata.
func (e *Extractor) Extract(ctx context.Context, path string) (types.SourceMetadata, error) {
	if err := ctx.Err(); err != nil {
		return types.SourceMetadata{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return types.SourceMetadata{}, fmt.Errorf("reading metadata for %s: %w", path, err)
	}
	if info.IsDir() {
		return types.SourceMetadata{}, fmt.Errorf("reading metadata for %s: is a directory", path)
	}

	meta := types.SourceMetadata{
		FileName: filepath.Base(path),
		FileSize: info.Size(),
		FileType: strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
	}

	if meta.FileType == "pdf" {
		if err := readPDF(path, &meta); err != nil {
			e.logger.Warn("pdf metadata unavailable", "path", path, "error", err)
		}
	}
	return meta, nil
}

// readPDF fills page count and Info fields. The pdf reader panics on some
// malformed inputs, so those are reported as errors.
func readPDF(path string, meta *types.SourceMetadata) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parsing pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	meta.PageCount = r.NumPage()

	dict := r.Trailer().Key("Info")
	if dict.IsNull() {
		return nil
	}
	for _, k := range infoKeys {
		if v := strings.TrimSpace(dict.Key(k.key).Text()); v != "" {
			k.set(meta, v)
		}
	}
	return nil
}
