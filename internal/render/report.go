// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"fmt"
	"strings"

	"github.com/pdiddy/ocr2md/pkg/types"
)

// RenderError builds the document written in place of a conversion that
// failed. It carries the title, whatever metadata is known, the error
// message, and any text salvaged before the failure.
func (r *Renderer) RenderError(meta types.SourceMetadata, opts types.Options, err error, salvaged string) (doc string) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}

	defer func() {
		if rec := recover(); rec != nil {
			doc = fmt.Sprintf("# %s\n\n## Conversion Error\n\n%s\n", untitled, msg)
		}
	}()

	title := Title(meta, opts)

	fm := newFrontmatter()
	fm.str("title", title)
	fm.str("converted", r.now().UTC().Format(timestampLayout))
	fm.str("type", documentType)
	fm.str("fileType", meta.FileType)
	fm.str("filename", meta.FileName)
	fm.str("status", "error")
	fm.str("converter", converterName)

	var b strings.Builder
	b.WriteString(fm.String())
	b.WriteString("\n# " + title + "\n\n")
	b.WriteString("## Conversion Error\n\n")
	b.WriteString("The document could not be converted:\n\n")
	b.WriteString("```\n" + strings.TrimRight(msg, "\n") + "\n```\n")

	if info := r.section("document information", func() string {
		return metadataTable(meta, types.OCRResult{}).String()
	}); info != "" {
		b.WriteString("\n" + info)
	}

	if strings.TrimSpace(salvaged) != "" {
		b.WriteString("\n## Extracted Text\n\n")
		b.WriteString(strings.TrimRight(salvaged, "\n") + "\n")
	}
	return b.String()
}
