// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize converts an OCR provider response of arbitrary shape
// into the canonical types.OCRResult. Normalization is total: whatever the
// input, the caller gets a result whose Pages slice is non-nil, and
// unexpected failures are reported through DocumentInfo.Error instead of a
// returned error or a panic.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/pdiddy/ocr2md/pkg/types"
)

// Normalize converts a decoded provider response (as produced by
// encoding/json into an any) to the canonical result.
func Normalize(raw any) types.OCRResult {
	return defaultNormalizer.run(raw)
}

// NormalizeJSON decodes data and normalizes it. Bodies that are not valid
// JSON are treated as plain document text.
func NormalizeJSON(data []byte) types.OCRResult {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Normalize(string(bytes.TrimSpace(data)))
	}
	return Normalize(raw)
}

type normalizer struct {
	collectors []collector
	pageText   textSource
}

var defaultNormalizer = normalizer{
	collectors: collectors,
	pageText:   pageText,
}

func (n normalizer) run(raw any) (result types.OCRResult) {
	defer func() {
		if r := recover(); r != nil {
			result = fallback(raw, fmt.Sprint(r))
		}
	}()
	return n.normalize(raw)
}

func (n normalizer) normalize(raw any) types.OCRResult {
	result := types.OCRResult{Pages: []types.Page{}}

	switch v := raw.(type) {
	case nil:
		return result
	case string:
		if strings.TrimSpace(v) != "" {
			result.Pages = append(result.Pages, types.Page{PageNumber: 1, Text: v})
			result.Text = v
		}
		return result
	case []any:
		result.Pages = n.pages(v)
		result.DocumentInfo.OverallConfidence = meanConfidence(result.Pages)
		return result
	}

	obj, ok := asMap(raw)
	if !ok {
		obj, ok = toGeneric(raw)
		if !ok {
			return result
		}
	}

	for _, collect := range n.collectors {
		if items, ok := collect(obj); ok {
			result.Pages = n.pages(items)
			break
		}
	}

	result.DocumentInfo = documentInfo(obj, result.Pages)
	result.Text, _ = stringField(obj, "text", "content")
	return result
}

// pages converts a raw page collection. Order follows the source array.
func (n normalizer) pages(items []any) []types.Page {
	pages := make([]types.Page, 0, len(items))
	for i, item := range items {
		pages = append(pages, n.page(item, i))
	}
	return pages
}

func (n normalizer) page(item any, pos int) types.Page {
	page := types.Page{PageNumber: pos + 1}

	obj, ok := asMap(item)
	if !ok {
		page.Text = itemText(item)
		return page
	}

	page.PageNumber = pageNumber(obj, pos)
	page.Confidence, _ = numberField(obj, "confidence")
	page.Text, _ = n.pageText(obj)

	images, _ := asSlice(obj["images"])
	hasImages := len(images) > 0 ||
		boolField(obj, "is_image_only", "isImageOnly", "image_only") ||
		hasImageBlock(obj)
	if hasImages {
		// Image blocks render as Markdown image links, which are not text.
		text, _ := n.pageText(withoutImageBlocks(obj))
		page.IsImageOnly = strings.TrimSpace(text) == ""
	}
	return page
}

// pageNumber prefers an explicit 1-based number, then a 0-based index, then
// the position in the source array. Only integral values that fit an int32
// are trusted.
func pageNumber(obj map[string]any, pos int) int {
	if f, ok := numberField(obj, "page_number", "pageNumber", "page"); ok && integral(f, 1, math.MaxInt32) {
		return int(f)
	}
	if f, ok := numberField(obj, "index"); ok && integral(f, 0, math.MaxInt32-1) {
		return int(f) + 1
	}
	return pos + 1
}

func integral(f, lo, hi float64) bool {
	return f >= lo && f <= hi && f == math.Trunc(f)
}

func documentInfo(obj map[string]any, pages []types.Page) types.DocumentInfo {
	info := types.DocumentInfo{}
	info.Model, _ = stringField(obj, "model")
	info.Language, _ = stringField(obj, "language", "lang")
	info.ProcessingTime, _ = numberField(obj, "processing_time", "processingTime")

	if f, ok := numberField(obj, "overall_confidence", "overallConfidence", "confidence"); ok {
		info.OverallConfidence = f
	} else {
		info.OverallConfidence = meanConfidence(pages)
	}

	for _, key := range []string{"usage_info", "usage"} {
		if u, ok := asMap(obj[key]); ok {
			usage := &types.Usage{}
			if f, ok := numberField(u, "pages_processed", "pagesProcessed", "pages"); ok {
				usage.PagesProcessed = int(f)
			}
			if f, ok := numberField(u, "doc_size_bytes", "docSizeBytes"); ok {
				usage.DocSizeBytes = int64(f)
			}
			info.Usage = usage
			break
		}
	}
	return info
}

func meanConfidence(pages []types.Page) float64 {
	var sum float64
	var n int
	for _, p := range pages {
		if p.Confidence > 0 {
			sum += p.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// toGeneric round-trips a typed value (e.g. a struct) through JSON so it
// can be read as a map.
func toGeneric(v any) (map[string]any, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false
	}
	return m, m != nil
}
