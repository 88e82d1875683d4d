// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"strings"

	"github.com/pdiddy/ocr2md/pkg/types"
)

// fallback builds a degraded result from whatever flat text raw still
// offers. It is used after normalize panicked, so it trusts nothing.
func fallback(raw any, msg string) (result types.OCRResult) {
	result = types.OCRResult{
		DocumentInfo: types.DocumentInfo{Error: msg},
		Pages:        []types.Page{},
	}
	defer func() {
		if recover() != nil {
			result.Pages = []types.Page{}
		}
	}()

	text := flatText(raw)
	if strings.TrimSpace(text) != "" {
		result.Pages = append(result.Pages, types.Page{PageNumber: 1, Text: text})
		result.Text = text
	}
	if obj, ok := asMap(raw); ok {
		result.DocumentInfo.Model, _ = stringField(obj, "model")
	}
	return result
}

func flatText(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case map[string]any:
		if s, ok := stringField(v, "text", "content", "markdown"); ok {
			return s
		}
		for _, key := range []string{"pages", "data"} {
			if items, ok := asSlice(v[key]); ok {
				if s := joinItems(items); s != "" {
					return s
				}
			}
		}
	case []any:
		return joinItems(v)
	}
	return ""
}

func joinItems(items []any) string {
	var parts []string
	for _, item := range items {
		var s string
		if obj, ok := asMap(item); ok {
			s, _ = stringField(obj, "markdown", "text", "content")
		} else {
			s = itemText(item)
		}
		if strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}
