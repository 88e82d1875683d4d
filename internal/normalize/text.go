// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import "strings"

// textSource extracts candidate text from one page object. It reports false
// when it has nothing usable.
type textSource func(page map[string]any) (string, bool)

// firstText composes sources so the first one yielding non-blank text wins.
func firstText(sources ...textSource) textSource {
	return func(page map[string]any) (string, bool) {
		for _, src := range sources {
			if text, ok := src(page); ok && strings.TrimSpace(text) != "" {
				return text, true
			}
		}
		return "", false
	}
}

// field reads a flat string field.
func field(keys ...string) textSource {
	return func(page map[string]any) (string, bool) {
		return stringField(page, keys...)
	}
}

// structured rebuilds text from a blocks or elements array.
func structured(page map[string]any) (string, bool) {
	for _, key := range []string{"blocks", "elements"} {
		if blocks, ok := asSlice(page[key]); ok && len(blocks) > 0 {
			text := renderBlocks(blocks)
			if text != "" {
				return text, true
			}
		}
	}
	return "", false
}

// lines joins line-level text fragments.
func lines(page map[string]any) (string, bool) {
	items, ok := asSlice(page["lines"])
	if !ok {
		return "", false
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if s := itemText(item); strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n"), true
}

// pageText is the ordered resolution chain for a page's text. Flat fields
// always win over reconstruction.
var pageText = firstText(
	field("markdown"),
	field("raw_text", "rawText"),
	field("content"),
	field("text_content", "textContent", "text"),
	structured,
	lines,
)
