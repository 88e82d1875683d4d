// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"slices"
	"strings"
)

// collector locates the page collection in a raw response. It reports
// false when its shape is not present.
type collector func(raw map[string]any) ([]any, bool)

// collectors are tried in order; the first match wins.
var collectors = []collector{
	arrayField("pages"),
	arrayField("data"),
	singleStringField("content", "text"),
	scanStringFields,
}

func arrayField(key string) collector {
	return func(raw map[string]any) ([]any, bool) {
		items, ok := asSlice(raw[key])
		return items, ok
	}
}

func singleStringField(keys ...string) collector {
	return func(raw map[string]any) ([]any, bool) {
		if s, ok := stringField(raw, keys...); ok {
			return []any{map[string]any{"text": s}}, true
		}
		return nil, false
	}
}

// preferredDocumentFields are checked first by scanStringFields.
var preferredDocumentFields = []string{"markdown", "rendered", "document", "result", "output"}

// metadataFields are string fields that never hold document text.
var metadataFields = map[string]bool{
	"id": true, "object": true, "model": true, "language": true, "status": true,
	"type": true, "created": true, "created_at": true, "version": true,
	"error": true, "message": true, "mime_type": true, "filename": true,
}

// scanStringFields is the last resort: any top-level string that looks like
// document text becomes a single page. Keys are visited in a fixed order so
// the pick is deterministic.
func scanStringFields(raw map[string]any) ([]any, bool) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		if !metadataFields[strings.ToLower(k)] && !slices.Contains(preferredDocumentFields, k) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	keys = append(slices.Clone(preferredDocumentFields), keys...)

	if s, ok := stringField(raw, keys...); ok {
		return []any{map[string]any{"text": s}}, true
	}
	return nil, false
}
