// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// blockRenderer turns one content block into Markdown.
type blockRenderer func(block map[string]any) string

// blockRenderers is keyed by the lower-cased block type tag.
var blockRenderers = map[string]blockRenderer{
	"heading":    renderHeading,
	"header":     renderHeading,
	"title":      renderHeading,
	"paragraph":  renderPlain,
	"text":       renderPlain,
	"plain":      renderPlain,
	"list":       renderList,
	"table":      renderTable,
	"image":      renderImage,
	"figure":     renderImage,
	"code":       renderCode,
	"quote":      renderQuote,
	"blockquote": renderQuote,
}

// renderBlocks renders each block in order and joins the non-blank results
// with a blank line.
func renderBlocks(blocks []any) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if s := renderBlock(b); strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

func renderBlock(b any) string {
	block, ok := asMap(b)
	if !ok {
		return itemText(b)
	}
	if render, ok := blockRenderers[blockType(block)]; ok {
		return render(block)
	}
	return renderPlain(block)
}

func blockType(block map[string]any) string {
	t, _ := stringField(block, "type", "kind", "block_type")
	return strings.ToLower(strings.TrimSpace(t))
}

func blockText(block map[string]any) string {
	s, _ := stringField(block, "text", "content")
	return s
}

func renderPlain(block map[string]any) string {
	return blockText(block)
}

func renderHeading(block map[string]any) string {
	text := strings.TrimSpace(blockText(block))
	if text == "" {
		return ""
	}
	level := 1
	if f, ok := numberField(block, "level", "depth"); ok {
		level = int(f)
	}
	level = min(max(level, 1), 6)
	return strings.Repeat("#", level) + " " + text
}

func renderList(block map[string]any) string {
	items, ok := asSlice(block["items"])
	if !ok {
		return blockText(block)
	}
	ordered := boolField(block, "ordered")
	var b strings.Builder
	n := 0
	for _, item := range items {
		text := strings.TrimSpace(itemText(item))
		if text == "" {
			continue
		}
		n++
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		if ordered {
			fmt.Fprintf(&b, "%d. %s", n, text)
		} else {
			b.WriteString("- " + text)
		}
	}
	return b.String()
}

func renderTable(block map[string]any) string {
	rows, ok := asSlice(block["rows"])
	if !ok || len(rows) == 0 {
		return blockText(block)
	}
	var out []string
	for i, r := range rows {
		cells, ok := asSlice(r)
		if !ok {
			cells = []any{r}
		}
		texts := make([]string, len(cells))
		for j, c := range cells {
			texts[j] = strings.ReplaceAll(strings.TrimSpace(itemText(c)), "|", `\|`)
		}
		out = append(out, "| "+strings.Join(texts, " | ")+" |")
		if i == 0 {
			sep := make([]string, max(len(cells), 1))
			for j := range sep {
				sep[j] = "---"
			}
			out = append(out, "| "+strings.Join(sep, " | ")+" |")
		}
	}
	return strings.Join(out, "\n")
}

func renderImage(block map[string]any) string {
	caption, ok := stringField(block, "caption", "alt", "text")
	if !ok {
		caption = "Image"
	}
	src, ok := stringField(block, "src", "url", "source", "image_url")
	if !ok {
		src = "image"
	}
	return fmt.Sprintf("![%s](%s)", strings.TrimSpace(caption), strings.TrimSpace(src))
}

func renderCode(block map[string]any) string {
	code := blockText(block)
	if strings.TrimSpace(code) == "" {
		return ""
	}
	lang, _ := stringField(block, "language", "lang")
	return "```" + strings.TrimSpace(lang) + "\n" + strings.TrimRight(code, "\n") + "\n```"
}

func renderQuote(block map[string]any) string {
	text := strings.TrimSpace(blockText(block))
	if text == "" {
		return ""
	}
	ls := strings.Split(text, "\n")
	for i, l := range ls {
		ls[i] = "> " + l
	}
	return strings.Join(ls, "\n")
}

func isImageBlock(b any) bool {
	block, ok := asMap(b)
	if !ok {
		return false
	}
	t := blockType(block)
	return t == "image" || t == "figure"
}

// hasImageBlock reports whether any block is an image or figure.
func hasImageBlock(page map[string]any) bool {
	for _, key := range []string{"blocks", "elements"} {
		blocks, _ := asSlice(page[key])
		if slices.ContainsFunc(blocks, isImageBlock) {
			return true
		}
	}
	return false
}

// withoutImageBlocks returns a shallow copy of page whose block arrays omit
// image and figure blocks.
func withoutImageBlocks(page map[string]any) map[string]any {
	out := maps.Clone(page)
	for _, key := range []string{"blocks", "elements"} {
		if blocks, ok := asSlice(page[key]); ok {
			out[key] = slices.DeleteFunc(slices.Clone(blocks), isImageBlock)
		}
	}
	return out
}
