// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"strings"
)

// table renders two-column property tables. Rows with empty values are
// skipped; a table with no rows renders as nothing.
type table struct {
	heading string
	rows    [][2]string
}

func (t *table) row(name, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	t.rows = append(t.rows, [2]string{name, value})
}

func (t *table) String() string {
	if len(t.rows) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## " + t.heading + "\n\n")
	b.WriteString("| Property | Value |\n")
	b.WriteString("| --- | --- |\n")
	for _, r := range t.rows {
		b.WriteString("| " + cell(r[0]) + " | " + cell(r[1]) + " |\n")
	}
	return b.String()
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", " ")
}
