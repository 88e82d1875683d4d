// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"
)

// frontmatter accumulates key/value pairs in insertion order and encodes
// them as a YAML mapping between --- delimiters. Keys with empty values are
// never added.
type frontmatter struct {
	node yaml.Node
}

func newFrontmatter() *frontmatter {
	return &frontmatter{node: yaml.Node{Kind: yaml.MappingNode}}
}

// has reports whether key was already added.
func (f *frontmatter) has(key string) bool {
	for i := 0; i < len(f.node.Content); i += 2 {
		if f.node.Content[i].Value == key {
			return true
		}
	}
	return false
}

func (f *frontmatter) add(key string, value *yaml.Node) {
	f.node.Content = append(f.node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value,
	)
}

// str adds a quoted string when value is non-blank.
func (f *frontmatter) str(key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	f.add(key, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Style: yaml.DoubleQuotedStyle, Value: value})
}

// int adds a plain integer when value is positive.
func (f *frontmatter) int(key string, value int64) {
	if value <= 0 {
		return
	}
	f.add(key, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(value, 10)})
}

func (f *frontmatter) String() string {
	var b strings.Builder
	b.WriteString("---\n")
	if len(f.node.Content) > 0 {
		data, err := yaml.Marshal(&f.node)
		if err == nil {
			b.Write(data)
		}
	}
	b.WriteString("---\n")
	return b.String()
}
