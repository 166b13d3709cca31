// Package richtext flattens structured argument documents into the plain
// text the judge scores.
//
// A document is a tree of nodes shaped like
//
//	{"type": "doc", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "..."}]}]}
//
// Only text nodes carry text. Block nodes end a line.
package richtext

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyDocument is returned when a document is missing or null.
var ErrEmptyDocument = errors.New("richtext: empty document")

// Node is one element of a document tree.
type Node struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Content []Node `json:"content,omitempty"`
}

var blockTypes = map[string]bool{
	"doc":         true,
	"paragraph":   true,
	"heading":     true,
	"blockquote":  true,
	"listItem":    true,
	"bulletList":  true,
	"orderedList": true,
	"codeBlock":   true,
}

// ExtractText returns the flattened text of doc. Whitespace is collapsed
// within each line, blank lines are dropped and the result is trimmed.
func ExtractText(doc json.RawMessage) (string, error) {
	if len(doc) == 0 || string(doc) == "null" {
		return "", ErrEmptyDocument
	}
	var root Node
	if err := json.Unmarshal(doc, &root); err != nil {
		return "", fmt.Errorf("richtext: decode document: %w", err)
	}

	var b strings.Builder
	walk(&b, root)

	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, line := range lines {
		if l := strings.Join(strings.Fields(line), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n"), nil
}

func walk(b *strings.Builder, n Node) {
	switch n.Type {
	case "text":
		b.WriteString(n.Text)
		return
	case "hardBreak":
		b.WriteByte('\n')
		return
	}
	for _, child := range n.Content {
		walk(b, child)
	}
	if blockTypes[n.Type] {
		b.WriteByte('\n')
	}
}

// FromPlainText wraps s as a document with one paragraph per non-blank line.
func FromPlainText(s string) json.RawMessage {
	root := Node{Type: "doc", Content: []Node{}}
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		root.Content = append(root.Content, Node{
			Type:    "paragraph",
			Content: []Node{{Type: "text", Text: line}},
		})
	}
	raw, _ := json.Marshal(root)
	return raw
}
