// Package formatter renders the node graph for export.
package formatter

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/oakwood-commons/kvedit/internal/graph"
	"github.com/oakwood-commons/kvedit/internal/jsonpath"
	"github.com/oakwood-commons/kvedit/internal/nodeview"
)

// MermaidOptions controls Mermaid diagram output.
type MermaidOptions struct {
	// Direction is TD, LR, BT or RL. Default TD.
	Direction string
	// MaxLabelLen truncates node labels; 0 or negative means no limit.
	MaxLabelLen int
}

type mermaidBuilder struct {
	lines []string
	ids   map[string]string
	opts  MermaidOptions
}

// FormatAsMermaid renders nodes as a Mermaid flowchart. Each node becomes a
// box labelled with its summary, linked from the nearest ancestor node by an
// edge labelled with the path segments between them.
func FormatAsMermaid(nodes []graph.Node, opts MermaidOptions) string {
	switch strings.ToUpper(opts.Direction) {
	case "LR", "BT", "RL", "TD":
		opts.Direction = strings.ToUpper(opts.Direction)
	default:
		opts.Direction = "TD"
	}

	b := &mermaidBuilder{
		lines: []string{"graph " + opts.Direction},
		ids:   make(map[string]string, len(nodes)),
		opts:  opts,
	}
	for i, n := range nodes {
		id := fmt.Sprintf("n%d", i)
		b.ids[n.ID] = id
		b.addNode(id, nodeview.Summary(n))
	}
	for _, n := range nodes {
		parent, rest, ok := b.parentOf(n.Path)
		if !ok {
			continue
		}
		b.addEdge(b.ids[parent], b.ids[n.ID], rest)
	}
	return strings.Join(b.lines, "\n") + "\n"
}

// parentOf finds the longest proper prefix of p that is a node and returns
// its ID with the remaining segments formatted without the leading '$'.
func (b *mermaidBuilder) parentOf(p jsonpath.Path) (string, string, bool) {
	for k := len(p) - 1; k >= 0; k-- {
		id := jsonpath.Format(p[:k])
		if _, ok := b.ids[id]; ok {
			return id, strings.TrimPrefix(jsonpath.Format(p[k:]), "$"), true
		}
	}
	return "", "", false
}

func (b *mermaidBuilder) addNode(id, label string) {
	b.lines = append(b.lines, fmt.Sprintf("    %s[%q]", id, b.escapeLabel(label)))
}

func (b *mermaidBuilder) addEdge(fromID, toID, label string) {
	b.lines = append(b.lines, fmt.Sprintf("    %s -->|%q| %s", fromID, b.escapeLabel(label), toID))
}

// escapeLabel makes label safe inside a quoted Mermaid label.
func (b *mermaidBuilder) escapeLabel(label string) string {
	label = strings.ReplaceAll(label, `"`, `'`)
	label = strings.ReplaceAll(label, "\n", " ")
	label = strings.ReplaceAll(label, "\r", "")
	if b.opts.MaxLabelLen > 0 {
		label = runewidth.Truncate(label, b.opts.MaxLabelLen, "...")
	}
	return label
}
