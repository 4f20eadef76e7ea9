package formatter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/kvedit/internal/graph"
)

func build(t *testing.T, doc string) []graph.Node {
	t.Helper()
	nodes, err := graph.Build(doc)
	require.NoError(t, err)
	return nodes
}

func TestFormatAsMermaid(t *testing.T) {
	nodes := build(t, `{"name": "basket", "fruits": [{"name": "Apple"}, "Cherry"], "meta": {"a": {"b": 1}}}`)
	got := FormatAsMermaid(nodes, MermaidOptions{})

	expected := strings.Join([]string{
		"graph TD",
		`    n0["name: basket, fruits: [2], meta: {1}"]`,
		`    n1["name: Apple"]`,
		`    n2["Cherry"]`,
		`    n3["a: {1}"]`,
		`    n4["b: 1"]`,
		`    n0 -->|"['fruits'][0]"| n1`,
		`    n0 -->|"['fruits'][1]"| n2`,
		`    n0 -->|"['meta']"| n3`,
		`    n3 -->|"['a']"| n4`,
	}, "\n") + "\n"
	assert.Equal(t, expected, got)
}

func TestFormatAsMermaid_Direction(t *testing.T) {
	nodes := build(t, `{"a": 1}`)
	assert.True(t, strings.HasPrefix(FormatAsMermaid(nodes, MermaidOptions{Direction: "lr"}), "graph LR\n"))
	assert.True(t, strings.HasPrefix(FormatAsMermaid(nodes, MermaidOptions{Direction: "sideways"}), "graph TD\n"))
}

func TestFormatAsMermaid_ScalarRootHasNoEdges(t *testing.T) {
	got := FormatAsMermaid(build(t, `"only"`), MermaidOptions{})
	assert.Equal(t, "graph TD\n    n0[\"only\"]\n", got)
}

func TestFormatAsMermaid_TruncatesAndEscapes(t *testing.T) {
	got := FormatAsMermaid(build(t, `{"q": "say \"hi\"\nthere"}`), MermaidOptions{MaxLabelLen: 12})
	assert.Contains(t, got, `n0["q: say 'h..."]`)
	assert.NotContains(t, got, "\\n")
}
