package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/kvedit/internal/jsonpath"
)

const fruits = `{
  "fruits": [
    {"name": "Apple", "color": "Red", "nutrients": {"calories": 52}},
    "Banana"
  ],
  "count": 2,
  "fresh": true,
  "origin": null
}`

func ids(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestBuild_NodesInDocumentOrder(t *testing.T) {
	nodes, err := Build(fruits)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"$",
		`$["fruits"][0]`,
		`$["fruits"][0]["nutrients"]`,
		`$["fruits"][1]`,
	}, ids(nodes))
}

func TestBuild_RootRows(t *testing.T) {
	nodes, err := Build(fruits)
	require.NoError(t, err)
	root := nodes[0]
	require.Len(t, root.Rows, 4)

	assert.Equal(t, "fruits", root.Rows[0].KeyString())
	assert.Equal(t, TypeArray, root.Rows[0].Type)
	assert.Equal(t, 2, root.Rows[0].Value)

	assert.Equal(t, TypeNumber, root.Rows[1].Type)
	assert.Equal(t, json.Number("2"), root.Rows[1].Value)
	assert.Equal(t, true, root.Rows[2].Value)
	assert.Equal(t, TypeNull, root.Rows[3].Type)
	assert.Equal(t, "null", root.Rows[3].ValueString())
}

func TestBuild_ArrayScalarIsKeylessNode(t *testing.T) {
	nodes, err := Build(fruits)
	require.NoError(t, err)
	banana, ok := Find(nodes, jsonpath.Path{jsonpath.Key("fruits"), jsonpath.Index(1)})
	require.True(t, ok)
	assert.True(t, banana.IsScalar())
	assert.Equal(t, "Banana", banana.Rows[0].ValueString())
}

func TestBuild_RootScalar(t *testing.T) {
	nodes, err := Build(`"hello"`)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "$", nodes[0].ID)
	assert.True(t, nodes[0].IsScalar())
	assert.Empty(t, nodes[0].Path)
}

func TestBuild_RootArrayHasNoOwnNode(t *testing.T) {
	nodes, err := Build(`[1, {"a": 2}]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"$[0]", "$[1]"}, ids(nodes))
}

func TestBuild_StableIDs(t *testing.T) {
	first, err := Build(fruits)
	require.NoError(t, err)
	second, err := Build(fruits)
	require.NoError(t, err)
	assert.Equal(t, ids(first), ids(second))
}

func TestBuild_Invalid(t *testing.T) {
	_, err := Build(`{"a":`)
	require.ErrorIs(t, err, ErrInvalidDocument)
}

func TestFind_Missing(t *testing.T) {
	nodes, err := Build(fruits)
	require.NoError(t, err)
	_, ok := Find(nodes, jsonpath.Path{jsonpath.Key("nope")})
	assert.False(t, ok)
}
