// Package graph derives the nodes of a JSON graph from document text.
//
// A node is one object, or one scalar that sits directly in an array or at the
// document root. Arrays never own a node; their elements are visited in place.
// Node IDs are the formatted JSON path, so re-deriving the same document
// yields the same IDs.
package graph

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/oakwood-commons/kvedit/internal/jsonpath"
)

// ErrInvalidDocument is returned when the document text is not valid JSON.
var ErrInvalidDocument = errors.New("document is not valid JSON")

// RowType is the JSON type of a row's value.
type RowType string

const (
	TypeString  RowType = "string"
	TypeNumber  RowType = "number"
	TypeBoolean RowType = "boolean"
	TypeNull    RowType = "null"
	TypeObject  RowType = "object"
	TypeArray   RowType = "array"
)

// IsContainer reports whether values of this type hold children.
func (t RowType) IsContainer() bool {
	return t == TypeObject || t == TypeArray
}

// Row is one key/value line of a node's content. Key is nil for a scalar
// node's single row. Scalars hold string, json.Number, bool or nil; container
// rows hold their child count.
type Row struct {
	Key   *string
	Value any
	Type  RowType
}

// KeyString returns the row key or "" for keyless rows.
func (r Row) KeyString() string {
	if r.Key == nil {
		return ""
	}
	return *r.Key
}

// ValueString renders the value the way it is displayed in a node.
func (r Row) ValueString() string {
	switch v := r.Value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Node is a single visual element of the graph.
type Node struct {
	ID   string
	Rows []Row
	Path jsonpath.Path
}

// IsScalar reports whether the node renders a single keyless value.
func (n Node) IsScalar() bool {
	return len(n.Rows) == 1 && n.Rows[0].Key == nil
}

// Build parses doc and returns its nodes in document order.
func Build(doc string) ([]Node, error) {
	if !gjson.Valid(doc) {
		return nil, ErrInvalidDocument
	}
	b := &builder{}
	b.visit(gjson.Parse(doc), jsonpath.Path{}, true)
	return b.nodes, nil
}

// Find returns the node whose formatted path equals path.
func Find(nodes []Node, path jsonpath.Path) (Node, bool) {
	want := jsonpath.Format(path)
	for _, n := range nodes {
		if jsonpath.Format(n.Path) == want {
			return n, true
		}
	}
	return Node{}, false
}

type builder struct {
	nodes []Node
}

type pending struct {
	value gjson.Result
	path  jsonpath.Path
}

func (b *builder) visit(v gjson.Result, path jsonpath.Path, ownScalar bool) {
	switch {
	case v.IsObject():
		var rows []Row
		var children []pending
		v.ForEach(func(k, val gjson.Result) bool {
			key := k.String()
			rows = append(rows, rowFor(&key, val))
			if val.IsObject() || val.IsArray() {
				children = append(children, pending{value: val, path: path.Append(jsonpath.Key(key))})
			}
			return true
		})
		b.nodes = append(b.nodes, Node{ID: jsonpath.Format(path), Rows: rows, Path: path})
		for _, c := range children {
			b.visit(c.value, c.path, false)
		}
	case v.IsArray():
		i := 0
		v.ForEach(func(_, el gjson.Result) bool {
			b.visit(el, path.Append(jsonpath.Index(i)), true)
			i++
			return true
		})
	default:
		if ownScalar {
			b.nodes = append(b.nodes, Node{ID: jsonpath.Format(path), Rows: []Row{rowFor(nil, v)}, Path: path})
		}
	}
}

func rowFor(key *string, v gjson.Result) Row {
	switch {
	case v.IsObject():
		n := 0
		v.ForEach(func(_, _ gjson.Result) bool { n++; return true })
		return Row{Key: key, Value: n, Type: TypeObject}
	case v.IsArray():
		return Row{Key: key, Value: len(v.Array()), Type: TypeArray}
	}
	switch v.Type {
	case gjson.String:
		return Row{Key: key, Value: v.Str, Type: TypeString}
	case gjson.Number:
		return Row{Key: key, Value: json.Number(v.Raw), Type: TypeNumber}
	case gjson.True:
		return Row{Key: key, Value: true, Type: TypeBoolean}
	case gjson.False:
		return Row{Key: key, Value: false, Type: TypeBoolean}
	default:
		return Row{Key: key, Value: nil, Type: TypeNull}
	}
}
