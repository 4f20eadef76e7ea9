// Package nodeview renders what the node modal displays: the normalized
// content of a node and its JSON path.
package nodeview

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/oakwood-commons/kvedit/internal/graph"
	"github.com/oakwood-commons/kvedit/internal/jsonpath"
)

const indent = "  "

// Normalize renders a node's rows for display.
//
// No rows render as "{}". A single keyless row renders its raw value. Anything
// else renders as a 2-space indented JSON object built from the keyed scalar
// rows, in row order.
func Normalize(rows []graph.Row) string {
	if len(rows) == 0 {
		return "{}"
	}
	if len(rows) == 1 && rows[0].Key == nil {
		return rows[0].ValueString()
	}

	var keys []string
	values := map[string]string{}
	for _, row := range rows {
		if row.Type.IsContainer() || row.Key == nil {
			continue
		}
		k := *row.Key
		if _, seen := values[k]; !seen {
			keys = append(keys, k)
		}
		values[k] = encodeScalar(row)
	}
	if len(keys) == 0 {
		return "{}"
	}

	var b strings.Builder
	b.WriteString("{\n")
	for i, k := range keys {
		b.WriteString(indent)
		b.WriteString(encodeString(k))
		b.WriteString(": ")
		b.WriteString(values[k])
		if i < len(keys)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteByte('}')
	return b.String()
}

func encodeScalar(row graph.Row) string {
	switch v := row.Value.(type) {
	case nil:
		return "null"
	case string:
		return encodeString(v)
	case json.Number:
		return v.String()
	default:
		return row.ValueString()
	}
}

// encodeString quotes s as a JSON string without HTML escaping.
func encodeString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return `""`
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// FormatPath renders a node path as a `$["key"][0]` expression.
func FormatPath(path jsonpath.Path) string {
	return jsonpath.Format(path)
}
