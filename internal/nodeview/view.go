package nodeview

import (
	"fmt"
	"strings"

	"github.com/oakwood-commons/kvedit/internal/graph"
)

// DefaultNameKeys and DefaultColorKeys are the row keys the editor reads
// the name/color pair from.
var (
	DefaultNameKeys  = []string{"name", "Name"}
	DefaultColorKeys = []string{"color", "Color"}
)

// View is the content of the node modal.
type View struct {
	ID      string `json:"id"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

// NewView builds the modal content for n.
func NewView(n graph.Node) View {
	return View{ID: n.ID, Path: FormatPath(n.Path), Content: Normalize(n.Rows)}
}

// EditFields picks the initial name and color for the modal editor. The last
// matching row wins. A scalar node with no name row uses its value as the name.
func EditFields(rows []graph.Row, nameKeys, colorKeys []string) (name, color string) {
	for _, row := range rows {
		if row.Key == nil || row.Type.IsContainer() {
			continue
		}
		if contains(nameKeys, *row.Key) {
			name = rowText(row)
		}
		if contains(colorKeys, *row.Key) {
			color = rowText(row)
		}
	}
	if name == "" && len(rows) == 1 && rows[0].Key == nil {
		name = rowText(rows[0])
	}
	return name, color
}

// NameKey returns the row key EditFields reads the name from: the last
// scalar row whose key is in nameKeys.
func NameKey(rows []graph.Row, nameKeys []string) (string, bool) {
	key, found := "", false
	for _, row := range rows {
		if row.Key == nil || row.Type.IsContainer() {
			continue
		}
		if contains(nameKeys, *row.Key) {
			key, found = *row.Key, true
		}
	}
	return key, found
}

// rowText is the editable text of a row; null edits as an empty string.
func rowText(row graph.Row) string {
	if row.Value == nil {
		return ""
	}
	return row.ValueString()
}

// Summary is a one-line description of a node for lists.
func Summary(n graph.Node) string {
	if len(n.Rows) == 0 {
		return "{}"
	}
	if n.IsScalar() {
		return n.Rows[0].ValueString()
	}
	parts := make([]string, 0, len(n.Rows))
	for _, row := range n.Rows {
		switch row.Type {
		case graph.TypeObject:
			parts = append(parts, fmt.Sprintf("%s: {%v}", row.KeyString(), row.Value))
		case graph.TypeArray:
			parts = append(parts, fmt.Sprintf("%s: [%v]", row.KeyString(), row.Value))
		default:
			parts = append(parts, row.KeyString()+": "+row.ValueString())
		}
	}
	return strings.Join(parts, ", ")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
