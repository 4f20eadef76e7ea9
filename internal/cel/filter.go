// Package cel filters graph nodes with CEL expressions.
//
// Expressions see a single variable, node, with the fields:
//
//	node.id       formatted path, e.g. $["fruits"][0]
//	node.path     same as id
//	node.depth    number of path segments
//	node.keys     row keys in order
//	node.values   map of scalar row key to its display text
//	node.scalar   true for single keyless-value nodes
//	node.content  normalized content as shown in the node modal
//
// Example: node.depth == 2 && "color" in node.keys
package cel

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	celext "github.com/google/cel-go/ext"

	"github.com/oakwood-commons/kvedit/internal/graph"
	"github.com/oakwood-commons/kvedit/internal/nodeview"
)

// NodeFilter is a compiled boolean expression over nodes.
type NodeFilter struct {
	expr   string
	fields []string
	prg    cel.Program
}

// newNodeEnv creates the CEL environment with the extensions used in
// filters.
func newNodeEnv(opts ...cel.EnvOption) (*cel.Env, error) {
	allOpts := make([]cel.EnvOption, 0, 3+len(opts))
	allOpts = append(allOpts,
		cel.Variable("node", cel.MapType(cel.StringType, cel.DynType)),
		celext.Strings(),
		celext.Lists(),
	)
	allOpts = append(allOpts, opts...)
	return cel.NewEnv(allOpts...)
}

// NewNodeFilter compiles expr. The expression must evaluate to a bool and may
// only read the node fields listed in the package documentation.
func NewNodeFilter(expr string) (*NodeFilter, error) {
	env, err := newNodeEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compilation error: %w", issues.Err())
	}
	if ast.OutputType() != cel.BoolType && ast.OutputType() != cel.DynType {
		return nil, fmt.Errorf("filter must return bool, got %s", ast.OutputType())
	}
	fields, err := referencedFields(ast)
	if err != nil {
		return nil, fmt.Errorf("inspect expression: %w", err)
	}
	if err := checkFields(fields); err != nil {
		return nil, err
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &NodeFilter{expr: expr, fields: fields, prg: prg}, nil
}

// Fields returns the node fields the expression reads, sorted.
func (f *NodeFilter) Fields() []string {
	out := make([]string, len(f.fields))
	copy(out, f.fields)
	return out
}

// String returns the source expression.
func (f *NodeFilter) String() string {
	return f.expr
}

// Match reports whether n satisfies the filter.
func (f *NodeFilter) Match(n graph.Node) (bool, error) {
	out, _, err := f.prg.Eval(map[string]any{"node": Activation(n)})
	if err != nil {
		return false, fmt.Errorf("eval error at %s: %w", n.ID, err)
	}
	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("filter returned %s, want bool", out.Type().TypeName())
	}
	return bool(b), nil
}

// Filter returns the nodes that satisfy f, in order. A nil filter keeps
// every node.
func (f *NodeFilter) Filter(nodes []graph.Node) ([]graph.Node, error) {
	if f == nil {
		return nodes, nil
	}
	out := make([]graph.Node, 0, len(nodes))
	for _, n := range nodes {
		ok, err := f.Match(n)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// Activation is the value bound to the node variable for n.
func Activation(n graph.Node) map[string]any {
	keys := make([]string, 0, len(n.Rows))
	values := make(map[string]string, len(n.Rows))
	for _, r := range n.Rows {
		if r.Key == nil {
			continue
		}
		keys = append(keys, *r.Key)
		if !r.Type.IsContainer() {
			values[*r.Key] = r.ValueString()
		}
	}
	return map[string]any{
		"id":      n.ID,
		"path":    nodeview.FormatPath(n.Path),
		"depth":   int64(len(n.Path)),
		"keys":    keys,
		"values":  values,
		"scalar":  n.IsScalar(),
		"content": nodeview.Normalize(n.Rows),
	}
}
