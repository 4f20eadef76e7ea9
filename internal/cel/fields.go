package cel

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/cel-go/cel"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// knownFields are the keys of Activation.
var knownFields = map[string]bool{
	"id": true, "path": true, "depth": true, "keys": true,
	"values": true, "scalar": true, "content": true,
}

// referencedFields returns the node fields ast reads, sorted and deduplicated.
// Both node.field and node["field"] are recognised.
func referencedFields(ast *cel.Ast) ([]string, error) {
	parsed, err := cel.AstToParsedExpr(ast)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	walkExpr(parsed.GetExpr(), func(e *exprpb.Expr) {
		if sel := e.GetSelectExpr(); sel != nil && isNodeIdent(sel.GetOperand()) {
			seen[sel.GetField()] = true
			return
		}
		call := e.GetCallExpr()
		if call == nil || call.GetFunction() != "_[_]" || len(call.GetArgs()) != 2 || !isNodeIdent(call.GetArgs()[0]) {
			return
		}
		if c := call.GetArgs()[1].GetConstExpr(); c != nil {
			if s, ok := c.GetConstantKind().(*exprpb.Constant_StringValue); ok {
				seen[s.StringValue] = true
			}
		}
	})
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out, nil
}

func isNodeIdent(e *exprpb.Expr) bool {
	id := e.GetIdentExpr()
	return id != nil && id.GetName() == "node"
}

// walkExpr calls visit for e and every sub-expression.
func walkExpr(e *exprpb.Expr, visit func(*exprpb.Expr)) {
	if e == nil {
		return
	}
	visit(e)
	switch k := e.GetExprKind().(type) {
	case *exprpb.Expr_SelectExpr:
		walkExpr(k.SelectExpr.GetOperand(), visit)
	case *exprpb.Expr_CallExpr:
		walkExpr(k.CallExpr.GetTarget(), visit)
		for _, a := range k.CallExpr.GetArgs() {
			walkExpr(a, visit)
		}
	case *exprpb.Expr_ListExpr:
		for _, el := range k.ListExpr.GetElements() {
			walkExpr(el, visit)
		}
	case *exprpb.Expr_StructExpr:
		for _, entry := range k.StructExpr.GetEntries() {
			walkExpr(entry.GetMapKey(), visit)
			walkExpr(entry.GetValue(), visit)
		}
	case *exprpb.Expr_ComprehensionExpr:
		c := k.ComprehensionExpr
		walkExpr(c.GetIterRange(), visit)
		walkExpr(c.GetAccuInit(), visit)
		walkExpr(c.GetLoopCondition(), visit)
		walkExpr(c.GetLoopStep(), visit)
		walkExpr(c.GetResult(), visit)
	}
}

func checkFields(fields []string) error {
	var unknown []string
	for _, f := range fields {
		if !knownFields[f] {
			unknown = append(unknown, f)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	known := make([]string, 0, len(knownFields))
	for f := range knownFields {
		known = append(known, f)
	}
	sort.Strings(known)
	return fmt.Errorf("unknown node field %s (known: %s)", strings.Join(unknown, ", "), strings.Join(known, ", "))
}
