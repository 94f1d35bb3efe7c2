// Package sqlcheck parses view bodies and reports references to sibling views
// that were not declared as dependencies.
package sqlcheck

import (
	"fmt"
	"sort"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/pgviews/pgviews/view"
)

// Result is the outcome of checking one view body.
type Result struct {
	View       string
	Connection string
	// Relations lists every relation in the namespace the body reads.
	Relations []string
	// Undeclared lists the subset of Relations missing from the view's
	// declared dependencies.
	Undeclared []string
}

// OK reports whether every namespace relation the body reads is declared.
func (r *Result) OK() bool {
	return len(r.Undeclared) == 0
}

// Check parses the body of d, which must be exactly one SELECT statement, and
// compares the relations it reads from namespace with its declared
// dependencies.
func Check(d *view.Descriptor, namespace string) (*Result, error) {
	if namespace == "" {
		namespace = view.DefaultNamespace
	}

	tree, err := pg_query.Parse(d.SQL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse view %s: %w", d.Name(), err)
	}
	if len(tree.Stmts) != 1 {
		return nil, fmt.Errorf("view %s: expected a single SELECT statement, found %d statements", d.Name(), len(tree.Stmts))
	}
	stmt := tree.Stmts[0].Stmt
	if stmt.GetSelectStmt() == nil {
		return nil, fmt.Errorf("view %s: body is not a SELECT statement", d.Name())
	}

	seen := make(map[string]bool)
	walk(stmt.ProtoReflect(), func(rv *pg_query.RangeVar) {
		if rv.Schemaname == namespace && rv.Relname != "" {
			seen[rv.Relname] = true
		}
	})

	declared := make(map[string]bool)
	for _, dep := range d.Dependencies() {
		declared[dep.Name] = true
	}

	result := &Result{View: d.Name(), Connection: d.Connection()}
	for name := range seen {
		result.Relations = append(result.Relations, name)
		if !declared[name] {
			result.Undeclared = append(result.Undeclared, name)
		}
	}
	sort.Strings(result.Relations)
	sort.Strings(result.Undeclared)
	return result, nil
}

// CheckAll checks every view and stops at the first body that fails to parse.
func CheckAll(views []*view.Descriptor, namespace string) ([]*Result, error) {
	results := make([]*Result, 0, len(views))
	for _, d := range views {
		result, err := Check(d, namespace)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// walk visits every RangeVar reachable from m. The parse tree is a protobuf
// message, so subqueries, CTEs and joins are covered without a case per node
// type.
func walk(m protoreflect.Message, visit func(*pg_query.RangeVar)) {
	if rv, ok := m.Interface().(*pg_query.RangeVar); ok {
		visit(rv)
	}
	m.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		switch {
		case fd.IsMap() || fd.Message() == nil:
		case fd.IsList():
			list := v.List()
			for i := 0; i < list.Len(); i++ {
				walk(list.Get(i).Message(), visit)
			}
		default:
			walk(v.Message(), visit)
		}
		return true
	})
}
