package view

import (
	"fmt"

	"github.com/pgviews/pgviews/internal/util"
)

// DefaultNamespace is the schema that holds every generated view.
const DefaultNamespace = "views"

// Statement is one SQL statement with its positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

// ResetNamespaceStatements drops the namespace with everything in it and
// recreates it empty.
func ResetNamespaceStatements(namespace string) []Statement {
	ns := util.QuoteIdentifier(namespace)
	return []Statement{
		{SQL: fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE;", ns)},
		{SQL: fmt.Sprintf("CREATE SCHEMA %s;", ns)},
	}
}

// QualifiedName returns the view name qualified with namespace.
func (d *Descriptor) QualifiedName(namespace string) string {
	return util.QualifiedName(namespace, d.name)
}

// IndexName is the name of the unique index on a materialized view's
// primary key column.
func (d *Descriptor) IndexName() string {
	if d.primaryKey == "" {
		return ""
	}
	return d.name + "_" + d.primaryKey
}

// CreateStatements returns the DDL that creates the view. The view body keeps
// its parameters unformatted so the driver encodes them natively.
func (d *Descriptor) CreateStatements(namespace string) []Statement {
	qualified := d.QualifiedName(namespace)
	if !d.materialized {
		return []Statement{{
			SQL:  fmt.Sprintf("CREATE VIEW %s AS %s;", qualified, d.sql),
			Args: d.Params(),
		}}
	}

	stmts := []Statement{{
		SQL:  fmt.Sprintf("CREATE MATERIALIZED VIEW %s AS %s;", qualified, d.sql),
		Args: d.Params(),
	}}
	if d.primaryKey != "" {
		stmts = append(stmts, Statement{
			SQL: fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s (%s);",
				util.QuoteIdentifier(d.IndexName()), qualified, util.QuoteIdentifier(d.primaryKey)),
		})
	}
	return stmts
}

// RefreshSQL returns the REFRESH MATERIALIZED VIEW statement. Concurrent
// refresh needs the unique index created from the primary key, so it is
// rejected up front for views without one.
func (d *Descriptor) RefreshSQL(namespace string, concurrently bool) (string, error) {
	if !d.materialized {
		return "", &ConfigurationError{View: d.name, Reason: "only materialized views can be refreshed"}
	}
	if concurrently {
		if d.primaryKey == "" {
			return "", &ConfigurationError{View: d.name, Reason: "concurrent refresh requires a primary key column"}
		}
		return fmt.Sprintf("REFRESH MATERIALIZED VIEW CONCURRENTLY %s;", d.QualifiedName(namespace)), nil
	}
	return fmt.Sprintf("REFRESH MATERIALIZED VIEW %s;", d.QualifiedName(namespace)), nil
}

// GrantUsageSQL grants usage of the namespace to role.
func GrantUsageSQL(namespace, role string) string {
	return fmt.Sprintf("GRANT USAGE ON SCHEMA %s TO %s;", util.QuoteIdentifier(namespace), util.QuoteRole(role))
}

// GrantSelectSQL grants SELECT on the view to role.
func (d *Descriptor) GrantSelectSQL(namespace, role string) string {
	return fmt.Sprintf("GRANT SELECT ON %s TO %s;", d.QualifiedName(namespace), util.QuoteRole(role))
}
