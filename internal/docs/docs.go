// Package docs describes synced views from the database catalog.
package docs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pgviews/pgviews/view"
)

// Querier is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Column is one output column of a view.
type Column struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
}

// ViewDoc documents a single view.
type ViewDoc struct {
	Name         string   `json:"name"`
	Connection   string   `json:"connection"`
	Description  string   `json:"description,omitempty"`
	Materialized bool     `json:"materialized"`
	Dependencies []string `json:"dependencies,omitempty"`
	Columns      []Column `json:"columns"`
}

// information_schema.columns does not list materialized views, so the
// catalog is read directly.
const columnsQuery = `
SELECT a.attname, format_type(a.atttypid, a.atttypmod)
FROM pg_attribute a
JOIN pg_class c ON c.oid = a.attrelid
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1
  AND c.relname = $2
  AND a.attnum > 0
  AND NOT a.attisdropped
ORDER BY a.attnum`

// Collect returns documentation for every non-hidden view in views, in
// dependency order.
func Collect(ctx context.Context, q Querier, namespace string, views []*view.Descriptor) ([]ViewDoc, error) {
	if namespace == "" {
		namespace = view.DefaultNamespace
	}

	ordered, err := view.Sort(views)
	if err != nil {
		return nil, err
	}

	var docs []ViewDoc
	for _, d := range ordered {
		if d.IsHidden() {
			continue
		}

		columns, err := columns(ctx, q, namespace, d.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to describe view %s: %w", d.Name(), err)
		}

		doc := ViewDoc{
			Name:         d.Name(),
			Connection:   d.Connection(),
			Description:  d.Description(),
			Materialized: d.IsMaterialized(),
			Columns:      columns,
		}
		for _, dep := range d.Dependencies() {
			doc.Dependencies = append(doc.Dependencies, dep.Name)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func columns(ctx context.Context, q Querier, namespace, name string) ([]Column, error) {
	rows, err := q.QueryContext(ctx, columnsQuery, namespace, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := []Column{}
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.DataType); err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

// WriteJSON writes docs as indented JSON.
func WriteJSON(w io.Writer, docs []ViewDoc) error {
	if docs == nil {
		docs = []ViewDoc{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(docs)
}
