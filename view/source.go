package view

import (
	"fmt"
	"strings"
)

// QueryBuilder is implemented by query builders that render a SELECT with
// positional placeholders, such as squirrel.SelectBuilder.
type QueryBuilder interface {
	ToSql() (string, []interface{}, error)
}

// Source produces the SELECT body of a view. It is either FromText or
// FromQuery; the set of implementations is closed.
type Source interface {
	resolve() (string, []any, error)
}

type textSource struct {
	sql    string
	params []any
}

type querySource struct {
	builder QueryBuilder
}

// FromText uses raw SQL as the view body. Params bind to $1..$n in order.
func FromText(sql string, params ...any) Source {
	return textSource{sql: sql, params: params}
}

// FromQuery renders the view body from a query builder.
func FromQuery(builder QueryBuilder) Source {
	return querySource{builder: builder}
}

func (s textSource) resolve() (string, []any, error) {
	return s.sql, s.params, nil
}

func (s querySource) resolve() (string, []any, error) {
	if s.builder == nil {
		return "", nil, fmt.Errorf("query builder is nil")
	}
	sql, args, err := s.builder.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to render query: %w", err)
	}
	return sql, args, nil
}

// Resolve turns a Source into its SQL text and positional parameters.
// The body is trimmed of surrounding whitespace and trailing semicolons so
// it can be embedded after AS.
func Resolve(src Source) (string, []any, error) {
	if src == nil {
		return "", nil, fmt.Errorf("view source is nil")
	}
	sql, params, err := src.resolve()
	if err != nil {
		return "", nil, err
	}
	sql = strings.TrimRight(strings.TrimSpace(sql), "; \t\n\r")
	if sql == "" {
		return "", nil, fmt.Errorf("view body is empty")
	}
	return sql, params, nil
}
