// Package pgviews provides a programmatic API for managing derived SQL views.
// Views are declared in Go (or loaded from a manifest), sorted by their
// dependencies and recreated in a dedicated schema inside one transaction
// per connection.
package pgviews

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/pgviews/pgviews/internal/docs"
	"github.com/pgviews/pgviews/internal/logger"
	"github.com/pgviews/pgviews/internal/refresh"
	"github.com/pgviews/pgviews/internal/sqlcheck"
	"github.com/pgviews/pgviews/internal/synchronizer"
	"github.com/pgviews/pgviews/view"
)

// Options configures a Client.
type Options struct {
	Namespace   string       // Schema holding the views (default: "views")
	GrantTo     string       // Role granted USAGE and SELECT after each sync (optional)
	Concurrency int          // Connections synced at once (default: all)
	Logger      *slog.Logger // Replaces the package logger when set
}

// SyncOptions configures one sync pass.
//
// Databases must be opened with the pgx driver ("pgx", from
// github.com/jackc/pgx/v5/stdlib). View parameters are sent in pgx's simple
// protocol mode so they can appear in DDL; other drivers cannot bind them.
type SyncOptions struct {
	Databases map[string]*sql.DB // Handle per connection name, opened with the pgx driver
	Views     []*View            // Views to create, any order
}

// Client provides the main interface for pgviews operations.
type Client struct {
	namespace   string
	grantTo     string
	concurrency int
}

// NewClient creates a new pgviews client.
func NewClient(opts Options) *Client {
	if opts.Namespace == "" {
		opts.Namespace = view.DefaultNamespace
	}
	if opts.Logger != nil {
		logger.Set(opts.Logger)
	}
	return &Client{
		namespace:   opts.Namespace,
		grantTo:     opts.GrantTo,
		concurrency: opts.Concurrency,
	}
}

// Namespace returns the schema the client manages.
func (c *Client) Namespace() string {
	return c.namespace
}

// Sort orders views so that every view comes after its dependencies.
func (c *Client) Sort(views []*View) ([]*View, error) {
	return view.Sort(views)
}

// Plan returns the statements a sync would run, per connection, without
// touching any database.
func (c *Client) Plan(views []*View) (map[string][]Statement, error) {
	s := c.synchronizer()
	plans := make(map[string][]Statement)
	for conn, group := range groupByConnection(views) {
		stmts, err := s.Plan(group)
		if err != nil {
			return nil, err
		}
		plans[conn] = stmts
	}
	return plans, nil
}

// Sync drops and recreates the namespace on every connection that has views.
// Connections are independent: a failure on one leaves the others committed.
func (c *Client) Sync(ctx context.Context, opts SyncOptions) (*SyncSummary, error) {
	conns := make(map[string]synchronizer.Conn, len(opts.Databases))
	for name, db := range opts.Databases {
		conns[name] = synchronizer.WrapDB(db)
	}
	return c.synchronizer().Sync(ctx, conns, groupByConnection(opts.Views))
}

// Refresh refreshes one materialized view.
func (c *Client) Refresh(ctx context.Context, db *sql.DB, v *View, concurrently bool) error {
	return refresh.New(c.namespace).Refresh(ctx, db, v, concurrently)
}

// RefreshAll refreshes every materialized view among views in dependency
// order and returns how many were refreshed. With concurrently set, a
// materialized view without a primary key fails the call with a
// *ConfigurationError before any view is refreshed.
func (c *Client) RefreshAll(ctx context.Context, db *sql.DB, views []*View, concurrently bool) (int, error) {
	return refresh.New(c.namespace).RefreshAll(ctx, db, views, concurrently)
}

// Docs describes the columns of every non-hidden view from the catalog.
func (c *Client) Docs(ctx context.Context, db *sql.DB, views []*View) ([]ViewDoc, error) {
	return docs.Collect(ctx, db, c.namespace, views)
}

// Lint parses every view body and reports namespace relations read without a
// declared dependency.
func (c *Client) Lint(views []*View) ([]*LintResult, error) {
	return sqlcheck.CheckAll(views, c.namespace)
}

func (c *Client) synchronizer() *synchronizer.Synchronizer {
	return synchronizer.New(synchronizer.Options{
		Namespace:   c.namespace,
		GrantTo:     c.grantTo,
		Concurrency: c.concurrency,
	})
}

func groupByConnection(views []*View) map[string][]*View {
	groups := make(map[string][]*View)
	for _, v := range views {
		groups[v.Connection()] = append(groups[v.Connection()], v)
	}
	return groups
}
