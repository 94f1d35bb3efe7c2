// Package synchronizer rebuilds the view namespace of each target connection
// inside a single transaction.
package synchronizer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/pgviews/pgviews/internal/fingerprint"
	"github.com/pgviews/pgviews/internal/logger"
	"github.com/pgviews/pgviews/internal/postgres"
	"github.com/pgviews/pgviews/view"
	"golang.org/x/sync/errgroup"
)

// Tx is the transactional cursor a sync pass runs on.
type Tx interface {
	postgres.Execer
	Commit() error
	Rollback() error
}

// Conn opens transactions on one target connection.
type Conn interface {
	BeginTx(ctx context.Context) (Tx, error)
}

type sqlConn struct {
	db *sql.DB
}

// WrapDB adapts a database/sql handle opened with the pgx driver to Conn.
// Statements with parameters run in pgx's simple protocol mode whatever
// default_query_exec_mode the handle uses, since PostgreSQL refuses
// server-side parameters in DDL.
func WrapDB(db *sql.DB) Conn {
	return sqlConn{db: db}
}

func (c sqlConn) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return sqlTx{tx}, nil
}

type sqlTx struct {
	*sql.Tx
}

func (t sqlTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.Tx.ExecContext(ctx, query, postgres.SimpleProtocolArgs(args)...)
}

// ViewError attaches the failing view to an engine error. The engine error
// is kept intact and reachable through errors.As.
type ViewError struct {
	Connection string
	View       string
	Statement  string
	Err        error
}

func (e *ViewError) Error() string {
	return fmt.Sprintf("failed to create view %s on connection %s: %v", e.View, e.Connection, e.Err)
}

func (e *ViewError) Unwrap() error {
	return e.Err
}

// Options configures a Synchronizer.
type Options struct {
	Namespace   string // defaults to view.DefaultNamespace
	GrantTo     string // role granted USAGE and SELECT; empty skips grants
	Concurrency int    // connections synced at once; <= 0 means all
}

// Synchronizer drops and recreates the view namespace and every view in it.
type Synchronizer struct {
	namespace   string
	grantTo     string
	concurrency int
	log         *slog.Logger
}

// New creates a Synchronizer.
func New(opts Options) *Synchronizer {
	if opts.Namespace == "" {
		opts.Namespace = view.DefaultNamespace
	}
	return &Synchronizer{
		namespace:   opts.Namespace,
		grantTo:     opts.GrantTo,
		concurrency: opts.Concurrency,
		log:         logger.For("sync"),
	}
}

// Namespace returns the schema the synchronizer rebuilds.
func (s *Synchronizer) Namespace() string {
	return s.namespace
}

// Result describes the sync pass of one connection.
type Result struct {
	Connection  string
	Views       int
	Committed   bool
	Duration    time.Duration
	Fingerprint *fingerprint.Fingerprint
	Err         error
}

// Summary collects the results of a Sync call, ordered by connection.
type Summary struct {
	Results []*Result
}

// Counts returns the number of views created per committed connection.
func (s *Summary) Counts() map[string]int {
	counts := make(map[string]int)
	for _, r := range s.Results {
		if r.Committed {
			counts[r.Connection] = r.Views
		}
	}
	return counts
}

// Failed returns the results of connections that did not commit.
func (s *Summary) Failed() []*Result {
	var failed []*Result
	for _, r := range s.Results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

type stepKind int

const (
	stepReset stepKind = iota
	stepCreate
	stepGrant
)

type step struct {
	kind        stepKind
	stmt        view.Statement
	view        string
	description string
}

// Plan returns the statements a sync pass would run for one connection's
// views, in execution order, without touching the database.
func (s *Synchronizer) Plan(views []*view.Descriptor) ([]view.Statement, error) {
	steps, _, err := s.plan(views)
	if err != nil {
		return nil, err
	}
	stmts := make([]view.Statement, len(steps))
	for i, st := range steps {
		stmts[i] = st.stmt
	}
	return stmts, nil
}

func (s *Synchronizer) plan(views []*view.Descriptor) ([]step, []*view.Descriptor, error) {
	ordered, err := view.Sort(views)
	if err != nil {
		return nil, nil, err
	}

	var steps []step
	for _, stmt := range view.ResetNamespaceStatements(s.namespace) {
		steps = append(steps, step{kind: stepReset, stmt: stmt, description: "reset namespace"})
	}

	for _, v := range ordered {
		for _, stmt := range v.CreateStatements(s.namespace) {
			steps = append(steps, step{kind: stepCreate, stmt: stmt, view: v.Name(), description: "create view " + v.Name()})
		}
	}

	if s.grantTo != "" {
		steps = append(steps, step{
			kind:        stepGrant,
			stmt:        view.Statement{SQL: view.GrantUsageSQL(s.namespace, s.grantTo)},
			description: "grant namespace usage",
		})
		for _, v := range ordered {
			if v.IsHidden() {
				continue
			}
			steps = append(steps, step{
				kind:        stepGrant,
				stmt:        view.Statement{SQL: v.GrantSelectSQL(s.namespace, s.grantTo)},
				view:        v.Name(),
				description: "grant select on " + v.Name(),
			})
		}
	}

	return steps, ordered, nil
}

// Sync rebuilds every connection in views. Each connection is its own unit of
// work: a failure rolls back that connection only and never affects another.
// The returned error joins the per-connection failures.
func (s *Synchronizer) Sync(ctx context.Context, conns map[string]Conn, views map[string][]*view.Descriptor) (*Summary, error) {
	names := make([]string, 0, len(views))
	for name := range views {
		names = append(names, name)
	}
	sort.Strings(names)

	s.log.Info("Syncing views", "connections", names, "namespace", s.namespace)

	results := make([]*Result, len(names))
	var g errgroup.Group
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for i, name := range names {
		g.Go(func() error {
			conn, ok := conns[name]
			if !ok || conn == nil {
				results[i] = &Result{Connection: name, Err: fmt.Errorf("no database handle for connection %q", name)}
				return nil
			}
			results[i] = s.SyncConnection(ctx, name, conn, views[name])
			return nil
		})
	}
	_ = g.Wait()

	summary := &Summary{Results: results}
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("connection %s: %w", r.Connection, r.Err))
		}
	}
	if len(errs) > 0 {
		return summary, errors.Join(errs...)
	}

	s.log.Info("Successfully synced views", "connections", len(results))
	return summary, nil
}

// SyncConnection rebuilds the namespace of a single connection in one
// transaction. Sorting happens before the transaction starts, so a cyclic or
// unknown dependency leaves the database untouched.
func (s *Synchronizer) SyncConnection(ctx context.Context, name string, conn Conn, views []*view.Descriptor) *Result {
	start := time.Now()
	result := &Result{Connection: name}
	log := s.log.With("connection", name)

	steps, ordered, err := s.plan(views)
	if err != nil {
		result.Err = err
		return result
	}

	stmts := make([]view.Statement, len(steps))
	for i, st := range steps {
		stmts[i] = st.stmt
	}
	if result.Fingerprint, err = fingerprint.Compute(stmts); err != nil {
		log.Warn("Could not fingerprint DDL", "error", err)
	}

	tx, err := conn.BeginTx(ctx)
	if err != nil {
		result.Err = fmt.Errorf("failed to begin transaction: %w", err)
		return result
	}

	if err := s.execute(ctx, tx, name, steps, log); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("Rollback failed", "error", rbErr)
		}
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	if err := tx.Commit(); err != nil {
		result.Err = fmt.Errorf("failed to commit transaction: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.Views = len(ordered)
	result.Committed = true
	result.Duration = time.Since(start)
	log.Info("Successfully synced views",
		"views", result.Views,
		"duration", result.Duration,
		"fingerprint", result.Fingerprint.Short(),
	)
	return result
}

func (s *Synchronizer) execute(ctx context.Context, tx Tx, connection string, steps []step, log *slog.Logger) error {
	current := ""
	for _, st := range steps {
		if st.kind == stepCreate && st.view != current {
			current = st.view
			log.Info("Generating view", "view", st.view)
		}

		if _, err := postgres.ExecContextWithLogging(ctx, tx, st.stmt.SQL, st.description, st.stmt.Args...); err != nil {
			if st.kind != stepCreate {
				return fmt.Errorf("failed to %s: %w", st.description, err)
			}
			return &ViewError{Connection: connection, View: st.view, Statement: st.stmt.SQL, Err: err}
		}
	}
	return nil
}
