package refresh

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pgviews/pgviews/view"
)

type recorder struct {
	executed []string
	err      error
}

func (r *recorder) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.executed = append(r.executed, query)
	return nil, nil
}

func TestRefreshConcurrentlyWithoutPrimaryKeyFailsFast(t *testing.T) {
	d := view.MustNew("Loose", view.FromText("SELECT 1 AS id"), view.Materialized(""))
	rec := &recorder{}

	err := New("").Refresh(context.Background(), rec, d, true)

	var cfgErr *view.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if len(rec.executed) != 0 {
		t.Fatalf("no statement may reach the engine, got %v", rec.executed)
	}
}

func TestRefresh(t *testing.T) {
	d := view.MustNew("Snapshot", view.FromText("SELECT 1 AS id"), view.Materialized("id"))

	tests := []struct {
		concurrently bool
		want         string
	}{
		{false, "REFRESH MATERIALIZED VIEW views.snapshot;"},
		{true, "REFRESH MATERIALIZED VIEW CONCURRENTLY views.snapshot;"},
	}

	for _, tt := range tests {
		rec := &recorder{}
		if err := New("views").Refresh(context.Background(), rec, d, tt.concurrently); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{tt.want}, rec.executed); diff != "" {
			t.Fatalf("unexpected statements (-want +got):\n%s", diff)
		}
	}
}

func TestRefreshWrapsEngineError(t *testing.T) {
	d := view.MustNew("Snapshot", view.FromText("SELECT 1 AS id"), view.Materialized("id"))
	engineErr := errors.New("materialized view has not been populated")

	err := New("").Refresh(context.Background(), &recorder{err: engineErr}, d, false)
	if !errors.Is(err, engineErr) {
		t.Fatalf("expected engine error to be wrapped, got %v", err)
	}
}

func TestRefreshAllUpstreamFirst(t *testing.T) {
	base := view.MustNew("Base", view.FromText("SELECT 1 AS id"), view.Materialized("id"))
	plain := view.MustNew("Plain", view.FromText("SELECT * FROM views.base"), view.DependsOn(base))
	rollup := view.MustNew("Rollup", view.FromText("SELECT id FROM views.plain"), view.DependsOn(plain), view.Materialized("id"))

	rec := &recorder{}
	n, err := New("").RefreshAll(context.Background(), rec, []*view.Descriptor{rollup, plain, base}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 refreshed views, got %d", n)
	}

	want := []string{
		"REFRESH MATERIALIZED VIEW CONCURRENTLY views.base;",
		"REFRESH MATERIALIZED VIEW CONCURRENTLY views.rollup;",
	}
	if diff := cmp.Diff(want, rec.executed); diff != "" {
		t.Fatalf("unexpected statements (-want +got):\n%s", diff)
	}
}

func TestRefreshAllConcurrentlyRejectsViewWithoutPrimaryKey(t *testing.T) {
	keyed := view.MustNew("Keyed", view.FromText("SELECT 1 AS id"), view.Materialized("id"))
	nokey := view.MustNew("NoKey", view.FromText("SELECT 1 AS id"), view.Materialized(""))

	rec := &recorder{}
	n, err := New("").RefreshAll(context.Background(), rec, []*view.Descriptor{keyed, nokey}, true)

	var cfgErr *view.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if n != 0 {
		t.Errorf("expected nothing refreshed, got %d", n)
	}
	if len(rec.executed) != 0 {
		t.Fatalf("no statement may reach the engine, got %v", rec.executed)
	}

	// Without CONCURRENTLY both views are fine.
	n, err = New("").RefreshAll(context.Background(), rec, []*view.Descriptor{keyed, nokey}, false)
	if err != nil || n != 2 {
		t.Fatalf("expected plain refresh of both views, got n=%d err=%v", n, err)
	}
}
