package view

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCreateStatementsPlainView(t *testing.T) {
	d := MustNew("Simple", FromText("SELECT * FROM t WHERE x = $1", 5), WithPrefix("test"))

	want := []Statement{{
		SQL:  "CREATE VIEW views.test_simple AS SELECT * FROM t WHERE x = $1;",
		Args: []any{5},
	}}
	if diff := cmp.Diff(want, d.CreateStatements(DefaultNamespace)); diff != "" {
		t.Fatalf("unexpected statements (-want +got):\n%s", diff)
	}
}

func TestCreateStatementsMaterializedView(t *testing.T) {
	tests := []struct {
		name string
		pk   string
		want []Statement
	}{
		{
			name: "with primary key",
			pk:   "id",
			want: []Statement{
				{SQL: "CREATE MATERIALIZED VIEW views.snapshot AS SELECT id FROM t;"},
				{SQL: "CREATE UNIQUE INDEX snapshot_id ON views.snapshot (id);"},
			},
		},
		{
			name: "without primary key",
			want: []Statement{
				{SQL: "CREATE MATERIALIZED VIEW views.snapshot AS SELECT id FROM t;"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := MustNew("Snapshot", FromText("SELECT id FROM t"), Materialized(tt.pk))
			if diff := cmp.Diff(tt.want, d.CreateStatements("views")); diff != "" {
				t.Fatalf("unexpected statements (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCreateStatementsQuotesWhenNeeded(t *testing.T) {
	d := MustNew("order", FromText("SELECT 1"))

	got := d.CreateStatements("Reporting")[0].SQL
	want := `CREATE VIEW "Reporting"."order" AS SELECT 1;`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRefreshSQL(t *testing.T) {
	withPK := MustNew("Snapshot", FromText("SELECT 1 AS id"), Materialized("id"))
	withoutPK := MustNew("Loose", FromText("SELECT 1 AS id"), Materialized(""))
	plain := MustNew("Plain", FromText("SELECT 1"))

	got, err := withPK.RefreshSQL("views", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "REFRESH MATERIALIZED VIEW CONCURRENTLY views.snapshot;" {
		t.Errorf("unexpected concurrent refresh %q", got)
	}

	got, err = withoutPK.RefreshSQL("views", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "REFRESH MATERIALIZED VIEW views.loose;" {
		t.Errorf("unexpected refresh %q", got)
	}

	var cfgErr *ConfigurationError
	if _, err := withoutPK.RefreshSQL("views", true); !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigurationError for concurrent refresh without primary key, got %v", err)
	}
	if _, err := plain.RefreshSQL("views", false); !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigurationError for plain view refresh, got %v", err)
	}
}

func TestGrantStatements(t *testing.T) {
	d := MustNew("Report", FromText("SELECT 1"))

	tests := []struct {
		role      string
		wantUsage string
		wantSel   string
	}{
		{"analyst", "GRANT USAGE ON SCHEMA views TO analyst;", "GRANT SELECT ON views.report TO analyst;"},
		{"public", "GRANT USAGE ON SCHEMA views TO PUBLIC;", "GRANT SELECT ON views.report TO PUBLIC;"},
		{"BI Team", `GRANT USAGE ON SCHEMA views TO "BI Team";`, `GRANT SELECT ON views.report TO "BI Team";`},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			if got := GrantUsageSQL("views", tt.role); got != tt.wantUsage {
				t.Errorf("got %q, want %q", got, tt.wantUsage)
			}
			if got := d.GrantSelectSQL("views", tt.role); got != tt.wantSel {
				t.Errorf("got %q, want %q", got, tt.wantSel)
			}
		})
	}
}

func TestResetNamespaceStatements(t *testing.T) {
	want := []Statement{
		{SQL: "DROP SCHEMA IF EXISTS views CASCADE;"},
		{SQL: "CREATE SCHEMA views;"},
	}
	if diff := cmp.Diff(want, ResetNamespaceStatements("views")); diff != "" {
		t.Fatalf("unexpected statements (-want +got):\n%s", diff)
	}
}
