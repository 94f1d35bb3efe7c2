package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgviews/pgviews/view"
)

const validManifest = `version: 1
namespace: reporting
grant_to: analyst
connections:
  default:
    dsn: postgres://app:${ENV:PGVIEWS_TEST_PASSWORD}@db:5432/app
  warehouse:
    host: warehouse
    port: 5433
    database: dw
    user: loader
    password: ${ENV:PGVIEWS_TEST_PASSWORD}
views:
  - name: Orders
    description: Orders placed this year
    sql: SELECT * FROM public.orders WHERE placed_on >= $1
    params: ["2026-01-01"]
  - name: Daily-Revenue
    sql_file: sql/daily_revenue.sql
    depends_on: [orders]
    materialized: true
    primary_key: day
  - name: Loads
    prefix: etl
    connection: warehouse
    sql: SELECT * FROM public.loads
    hidden: true
`

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "pgviews.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadValidManifest(t *testing.T) {
	t.Setenv("PGVIEWS_TEST_PASSWORD", "s3cret")

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sql"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sql", "daily_revenue.sql"),
		[]byte("SELECT placed_on AS day, sum(total) AS revenue\n\\i from_orders.sql\nGROUP BY placed_on;\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sql", "from_orders.sql"),
		[]byte("FROM reporting.orders"), 0o644))

	m, err := Load(writeManifest(t, dir, validManifest))
	require.NoError(t, err)

	assert.Equal(t, "reporting", m.Namespace)
	assert.Equal(t, "analyst", m.GrantTo)
	assert.Equal(t, []string{"default", "warehouse"}, m.ConnectionNames())
	assert.Equal(t, "postgres://app:s3cret@db:5432/app", m.Connections["default"].DSN)
	assert.Equal(t, "s3cret", m.Connections["warehouse"].Password)

	reg, err := m.Registry()
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Len())
	assert.Equal(t, []string{"default", "warehouse"}, reg.Connections())

	orders, ok := reg.Lookup(view.Ref{Connection: "default", Name: "orders"})
	require.True(t, ok)
	assert.Equal(t, "Orders placed this year", orders.Description())
	assert.Equal(t, []any{"2026-01-01"}, orders.Params())

	daily, ok := reg.Lookup(view.Ref{Connection: "default", Name: "dailyrevenue"})
	require.True(t, ok)
	assert.True(t, daily.IsMaterialized())
	assert.Equal(t, "day", daily.PrimaryKey())
	assert.Contains(t, daily.SQL(), "FROM reporting.orders")
	assert.Equal(t, []view.Ref{{Connection: "default", Name: "orders"}}, daily.Dependencies())

	loads, ok := reg.Lookup(view.Ref{Connection: "warehouse", Name: "etl_loads"})
	require.True(t, ok)
	assert.True(t, loads.IsHidden())

	ordered, err := view.Sort(reg.ByConnection()["default"])
	require.NoError(t, err)
	require.Len(t, ordered, 2)
	assert.Equal(t, "orders", ordered[0].Name())
}

func TestLoadDefaults(t *testing.T) {
	m, err := Parse([]byte(`
connections:
  default: {}
views:
  - name: One
    sql: SELECT 1
`))
	require.NoError(t, err)

	assert.Equal(t, CurrentVersion, m.Version)
	assert.Equal(t, view.DefaultNamespace, m.Namespace)
	assert.Equal(t, view.DefaultConnection, m.Views[0].Connection)
}

func TestConnectionConfigFallsBackToEnvironment(t *testing.T) {
	t.Setenv("PGHOST", "pg.internal")
	t.Setenv("PGUSER", "reporter")

	m, err := Parse([]byte(`
connections:
  default:
    database: app
    port: 6543
`))
	require.NoError(t, err)

	cfg, err := m.ConnectionConfig("default")
	require.NoError(t, err)
	assert.Equal(t, "pg.internal", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, "app", cfg.Database)
	assert.Equal(t, "reporter", cfg.User)

	_, err = m.ConnectionConfig("missing")
	assert.Error(t, err)
}

func TestLoadInvalidManifests(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "unsupported version",
			content: "version: 99\n",
			errMsg:  "unsupported manifest version 99",
		},
		{
			name: "missing sql",
			content: `
connections: {default: {}}
views: [{name: empty}]
`,
			errMsg: "exactly one of sql and sql_file",
		},
		{
			name: "sql and sql_file",
			content: `
connections: {default: {}}
views: [{name: both, sql: SELECT 1, sql_file: one.sql}]
`,
			errMsg: "exactly one of sql and sql_file",
		},
		{
			name: "unknown connection",
			content: `
connections: {default: {}}
views: [{name: lost, sql: SELECT 1, connection: archive}]
`,
			errMsg: `unknown connection "archive"`,
		},
		{
			name: "primary key without materialized",
			content: `
connections: {default: {}}
views: [{name: keyed, sql: SELECT 1 AS id, primary_key: id}]
`,
			errMsg: "primary_key requires materialized",
		},
		{
			name: "unset secret",
			content: `
connections:
  default:
    password: ${ENV:PGVIEWS_TEST_UNSET_VARIABLE}
`,
			errMsg: "environment variable PGVIEWS_TEST_UNSET_VARIABLE not set",
		},
		{
			name:    "malformed yaml",
			content: "views: [",
			errMsg:  "parsing manifest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRegistryReportsMissingSQLFile(t *testing.T) {
	dir := t.TempDir()
	m, err := Load(writeManifest(t, dir, `
connections: {default: {}}
views: [{name: ghost, sql_file: sql/ghost.sql}]
`))
	require.NoError(t, err)

	_, err = m.Registry()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "view ghost")
}

func TestResolveValue(t *testing.T) {
	t.Setenv("PGVIEWS_TEST_HOST", "db.example.com")

	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"${ENV:PGVIEWS_TEST_HOST}", "db.example.com"},
		{"postgres://${ENV:PGVIEWS_TEST_HOST}:5432/app", "postgres://db.example.com:5432/app"},
		{"", ""},
	}
	for _, tt := range tests {
		got, err := ResolveValue(tt.input)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestRegistryDerivesDependencyNames(t *testing.T) {
	dir := t.TempDir()
	m, err := Load(writeManifest(t, dir, `
connections: {default: {}, other: {}}
views:
  - {name: Summary, sql: SELECT 1, depends_on: [My-View, Base]}
  - {name: Direct, sql: SELECT 1, depends_on: [x_myview]}
  - {name: My-View, prefix: x, sql: SELECT 1}
  - {name: Base, sql: SELECT 1}
  - {name: My-View, connection: other, sql: SELECT 1}
`))
	require.NoError(t, err)

	reg, err := m.Registry()
	require.NoError(t, err)

	summary, ok := reg.Lookup(view.Ref{Connection: "default", Name: "summary"})
	require.True(t, ok)
	assert.Equal(t, []view.Ref{
		{Connection: "default", Name: "x_myview"},
		{Connection: "default", Name: "base"},
	}, summary.Dependencies())

	direct, ok := reg.Lookup(view.Ref{Connection: "default", Name: "direct"})
	require.True(t, ok)
	assert.Equal(t, []view.Ref{{Connection: "default", Name: "x_myview"}}, direct.Dependencies())

	ordered, err := view.Sort(reg.ByConnection()["default"])
	require.NoError(t, err)
	require.Len(t, ordered, 4)
	position := make(map[string]int, len(ordered))
	for i, d := range ordered {
		position[d.Name()] = i
	}
	assert.Less(t, position["x_myview"], position["summary"])
	assert.Less(t, position["base"], position["summary"])
	assert.Less(t, position["x_myview"], position["direct"])
}
