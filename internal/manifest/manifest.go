// Package manifest loads view definitions and target connections from a YAML
// file.
package manifest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/pgviews/pgviews/internal/include"
	"github.com/pgviews/pgviews/internal/postgres"
	"github.com/pgviews/pgviews/view"
)

const CurrentVersion = 1

// Manifest is the top-level manifest document.
type Manifest struct {
	Version     int                          `yaml:"version"`
	Namespace   string                       `yaml:"namespace,omitempty"`
	GrantTo     string                       `yaml:"grant_to,omitempty"`
	Connections map[string]*ConnectionConfig `yaml:"connections"`
	Views       []ViewConfig                 `yaml:"views"`

	// dir is the directory sql_file paths are resolved against.
	dir string
}

// ConnectionConfig defines one target database. DSN wins over the
// individual fields; unset fields fall back to the PG* environment.
type ConnectionConfig struct {
	DSN      string `yaml:"dsn,omitempty"`
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Database string `yaml:"database,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	SSLMode  string `yaml:"sslmode,omitempty"`
}

// ViewConfig declares one view. Exactly one of SQL and SQLFile is set.
type ViewConfig struct {
	Name         string   `yaml:"name"`
	Prefix       string   `yaml:"prefix,omitempty"`
	Connection   string   `yaml:"connection,omitempty"`
	Description  string   `yaml:"description,omitempty"`
	SQL          string   `yaml:"sql,omitempty"`
	SQLFile      string   `yaml:"sql_file,omitempty"`
	Params       []any    `yaml:"params,omitempty"`
	DependsOn    []string `yaml:"depends_on,omitempty"`
	Materialized bool     `yaml:"materialized,omitempty"`
	PrimaryKey   string   `yaml:"primary_key,omitempty"`
	Hidden       bool     `yaml:"hidden,omitempty"`
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving manifest path: %w", err)
	}
	m.dir = filepath.Dir(abs)
	return m, nil
}

// Parse decodes a manifest document. sql_file entries resolve against the
// working directory.
func Parse(data []byte) (*Manifest, error) {
	m := &Manifest{dir: "."}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	if m.Version == 0 {
		m.Version = CurrentVersion
	}
	if m.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported manifest version %d (expected %d)", m.Version, CurrentVersion)
	}

	if err := m.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	m.applyDefaults()
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manifest) applyDefaults() {
	if m.Namespace == "" {
		m.Namespace = view.DefaultNamespace
	}
	if m.Connections == nil {
		m.Connections = make(map[string]*ConnectionConfig)
	}
	for i := range m.Views {
		if m.Views[i].Connection == "" {
			m.Views[i].Connection = view.DefaultConnection
		}
	}
}

func (m *Manifest) validate() error {
	for name, c := range m.Connections {
		if c == nil {
			return fmt.Errorf("connection %s: empty configuration", name)
		}
	}
	for i, v := range m.Views {
		if v.Name == "" {
			return fmt.Errorf("views[%d]: name is required", i)
		}
		if (v.SQL == "") == (v.SQLFile == "") {
			return fmt.Errorf("view %s: exactly one of sql and sql_file must be set", v.Name)
		}
		if v.PrimaryKey != "" && !v.Materialized {
			return fmt.Errorf("view %s: primary_key requires materialized: true", v.Name)
		}
		if _, ok := m.Connections[v.Connection]; !ok {
			return fmt.Errorf("view %s: unknown connection %q", v.Name, v.Connection)
		}
	}
	return nil
}

var secretPattern = regexp.MustCompile(`\$\{ENV:([^}]+)\}`)

func (m *Manifest) resolveSecrets() error {
	for name, c := range m.Connections {
		if c == nil {
			continue
		}
		for field, value := range map[string]*string{
			"dsn":      &c.DSN,
			"host":     &c.Host,
			"user":     &c.User,
			"password": &c.Password,
		} {
			resolved, err := ResolveValue(*value)
			if err != nil {
				return fmt.Errorf("connection %s %s: %w", name, field, err)
			}
			*value = resolved
		}
	}
	return nil
}

// ResolveValue replaces every ${ENV:NAME} reference in val with the value of
// the environment variable. An unset variable is an error.
func ResolveValue(val string) (string, error) {
	var missing string
	resolved := secretPattern.ReplaceAllStringFunc(val, func(ref string) string {
		name := secretPattern.FindStringSubmatch(ref)[1]
		v, ok := os.LookupEnv(name)
		if !ok && missing == "" {
			missing = name
		}
		return v
	})
	if missing != "" {
		return "", fmt.Errorf("environment variable %s not set", missing)
	}
	return resolved, nil
}

// ConnectionNames returns the declared connection names, sorted.
func (m *Manifest) ConnectionNames() []string {
	names := make([]string, 0, len(m.Connections))
	for name := range m.Connections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConnectionConfig returns the connection settings for name, with unset
// fields filled from the PG* environment.
func (m *Manifest) ConnectionConfig(name string) (*postgres.ConnectionConfig, error) {
	c, ok := m.Connections[name]
	if !ok {
		return nil, fmt.Errorf("unknown connection %q", name)
	}
	cfg := &postgres.ConnectionConfig{
		DSN:      c.DSN,
		Host:     c.Host,
		Port:     c.Port,
		Database: c.Database,
		User:     c.User,
		Password: c.Password,
		SSLMode:  c.SSLMode,
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// Connect opens the named connections, or every declared connection when no
// name is given. On failure the handles opened so far are closed.
func (m *Manifest) Connect(ctx context.Context, names ...string) (map[string]*sql.DB, error) {
	if len(names) == 0 {
		names = m.ConnectionNames()
	}
	dbs := make(map[string]*sql.DB, len(names))
	for _, name := range names {
		cfg, err := m.ConnectionConfig(name)
		if err != nil {
			CloseAll(dbs)
			return nil, err
		}
		db, err := postgres.Connect(ctx, cfg)
		if err != nil {
			CloseAll(dbs)
			return nil, fmt.Errorf("connection %s: %w", name, err)
		}
		dbs[name] = db
	}
	return dbs, nil
}

// CloseAll closes every handle in dbs.
func CloseAll(dbs map[string]*sql.DB) {
	for _, db := range dbs {
		db.Close()
	}
}

// Registry builds a descriptor for every view in the manifest. Dependency
// names resolve within the view's own connection: a depends_on entry naming
// another manifest view by its name field refers to that view's derived name
// (prefix included); any other entry is derived like a view name.
func (m *Manifest) Registry() (*view.Registry, error) {
	derived := make(map[view.Ref]string, len(m.Views))
	for _, v := range m.Views {
		derived[view.Ref{Connection: v.Connection, Name: v.Name}] = view.DeriveName(v.Name, v.Prefix)
	}

	reg := view.NewRegistry()
	for _, v := range m.Views {
		d, err := m.descriptor(v, derived)
		if err != nil {
			return nil, err
		}
		reg.Register(d)
	}
	return reg, nil
}

func (m *Manifest) descriptor(v ViewConfig, derived map[view.Ref]string) (*view.Descriptor, error) {
	body := v.SQL
	if v.SQLFile != "" {
		content, err := include.NewProcessor(m.dir).ProcessFile(v.SQLFile)
		if err != nil {
			return nil, fmt.Errorf("view %s: %w", v.Name, err)
		}
		body = content
	}

	opts := []view.Option{
		view.WithPrefix(v.Prefix),
		view.OnConnection(v.Connection),
		view.WithDescription(v.Description),
	}
	if len(v.DependsOn) > 0 {
		deps := make([]string, len(v.DependsOn))
		for i, dep := range v.DependsOn {
			name, ok := derived[view.Ref{Connection: v.Connection, Name: dep}]
			if !ok {
				name = view.DeriveName(dep, "")
			}
			deps[i] = name
		}
		opts = append(opts, view.DependsOnNames(deps...))
	}
	if v.Materialized {
		opts = append(opts, view.Materialized(v.PrimaryKey))
	}
	if v.Hidden {
		opts = append(opts, view.Hidden())
	}

	return view.New(v.Name, view.FromText(body, v.Params...), opts...)
}

// LoadRegistry loads the manifest at path and builds its views.
func LoadRegistry(path string) (*Manifest, *view.Registry, error) {
	m, err := Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	reg, err := m.Registry()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build views: %w", err)
	}
	return m, reg, nil
}
