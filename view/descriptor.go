// Package view models derived views and the order in which they can be built.
//
// A Descriptor is immutable once constructed. Build order is recomputed from
// scratch by Sort on every call; nothing is cached between passes.
package view

import (
	"fmt"
	"strings"
)

// DefaultConnection is the connection a descriptor targets unless told otherwise.
const DefaultConnection = "default"

// Ref identifies a view within a target connection.
type Ref struct {
	Connection string
	Name       string
}

func (r Ref) String() string {
	return r.Connection + "/" + r.Name
}

// Descriptor describes one view. Use New to construct it.
type Descriptor struct {
	name         string
	connection   string
	dependencies []Ref
	sql          string
	params       []any
	materialized bool
	primaryKey   string
	hidden       bool
	description  string
}

type config struct {
	prefix       string
	connection   string
	deps         []*Descriptor
	depNames     []string
	materialized bool
	primaryKey   string
	hidden       bool
	description  string
}

// Option configures a Descriptor under construction.
type Option func(*config)

// WithPrefix prefixes the derived name as prefix_name.
func WithPrefix(prefix string) Option {
	return func(c *config) { c.prefix = prefix }
}

// OnConnection sets the target connection.
func OnConnection(connection string) Option {
	return func(c *config) { c.connection = connection }
}

// DependsOn declares dependencies on already constructed descriptors.
func DependsOn(views ...*Descriptor) Option {
	return func(c *config) { c.deps = append(c.deps, views...) }
}

// DependsOnNames declares dependencies by view name on the same connection.
// Names are used as-is; they are not re-derived.
func DependsOnNames(names ...string) Option {
	return func(c *config) { c.depNames = append(c.depNames, names...) }
}

// Materialized makes the view a materialized view. A non-empty primaryKey
// gets a unique index, which concurrent refresh requires.
func Materialized(primaryKey string) Option {
	return func(c *config) {
		c.materialized = true
		c.primaryKey = primaryKey
	}
}

// Hidden suppresses SELECT grants and documentation for the view.
func Hidden() Option {
	return func(c *config) { c.hidden = true }
}

// WithDescription attaches a human readable description used by docs.
func WithDescription(description string) Option {
	return func(c *config) { c.description = description }
}

// New resolves src and builds a descriptor. Dependencies on another
// connection are rejected here with a *ConfigurationError.
func New(identifier string, src Source, opts ...Option) (*Descriptor, error) {
	cfg := config{connection: DefaultConnection}
	for _, opt := range opts {
		opt(&cfg)
	}

	name := DeriveName(identifier, cfg.prefix)
	if name == "" {
		return nil, &ConfigurationError{Reason: "view name is empty"}
	}
	if cfg.connection == "" {
		return nil, &ConfigurationError{View: name, Reason: "connection is empty"}
	}
	if cfg.primaryKey != "" && !cfg.materialized {
		return nil, &ConfigurationError{View: name, Reason: "primary key requires a materialized view"}
	}

	deps := make([]Ref, 0, len(cfg.deps)+len(cfg.depNames))
	seen := make(map[Ref]bool)
	add := func(ref Ref) {
		if !seen[ref] {
			seen[ref] = true
			deps = append(deps, ref)
		}
	}
	for _, dep := range cfg.deps {
		if dep == nil {
			return nil, &ConfigurationError{View: name, Reason: "nil dependency"}
		}
		if dep.connection != cfg.connection {
			return nil, &ConfigurationError{
				View:   name,
				Reason: fmt.Sprintf("dependency %s targets connection %q, view targets %q", dep.name, dep.connection, cfg.connection),
			}
		}
		add(dep.Ref())
	}
	for _, depName := range cfg.depNames {
		depName = strings.TrimSpace(depName)
		if depName == "" {
			return nil, &ConfigurationError{View: name, Reason: "empty dependency name"}
		}
		add(Ref{Connection: cfg.connection, Name: depName})
	}

	sql, params, err := Resolve(src)
	if err != nil {
		return nil, fmt.Errorf("view %s: %w", name, err)
	}

	return &Descriptor{
		name:         name,
		connection:   cfg.connection,
		dependencies: deps,
		sql:          sql,
		params:       params,
		materialized: cfg.materialized,
		primaryKey:   cfg.primaryKey,
		hidden:       cfg.hidden,
		description:  cfg.description,
	}, nil
}

// MustNew is like New but panics on error. Intended for package-level view
// declarations.
func MustNew(identifier string, src Source, opts ...Option) *Descriptor {
	d, err := New(identifier, src, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// DeriveName normalizes a declared identifier into a view name: dashes are
// removed, the result is lower-cased and optionally prefixed.
//
//	DeriveName("MyPostgresView", "")   // "mypostgresview"
//	DeriveName("SimpleView", "test")   // "test_simpleview"
func DeriveName(identifier, prefix string) string {
	name := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(identifier), "-", ""))
	if name == "" {
		return ""
	}
	if prefix != "" {
		return prefix + "_" + name
	}
	return name
}

func (d *Descriptor) Name() string         { return d.name }
func (d *Descriptor) Connection() string   { return d.connection }
func (d *Descriptor) SQL() string          { return d.sql }
func (d *Descriptor) IsMaterialized() bool { return d.materialized }
func (d *Descriptor) PrimaryKey() string   { return d.primaryKey }
func (d *Descriptor) IsHidden() bool       { return d.hidden }
func (d *Descriptor) Description() string  { return d.description }

// Ref returns the identity of the descriptor.
func (d *Descriptor) Ref() Ref {
	return Ref{Connection: d.connection, Name: d.name}
}

// Dependencies returns a copy of the declared dependencies.
func (d *Descriptor) Dependencies() []Ref {
	return append([]Ref(nil), d.dependencies...)
}

// Params returns a copy of the positional parameters.
func (d *Descriptor) Params() []any {
	return append([]any(nil), d.params...)
}

func (d *Descriptor) String() string {
	return d.Ref().String()
}
