package view

import (
	"fmt"
	"sort"
	"strings"
)

// ConfigurationError reports a view definition that can never be synced,
// detected before any statement reaches the database.
type ConfigurationError struct {
	View   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.View == "" {
		return "invalid view configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid view configuration for %s: %s", e.View, e.Reason)
}

// UnknownDependencyError is returned by Sort when a view depends on a view
// that is not part of the input set.
type UnknownDependencyError struct {
	View       Ref
	Dependency Ref
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("view %s depends on unknown view %s", e.View, e.Dependency)
}

// CyclicDependencyError is returned by Sort when the dependency relation is
// not acyclic.
type CyclicDependencyError struct {
	// Blocked maps every view that could not be ordered to its unresolved
	// dependencies. Views downstream of a cycle are included.
	Blocked map[Ref][]Ref
	// Cycles holds the strongly connected components that form cycles,
	// each sorted by name. A self-dependency is a one-element cycle.
	Cycles [][]Ref
}

func (e *CyclicDependencyError) Error() string {
	groups := make([]string, 0, len(e.Cycles))
	for _, cycle := range e.Cycles {
		names := make([]string, len(cycle))
		for i, ref := range cycle {
			names[i] = ref.String()
		}
		groups = append(groups, "{"+strings.Join(names, ", ")+"}")
	}

	blocked := make([]string, 0, len(e.Blocked))
	for ref, deps := range e.Blocked {
		names := make([]string, len(deps))
		for i, dep := range deps {
			names[i] = dep.String()
		}
		blocked = append(blocked, fmt.Sprintf("%s -> [%s]", ref, strings.Join(names, ", ")))
	}
	sort.Strings(blocked)

	return fmt.Sprintf("cyclic dependency among views %s (blocked: %s)",
		strings.Join(groups, ", "), strings.Join(blocked, "; "))
}

// BlockedNames returns the names of all blocked views, sorted.
func (e *CyclicDependencyError) BlockedNames() []string {
	names := make([]string, 0, len(e.Blocked))
	for ref := range e.Blocked {
		names = append(names, ref.Name)
	}
	sort.Strings(names)
	return names
}
