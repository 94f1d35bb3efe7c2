package util

import (
	"fmt"
	"sort"

	"github.com/pgviews/pgviews/view"
)

// SelectConnections narrows views to the named connections. An empty
// selection keeps every connection.
func SelectConnections(views map[string][]*view.Descriptor, names []string) (map[string][]*view.Descriptor, error) {
	if len(names) == 0 {
		return views, nil
	}
	selected := make(map[string][]*view.Descriptor, len(names))
	for _, name := range names {
		group, ok := views[name]
		if !ok {
			return nil, fmt.Errorf("no views declared for connection %q", name)
		}
		selected[name] = group
	}
	return selected, nil
}

// SortedConnections returns the connection names of views, sorted
func SortedConnections(views map[string][]*view.Descriptor) []string {
	names := make([]string, 0, len(views))
	for name := range views {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
