// Package refresh issues REFRESH MATERIALIZED VIEW statements against views
// created by an earlier sync.
package refresh

import (
	"context"
	"fmt"

	"github.com/pgviews/pgviews/internal/logger"
	"github.com/pgviews/pgviews/internal/postgres"
	"github.com/pgviews/pgviews/view"
)

// Refresher refreshes materialized views in a namespace. It runs outside the
// sync transaction and may be called concurrently.
type Refresher struct {
	Namespace string
}

// New returns a Refresher for namespace, defaulting to view.DefaultNamespace.
func New(namespace string) *Refresher {
	if namespace == "" {
		namespace = view.DefaultNamespace
	}
	return &Refresher{Namespace: namespace}
}

// Refresh refreshes one materialized view. Requesting a concurrent refresh of
// a view without a primary key fails before any statement is sent.
func (r *Refresher) Refresh(ctx context.Context, exec postgres.Execer, d *view.Descriptor, concurrently bool) error {
	stmt, err := d.RefreshSQL(r.Namespace, concurrently)
	if err != nil {
		return err
	}

	logger.For("refresh").Info("Refreshing materialized view",
		"view", d.Name(),
		"connection", d.Connection(),
		"concurrently", concurrently,
	)
	if _, err := postgres.ExecContextWithLogging(ctx, exec, stmt, "refresh "+d.Name()); err != nil {
		return fmt.Errorf("failed to refresh materialized view %s: %w", d.Name(), err)
	}
	return nil
}

// Targets returns the materialized views among views in refresh order,
// upstream first. Every target is checked against concurrently, so a batch
// holding a view that cannot be refreshed that way is rejected as a whole.
func (r *Refresher) Targets(views []*view.Descriptor, concurrently bool) ([]*view.Descriptor, error) {
	ordered, err := view.Sort(views)
	if err != nil {
		return nil, err
	}

	var targets []*view.Descriptor
	for _, d := range ordered {
		if !d.IsMaterialized() {
			continue
		}
		if _, err := d.RefreshSQL(r.Namespace, concurrently); err != nil {
			return nil, err
		}
		targets = append(targets, d)
	}
	return targets, nil
}

// RefreshAll refreshes every materialized view among views, upstream views
// first. Nothing is sent unless every target can be refreshed as requested.
func (r *Refresher) RefreshAll(ctx context.Context, exec postgres.Execer, views []*view.Descriptor, concurrently bool) (int, error) {
	targets, err := r.Targets(views, concurrently)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, d := range targets {
		if err := r.Refresh(ctx, exec, d, concurrently); err != nil {
			return refreshed, err
		}
		refreshed++
	}
	return refreshed, nil
}
