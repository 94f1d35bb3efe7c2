package pgviews

import (
	"context"

	"github.com/pgviews/pgviews/internal/manifest"
)

// SyncManifest is a convenience function that loads a manifest, connects to
// every connection it declares and syncs its views.
func SyncManifest(ctx context.Context, path string) (*SyncSummary, error) {
	m, views, err := loadManifest(path)
	if err != nil {
		return nil, err
	}

	dbs, err := m.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer manifest.CloseAll(dbs)

	client := NewClient(Options{Namespace: m.Namespace, GrantTo: m.GrantTo})
	return client.Sync(ctx, SyncOptions{Databases: dbs, Views: views})
}

// PlanManifest is a convenience function that returns the statements a sync
// of the manifest would run, per connection.
func PlanManifest(path string) (map[string][]Statement, error) {
	m, views, err := loadManifest(path)
	if err != nil {
		return nil, err
	}
	return NewClient(Options{Namespace: m.Namespace, GrantTo: m.GrantTo}).Plan(views)
}

func loadManifest(path string) (*manifest.Manifest, []*View, error) {
	m, reg, err := manifest.LoadRegistry(path)
	if err != nil {
		return nil, nil, err
	}

	byConnection := reg.ByConnection()
	var views []*View
	for _, conn := range reg.Connections() {
		views = append(views, byConnection[conn]...)
	}
	return m, views, nil
}
