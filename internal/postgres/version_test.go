package postgres_test

import (
	"context"
	"testing"

	"github.com/pgviews/pgviews/internal/postgres"
	"github.com/pgviews/pgviews/testutil"
)

func TestServerVersion(t *testing.T) {
	ctx := context.Background()
	container := testutil.SetupPostgresContainer(ctx, t)
	defer container.Terminate(ctx, t)

	major, err := postgres.ServerVersion(ctx, container.Conn)
	if err != nil {
		t.Fatalf("ServerVersion failed: %v", err)
	}
	if major < 14 {
		t.Errorf("expected a supported major version, got %d", major)
	}
}
