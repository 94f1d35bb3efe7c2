package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// ServerVersion returns the major version of the connected server, e.g. 17
// for 17.5.
func ServerVersion(ctx context.Context, db *sql.DB) (int, error) {
	// server_version_num is 170005 for 17.5
	var versionNum int
	if err := db.QueryRowContext(ctx, "SHOW server_version_num").Scan(&versionNum); err != nil {
		return 0, fmt.Errorf("failed to query PostgreSQL version: %w", err)
	}
	return versionNum / 10000, nil
}
