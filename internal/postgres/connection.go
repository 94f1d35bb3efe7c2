// Package postgres opens connections to target databases and executes
// statements on them.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/pgviews/pgviews/internal/logger"
)

// queryExecMode makes pgx encode bound parameters client-side. PostgreSQL
// rejects server-side parameters in DDL, and view bodies carry parameters.
const queryExecMode = "simple_protocol"

// ConnectionConfig holds database connection parameters
type ConnectionConfig struct {
	DSN             string
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	ApplicationName string
}

// ApplyEnv fills fields left empty from the standard libpq environment
// variables. A config with an explicit DSN is left untouched.
func (c *ConnectionConfig) ApplyEnv() {
	if c.DSN != "" {
		return
	}
	if c.Host == "" {
		c.Host = envOr("PGHOST", "localhost")
	}
	if c.Port == 0 {
		c.Port = envIntOr("PGPORT", 5432)
	}
	if c.Database == "" {
		c.Database = envOr("PGDATABASE", "")
	}
	if c.User == "" {
		c.User = envOr("PGUSER", "")
	}
	if c.Password == "" {
		c.Password = envOr("PGPASSWORD", "")
	}
	if c.SSLMode == "" {
		c.SSLMode = envOr("PGSSLMODE", "prefer")
	}
	if c.ApplicationName == "" {
		c.ApplicationName = envOr("PGAPPNAME", "pgviews")
	}
}

func envOr(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envIntOr(name string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(name)); err == nil {
		return n
	}
	return fallback
}

// Connect establishes a database connection using the provided configuration
func Connect(ctx context.Context, config *ConnectionConfig) (*sql.DB, error) {
	log := logger.Get()

	log.Debug("Attempting database connection",
		"host", config.Host,
		"port", config.Port,
		"database", config.Database,
		"user", config.User,
		"sslmode", config.SSLMode,
		"application_name", config.ApplicationName,
		"dsn_provided", config.DSN != "",
	)

	conn, err := sql.Open("pgx", BuildDSN(config))
	if err != nil {
		log.Debug("Database connection failed", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		log.Debug("Database ping failed", "error", err)
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if logger.IsDebug() {
		major, err := ServerVersion(ctx, conn)
		if err != nil {
			log.Debug("Could not detect server version", "error", err)
		} else {
			log.Debug("Database connection established successfully", "server_version", major)
		}
	}
	return conn, nil
}

// BuildDSN constructs a PostgreSQL connection string from connection parameters.
// An explicit DSN wins over the individual fields.
func BuildDSN(config *ConnectionConfig) string {
	if config.DSN != "" {
		return withExecMode(config.DSN)
	}

	var parts []string

	parts = append(parts, fmt.Sprintf("host=%s", config.Host))
	parts = append(parts, fmt.Sprintf("port=%d", config.Port))
	parts = append(parts, fmt.Sprintf("dbname=%s", config.Database))
	parts = append(parts, fmt.Sprintf("user=%s", config.User))

	if config.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", config.Password))
	}

	if config.SSLMode != "" {
		parts = append(parts, fmt.Sprintf("sslmode=%s", config.SSLMode))
	}

	if config.ApplicationName != "" {
		parts = append(parts, fmt.Sprintf("application_name=%s", config.ApplicationName))
	}

	parts = append(parts, "default_query_exec_mode="+queryExecMode)

	return strings.Join(parts, " ")
}

// withExecMode adds the query exec mode to a URL or keyword/value DSN unless
// the caller chose one already
func withExecMode(dsn string) string {
	if strings.Contains(dsn, "default_query_exec_mode") {
		return dsn
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + "default_query_exec_mode=" + queryExecMode
	}
	return dsn + " default_query_exec_mode=" + queryExecMode
}
