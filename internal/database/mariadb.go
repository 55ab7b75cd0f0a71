// Package database opens the MariaDB pool and Redis client the service runs
// on and applies schema migrations. Both connections are created once at
// startup and injected into the plugins.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// MariaDB driver -- imported for side effect of registering the driver.
	_ "github.com/go-sql-driver/mysql"

	"github.com/keyxmakerx/todoapi/internal/config"
)

// NewMariaDB opens the task and user store and waits until it answers.
// Cancelling ctx aborts the wait, e.g. on SIGTERM during startup.
func NewMariaDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening mariadb connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := waitFor(ctx, "mariadb", startupBackoff, db.PingContext); err != nil {
		db.Close()
		return nil, err
	}

	var version string
	if err := db.QueryRowContext(ctx, `SELECT VERSION()`).Scan(&version); err == nil {
		slog.Info("connected to MariaDB", slog.String("version", version))
	}

	return db, nil
}
