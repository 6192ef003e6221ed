package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"eodsync/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// CreateDatabase connects to the server and creates cfg.DBName if it doesn't exist.
func CreateDatabase(ctx context.Context, cfg config.DatabaseConfig) error {
	db, err := sql.Open(cfg.Driver, cfg.ServerDSN())
	if err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}
	defer db.Close()

	if cfg.Driver == config.DriverMySQL {
		if _, err := db.ExecContext(ctx, "CREATE DATABASE IF NOT EXISTS "+quoteMySQLIdentifier(cfg.DBName)); err != nil {
			return fmt.Errorf("create db failed: %w", err)
		}
		return nil
	}

	// postgres has no IF NOT EXISTS for databases
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1);`
	if err := db.QueryRowContext(ctx, query, cfg.DBName).Scan(&exists); err != nil {
		return fmt.Errorf("check db exists failed: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(cfg.DBName)); err != nil {
		return fmt.Errorf("create db failed: %w", err)
	}
	return nil
}

// quoteMySQLIdentifier wraps name in backticks, doubling any inside it.
func quoteMySQLIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
