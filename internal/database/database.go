package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// OpenDB opens a connection pool for the given driver ("mysql" or "sqlite3"),
// pings it and creates the schema.
func OpenDB(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if driver != "mysql" && driver != "sqlite3" {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("%s: empty DSN", driver)
	}

	dsn, err := normalizeDSN(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	// SQLite serializes writers; a single connection avoids "database is locked".
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	if err := Migrate(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, err
	}

	slog.Info("database connection pool established", "driver", driver)
	return db, nil
}

// normalizeDSN forces the MySQL options the store depends on: DATETIME columns
// scan into time.Time (parseTime) and UPDATE reports matched rather than changed
// rows (clientFoundRows), so re-saving identical values is not a "not found".
func normalizeDSN(driver, dsn string) (string, error) {
	if driver != "mysql" {
		return dsn, nil
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysql: parse DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	for _, stmt := range schema(driver) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// schema returns the DDL, kept to the subset MySQL and SQLite both accept.
// MySQL timestamps keep microseconds. go-sqlite3 only parses a column declared
// exactly DATETIME and stores the full precision anyway.
func schema(driver string) []string {
	datetime := "DATETIME"
	if driver == "mysql" {
		datetime = "DATETIME(6)"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			username VARCHAR(100) NOT NULL UNIQUE,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NULL,
			role VARCHAR(16) NOT NULL,
			google_id VARCHAR(255) NULL UNIQUE,
			picture VARCHAR(1024) NULL,
			created_at %[1]s NOT NULL,
			updated_at %[1]s NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			title VARCHAR(100) NOT NULL,
			description VARCHAR(500) NOT NULL,
			price DECIMAL(12,2) NOT NULL,
			image_url VARCHAR(1024) NOT NULL,
			created_by VARCHAR(36) NOT NULL,
			created_at %[1]s NOT NULL,
			updated_at %[1]s NOT NULL
		)`,
	}
	for i, stmt := range stmts {
		stmts[i] = fmt.Sprintf(stmt, datetime)
	}
	return stmts
}
