package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config selects the database driver and location
type Config struct {
	Driver  string
	DSN     string
	DataDir string
}

// Connect opens the database and creates the schema if needed
func Connect(cfg Config) (*sqlx.DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	dsn := cfg.DSN
	switch driver {
	case DriverSQLite:
		if dsn == "" {
			dataDir := cfg.DataDir
			if dataDir == "" {
				dataDir = "data"
			}
			// Create data directory if it doesn't exist
			if err := os.MkdirAll(dataDir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
			dsn = filepath.Join(dataDir, "revtrack.db")
		}
	case DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("postgres driver requires a DSN")
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		// One connection keeps PRAGMAs and in-memory databases alive
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)

		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// The DDL sticks to the subset shared by SQLite and PostgreSQL
var schema = []struct {
	table string
	ddl   string
}{
	{"subjects", `
		CREATE TABLE IF NOT EXISTS subjects (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL
		)`},
	{"topics", `
		CREATE TABLE IF NOT EXISTS topics (
			subject_id BIGINT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
			id BIGINT NOT NULL,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			last_revised TEXT NOT NULL,
			revision_level INTEGER NOT NULL DEFAULT 0,
			next_revision_date TEXT NOT NULL,
			is_complete BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (subject_id, id)
		)`},
	{"settings", `
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`},
	{"stats", `
		CREATE TABLE IF NOT EXISTS stats (
			date TEXT PRIMARY KEY
		)`},
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema(db *sqlx.DB) error {
	for _, s := range schema {
		if _, err := db.Exec(s.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", s.table, err)
		}
	}
	return nil
}
