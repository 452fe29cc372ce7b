package sql

import (
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

// runPostgresMigrations applies the embedded schema to dsn using a
// plain database/sql connection handed to the postgres driver plus an
// iofs source over the embedded migration files.
func runPostgresMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("feedstore/trie/sql: open migration connection: %w", err)
	}
	defer db.Close()

	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{
		MigrationsTable: "feedstore_schema_migrations",
		DatabaseName:    "feedstore",
	})
	if err != nil {
		return fmt.Errorf("feedstore/trie/sql: create postgres migration driver: %w", err)
	}

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("feedstore/trie/sql: open embedded migrations: %w", err)
	}
	sourceDriver, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("feedstore/trie/sql: create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return fmt.Errorf("feedstore/trie/sql: create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("feedstore/trie/sql: run migrations: %w", err)
	}
	return nil
}
