// Package sql provides a SQL-backed Trie over GORM, supporting
// Postgres and SQLite dialects.
package sql

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marmos91/feedstore/pkg/feedstore"
)

// Dialect selects the underlying SQL engine.
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

// record is the single-table schema backing the trie: one row per
// key, storing the raw value bytes.
type record struct {
	Key   string `gorm:"column:key;primaryKey"`
	Value []byte `gorm:"column:value"`
}

func (record) TableName() string { return "feedstore_records" }

// Trie is a feedstore.Trie backed by a GORM *gorm.DB.
type Trie struct {
	db *gorm.DB
}

// Open opens a SQL trie. dsn is a Postgres connection string or a
// SQLite file path/":memory:", depending on dialect. Postgres schema
// setup runs through golang-migrate's embedded migrations; SQLite uses
// GORM's AutoMigrate since this codebase's golang-migrate usage is
// Postgres-specific (no SQLite migration set exists here).
func Open(dialect Dialect, dsn string) (*Trie, error) {
	var gormDialector gorm.Dialector
	switch dialect {
	case DialectPostgres:
		if err := runPostgresMigrations(dsn); err != nil {
			return nil, err
		}
		gormDialector = postgres.Open(dsn)
	case DialectSQLite:
		gormDialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("feedstore/trie/sql: unknown dialect %d", dialect)
	}

	db, err := gorm.Open(gormDialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("feedstore/trie/sql: open database: %w", err)
	}

	if dialect == DialectSQLite {
		if err := db.AutoMigrate(&record{}); err != nil {
			return nil, fmt.Errorf("feedstore/trie/sql: auto-migrate: %w", err)
		}
	}

	return &Trie{db: db}, nil
}

func (t *Trie) Ready(ctx context.Context) error {
	sqlDB, err := t.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Put upserts the record for key.
func (t *Trie) Put(ctx context.Context, key string, value []byte) error {
	rec := record{Key: key, Value: value}
	err := t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("feedstore/trie/sql: put %s: %w", key, err)
	}
	return nil
}

func (t *Trie) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var rec record
	err := t.db.WithContext(ctx).Where("key = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("feedstore/trie/sql: get %s: %w", key, err)
	}
	return rec.Value, true, nil
}

func (t *Trie) Delete(ctx context.Context, key string) error {
	err := t.db.WithContext(ctx).Where("key = ?", key).Delete(&record{}).Error
	if err != nil {
		return fmt.Errorf("feedstore/trie/sql: delete %s: %w", key, err)
	}
	return nil
}

// List returns every record whose key has the given prefix. Keys in
// this package are always the fixed "@feedstore/" namespace plus a
// lowercase-hex public key, so a LIKE pattern needs no escaping.
func (t *Trie) List(ctx context.Context, prefix string) ([]feedstore.TrieEntry, error) {
	var recs []record
	err := t.db.WithContext(ctx).Where("key LIKE ?", prefix+"%").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("feedstore/trie/sql: list %s: %w", prefix, err)
	}

	entries := make([]feedstore.TrieEntry, len(recs))
	for i, rec := range recs {
		entries[i] = feedstore.TrieEntry{Key: rec.Key, Value: rec.Value}
	}
	return entries, nil
}

func (t *Trie) Close(ctx context.Context) error {
	sqlDB, err := t.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ feedstore.Trie = (*Trie)(nil)
