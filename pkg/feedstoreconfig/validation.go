package feedstoreconfig

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the configuration for correctness, combining
// struct-tag-driven validation with imperative cross-struct checks that
// go-playground/validator cannot express (required_if tags only resolve
// sibling fields within the same struct, not a parent's).
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := validateStorage(&cfg.Storage); err != nil {
		return err
	}

	if err := validateTrie(&cfg.Trie); err != nil {
		return err
	}

	if cfg.HTTPAPI.Auth.Enabled && cfg.HTTPAPI.Auth.Secret == "" {
		return fmt.Errorf("http_api.auth.secret is required when http_api.auth.enabled is true")
	}

	return nil
}

// validateStorage checks S3StorageConfig fields that are only required when
// StorageConfig.Backend selects the S3 backend.
func validateStorage(cfg *StorageConfig) error {
	if cfg.Backend != "s3" {
		return nil
	}

	if cfg.S3.Bucket == "" {
		return fmt.Errorf("storage.s3.bucket is required when storage.backend is \"s3\"")
	}

	return nil
}

// validateTrie checks SQLTrieConfig fields that are only required when
// TrieConfig.Backend selects the SQL backend.
func validateTrie(cfg *TrieConfig) error {
	if cfg.Backend != "sql" {
		return nil
	}

	if cfg.SQL.Dialect == "" {
		return fmt.Errorf("trie.sql.dialect is required when trie.backend is \"sql\"")
	}

	if cfg.SQL.DSN == "" {
		return fmt.Errorf("trie.sql.dsn is required when trie.backend is \"sql\"")
	}

	return nil
}
