package commands

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/feedstore/internal/logger"
	"github.com/marmos91/feedstore/pkg/feedstore"
	"github.com/marmos91/feedstore/pkg/feedstore/engine/memlog"
	feedstoreMetrics "github.com/marmos91/feedstore/pkg/feedstore/metrics"
	"github.com/marmos91/feedstore/pkg/feedstore/storage/file"
	"github.com/marmos91/feedstore/pkg/feedstore/storage/memory"
	s3storage "github.com/marmos91/feedstore/pkg/feedstore/storage/s3"
	triebadger "github.com/marmos91/feedstore/pkg/feedstore/trie/badger"
	triememory "github.com/marmos91/feedstore/pkg/feedstore/trie/memory"
	sqltrie "github.com/marmos91/feedstore/pkg/feedstore/trie/sql"
	"github.com/marmos91/feedstore/pkg/feedstoreconfig"
)

// buildStorage constructs the configured Storage backend, instrumented
// with m when metrics are enabled.
func buildStorage(ctx context.Context, cfg feedstoreconfig.StorageConfig, m feedstoreMetrics.Metrics) (feedstore.Storage, error) {
	switch cfg.Backend {
	case "memory":
		return feedstore.InstrumentStorage(memory.New(), m, "memory"), nil
	case "file":
		st, err := file.New(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open file storage at %s: %w", cfg.Path, err)
		}
		return feedstore.InstrumentStorage(st, m, "file"), nil
	case "s3":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3.Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.S3.Endpoint != "" {
				o.BaseEndpoint = &cfg.S3.Endpoint
				o.UsePathStyle = true
			}
		})
		st := s3storage.New(s3storage.Config{Client: client, Bucket: cfg.S3.Bucket, KeyPrefix: cfg.S3.Prefix})
		return feedstore.InstrumentStorage(st, m, "s3"), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// buildTrie constructs the configured Trie backend, instrumented with m
// when metrics are enabled.
func buildTrie(cfg feedstoreconfig.TrieConfig, m feedstoreMetrics.Metrics) (feedstore.Trie, error) {
	switch cfg.Backend {
	case "memory":
		return feedstore.InstrumentTrie(triememory.New(), m, "memory"), nil
	case "badger":
		db, err := triebadger.Open(cfg.BadgerPath)
		if err != nil {
			return nil, fmt.Errorf("open badger trie at %s: %w", cfg.BadgerPath, err)
		}
		return feedstore.InstrumentTrie(triebadger.New(db), m, "badger"), nil
	case "sql":
		dialect := sqltrie.DialectPostgres
		if cfg.SQL.Dialect == "sqlite" {
			dialect = sqltrie.DialectSQLite
		}
		trie, err := sqltrie.Open(dialect, cfg.SQL.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sql trie: %w", err)
		}
		return feedstore.InstrumentTrie(trie, m, "sql"), nil
	default:
		return nil, fmt.Errorf("unknown trie backend: %s", cfg.Backend)
	}
}

// buildStore wires a complete FeedStore from static configuration:
// storage/trie backend selection, the in-process log engine, optional
// Prometheus metrics, and structured logging.
func buildStore(ctx context.Context, cfg *feedstoreconfig.Config) (*feedstore.FeedStore, error) {
	var m feedstoreMetrics.Metrics
	if cfg.Metrics.Enabled {
		feedstoreMetrics.InitRegistry()
		m = feedstoreMetrics.New()
	}

	storageBackend, err := buildStorage(ctx, cfg.Storage, m)
	if err != nil {
		return nil, err
	}
	trieBackend, err := buildTrie(cfg.Trie, m)
	if err != nil {
		return nil, err
	}

	codecs := feedstore.NewCodecRegistry()
	engine := feedstore.InstrumentEngine(memlog.New(codecs), m)

	store := feedstore.New(feedstore.Options{
		Storage: storageBackend,
		Engine:  engine,
		Trie:    trieBackend,
		Codecs:  codecs,
		Logger:  logger.With("component", "feedstore"),
		Metrics: m,
	})

	return store, nil
}
