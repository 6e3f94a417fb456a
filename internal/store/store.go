// Package store is the persistence layer: pgx repositories over the schema in
// schema.sql, plus the redis client shared with the fetcher caches.
package store

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schemaSQL string

// Store bundles the connection pool and the repositories.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger

	Companies  *CompanyRepo
	Snapshots  *SnapshotRepo
	Jobs       *JobRepo
	Candidates *CandidateRepo
	Matches    *MatchRepo
	Queue      *QueueRepo
	Runs       *RunRepo
	Analytics  *AnalyticsRepo
}

// Connect opens the pool, registers the pgvector codec, and pings.
func Connect(ctx context.Context, databaseURL string, logger *zap.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.AfterConnect = pgxvec.RegisterTypes

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{pool: pool, logger: logger}
	s.Companies = &CompanyRepo{pool: pool}
	s.Snapshots = &SnapshotRepo{pool: pool}
	s.Jobs = &JobRepo{pool: pool}
	s.Candidates = &CandidateRepo{pool: pool}
	s.Matches = &MatchRepo{pool: pool}
	s.Queue = &QueueRepo{pool: pool}
	s.Runs = &RunRepo{pool: pool}
	s.Analytics = &AnalyticsRepo{pool: pool}

	return s, nil
}

// Migrate applies schema.sql. All statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.logger.Info("schema applied")
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Pool exposes the raw pool for stats queries.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// ConnectRedis opens the optional redis client used for shared caches.
// An empty URL returns nil without error.
func ConnectRedis(ctx context.Context, redisURL string, logger *zap.Logger) (*redis.Client, error) {
	if redisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, continuing without shared caches", zap.Error(err))
		return nil, nil
	}
	return rdb, nil
}
