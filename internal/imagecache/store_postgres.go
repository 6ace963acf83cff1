package imagecache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists the image cache in a shared Postgres table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore ensures the cache table exists on pool.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	const schema = `
		CREATE TABLE IF NOT EXISTS image_cache (
			cache_key  TEXT PRIMARY KEY,
			image      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create image_cache table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var image string
	err := s.pool.QueryRow(ctx, `SELECT image FROM image_cache WHERE cache_key = $1`, key).Scan(&image)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return image, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key, handle string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO image_cache (cache_key, image, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (cache_key) DO UPDATE SET image = EXCLUDED.image, updated_at = now()`,
		key, handle)
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM image_cache WHERE cache_key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
