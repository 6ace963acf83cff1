package imagecache

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"fitcoach/internal/database"
)

// Runs against a real database only when IMAGE_CACHE_TEST_DSN is set.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("IMAGE_CACHE_TEST_DSN")
	if dsn == "" {
		t.Skip("IMAGE_CACHE_TEST_DSN not set")
	}

	ctx := context.Background()
	db, err := database.NewService(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	store, err := NewPostgresStore(ctx, db.Pool())
	require.NoError(t, err)
	require.NoError(t, store.Ping(ctx))
	require.Equal(t, "up", db.Health()["status"])

	exerciseStore(t, store)
}
