package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akin/akin/internal/platform/db"
	"github.com/akin/akin/migrations"
)

func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()
	key := "it:" + time.Now().Format(time.RFC3339Nano)

	_, err := s.Load(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, key, Record{User: testUser, Tokens: testTokens}))
	got, err := s.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, testUser, got.User)

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Load(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStorage_Integration(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	client, err := NewRedisClient(context.Background(), url)
	require.NoError(t, err)
	defer client.Close()

	exerciseStorage(t, NewRedisStorage(client, time.Minute))
}

func TestPGStorage_Integration(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, url, 2, 1)
	require.NoError(t, err)
	defer pool.Close()

	_, err = db.NewMigrator(pool, migrations.FS).Up(ctx)
	require.NoError(t, err)

	storage := NewPGStorage(pool, time.Minute)
	exerciseStorage(t, storage)

	_, err = storage.Sweep(ctx)
	assert.NoError(t, err)
}
