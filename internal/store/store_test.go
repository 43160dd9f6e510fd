package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilHandles(t *testing.T) {
	var db *DB
	assert.NoError(t, db.Close())

	r := NewRedis("")
	assert.Nil(t, r)
	assert.False(t, r.Healthy(context.Background()))
	assert.NoError(t, r.Close())
}

func TestRedisUnreachable(t *testing.T) {
	r := NewRedis("127.0.0.1:1")
	t.Cleanup(func() { _ = r.Close() })
	assert.False(t, r.Healthy(context.Background()))
}

func TestNewDB(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := NewDB(context.Background(), dsn, 5*time.Second)
	require.NoError(t, err)
	assert.NoError(t, db.Close())
}

func TestNewDBUnreachable(t *testing.T) {
	_, err := NewDB(context.Background(), "postgres://u:p@127.0.0.1:1/db?sslmode=disable", time.Second)
	require.Error(t, err)
}
