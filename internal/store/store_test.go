package store

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qyzk/ohno/internal/gateway"
	"github.com/qyzk/ohno/internal/logging"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:", logging.New(io.Discard, "debug"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_RunsMigrations(t *testing.T) {
	db := testDB(t)

	var count int
	err := db.SQL().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestOpen_MigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ohno.db")
	log := logging.New(io.Discard, "debug")

	db, err := Open(path, log)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening must not re-apply migrations.
	db, err = Open(path, log)
	require.NoError(t, err)
	defer db.Close()

	var count int
	err = db.SQL().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestSQLiteSessionCache_EmptyLoad(t *testing.T) {
	cache := NewSQLiteSessionCache(testDB(t))

	sess, err := cache.Load()
	require.NoError(t, err)
	assert.Empty(t, sess.ID)
	assert.Nil(t, sess.LastSeq)
	assert.False(t, sess.CanResume())
}

func TestSQLiteSessionCache_StoreAndLoad(t *testing.T) {
	cache := NewSQLiteSessionCache(testDB(t))

	seq := int64(42)
	require.NoError(t, cache.Store(gateway.Session{ID: "abc", LastSeq: &seq}))

	sess, err := cache.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc", sess.ID)
	require.NotNil(t, sess.LastSeq)
	assert.Equal(t, int64(42), *sess.LastSeq)
	assert.True(t, sess.CanResume())
}

func TestSQLiteSessionCache_StoreOverwrites(t *testing.T) {
	cache := NewSQLiteSessionCache(testDB(t))

	seq := int64(1)
	require.NoError(t, cache.Store(gateway.Session{ID: "abc", LastSeq: &seq}))

	seq2 := int64(7)
	require.NoError(t, cache.Store(gateway.Session{ID: "abc", LastSeq: &seq2}))

	sess, err := cache.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(7), *sess.LastSeq)

	// A single session row, always.
	var count int
	err = cache.db.SQL().QueryRow("SELECT COUNT(*) FROM gateway_session").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLiteSessionCache_ClearedSession(t *testing.T) {
	cache := NewSQLiteSessionCache(testDB(t))

	seq := int64(5)
	require.NoError(t, cache.Store(gateway.Session{ID: "abc", LastSeq: &seq}))
	require.NoError(t, cache.Store(gateway.Session{}))

	sess, err := cache.Load()
	require.NoError(t, err)
	assert.False(t, sess.CanResume())
	assert.Empty(t, sess.ID)
	assert.Nil(t, sess.LastSeq)
}

func TestSQLiteSessionCache_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ohno.db")
	log := logging.New(io.Discard, "debug")

	db, err := Open(path, log)
	require.NoError(t, err)

	seq := int64(99)
	require.NoError(t, NewSQLiteSessionCache(db).Store(gateway.Session{ID: "abc", LastSeq: &seq}))
	require.NoError(t, db.Close())

	db, err = Open(path, log)
	require.NoError(t, err)
	defer db.Close()

	sess, err := NewSQLiteSessionCache(db).Load()
	require.NoError(t, err)
	assert.Equal(t, "abc", sess.ID)
	require.NotNil(t, sess.LastSeq)
	assert.Equal(t, int64(99), *sess.LastSeq)
}

func TestMemorySessionCache(t *testing.T) {
	cache := NewMemorySessionCache()

	sess, err := cache.Load()
	require.NoError(t, err)
	assert.False(t, sess.CanResume())

	seq := int64(3)
	require.NoError(t, cache.Store(gateway.Session{ID: "abc", LastSeq: &seq}))

	sess, err = cache.Load()
	require.NoError(t, err)
	assert.True(t, sess.CanResume())
	assert.Equal(t, "abc", sess.ID)

	// The loaded copy does not alias the cache's own pointer.
	*sess.LastSeq = 100
	again, err := cache.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(3), *again.LastSeq)
}
