package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adsmirror/adsmirror/internal/config"
)

func TestBuildLibsqlDSN(t *testing.T) {
	t.Run("TursoURLGetsAuthToken", func(t *testing.T) {
		dsn, err := buildLibsqlDSN(config.StoreConfig{
			URL:       "libsql://mirror.turso.io",
			AuthToken: "tok",
		})
		require.NoError(t, err)
		require.Equal(t, "libsql://mirror.turso.io?authToken=tok", dsn)
	})

	t.Run("ExistingAuthTokenWins", func(t *testing.T) {
		dsn, err := buildLibsqlDSN(config.StoreConfig{
			URL:       "libsql://mirror.turso.io?authToken=inline",
			AuthToken: "tok",
		})
		require.NoError(t, err)
		require.Equal(t, "libsql://mirror.turso.io?authToken=inline", dsn)
	})

	t.Run("URLTakesPrecedenceOverPath", func(t *testing.T) {
		dsn, err := buildLibsqlDSN(config.StoreConfig{URL: "libsql://remote", Path: "/tmp/ignored.db"})
		require.NoError(t, err)
		require.Equal(t, "libsql://remote", dsn)
	})

	t.Run("PlainPathCreatesDirectory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "data")
		path := filepath.Join(dir, "adsmirror.db")

		dsn, err := buildLibsqlDSN(config.StoreConfig{Path: path})
		require.NoError(t, err)
		require.Equal(t, "file:"+path, dsn)

		info, err := os.Stat(dir)
		require.NoError(t, err)
		require.True(t, info.IsDir())
	})

	t.Run("FilePrefixKept", func(t *testing.T) {
		dsn, err := buildLibsqlDSN(config.StoreConfig{Path: "file:./adsmirror.db"})
		require.NoError(t, err)
		require.Equal(t, "file:./adsmirror.db", dsn)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := buildLibsqlDSN(config.StoreConfig{})
		require.Error(t, err)
	})

	t.Run("Memory", func(t *testing.T) {
		dsn, err := buildLibsqlDSN(config.StoreConfig{Path: ":memory:"})
		require.NoError(t, err)
		require.Equal(t, ":memory:", dsn)
		require.True(t, isLocalDSN(dsn))
		require.False(t, isLocalDSN("libsql://remote"))
	})
}

func TestTranslate(t *testing.T) {
	require.NoError(t, translate(nil, "noop"))
	require.ErrorIs(t, translate(sql.ErrNoRows, "fetch"), ErrNotFound)

	err := translate(errors.New("UNIQUE constraint failed: campaigns.meta_campaign_id"), "insert campaign")
	require.ErrorIs(t, err, ErrConflict)
	require.Contains(t, err.Error(), "insert campaign")

	boom := errors.New("disk I/O error")
	require.ErrorIs(t, translate(boom, "update"), boom)
}

func TestNilStoreIsNotInitialized(t *testing.T) {
	var s *Store
	require.NoError(t, s.Close())
	require.Empty(t, s.Driver())
	require.Error(t, s.CheckHealth(context.Background()))
	require.Error(t, s.Migrate(context.Background()))
	_, err := s.ListCampaigns(context.Background(), 1)
	require.Error(t, err)
}
