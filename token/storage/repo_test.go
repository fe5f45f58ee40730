package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/storefront-admin/token/storage"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

// repoFactories returns one constructor per backend so every backend is held to the same contract
func repoFactories(t *testing.T) map[string]func(t *testing.T) storage.Repo {
	t.Helper()
	return map[string]func(t *testing.T) storage.Repo{
		"memory": func(t *testing.T) storage.Repo {
			return storage.NewInMemoryRepo()
		},
		"file": func(t *testing.T) storage.Repo {
			repo, err := storage.NewFileRepo(filepath.Join(t.TempDir(), "nested", "session.json"))
			require.NoError(t, err)
			return repo
		},
		"redis": func(t *testing.T) storage.Repo {
			_, client := newTestRedis(t)
			return storage.NewRedisRepoFromClient(client, "test:session")
		},
	}
}

func TestRepo_Contract(t *testing.T) {
	ctx := context.Background()

	for name, newRepo := range repoFactories(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("load empty", func(t *testing.T) {
				repo := newRepo(t)
				_, err := repo.Load(ctx)
				require.ErrorIs(t, err, storage.ErrNotFound)
			})

			t.Run("save then load", func(t *testing.T) {
				repo := newRepo(t)
				require.NoError(t, repo.Save(ctx, storage.Record{AuthToken: "T", RefreshToken: "R"}))

				record, err := repo.Load(ctx)
				require.NoError(t, err)
				require.Equal(t, storage.Record{AuthToken: "T", RefreshToken: "R"}, record)
			})

			t.Run("save overwrites", func(t *testing.T) {
				repo := newRepo(t)
				require.NoError(t, repo.Save(ctx, storage.Record{AuthToken: "T1", RefreshToken: "R1"}))
				require.NoError(t, repo.Save(ctx, storage.Record{AuthToken: "T2", RefreshToken: "R2"}))

				record, err := repo.Load(ctx)
				require.NoError(t, err)
				require.Equal(t, "T2", record.AuthToken)
				require.Equal(t, "R2", record.RefreshToken)
			})

			t.Run("partial record rejected", func(t *testing.T) {
				repo := newRepo(t)
				require.ErrorIs(t, repo.Save(ctx, storage.Record{AuthToken: "T"}), storage.ErrPartialRecord)
				require.ErrorIs(t, repo.Save(ctx, storage.Record{RefreshToken: "R"}), storage.ErrPartialRecord)

				_, err := repo.Load(ctx)
				require.ErrorIs(t, err, storage.ErrNotFound)
			})

			t.Run("clear removes both keys", func(t *testing.T) {
				repo := newRepo(t)
				require.NoError(t, repo.Save(ctx, storage.Record{AuthToken: "T", RefreshToken: "R"}))
				require.NoError(t, repo.Clear(ctx))

				_, err := repo.Load(ctx)
				require.ErrorIs(t, err, storage.ErrNotFound)
			})

			t.Run("clear is idempotent", func(t *testing.T) {
				repo := newRepo(t)
				require.NoError(t, repo.Clear(ctx))
				require.NoError(t, repo.Clear(ctx))
			})

			t.Run("close", func(t *testing.T) {
				repo := newRepo(t)
				require.NoError(t, repo.Close())
			})
		})
	}
}

func TestInMemoryRepo_Keys(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewInMemoryRepo()

	require.NoError(t, repo.Save(ctx, storage.Record{AuthToken: "T", RefreshToken: "R"}))
	require.Equal(t, map[string]string{storage.KeyAuthToken: "T", storage.KeyRefreshToken: "R"}, repo.Keys())

	require.NoError(t, repo.Clear(ctx))
	require.Empty(t, repo.Keys())
}

func TestFileRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("document layout and permissions", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		repo, err := storage.NewFileRepo(path)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, storage.Record{AuthToken: "T", RefreshToken: "R"}))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.JSONEq(t, `{"authToken":"T","refreshToken":"R"}`, string(data))

		info, err := os.Stat(path)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		matches, err := filepath.Glob(path + "?*")
		require.NoError(t, err)
		require.Empty(t, matches, "temporary file should be renamed away")
	})

	t.Run("tightens permissions of an existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))
		repo, err := storage.NewFileRepo(path)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, storage.Record{AuthToken: "T", RefreshToken: "R"}))

		info, err := os.Stat(path)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("one key on disk reads as absent", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"authToken":"T"}`), 0o600))

		repo, err := storage.NewFileRepo(path)
		require.NoError(t, err)
		_, err = repo.Load(ctx)
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

		repo, err := storage.NewFileRepo(path)
		require.NoError(t, err)
		_, err = repo.Load(ctx)
		require.Error(t, err)
		require.NotErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("path required", func(t *testing.T) {
		_, err := storage.NewFileRepo("")
		require.Error(t, err)
	})
}

func TestRedisRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("both fields live in one hash", func(t *testing.T) {
		mr, client := newTestRedis(t)
		repo := storage.NewRedisRepoFromClient(client, "admin:session")
		require.NoError(t, repo.Save(ctx, storage.Record{AuthToken: "T", RefreshToken: "R"}))

		require.Equal(t, "T", mr.HGet("admin:session", storage.KeyAuthToken))
		require.Equal(t, "R", mr.HGet("admin:session", storage.KeyRefreshToken))

		require.NoError(t, repo.Clear(ctx))
		require.False(t, mr.Exists("admin:session"))
	})

	t.Run("one field present reads as absent", func(t *testing.T) {
		mr, client := newTestRedis(t)
		mr.HSet("admin:session", storage.KeyAuthToken, "T")

		repo := storage.NewRedisRepoFromClient(client, "admin:session")
		_, err := repo.Load(ctx)
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("connect and ping", func(t *testing.T) {
		mr, _ := newTestRedis(t)
		repo, err := storage.NewRedisRepo(ctx, storage.RedisConfig{Addr: mr.Addr(), Key: "k"})
		require.NoError(t, err)
		require.NoError(t, repo.Close())
	})

	t.Run("unreachable server", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		addr := mr.Addr()
		mr.Close()

		_, err = storage.NewRedisRepo(ctx, storage.RedisConfig{Addr: addr, Key: "k"})
		require.Error(t, err)
	})
}

type storageConfig struct {
	store string
	file  string
	addr  string
}

func (c storageConfig) GetTokenStore() string    { return c.store }
func (c storageConfig) GetTokenFile() string     { return c.file }
func (c storageConfig) GetRedisAddr() string     { return c.addr }
func (c storageConfig) GetRedisPassword() string { return "" }
func (c storageConfig) GetRedisDB() int          { return 0 }
func (c storageConfig) GetRedisKey() string      { return "factory:session" }

func TestNew(t *testing.T) {
	ctx := context.Background()

	repo, err := storage.New(ctx, storageConfig{store: "memory"})
	require.NoError(t, err)
	require.IsType(t, &storage.InMemoryRepo{}, repo)

	repo, err = storage.New(ctx, storageConfig{store: "FILE", file: filepath.Join(t.TempDir(), "s.json")})
	require.NoError(t, err)
	require.IsType(t, &storage.FileRepo{}, repo)

	mr, _ := newTestRedis(t)
	repo, err = storage.New(ctx, storageConfig{store: "redis", addr: mr.Addr()})
	require.NoError(t, err)
	require.IsType(t, &storage.RedisRepo{}, repo)
	require.NoError(t, repo.Close())

	_, err = storage.New(ctx, storageConfig{store: "localStorage"})
	require.Error(t, err)
}
