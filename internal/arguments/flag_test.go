package arguments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgsServer(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := ParseArgsServer(nil)
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0:8000", cfg.HPServer)
		assert.Equal(t, StoragePostgres, cfg.Storage)
		assert.Equal(t, "users.import", cfg.NatsSubject)
		assert.Empty(t, cfg.NatsURL)
		assert.Equal(t, time.Minute, cfg.CacheTTL())
	})

	t.Run("flags", func(t *testing.T) {
		cfg, err := ParseArgsServer([]string{"-storage", "memory", "-s", ":9000", "-cs", "7"})
		require.NoError(t, err)
		assert.Equal(t, StorageMemory, cfg.Storage)
		assert.Equal(t, ":9000", cfg.HPServer)
		assert.Equal(t, 7, cfg.CacheSize)
	})

	t.Run("env_wins", func(t *testing.T) {
		t.Setenv("HTTP_URL", "127.0.0.1:8080")
		t.Setenv("STORAGE", "mongo")
		t.Setenv("CACHE_LIMIT_SECS", "5")
		cfg, err := ParseArgsServer([]string{"-s", ":9000", "-storage", "memory"})
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:8080", cfg.HPServer)
		assert.Equal(t, StorageMongo, cfg.Storage)
		assert.Equal(t, 5*time.Second, cfg.CacheTTL())
	})

	t.Run("unknown_storage", func(t *testing.T) {
		_, err := ParseArgsServer([]string{"-storage", "redis"})
		assert.Error(t, err)
	})

	t.Run("bad_env", func(t *testing.T) {
		t.Setenv("CACHE_SIZE", "many")
		_, err := ParseArgsServer(nil)
		assert.Error(t, err)
	})
}
