package api

import (
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldroute/internal/store"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"DATABASE_URL", "REDIS_URL", "TRAFFIC_CACHE_PATH", "ENGINE_CONFIG", "TRAFFIC_API_KEY"} {
		t.Setenv(k, "")
	}
}

func TestNewServerDefaultsToMemory(t *testing.T) {
	clearEnv(t)
	s, err := NewServer()
	require.NoError(t, err)
	assert.IsType(t, &store.Memory{}, s.Store)
	assert.IsType(t, &Broker{}, s.Broker)
	assert.Nil(t, s.SQLCache)
	assert.NotNil(t, s.Engine)
}

func TestNewServerWithRedis(t *testing.T) {
	clearEnv(t)
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_URL", "redis://"+mr.Addr())
	s, err := NewServer()
	require.NoError(t, err)
	assert.IsType(t, &RedisBroker{}, s.Broker)
}

func TestNewServerWithSQLiteTrafficCache(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRAFFIC_CACHE_PATH", filepath.Join(t.TempDir(), "traffic.db"))
	s, err := NewServer()
	require.NoError(t, err)
	assert.NotNil(t, s.SQLCache)
}

func TestNewServerBadEngineConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENGINE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := NewServer()
	assert.Error(t, err)
}
