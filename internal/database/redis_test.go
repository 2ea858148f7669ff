package database

import (
	"context"
	"net"
	"testing"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/courrier-mf/courrier/internal/config"
	"github.com/stretchr/testify/require"
)

func redisConfig(t *testing.T, addr string) config.RedisConfig {
	t.Helper()
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	return config.RedisConfig{Host: host, Port: port}
}

func TestConnectRedis(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client, err := ConnectRedis(context.Background(), redisConfig(t, m.Addr()), 1)
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := m.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", got)
}

func TestConnectRedis_Unreachable(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	cfg := redisConfig(t, m.Addr())
	m.Close()

	_, err = ConnectRedis(context.Background(), cfg, 2)
	require.Error(t, err)
}

func TestConnectRedis_NotConfigured(t *testing.T) {
	_, err := ConnectRedis(context.Background(), config.RedisConfig{}, 1)
	require.Error(t, err)
}
