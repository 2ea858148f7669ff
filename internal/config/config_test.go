package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	t.Setenv("MONGODB_DATABASE", "courrier_test")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("JWT_SECRET", "testsecret123456789012345678901234")
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("COURRIER_SEED", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "mongodb://localhost:27017/testdb", cfg.MongoDB.URI)
	require.Equal(t, "courrier_test", cfg.MongoDB.Database)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.True(t, cfg.RateLimit.Enabled)
	require.Equal(t, 20, cfg.RateLimit.Burst)
	require.True(t, cfg.Courrier.Seed)
	require.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
	require.Equal(t, "courriers", cfg.MinIO.Bucket)
}

func TestLoadConfig_OptionalBackends(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	t.Setenv("REDIS_HOST", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Empty(t, cfg.MongoDB.URI)
	require.Empty(t, cfg.Redis.Addr())
	require.False(t, cfg.Auth.Required)
}

func TestKeycloakIssuer(t *testing.T) {
	k := KeycloakConfig{URL: "http://kc:8080/", Realm: "mf"}
	require.Equal(t, "http://kc:8080/realms/mf", k.Issuer())
	require.Equal(t, "http://kc:8080/", KeycloakConfig{URL: "http://kc:8080/"}.Issuer())
}

func TestCourrierLocation(t *testing.T) {
	require.Equal(t, time.UTC, CourrierConfig{}.Location())
	require.Equal(t, time.UTC, CourrierConfig{Timezone: "Not/AZone"}.Location())
}
