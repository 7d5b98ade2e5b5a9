package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_NAME", "fabrica")
	t.Setenv("FACTORY_TZ", "America/Manaus")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-secret", cfg.JWT.Secret)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "America/Manaus", cfg.Factory.Timezone)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres://postgres:@db.internal:6543/fabrica?sslmode=disable", cfg.DSN())
}

func TestLoadFailsWithoutJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SECRET_STORE_ENDPOINT", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestSecretStoreEnabled(t *testing.T) {
	t.Setenv("SECRET_STORE_ENDPOINT", "")
	assert.False(t, SecretStoreConfig{}.Enabled())

	store := SecretStoreConfig{Endpoint: "https://s3.example", Bucket: "segredos", AccessKey: "a", SecretKey: "b"}
	assert.True(t, store.Enabled())
}
