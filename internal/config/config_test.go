package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	t.Run("reads file values", func(t *testing.T) {
		path := writeConfig(t, `
api:
  port: "9090"
  jwt_signing_key: from-file
  jwt_ttl: 2h
rate_limit:
  auth_attempts: 3
  auth_window: 1m
`)

		conf, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "9090", conf.API.Port)
		assert.Equal(t, "from-file", conf.API.JWTSigningKey)
		assert.Equal(t, 2*time.Hour, conf.API.JWTTTL)
		assert.Equal(t, 3, conf.RateLimit.AuthAttempts)
		assert.Equal(t, time.Minute, conf.RateLimit.AuthWindow)
		assert.Equal(t, 24*time.Hour, conf.Registration.CancellationCutoff)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := writeConfig(t, `
api:
  port: "9090"
  jwt_signing_key: from-file
`)
		t.Setenv("API_PORT", "7070")
		t.Setenv("POSTGRES_HOST", "db.internal")

		conf, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "7070", conf.API.Port)
		assert.Equal(t, "db.internal", conf.Postgres.Host)
	})

	t.Run("missing file falls back to defaults and env", func(t *testing.T) {
		t.Setenv("API_JWT_SIGNING_KEY", "from-env")

		conf, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
		require.NoError(t, err)

		assert.Equal(t, "from-env", conf.API.JWTSigningKey)
		assert.Equal(t, "8080", conf.API.Port)
		assert.Equal(t, 5, conf.RateLimit.AuthAttempts)
		assert.Equal(t, 15*time.Minute, conf.RateLimit.AuthWindow)
	})

	t.Run("signing key is required", func(t *testing.T) {
		t.Setenv("API_JWT_SIGNING_KEY", "")
		path := writeConfig(t, "api:\n  port: \"8080\"\n")

		_, err := Load(path)
		assert.ErrorIs(t, err, ErrMissingSigningKey)
	})
}

func TestPostgresConfigDSN(t *testing.T) {
	c := &PostgresConfig{Host: "h", Port: "1", User: "u", Password: "p", DB: "d", SSLMode: "disable"}
	assert.Equal(t, "host=h port=1 user=u password=p dbname=d sslmode=disable", c.DSN())
}
