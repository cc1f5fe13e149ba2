package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("NK_DSN", "postgres://u:p@db:5432/notes")
	t.Setenv("NK_JWT", "0123456789abcdef-key")

	cfg, err := Load(writeFile(t, `
auth:
  jwt_key: ${NK_JWT}
postgres:
  dsn: ${NK_DSN}
notes:
  cache_ttl: 1m
workers:
  workers: 2
`))
	require.NoError(t, err)
	require.Equal(t, "postgres://u:p@db:5432/notes", cfg.Postgres.DSN)
	require.Equal(t, "0123456789abcdef-key", cfg.Auth.JWTKey)
	require.Equal(t, time.Minute, cfg.Notes.CacheTTL)
	require.Equal(t, 2*time.Second, cfg.Notes.SideEffectTimeout, "untouched keys keep defaults")
	require.Equal(t, 2, cfg.Workers.Workers)
	require.Equal(t, 256, cfg.Workers.QueueSize)
	require.Equal(t, ":8443", cfg.Server.Addr)
	require.True(t, cfg.Postgres.Migrate)
	require.False(t, cfg.Server.TLS())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "server: ["))
	require.ErrorContains(t, err, "parse config")

	_, err = Load(writeFile(t, "postgres:\n  dsn: x\n"))
	require.ErrorContains(t, err, "auth")
}

func TestValidate_Sections(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.Auth.JWTKey = strings.Repeat("k", 16)
		c.Postgres.DSN = "postgres://localhost/notes"
		return c
	}
	require.NoError(t, valid().Validate())

	c := valid()
	c.Auth.JWTKey = "short"
	require.ErrorContains(t, c.Validate(), "auth")

	c = valid()
	c.Server.TLSCert = "cert.pem"
	require.ErrorContains(t, c.Validate(), "tls_cert and tls_key")

	c = valid()
	c.Log.Level = "verbose"
	require.ErrorContains(t, c.Validate(), "log")

	c = valid()
	c.Limiter.MaxFails = 0
	require.ErrorContains(t, c.Validate(), "limiter")

	c = valid()
	c.Workers.Workers = 0
	require.ErrorContains(t, c.Validate(), "workers")

	c = valid()
	c.Redis.DB = 42
	require.ErrorContains(t, c.Validate(), "redis")
}

func TestLoad_ExampleFile(t *testing.T) {
	t.Setenv("NOTEKEEPER_JWT_KEY", "example-signing-key-0123")
	t.Setenv("NOTEKEEPER_DATABASE_DSN", "postgres://u:p@localhost:5432/notes")

	cfg, err := Load(filepath.Join("..", "..", "config.example.yaml"))
	require.NoError(t, err)
	def := Default()
	require.Equal(t, def.Server, cfg.Server)
	require.Equal(t, def.Limiter, cfg.Limiter)
	require.Equal(t, def.Notes, cfg.Notes)
	require.Equal(t, def.Workers, cfg.Workers)
	require.Equal(t, "example-signing-key-0123", cfg.Auth.JWTKey)
	require.Equal(t, "./data/notes.bleve", cfg.Search.Path)
	require.Empty(t, cfg.Enrich.Endpoint)
}
