package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsWithEnvSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STOCKLEDGER_AUTH_JWT_SECRET", "0123456789abcdef")

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 3, cfg.Ledger.RetryAttempts)
	assert.Equal(t, 20*time.Millisecond, cfg.Ledger.RetryBackoff)
	assert.Equal(t, "strict", cfg.Ledger.Numbering)
	assert.Equal(t, "groups", cfg.Ledger.Classifier)
	assert.False(t, cfg.UsePostgres())
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_FileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
server:
  port: 9000
database:
  dsn: postgres://ledger@localhost/ledger
ledger:
  numbering: cached
auth:
  jwt_secret: file-secret-long-enough
`)
	t.Setenv("STOCKLEDGER_SERVER_PORT", "9100")

	cfg, err := Load(Options{ConfigFile: path})
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port, "env wins over file")
	assert.Equal(t, "cached", cfg.Ledger.Numbering)
	assert.True(t, cfg.UsePostgres())
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, "test.env", "STOCKLEDGER_AUTH_JWT_SECRET=from-dotenv-file-123\n")
	t.Chdir(dir)
	t.Cleanup(func() { os.Unsetenv("STOCKLEDGER_AUTH_JWT_SECRET") })

	cfg, err := Load(Options{EnvFile: envPath})
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv-file-123", cfg.Auth.JWTSecret)
}

func TestLoad_MissingExplicitFiles(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STOCKLEDGER_AUTH_JWT_SECRET", "0123456789abcdef")

	_, err := Load(Options{ConfigFile: "nope.yaml"})
	assert.Error(t, err)

	_, err = Load(Options{EnvFile: "nope.env"})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STOCKLEDGER_AUTH_JWT_SECRET", "0123456789abcdef")
	base, err := Load(Options{})
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "JWTSecret"},
		{"bad numbering", func(c *Config) { c.Ledger.Numbering = "random" }, "Numbering"},
		{"expression required", func(c *Config) { c.Ledger.Classifier = "expression" }, "Expression"},
		{"group ids are uuids", func(c *Config) { c.Ledger.ProducedGroups = []string{"fg"} }, "ProducedGroups"},
		{"min above max", func(c *Config) { c.Database.MinConns = 50 }, "MinConns"},
		{"bad dsn", func(c *Config) { c.Database.DSN = "mysql://x" }, "DSN"},
		{"redis addr", func(c *Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }, "Addr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *base
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
