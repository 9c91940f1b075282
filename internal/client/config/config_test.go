package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "nutrikeeper.db", c.DataPath)
	assert.Equal(t, int64(5<<20), c.StoreQuota)
	assert.Equal(t, 10*time.Second, c.RemoteTimeout)
	assert.Empty(t, c.RemoteAddr)
	assert.False(t, c.RemoteConfigured())
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoad_NoSources_UsesDefaults(t *testing.T) {
	cfg := load(nil, noEnv)

	var want Config
	want.LoadDefaults()
	assert.Empty(t, cmp.Diff(&want, cfg))
}

func TestLoad_Precedence_JsonThenEnvThenFlags(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"data_path":      "from-json.db",
		"remote_addr":    "json:1",
		"remote_timeout": "4s",
		"admin_emails":   []string{"json@x.com"},
	})

	env := envMap(map[string]string{
		envRemoteAddr:  "env:2",
		envAdminEmails: "Admin@X.com, boss@y.org",
	})

	cfg := load([]string{"-c", path, "-a", "flag:3"}, env)

	assert.Equal(t, "from-json.db", cfg.DataPath)
	assert.Equal(t, "flag:3", cfg.RemoteAddr)
	assert.Equal(t, 4*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, []string{"Admin@X.com", "boss@y.org"}, cfg.AdminEmails)
	assert.True(t, cfg.RemoteConfigured())
}

func TestLoad_TimeoutFlagOnlyOverridesWhenGiven(t *testing.T) {
	env := envMap(map[string]string{envRemoteTimeout: "250ms"})

	cfg := load(nil, env)
	assert.Equal(t, 250*time.Millisecond, cfg.RemoteTimeout)

	cfg = load([]string{"-t", "2"}, env)
	assert.Equal(t, 2*time.Second, cfg.RemoteTimeout)
}

func TestLoadDotEnv_MissingFileIsIgnored(t *testing.T) {
	require.NotPanics(t, func() { loadDotEnv(filepath.Join(t.TempDir(), "absent.env")) })
}

func TestLoadDotEnv_DoesNotOverrideProcessEnv(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(p, []byte(envRemoteSecret+"=from-file\n"+envLogLevel+"=debug\n"), 0o600))

	t.Setenv(envRemoteSecret, "from-process")
	t.Setenv(envLogLevel, "")
	require.NoError(t, os.Unsetenv(envLogLevel))

	loadDotEnv(p)
	t.Cleanup(func() { _ = os.Unsetenv(envLogLevel) })

	assert.Equal(t, "from-process", os.Getenv(envRemoteSecret))
	assert.Equal(t, "debug", os.Getenv(envLogLevel))
}
