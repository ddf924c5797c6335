package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
[app]
data_dir = "/srv/dj"
log_level = "debug"

[player]
backend = "playerctl"
settle_timeout = "2s"
poll_interval = "not-a-duration"
supersede = false

[lyrics]
providers = ["lrclib", "netease"]
search_fallback = true

[build]
request_delay = "1s"
flush_every = 5

[cache]
backend = "redis"

[redis]
addr = "redis:6379"
db = 2
`

func TestApplyToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	tc, err := loadTomlConfig(path)
	require.NoError(t, err)

	cfg := Default()
	cfg.apply(tc)

	assert.Equal(t, "/srv/dj", cfg.App.DataDir)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, DefaultSocketPath, cfg.App.SocketPath)
	assert.Equal(t, "playerctl", cfg.Player.Backend)
	assert.Equal(t, 2*time.Second, cfg.Player.SettleTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Player.PollInterval, "invalid duration keeps the default")
	assert.False(t, cfg.Player.Supersede)
	assert.Equal(t, []string{"lrclib", "netease"}, cfg.Lyrics.Providers)
	assert.True(t, cfg.Lyrics.SearchFallback)
	assert.Equal(t, time.Second, cfg.Build.RequestDelay)
	assert.Equal(t, 5, cfg.Build.FlushEvery)
	assert.Equal(t, 1.5, cfg.Build.DefaultDuration)
	assert.Equal(t, CacheBackendRedis, cfg.Cache.Backend)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)

	assert.Equal(t, "/srv/dj/words.json", cfg.WordsPath())
	assert.Equal(t, "/srv/dj/catalog.toml", cfg.CatalogPath())
}

func TestEnvOverridesToml(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		"DJ_DATA_DIR":         "/tmp/dj",
		"DJ_CACHE_BACKEND":    "FILE",
		"DJ_AI_API_KEY":       "secret",
		"DJ_PLAYER_SUPERSEDE": "false",
	}
	cfg.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "/tmp/dj", cfg.App.DataDir)
	assert.Equal(t, CacheBackendFile, cfg.Cache.Backend)
	assert.Equal(t, "secret", cfg.AI.APIKey)
	assert.False(t, cfg.Player.Supersede)
	assert.Equal(t, "/tmp/dj/uri_cache.json", cfg.URICachePath())
}

func TestMissingConfigFile(t *testing.T) {
	tc, err := loadTomlConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, &TomlConfig{}, tc)
}

func TestInvalidConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[app\n"), 0644))
	_, err := loadTomlConfig(path)
	assert.Error(t, err)
}

func TestDefaultPathHonoursXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, "/xdg/dj/config.toml", DefaultPath())
}
