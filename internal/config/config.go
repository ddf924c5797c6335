package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

var logger = log.With().Str("component", "config").Logger()

const (
	DefaultSocketPath = "/tmp/dj.sock"
	DefaultBusName    = "org.mpris.MediaPlayer2.spotify"

	CacheBackendFile  = "file"
	CacheBackendRedis = "redis"

	// Data file names under App.DataDir.
	URICacheFile = "uri_cache.json"
	WordsFile    = "words.json"
	TracksFile   = "tracks.json"
	CatalogFile  = "catalog.toml"
)

func getDefaultDataDir() string {
	// 优先使用 XDG_CACHE_HOME 环境变量
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, "dj")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "dj_data"
	}

	return filepath.Join(homeDir, ".cache", "dj")
}

// TomlConfig TOML配置文件结构
type TomlConfig struct {
	App struct {
		DataDir    string `toml:"data_dir"`
		SocketPath string `toml:"socket_path"`
		LogLevel   string `toml:"log_level"`
	} `toml:"app"`

	Player struct {
		Backend       string `toml:"backend"`
		BusName       string `toml:"bus_name"`
		CallTimeout   string `toml:"call_timeout"`
		SettleTimeout string `toml:"settle_timeout"`
		PollInterval  string `toml:"poll_interval"`
		Supersede     *bool  `toml:"supersede"`
	} `toml:"player"`

	Search struct {
		BaseURL   string `toml:"base_url"`
		UserAgent string `toml:"user_agent"`
		Timeout   string `toml:"timeout"`
	} `toml:"search"`

	Lyrics struct {
		BaseURL        string   `toml:"base_url"`
		NetEaseURL     string   `toml:"netease_url"`
		UserAgent      string   `toml:"user_agent"`
		Providers      []string `toml:"providers"`
		SearchFallback bool     `toml:"search_fallback"`
		Timeout        string   `toml:"timeout"`
	} `toml:"lyrics"`

	Build struct {
		CatalogFile     string  `toml:"catalog_file"`
		RequestDelay    string  `toml:"request_delay"`
		FlushEvery      int     `toml:"flush_every"`
		DefaultDuration float64 `toml:"default_duration"`
	} `toml:"build"`

	Cache struct {
		Backend  string `toml:"backend"`
		RedisKey string `toml:"redis_key"`
	} `toml:"cache"`

	Redis struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
	} `toml:"redis"`

	AI struct {
		ModuleName string `toml:"module_name"`
		APIKey     string `toml:"api_key"`
		BaseURL    string `toml:"base_url"` // for OpenAI
	} `toml:"ai"`
}

type AppConfig struct {
	DataDir    string
	SocketPath string
	LogLevel   string
}

type PlayerConfig struct {
	Backend       string
	BusName       string
	CallTimeout   time.Duration
	SettleTimeout time.Duration
	PollInterval  time.Duration
	Supersede     bool
}

type SearchConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

type LyricsConfig struct {
	BaseURL        string
	NetEaseURL     string
	UserAgent      string
	Providers      []string
	SearchFallback bool
	Timeout        time.Duration
}

type BuildConfig struct {
	CatalogFile     string
	RequestDelay    time.Duration
	FlushEvery      int
	DefaultDuration float64
}

type CacheConfig struct {
	Backend  string
	RedisKey string
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AIConfig AI配置
type AIConfig struct {
	ModuleName string
	APIKey     string
	BaseURL    string
}

// Config 主配置结构
type Config struct {
	App    AppConfig
	Player PlayerConfig
	Search SearchConfig
	Lyrics LyricsConfig
	Build  BuildConfig
	Cache  CacheConfig
	Redis  RedisConfig
	AI     AIConfig
}

func (c *Config) URICachePath() string { return filepath.Join(c.App.DataDir, URICacheFile) }
func (c *Config) WordsPath() string    { return filepath.Join(c.App.DataDir, WordsFile) }
func (c *Config) TracksPath() string   { return filepath.Join(c.App.DataDir, TracksFile) }

// CatalogPath is the configured catalog file, or catalog.toml in the data dir.
func (c *Config) CatalogPath() string {
	if c.Build.CatalogFile != "" {
		return c.Build.CatalogFile
	}
	return filepath.Join(c.App.DataDir, CatalogFile)
}

// DefaultPath 获取配置文件路径
func DefaultPath() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "dj", "config.toml")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		logger.Warn().Err(err).Msg("Cannot get user home directory")
		return "config.toml"
	}

	return filepath.Join(homeDir, ".config", "dj", "config.toml")
}

func Default() *Config {
	return &Config{
		App: AppConfig{
			DataDir:    getDefaultDataDir(),
			SocketPath: DefaultSocketPath,
			LogLevel:   "info",
		},
		Player: PlayerConfig{
			Backend:       "mpris",
			BusName:       DefaultBusName,
			CallTimeout:   5 * time.Second,
			SettleTimeout: 3 * time.Second,
			PollInterval:  100 * time.Millisecond,
			Supersede:     true,
		},
		Search: SearchConfig{
			Timeout: 10 * time.Second,
		},
		Lyrics: LyricsConfig{
			Providers: []string{"lrclib"},
			Timeout:   10 * time.Second,
		},
		Build: BuildConfig{
			RequestDelay:    300 * time.Millisecond,
			FlushEvery:      20,
			DefaultDuration: 1.5,
		},
		Cache: CacheConfig{
			Backend:  CacheBackendFile,
			RedisKey: "dj:uri_cache",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		AI: AIConfig{
			ModuleName: "gemini",
		},
	}
}

// loadTomlConfig 加载TOML配置文件
func loadTomlConfig(configPath string) (*TomlConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		logger.Info().Str("path", configPath).Msg("Config file not found, using defaults")
		return &TomlConfig{}, nil
	}

	var config TomlConfig
	if _, err := toml.DecodeFile(configPath, &config); err != nil {
		return nil, err
	}

	logger.Info().Str("path", configPath).Msg("Loaded config")
	return &config, nil
}

// Load reads .env, the TOML file at configPath (DefaultPath() when empty) and
// DJ_* environment variables, in increasing order of precedence.
func Load(configPath string) *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn().Err(err).Msg("Failed to load .env")
	}
	if configPath == "" {
		configPath = DefaultPath()
	}

	tomlConfig, err := loadTomlConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load config file, using default configuration")
		tomlConfig = &TomlConfig{}
	}

	config := Default()
	config.apply(tomlConfig)
	config.applyEnv(os.Getenv)
	return config
}

func (config *Config) apply(t *TomlConfig) {
	setString(&config.App.DataDir, t.App.DataDir)
	setString(&config.App.SocketPath, t.App.SocketPath)
	setString(&config.App.LogLevel, t.App.LogLevel)

	setString(&config.Player.Backend, t.Player.Backend)
	setString(&config.Player.BusName, t.Player.BusName)
	setDuration(&config.Player.CallTimeout, "player.call_timeout", t.Player.CallTimeout)
	setDuration(&config.Player.SettleTimeout, "player.settle_timeout", t.Player.SettleTimeout)
	setDuration(&config.Player.PollInterval, "player.poll_interval", t.Player.PollInterval)
	if t.Player.Supersede != nil {
		config.Player.Supersede = *t.Player.Supersede
	}

	setString(&config.Search.BaseURL, t.Search.BaseURL)
	setString(&config.Search.UserAgent, t.Search.UserAgent)
	setDuration(&config.Search.Timeout, "search.timeout", t.Search.Timeout)

	setString(&config.Lyrics.BaseURL, t.Lyrics.BaseURL)
	setString(&config.Lyrics.NetEaseURL, t.Lyrics.NetEaseURL)
	setString(&config.Lyrics.UserAgent, t.Lyrics.UserAgent)
	if len(t.Lyrics.Providers) > 0 {
		config.Lyrics.Providers = t.Lyrics.Providers
	}
	config.Lyrics.SearchFallback = t.Lyrics.SearchFallback
	setDuration(&config.Lyrics.Timeout, "lyrics.timeout", t.Lyrics.Timeout)

	setString(&config.Build.CatalogFile, t.Build.CatalogFile)
	setDuration(&config.Build.RequestDelay, "build.request_delay", t.Build.RequestDelay)
	if t.Build.FlushEvery > 0 {
		config.Build.FlushEvery = t.Build.FlushEvery
	}
	if t.Build.DefaultDuration > 0 {
		config.Build.DefaultDuration = t.Build.DefaultDuration
	}

	setString(&config.Cache.Backend, t.Cache.Backend)
	setString(&config.Cache.RedisKey, t.Cache.RedisKey)

	setString(&config.Redis.Addr, t.Redis.Addr)
	setString(&config.Redis.Password, t.Redis.Password)
	if t.Redis.DB != 0 {
		config.Redis.DB = t.Redis.DB
	}

	setString(&config.AI.ModuleName, t.AI.ModuleName)
	setString(&config.AI.APIKey, t.AI.APIKey)
	setString(&config.AI.BaseURL, t.AI.BaseURL)
}

func (config *Config) applyEnv(getenv func(string) string) {
	setString(&config.App.DataDir, getenv("DJ_DATA_DIR"))
	setString(&config.App.LogLevel, getenv("DJ_LOG_LEVEL"))
	setString(&config.Player.Backend, getenv("DJ_PLAYER_BACKEND"))
	setString(&config.Player.BusName, getenv("DJ_PLAYER_BUS_NAME"))
	setString(&config.Cache.Backend, getenv("DJ_CACHE_BACKEND"))
	setString(&config.Redis.Addr, getenv("DJ_REDIS_ADDR"))
	setString(&config.AI.APIKey, getenv("DJ_AI_API_KEY"))
	if v := getenv("DJ_PLAYER_SUPERSEDE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Player.Supersede = b
		} else {
			logger.Warn().Str("value", v).Msg("Invalid DJ_PLAYER_SUPERSEDE, ignoring")
		}
	}
	config.Cache.Backend = strings.ToLower(config.Cache.Backend)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key, v string) {
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Msg("Invalid duration format, using default")
		return
	}
	*dst = d
}
