package app

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"dj-backend/internal/builder"
	"dj-backend/internal/config"
	"dj-backend/internal/dispatch"
	"dj-backend/internal/idcache"
	"dj-backend/internal/ipc"
	"dj-backend/internal/library"
	"dj-backend/internal/lyrics"
	"dj-backend/internal/player"
	"dj-backend/internal/resolver"
	"dj-backend/internal/sequencer"
	"dj-backend/internal/songinfo"
	"dj-backend/internal/wordindex"
	"dj-backend/pkg/music"
	"dj-backend/pkg/redis"
	"dj-backend/pkg/websearch"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// App owns the long-lived components. Each is built on first use so commands
// that only read the index never touch the player or the network.
type App struct {
	cfg *config.Config

	mu       sync.Mutex
	limiter  *rate.Limiter
	redis    *redis.Client
	cache    *idcache.Cache
	resolver *resolver.Resolver
	player   player.Player
	seq      *sequencer.Sequencer
	registry *dispatch.Registry
}

func New(cfg *config.Config) *App {
	// 设置 zerolog 的全局配置
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	level, err := zerolog.ParseLevel(cfg.App.LogLevel)
	if err != nil || cfg.App.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	return &App{cfg: cfg}
}

func (a *App) Config() *config.Config { return a.cfg }

func (a *App) ensureDataDir() error {
	if err := os.MkdirAll(a.cfg.App.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", a.cfg.App.DataDir, err)
	}
	return nil
}

// Limiter spaces out requests to external services. One limiter is shared by
// identifier searches and lyrics requests.
func (a *App) Limiter() *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.limiter == nil {
		a.limiter = newLimiter(a.cfg.Build.RequestDelay)
	}
	return a.limiter
}

func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// Cache opens the identifier cache on the configured backend.
func (a *App) Cache(ctx context.Context) (*idcache.Cache, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cache != nil {
		return a.cache, nil
	}

	var backend idcache.Backend
	switch a.cfg.Cache.Backend {
	case config.CacheBackendRedis:
		client, err := redis.NewClient(a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.redis = client
		backend = idcache.NewRedisBackend(client, a.cfg.Cache.RedisKey)
	case config.CacheBackendFile, "":
		if err := a.ensureDataDir(); err != nil {
			return nil, err
		}
		backend = idcache.NewFileBackend(a.cfg.URICachePath())
	default:
		return nil, fmt.Errorf("unknown cache backend %q", a.cfg.Cache.Backend)
	}

	cache, err := idcache.Open(ctx, backend)
	if err != nil {
		return nil, err
	}
	log.Info().Str("backend", a.cfg.Cache.Backend).Int("entries", cache.Len()).Msg("Identifier cache loaded")
	a.cache = cache
	return cache, nil
}

func (a *App) Resolver(ctx context.Context) (*resolver.Resolver, error) {
	cache, err := a.Cache(ctx)
	if err != nil {
		return nil, err
	}
	limiter := a.Limiter()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.resolver == nil {
		search := websearch.NewClient(a.cfg.Search.BaseURL, a.cfg.Search.UserAgent, a.cfg.Search.Timeout)
		a.resolver = resolver.New(search, cache, resolver.WithLimiter(limiter))
	}
	return a.resolver, nil
}

func (a *App) Fetcher() (*lyrics.Fetcher, error) {
	manager, err := music.CreateManager(a.cfg.Lyrics.Providers, music.Settings{
		LRCLibURL:      a.cfg.Lyrics.BaseURL,
		NetEaseURL:     a.cfg.Lyrics.NetEaseURL,
		UserAgent:      a.cfg.Lyrics.UserAgent,
		Timeout:        a.cfg.Lyrics.Timeout,
		SearchFallback: a.cfg.Lyrics.SearchFallback,
	})
	if err != nil {
		return nil, err
	}
	log.Info().Strs("providers", manager.GetProviderNames()).Msg("Lyrics providers ready")
	return lyrics.NewFetcher(manager), nil
}

// Builder wires a builder that writes the index to the configured words file.
func (a *App) Builder(ctx context.Context, progress builder.Progress) (*builder.Builder, error) {
	r, err := a.Resolver(ctx)
	if err != nil {
		return nil, err
	}
	f, err := a.Fetcher()
	if err != nil {
		return nil, err
	}
	cache, err := a.Cache(ctx)
	if err != nil {
		return nil, err
	}
	return builder.New(r, f, cache, builder.Options{
		FlushEvery: a.cfg.Build.FlushEvery,
		Duration:   a.cfg.Build.DefaultDuration,
		Limiter:    a.Limiter(),
		IndexPath:  a.cfg.WordsPath(),
		Progress:   progress,
	}), nil
}

// Sequencer starts the playback worker. A player that cannot be reached is
// replaced by one that reports itself unavailable on every call.
func (a *App) Sequencer() *sequencer.Sequencer {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.seq != nil {
		return a.seq
	}

	p, err := player.New(a.cfg.Player.Backend, a.cfg.Player.BusName, a.cfg.Player.CallTimeout)
	if err != nil {
		log.Warn().Err(err).Str("backend", a.cfg.Player.Backend).Msg("Player backend unavailable")
		p = player.Offline(err)
	}
	a.player = p

	sc := sequencer.DefaultConfig()
	sc.SettleTimeout = a.cfg.Player.SettleTimeout
	sc.PollInterval = a.cfg.Player.PollInterval
	sc.Supersede = a.cfg.Player.Supersede
	a.seq = sequencer.New(p, sc)
	return a.seq
}

func (a *App) songs(ctx context.Context) *songinfo.Extractor {
	model, err := songinfo.NewModel(ctx, a.cfg.AI.ModuleName, a.cfg.AI.APIKey, a.cfg.AI.BaseURL)
	if err != nil {
		log.Debug().Err(err).Msg("No AI model, raw titles are used as given")
		return songinfo.NewExtractor(nil)
	}
	log.Info().Str("model", model.Name()).Msg("AI model ready")
	return songinfo.NewExtractor(model)
}

// lazySearch opens the identifier cache on the first search, so tools that
// only read the word index work while the cache backend is down.
type lazySearch struct{ a *App }

func (s lazySearch) Search(ctx context.Context, q string) (string, error) {
	r, err := s.a.Resolver(ctx)
	if err != nil {
		return "", err
	}
	return r.Search(ctx, q)
}

// Forget clears the cached resolution for a song so the next build searches
// for it again.
func (a *App) Forget(ctx context.Context, artist, title string) (bool, error) {
	cache, err := a.Cache(ctx)
	if err != nil {
		return false, err
	}
	if !cache.Forget(idcache.Key(artist, title)) {
		return false, nil
	}
	return true, cache.Flush(ctx)
}

// Registry wires every named tool.
func (a *App) Registry(ctx context.Context) (*dispatch.Registry, error) {
	if err := a.ensureDataDir(); err != nil {
		return nil, err
	}
	seq := a.Sequencer()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.registry == nil {
		a.registry = dispatch.NewDJ(dispatch.Deps{
			Sequencer:   seq,
			Index:       wordindex.NewStore(a.cfg.WordsPath()),
			Library:     library.New(a.cfg.TracksPath()),
			Search:      lazySearch{a},
			CatalogPath: a.cfg.CatalogPath(),
			Songs:       a.songs(ctx),
		})
	}
	return a.registry, nil
}

// Serve exposes the registry on the configured socket until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	registry, err := a.Registry(ctx)
	if err != nil {
		return err
	}
	log.Info().Str("data_dir", a.cfg.App.DataDir).Msg("DJ data directory")

	server := ipc.NewServer(a.cfg.App.SocketPath, registry)
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start IPC server: %w", err)
	}
	defer server.Close()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	return nil
}

// Close stops playback scheduling and persists the identifier cache.
func (a *App) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.seq != nil {
		a.seq.Close()
	}
	if c, ok := a.player.(interface{ Close() error }); ok {
		c.Close()
	}
	if a.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.cache.Flush(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to save identifier cache")
		}
		cancel()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}
