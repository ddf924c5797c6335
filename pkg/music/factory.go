package music

import (
	"fmt"
	"time"

	"dj-backend/pkg/lrclib"
	"dj-backend/pkg/netease"
)

// Settings carries what the factory needs to build provider clients.
type Settings struct {
	LRCLibURL      string
	NetEaseURL     string
	UserAgent      string
	Timeout        time.Duration
	SearchFallback bool
}

// CreateProvider 创建歌词提供商客户端
func CreateProvider(provider Provider, s Settings) (LyricsAPI, error) {
	switch provider {
	case ProviderLRCLib:
		opts := []lrclib.Option{lrclib.WithSearchFallback(s.SearchFallback)}
		if s.UserAgent != "" {
			opts = append(opts, lrclib.WithUserAgent(s.UserAgent))
		}
		return lrclib.NewClient(s.LRCLibURL, s.Timeout, opts...), nil
	case ProviderNetEase:
		return netease.NewClient(s.NetEaseURL, s.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown lyrics provider: %s", provider)
	}
}

// CreateManager builds a Manager from provider names in priority order.
// Unknown names are skipped with a warning.
func CreateManager(names []string, s Settings) (*Manager, error) {
	var providers []LyricsAPI
	for _, name := range names {
		provider, err := CreateProvider(Provider(name), s)
		if err != nil {
			logger.Warn().Err(err).Str("provider", name).Msg("Failed to create provider")
			continue
		}
		providers = append(providers, provider)
	}

	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	return NewManager(providers), nil
}
