package music

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Provider 歌词提供商类型
type Provider string

const (
	// ProviderLRCLib LRCLib歌词库
	ProviderLRCLib Provider = "lrclib"
	// ProviderNetEase 网易云音乐
	ProviderNetEase Provider = "netease"
)

// ErrNoProviders is returned by a Manager built without providers.
var ErrNoProviders = errors.New("no lyrics providers available")

var logger = log.With().Str("component", "music-manager").Logger()

// Manager tries each provider in order and returns the first non-empty payload.
type Manager struct {
	providers []LyricsAPI
}

// NewManager 创建新的歌词管理器
func NewManager(providers []LyricsAPI) *Manager {
	if len(providers) == 0 {
		logger.Warn().Msg("No lyrics providers configured")
		return &Manager{}
	}

	logger.Debug().
		Int("provider_count", len(providers)).
		Str("primary_provider", providers[0].GetProviderName()).
		Msg("Lyrics manager initialized")

	return &Manager{providers: providers}
}

// GetSyncedLyrics 获取歌词，支持多提供商回退
func (m *Manager) GetSyncedLyrics(ctx context.Context, artist, title string) (string, error) {
	if len(m.providers) == 0 {
		return "", ErrNoProviders
	}

	var lastErr error
	for _, provider := range m.providers {
		lyrics, err := provider.GetSyncedLyrics(ctx, artist, title)
		if err == nil && strings.TrimSpace(lyrics) != "" {
			return lyrics, nil
		}
		if err == nil {
			err = fmt.Errorf("%s returned empty lyrics", provider.GetProviderName())
		}

		logger.Debug().
			Str("provider", provider.GetProviderName()).
			Str("artist", artist).
			Str("title", title).
			Err(err).
			Msg("Provider failed")
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	return "", fmt.Errorf("all providers failed for '%s - %s': %w", artist, title, lastErr)
}

// GetProviderName 获取管理器名称（实现LyricsAPI接口）
func (m *Manager) GetProviderName() string {
	return fmt.Sprintf("Manager[%s]", strings.Join(m.GetProviderNames(), ","))
}

// GetProviderNames 获取所有提供商名称
func (m *Manager) GetProviderNames() []string {
	names := make([]string, len(m.providers))
	for i, provider := range m.providers {
		names[i] = provider.GetProviderName()
	}
	return names
}
