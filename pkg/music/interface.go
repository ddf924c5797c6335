package music

import (
	"context"
)

// LyricsAPI 歌词提供商通用接口
type LyricsAPI interface {
	// GetSyncedLyrics returns the raw line-synced lyrics payload for a track.
	GetSyncedLyrics(ctx context.Context, artist, title string) (string, error)

	// GetProviderName 获取提供商名称
	GetProviderName() string
}
