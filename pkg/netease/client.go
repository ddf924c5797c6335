package netease

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultBaseURL = "https://music.163.com/api"

// ErrNoMatch is returned when the search finds no song matching title and artist.
var ErrNoMatch = errors.New("netease: no matching song")

var logger = log.With().Str("component", "netease").Logger()

// SearchResponse 网易云搜索API响应
type SearchResponse struct {
	Result struct {
		Songs []struct {
			ID      int    `json:"id"`
			Name    string `json:"name"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
		} `json:"songs"`
	} `json:"result"`
}

// LyricResponse 网易云歌词API响应
type LyricResponse struct {
	Lrc struct {
		Lyric string `json:"lyric"`
	} `json:"lrc"`
}

// Client 网易云音乐客户端
type Client struct {
	httpClient *http.Client
	baseURL    string
	cookie     string
}

// NewClient 创建新的网易云音乐客户端
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		cookie:     os.Getenv("NETEASE_COOKIE"),
	}
}

// GetProviderName 获取提供商名称
func (c *Client) GetProviderName() string {
	return "NetEase Cloud Music"
}

// GetSyncedLyrics searches for the song and returns its LRC payload.
func (c *Client) GetSyncedLyrics(ctx context.Context, artist, title string) (string, error) {
	songID, err := c.SearchSong(ctx, title, artist)
	if err != nil {
		return "", err
	}
	return c.GetLyrics(ctx, songID)
}

// SearchSong 搜索歌曲
func (c *Client) SearchSong(ctx context.Context, title, artist string) (string, error) {
	params := url.Values{}
	params.Set("s", strings.TrimSpace(title+" "+artist))
	params.Set("type", "1")
	params.Set("limit", "30")

	var searchResp SearchResponse
	if err := c.getJSON(ctx, "/search/get/web?"+params.Encode(), &searchResp); err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}

	songID := findBestMatch(searchResp, artist, title)
	if songID == 0 {
		return "", ErrNoMatch
	}
	logger.Debug().Int("song_id", songID).Str("title", title).Msg("found matching song")
	return strconv.Itoa(songID), nil
}

// GetLyrics 获取歌词
func (c *Client) GetLyrics(ctx context.Context, songID string) (string, error) {
	params := url.Values{}
	params.Set("os", "pc")
	params.Set("id", songID)
	params.Set("lv", "-1")

	var lyricResp LyricResponse
	if err := c.getJSON(ctx, "/song/lyric?"+params.Encode(), &lyricResp); err != nil {
		return "", fmt.Errorf("lyric request failed: %w", err)
	}
	if lyricResp.Lrc.Lyric == "" {
		return "", fmt.Errorf("song %s has no lyrics", songID)
	}
	return lyricResp.Lrc.Lyric, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// findBestMatch 找到最佳匹配的歌曲
func findBestMatch(resp SearchResponse, targetArtist, targetTitle string) int {
	for _, song := range resp.Result.Songs {
		if !containsIgnoreCase(song.Name, targetTitle) {
			continue
		}
		for _, artist := range song.Artists {
			if containsIgnoreCase(artist.Name, targetArtist) {
				return song.ID
			}
		}
	}

	if len(resp.Result.Songs) > 0 && containsIgnoreCase(resp.Result.Songs[0].Name, targetTitle) {
		return resp.Result.Songs[0].ID
	}
	return 0
}

func normalizeString(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "")
}

// containsIgnoreCase 忽略大小写和空格的包含关系检查
func containsIgnoreCase(s1, s2 string) bool {
	norm1, norm2 := normalizeString(s1), normalizeString(s2)
	return strings.Contains(norm1, norm2) || strings.Contains(norm2, norm1)
}
