package lrclib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL   = "https://lrclib.net/api"
	DefaultUserAgent = "dj-backend/1.0"
)

// ErrNotFound is returned when lrclib has no record for the requested track.
var ErrNotFound = errors.New("lrclib: track not found")

// ErrNoSyncedLyrics is returned when a record exists but carries no synced lyrics.
var ErrNoSyncedLyrics = errors.New("lrclib: no synced lyrics")

var logger = log.With().Str("component", "lrclib").Logger()

// Client LRCLib客户端
type Client struct {
	httpClient     *http.Client
	baseURL        string
	userAgent      string
	searchFallback bool
}

// Response LRCLib API响应结构
type Response struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithSearchFallback makes GetSyncedLyrics fall back to /search when /get misses.
func WithSearchFallback(enabled bool) Option {
	return func(c *Client) { c.searchFallback = enabled }
}

// NewClient 创建新的LRCLib客户端
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetProviderName 返回提供商名称
func (c *Client) GetProviderName() string {
	return "LRCLib"
}

// GetSyncedLyrics returns the raw synced-lyrics payload for a track. It issues
// a single /get request, plus one /search request when the search fallback is
// enabled and /get misses.
func (c *Client) GetSyncedLyrics(ctx context.Context, artist, title string) (string, error) {
	resp, err := c.Get(ctx, artist, title)
	if errors.Is(err, ErrNotFound) && c.searchFallback {
		logger.Debug().Str("artist", artist).Str("title", title).Msg("get missed, trying search")
		resp, err = c.Search(ctx, artist, title, 0)
	}
	if err != nil {
		return "", err
	}
	if resp.SyncedLyrics == "" {
		return "", ErrNoSyncedLyrics
	}
	return resp.SyncedLyrics, nil
}

// Get looks up a single track by exact artist and title.
func (c *Client) Get(ctx context.Context, artist, title string) (*Response, error) {
	params := url.Values{}
	params.Set("artist_name", artist)
	params.Set("track_name", title)

	var out Response
	if err := c.getJSON(ctx, "/get?"+params.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search queries /search and picks the best match, preferring results whose
// duration is within a few seconds of duration when duration > 0.
func (c *Client) Search(ctx context.Context, artist, title string, duration int) (*Response, error) {
	params := url.Values{}
	params.Set("track_name", title)
	params.Set("artist_name", artist)

	var results []Response
	if err := c.getJSON(ctx, "/search?"+params.Encode(), &results); err != nil {
		return nil, err
	}

	logger.Debug().Int("results", len(results)).Str("artist", artist).Str("title", title).Msg("search finished")

	if len(results) == 0 {
		return nil, ErrNotFound
	}
	return findBestMatch(results, title, artist, duration), nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("lrclib request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("lrclib request returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// findBestMatch 从搜索结果中找到最佳匹配的歌词
func findBestMatch(responses []Response, targetTitle, targetArtist string, targetDuration int) *Response {
	var exactMatches []*Response
	var titleMatches []*Response

	for i := range responses {
		response := &responses[i]
		if response.SyncedLyrics == "" {
			continue
		}

		if containsIgnoreCase(response.TrackName, targetTitle) && containsIgnoreCase(response.ArtistName, targetArtist) {
			exactMatches = append(exactMatches, response)
		} else if containsIgnoreCase(response.TrackName, targetTitle) {
			titleMatches = append(titleMatches, response)
		}
	}

	matchPool := exactMatches
	if len(matchPool) == 0 {
		matchPool = titleMatches
	}
	if len(matchPool) == 0 {
		return &responses[0]
	}

	if targetDuration > 0 {
		const maxDurationDiff = 3
		bestMatch := matchPool[0]
		minDiff := abs(int(bestMatch.Duration) - targetDuration)

		for _, m := range matchPool {
			diff := abs(int(m.Duration) - targetDuration)
			if diff <= maxDurationDiff {
				return m
			}
			if diff < minDiff {
				minDiff = diff
				bestMatch = m
			}
		}
		return bestMatch
	}

	return matchPool[0]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
