package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"dj-backend/internal/idcache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type stubSearcher struct {
	pages   map[string]string
	err     error
	queries []string
}

func (s *stubSearcher) Search(ctx context.Context, q string) (string, error) {
	s.queries = append(s.queries, q)
	if s.err != nil {
		return "", s.err
	}
	return s.pages[q], nil
}

type memBackend struct{}

func (memBackend) Load(ctx context.Context) (map[string]idcache.Entry, error) { return nil, nil }
func (memBackend) Save(ctx context.Context, _ map[string]idcache.Entry) error  { return nil }

func newCache(t *testing.T) *idcache.Cache {
	t.Helper()
	c, err := idcache.Open(context.Background(), memBackend{})
	require.NoError(t, err)
	return c
}

func TestExtractURI(t *testing.T) {
	body := `<a href="https://open.spotify.com/album/zzz">x</a>
<a href="https://open.spotify.com/track/4u7EnebtmKWzUH433cf5Qv?si=1">Bohemian</a>
<a href="https://open.spotify.com/track/second">`
	assert.Equal(t, "spotify:track:4u7EnebtmKWzUH433cf5Qv", ExtractURI(body))
	assert.Equal(t, "", ExtractURI("no tracks here"))
}

func TestResolveCachesFound(t *testing.T) {
	s := &stubSearcher{pages: map[string]string{
		"Queen Bohemian Rhapsody spotify track": "open.spotify.com/track/abc123",
	}}
	r := New(s, newCache(t))
	ctx := context.Background()

	first, err := r.Resolve(ctx, "Queen", "Bohemian Rhapsody")
	require.NoError(t, err)
	assert.Equal(t, Found, first.State)
	assert.Equal(t, "spotify:track:abc123", first.URI)
	assert.False(t, first.Cached)

	second, err := r.Resolve(ctx, "queen", "bohemian rhapsody")
	require.NoError(t, err)
	assert.Equal(t, "spotify:track:abc123", second.URI)
	assert.True(t, second.Cached)

	assert.Len(t, s.queries, 1)
}

func TestResolveCachesAbsent(t *testing.T) {
	s := &stubSearcher{}
	r := New(s, newCache(t))
	ctx := context.Background()

	res, err := r.Resolve(ctx, "Nobody", "Nothing")
	require.NoError(t, err)
	assert.Equal(t, Absent, res.State)

	res, err = r.Resolve(ctx, "Nobody", "Nothing")
	require.NoError(t, err)
	assert.Equal(t, Absent, res.State)
	assert.True(t, res.Cached)
	assert.Len(t, s.queries, 1)
}

func TestResolveTransientNotCached(t *testing.T) {
	s := &stubSearcher{err: errors.New("connection reset")}
	cache := newCache(t)
	r := New(s, cache)
	ctx := context.Background()

	_, err := r.Resolve(ctx, "Queen", "Bohemian Rhapsody")
	require.ErrorIs(t, err, ErrTransient)
	assert.Equal(t, 0, cache.Len())

	s.err = nil
	s.pages = map[string]string{"Queen Bohemian Rhapsody spotify track": "open.spotify.com/track/xyz"}
	res, err := r.Resolve(ctx, "Queen", "Bohemian Rhapsody")
	require.NoError(t, err)
	assert.Equal(t, "spotify:track:xyz", res.URI)
	assert.Len(t, s.queries, 2)
}

func TestSearchIsUncached(t *testing.T) {
	s := &stubSearcher{pages: map[string]string{"under pressure spotify track": "open.spotify.com/track/up1"}}
	r := New(s, newCache(t))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		uri, err := r.Search(ctx, "under pressure")
		require.NoError(t, err)
		assert.Equal(t, "spotify:track:up1", uri)
	}
	assert.Len(t, s.queries, 2)
}

func TestSearchesWaitOnLimiterAndCacheHitsDoNot(t *testing.T) {
	s := &stubSearcher{pages: map[string]string{
		"Queen Bohemian Rhapsody spotify track": "open.spotify.com/track/abc123",
	}}
	// One token, then nothing for an hour: a second search cannot fit in the deadline.
	lim := rate.NewLimiter(rate.Every(time.Hour), 1)
	r := New(s, newCache(t), WithLimiter(lim))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	first, err := r.Resolve(ctx, "Queen", "Bohemian Rhapsody")
	require.NoError(t, err)
	assert.Equal(t, Found, first.State)

	_, err = r.Resolve(ctx, "Nobody", "Unknown")
	assert.ErrorIs(t, err, ErrTransient)

	_, err = r.Search(ctx, "anything")
	assert.Error(t, err)

	again, err := r.Resolve(ctx, "Queen", "Bohemian Rhapsody")
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Len(t, s.queries, 1)
}
