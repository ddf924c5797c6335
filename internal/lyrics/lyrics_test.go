package lyrics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSynced(t *testing.T) {
	payload := "[00:12.34] Is this the real life?\n" +
		"\n" +
		"[00:15.00]   \n" +
		"[ar:Queen]\n" +
		"[01:02.5] Is this just fantasy?\r\n" +
		"[00:03] no fraction\n" +
		"garbage line\n" +
		"[10:00.00]Caught in a landslide"

	got := ParseSynced(payload)

	assert.Equal(t, []Line{
		{Time: 12.34, Text: "Is this the real life?"},
		{Time: 62.5, Text: "Is this just fantasy?"},
		{Time: 600, Text: "Caught in a landslide"},
	}, got)
}

func TestParseSyncedKeepsProviderOrder(t *testing.T) {
	got := ParseSynced("[00:20.00] second\n[00:10.00] first")
	assert.Equal(t, "second", got[0].Text)
	assert.Equal(t, "first", got[1].Text)
}

type stubSource struct {
	payload string
	err     error
}

func (s stubSource) GetSyncedLyrics(ctx context.Context, artist, title string) (string, error) {
	return s.payload, s.err
}

func (s stubSource) GetProviderName() string { return "stub" }

func TestFetcherSwallowsErrors(t *testing.T) {
	f := NewFetcher(stubSource{err: errors.New("connection refused")})
	assert.Empty(t, f.Fetch(context.Background(), "a", "b"))

	f = NewFetcher(stubSource{payload: "not lyrics at all"})
	assert.Empty(t, f.Fetch(context.Background(), "a", "b"))

	f = NewFetcher(stubSource{payload: "[00:01.00] hello"})
	assert.Equal(t, []Line{{Time: 1, Text: "hello"}}, f.Fetch(context.Background(), "a", "b"))
}
