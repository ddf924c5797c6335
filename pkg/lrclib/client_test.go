package lrclib

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSyncedLyrics(t *testing.T) {
	var gotUA, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "/get", r.URL.Path)
		w.Write([]byte(`{"id":1,"trackName":"Hey Jude","artistName":"The Beatles","syncedLyrics":"[00:01.00] Hey Jude"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, WithUserAgent("test-agent"))
	lyrics, err := client.GetSyncedLyrics(context.Background(), "The Beatles", "Hey Jude")

	require.NoError(t, err)
	assert.Equal(t, "[00:01.00] Hey Jude", lyrics)
	assert.Equal(t, "test-agent", gotUA)
	assert.Equal(t, "artist_name=The+Beatles&track_name=Hey+Jude", gotQuery)
}

func TestGetNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).GetSyncedLyrics(context.Background(), "a", "b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetPlainOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"plainLyrics":"no timing here"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).GetSyncedLyrics(context.Background(), "a", "b")
	assert.ErrorIs(t, err, ErrNoSyncedLyrics)
}

func TestSearchFallback(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		switch r.URL.Path {
		case "/get":
			w.WriteHeader(http.StatusNotFound)
		case "/search":
			w.Write([]byte(`[
				{"trackName":"Other","artistName":"Nobody","syncedLyrics":"[00:01.00] wrong"},
				{"trackName":"Yesterday (Remastered)","artistName":"The Beatles","syncedLyrics":"[00:02.00] right"}
			]`))
		}
	}))
	defer server.Close()

	withoutFallback := NewClient(server.URL, time.Second)
	_, err := withoutFallback.GetSyncedLyrics(context.Background(), "The Beatles", "Yesterday")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, requests)

	requests = 0
	withFallback := NewClient(server.URL, time.Second, WithSearchFallback(true))
	lyrics, err := withFallback.GetSyncedLyrics(context.Background(), "The Beatles", "Yesterday")
	require.NoError(t, err)
	assert.Equal(t, "[00:02.00] right", lyrics)
	assert.Equal(t, 2, requests)
}

func TestFindBestMatchPrefersDuration(t *testing.T) {
	results := []Response{
		{TrackName: "Song", ArtistName: "Band", Duration: 300, SyncedLyrics: "x"},
		{TrackName: "Song", ArtistName: "Band", Duration: 181, SyncedLyrics: "y"},
	}
	best := findBestMatch(results, "song", "band", 180)
	assert.Equal(t, "y", best.SyncedLyrics)
}
