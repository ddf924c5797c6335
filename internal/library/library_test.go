package library

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLibrary(t *testing.T) *Library {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "tracks.json"))
}

func TestSaveAndFind(t *testing.T) {
	lib := newLibrary(t)

	msg, err := lib.Save("Victory Song", "spotify:track:v1")
	require.NoError(t, err)
	assert.Equal(t, "Saved 'Victory Song' -> spotify:track:v1", msg)

	_, err = lib.Save("m83 outro", "spotify:track:m83")
	require.NoError(t, err)

	uri, err := lib.Find("VICTORY SONG")
	require.NoError(t, err)
	assert.Equal(t, "spotify:track:v1", uri)

	uri, err = lib.Find("outro")
	require.NoError(t, err)
	assert.Equal(t, "spotify:track:m83", uri)
}

func TestSaveLastWriteWins(t *testing.T) {
	lib := newLibrary(t)
	_, err := lib.Save("chill", "spotify:track:old")
	require.NoError(t, err)
	_, err = lib.Save("CHILL", "spotify:track:new")
	require.NoError(t, err)

	uri, err := lib.Find("chill")
	require.NoError(t, err)
	assert.Equal(t, "spotify:track:new", uri)
}

func TestFindMultipleAndMissing(t *testing.T) {
	lib := newLibrary(t)
	for i := 0; i < 12; i++ {
		_, err := lib.Save(fmt.Sprintf("song %02d", i), fmt.Sprintf("spotify:track:%d", i))
		require.NoError(t, err)
	}

	out, err := lib.Find("song 1")
	require.NoError(t, err)
	assert.Equal(t, "Multiple matches:\n  - song 10\n  - song 11", out)

	out, err = lib.Find("jazz")
	require.NoError(t, err)
	assert.Equal(t, "Not found. Available: song 00, song 01, song 02, song 03, song 04, song 05, song 06, song 07, song 08, song 09...", out)
}

func TestList(t *testing.T) {
	lib := newLibrary(t)

	out, err := lib.List()
	require.NoError(t, err)
	assert.Equal(t, "Library is empty. Use save to add tracks!", out)

	_, err = lib.Save("b", "spotify:track:b")
	require.NoError(t, err)
	_, err = lib.Save("a", "spotify:track:a")
	require.NoError(t, err)

	out, err = lib.List()
	require.NoError(t, err)
	assert.Equal(t, "Your library (2 tracks):\n  a: spotify:track:a\n  b: spotify:track:b", out)
}
