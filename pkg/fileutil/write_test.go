package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "doc.json")

	require.NoError(t, WriteJSON(path, map[string]int{"b": 2, "a": 1}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1,\n  \"b\": 2\n}\n", string(raw))

	var got map[string]int
	ok, err := ReadJSON(path, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, got)
}

func TestReadJSONMissingFile(t *testing.T) {
	var got map[string]string
	ok, err := ReadJSON(filepath.Join(t.TempDir(), "missing.json"), &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadJSONCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	var got map[string]string
	_, err := ReadJSON(path, &got)
	assert.Error(t, err)
}

func TestWriteFileOverwriteTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, WriteFileOverwrite(path, []byte("long content"), 0644))
	require.NoError(t, WriteFileOverwrite(path, []byte("short"), 0644))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "short", string(raw))
}

func TestWriteFailureIsReported(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	err := WriteFileOverwrite("/dev/full", []byte("data"), 0644)
	assert.Error(t, err)
}

func TestWriteIntoDirectoryFails(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, WriteJSON(dir, map[string]int{"a": 1}))
}
