package wordindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleIndex() *Index {
	ix := New()
	ix.Add("love", Occurrence{Artist: "Queen", Track: "Somebody to Love", URI: "spotify:track:a", Time: 12.5, Line: "Find me somebody to love", Duration: 1.5})
	ix.Add("love", Occurrence{Artist: "Queen", Track: "Somebody to Love", URI: "spotify:track:a", Time: 30.1, Line: "love, love", Duration: 1.5})
	ix.Add("love", Occurrence{Artist: "Beatles", Track: "All You Need Is Love", URI: "spotify:track:b", Time: 5, Line: "Love is all you need", Duration: 1.5})
	ix.Add("lovely", Occurrence{Artist: "Billie", Track: "Lovely", URI: "spotify:track:c", Time: 44, Line: "isn't it lovely", Duration: 1.5})
	ix.Add("glove", Occurrence{Artist: "X", Track: "Y", URI: "spotify:track:d", Time: 1, Line: "glove", Duration: 1.5})
	return ix
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	ix := sampleIndex()

	upper, err := ix.Lookup("LOVE")
	require.NoError(t, err)
	lower, err := ix.Lookup("love")
	require.NoError(t, err)

	assert.True(t, upper.Exact())
	assert.Equal(t, lower.Occurrences, upper.Occurrences)
	assert.Len(t, upper.Occurrences, 3)
}

func TestLookupSuggestions(t *testing.T) {
	ix := sampleIndex()

	res, err := ix.Lookup("lov")
	require.NoError(t, err)
	assert.False(t, res.Exact())
	assert.Equal(t, []string{"glove", "love", "lovely"}, res.Suggestions)
}

func TestLookupNotFound(t *testing.T) {
	ix := sampleIndex()

	_, err := ix.Lookup("zebra")
	assert.ErrorIs(t, err, ErrWordNotFound)

	_, err = ix.Lookup("!!")
	assert.ErrorIs(t, err, ErrWordNotFound)
}

func TestSelectVariant(t *testing.T) {
	ix := sampleIndex()

	occ, err := ix.SelectVariant("love", 0)
	require.NoError(t, err)
	assert.Equal(t, 12.5, occ.Time)

	occ, err = ix.SelectVariant("Love", 2)
	require.NoError(t, err)
	assert.Equal(t, "Beatles", occ.Artist)

	_, err = ix.SelectVariant("love", 999)
	require.ErrorIs(t, err, ErrVariantOutOfRange)
	var ve *VariantError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 3, ve.Count)
	assert.Equal(t, 999, ve.Index)

	_, err = ix.SelectVariant("love", -1)
	assert.ErrorIs(t, err, ErrVariantOutOfRange)

	_, err = ix.SelectVariant("zebra", 0)
	assert.ErrorIs(t, err, ErrWordNotFound)
	assert.NotErrorIs(t, err, ErrVariantOutOfRange)
}

func TestSaveIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.json")
	b := filepath.Join(dir, "b.json")

	require.NoError(t, sampleIndex().Save(a))
	require.NoError(t, sampleIndex().Save(b))

	da, err := os.ReadFile(a)
	require.NoError(t, err)
	db, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)

	loaded, err := Load(a)
	require.NoError(t, err)
	assert.Equal(t, []string{"glove", "love", "lovely"}, loaded.Words())
	assert.Equal(t, 5, loaded.Occurrences())
}

func TestLoadMissingFile(t *testing.T) {
	ix, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Len())
}

func TestStoreReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.json")
	store := NewStore(path)

	ix, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Len())

	require.NoError(t, sampleIndex().Save(path))
	ix, err = store.Get()
	require.NoError(t, err)
	assert.Equal(t, 3, ix.Len())

	again, err := store.Get()
	require.NoError(t, err)
	assert.Same(t, ix, again)
}
