package songinfo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubModel struct {
	replies []string
	errs    []error
	calls   int
}

func (m *stubModel) Name() string { return "stub" }

func (m *stubModel) HandleText(ctx context.Context, msg string) (string, error) {
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	return m.replies[i], nil
}

func TestResolveKnownArtistSkipsModel(t *testing.T) {
	m := &stubModel{}
	info, err := NewExtractor(m).Resolve(context.Background(), "Queen", "Bohemian Rhapsody")
	require.NoError(t, err)
	assert.Equal(t, SongInfo{Title: "Bohemian Rhapsody", Artist: "Queen", IsSong: true}, info)
	assert.Equal(t, 0, m.calls)
}

func TestExtractRetries(t *testing.T) {
	m := &stubModel{
		errs:    []error{errors.New("busy"), errors.New("busy"), nil},
		replies: []string{"", "", "```json\n{\"is_song\": true, \"title\": \"Hey Jude\", \"artist\": \"The Beatles\"}\n```"},
	}
	e := NewExtractor(m)
	e.retryDelay = 0

	info, err := e.Resolve(context.Background(), "", "The Beatles - Hey Jude (Remastered 2015)")
	require.NoError(t, err)
	assert.Equal(t, "Hey Jude", info.Title)
	assert.Equal(t, "The Beatles", info.Artist)
	assert.Equal(t, 3, m.calls)
}

func TestExtractGivesUp(t *testing.T) {
	boom := errors.New("down")
	m := &stubModel{errs: []error{boom, boom, boom}}
	e := NewExtractor(m)
	e.retryDelay = 0

	_, err := e.Extract(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, m.calls)
}

func TestExtractNotASong(t *testing.T) {
	m := &stubModel{replies: []string{`{"is_song": false}`}}
	_, err := NewExtractor(m).Extract(context.Background(), "Podcast #12")
	assert.ErrorIs(t, err, ErrNotASong)
}

func TestExtractWithoutModel(t *testing.T) {
	var e *Extractor
	_, err := e.Extract(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoModel)

	_, err = NewModel(context.Background(), "gemini", "", "")
	assert.ErrorIs(t, err, ErrNoModel)
}
