package player

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusPlaying, ParseStatus("Playing\n"))
	assert.Equal(t, StatusPaused, ParseStatus("Paused"))
	assert.Equal(t, StatusStopped, ParseStatus("Stopped"))
	assert.Equal(t, StatusUnknown, ParseStatus("buffering"))
	assert.Equal(t, "Unknown", StatusUnknown.String())
}

func TestInstanceName(t *testing.T) {
	assert.Equal(t, "spotify", InstanceName("org.mpris.MediaPlayer2.spotify"))
	assert.Equal(t, "vlc", InstanceName("vlc"))
}

func TestParseMPRISMetadata(t *testing.T) {
	raw := map[string]dbus.Variant{
		"xesam:title":   dbus.MakeVariant("Bohemian Rhapsody"),
		"xesam:artist":  dbus.MakeVariant([]string{"Queen", "Other"}),
		"xesam:album":   dbus.MakeVariant("A Night at the Opera"),
		"mpris:trackid": dbus.MakeVariant(dbus.ObjectPath("/com/spotify/track/abc")),
		"mpris:length":  dbus.MakeVariant(uint64(354_000_000)),
	}
	md := parseMetadata(raw)
	assert.Equal(t, Metadata{
		Title:   "Bohemian Rhapsody",
		Artist:  "Queen",
		Album:   "A Night at the Opera",
		TrackID: "/com/spotify/track/abc",
		Length:  354,
	}, md)

	md = parseMetadata(map[string]dbus.Variant{"mpris:trackid": dbus.MakeVariant("spotify:track:abc")})
	assert.Equal(t, "spotify:track:abc", md.TrackID)
	assert.True(t, parseMetadata(nil).Empty())
}

func TestClassify(t *testing.T) {
	err := classify(dbus.Error{Name: "org.freedesktop.DBus.Error.ServiceUnknown"})
	assert.ErrorIs(t, err, ErrUnavailable)

	err = classify(&dbus.Error{Name: "org.freedesktop.DBus.Error.NoReply"})
	assert.ErrorIs(t, err, ErrUnavailable)

	err = classify(dbus.Error{Name: "org.mpris.MediaPlayer2.Player.Error.Failed"})
	assert.NotErrorIs(t, err, ErrUnavailable)

	assert.ErrorIs(t, classify(context.DeadlineExceeded), ErrUnavailable)
}

type fakeRun struct {
	calls [][]string
	out   map[string]string
	err   error
}

func (f *fakeRun) run(ctx context.Context, args ...string) ([]byte, error) {
	f.calls = append(f.calls, args)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.out[args[1]]), nil
}

func newFakePlayerctl(f *fakeRun) *Playerctl {
	p := NewPlayerctl("spotify", time.Second)
	p.run = f.run
	return p
}

func TestPlayerctlCommands(t *testing.T) {
	f := &fakeRun{out: map[string]string{
		"status":   "Playing\n",
		"position": "12.500000\n",
		"metadata": "Hey Jude\tThe Beatles\t1\tspotify:track:jude\t431000000\n",
	}}
	p := newFakePlayerctl(f)
	ctx := context.Background()

	require.NoError(t, p.Open(ctx, "spotify:track:jude"))
	require.NoError(t, p.Seek(ctx, "spotify:track:jude", 90_000_000))
	require.NoError(t, p.PlayPause(ctx))

	assert.Equal(t, []string{"--player=spotify", "open", "spotify:track:jude"}, f.calls[0])
	assert.Equal(t, []string{"--player=spotify", "position", "90.000"}, f.calls[1])
	assert.Equal(t, []string{"--player=spotify", "play-pause"}, f.calls[2])

	status, err := p.PlaybackStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusPlaying, status)

	pos, err := p.Position(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12.5, pos)

	md, err := p.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, Metadata{Title: "Hey Jude", Artist: "The Beatles", Album: "1", TrackID: "spotify:track:jude", Length: 431}, md)
}

func TestPlayerctlSeekWithoutTrack(t *testing.T) {
	f := &fakeRun{}
	p := newFakePlayerctl(f)
	assert.Error(t, p.Seek(context.Background(), "", 1))
	assert.Empty(t, f.calls)
}

func TestPlayerctlUnavailable(t *testing.T) {
	f := &fakeRun{err: ErrUnavailable}
	p := newFakePlayerctl(f)
	assert.ErrorIs(t, p.Play(context.Background()), ErrUnavailable)

	f.err = errors.New("boom")
	err := p.Play(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New("winamp", "", 0)
	assert.Error(t, err)
}

func TestOfflinePlayer(t *testing.T) {
	p := Offline(errors.New("no session bus"))
	ctx := context.Background()

	assert.ErrorIs(t, p.Play(ctx), ErrUnavailable)
	assert.ErrorIs(t, p.Seek(ctx, "x", 1), ErrUnavailable)
	_, err := p.Metadata(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "no session bus")
}
