// Package player drives an external media player through MPRIS, either over
// D-Bus directly or through the playerctl command line tool.
package player

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var logger = log.With().Str("component", "player").Logger()

// ErrUnavailable means no player answered: it is not running, or the call
// timed out. It is distinct from a player rejecting a call.
var ErrUnavailable = errors.New("player unavailable")

const (
	DefaultBusName     = "org.mpris.MediaPlayer2.spotify"
	DefaultCallTimeout = 5 * time.Second

	BackendMPRIS     = "mpris"
	BackendPlayerctl = "playerctl"
)

type Status int

const (
	StatusUnknown Status = iota
	StatusPlaying
	StatusPaused
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusPlaying:
		return "Playing"
	case StatusPaused:
		return "Paused"
	case StatusStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// ParseStatus maps an MPRIS PlaybackStatus string to a Status.
func ParseStatus(s string) Status {
	switch strings.TrimSpace(s) {
	case "Playing":
		return StatusPlaying
	case "Paused":
		return StatusPaused
	case "Stopped":
		return StatusStopped
	default:
		return StatusUnknown
	}
}

// Metadata describes the loaded track. TrackID is the player's own handle
// for it, which Seek needs. Length is in seconds.
type Metadata struct {
	Title   string
	Artist  string
	Album   string
	TrackID string
	Length  float64
}

// Empty reports whether the player returned nothing useful.
func (m Metadata) Empty() bool {
	return m == Metadata{}
}

// Player is the transport surface. Every call may fail with ErrUnavailable.
type Player interface {
	Open(ctx context.Context, uri string) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	PlayPause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	// Seek moves the track identified by trackID to an absolute offset.
	Seek(ctx context.Context, trackID string, offsetMicros int64) error
	Metadata(ctx context.Context) (Metadata, error)
	PlaybackStatus(ctx context.Context) (Status, error)
	// Position returns the playback position in seconds.
	Position(ctx context.Context) (float64, error)
}

// New opens the backend named by backend.
func New(backend, busName string, callTimeout time.Duration) (Player, error) {
	if busName == "" {
		busName = DefaultBusName
	}
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	switch backend {
	case "", BackendMPRIS:
		return NewMPRIS(busName, callTimeout)
	case BackendPlayerctl:
		return NewPlayerctl(InstanceName(busName), callTimeout), nil
	default:
		return nil, fmt.Errorf("unknown player backend %q", backend)
	}
}

// InstanceName returns the short player name for an MPRIS bus name, e.g.
// "spotify" for "org.mpris.MediaPlayer2.spotify".
func InstanceName(busName string) string {
	return strings.TrimPrefix(busName, mprisBusPrefix)
}

// Seconds converts a microsecond offset to seconds.
func Seconds(micros int64) float64 {
	return float64(micros) / 1e6
}

// Micros converts seconds to a microsecond offset.
func Micros(seconds float64) int64 {
	return int64(seconds * 1e6)
}

type offline struct{ cause error }

// Offline returns a Player whose every call fails with ErrUnavailable. It
// stands in when no backend could be opened, so callers report the player as
// not running instead of failing to start.
func Offline(cause error) Player { return offline{cause: cause} }

func (o offline) err() error { return fmt.Errorf("%w: %v", ErrUnavailable, o.cause) }

func (o offline) Open(context.Context, string) error        { return o.err() }
func (o offline) Play(context.Context) error                { return o.err() }
func (o offline) Pause(context.Context) error               { return o.err() }
func (o offline) PlayPause(context.Context) error           { return o.err() }
func (o offline) Next(context.Context) error                { return o.err() }
func (o offline) Previous(context.Context) error            { return o.err() }
func (o offline) Seek(context.Context, string, int64) error { return o.err() }
func (o offline) Metadata(context.Context) (Metadata, error) {
	return Metadata{}, o.err()
}
func (o offline) PlaybackStatus(context.Context) (Status, error) {
	return StatusStopped, o.err()
}
func (o offline) Position(context.Context) (float64, error) { return 0, o.err() }
