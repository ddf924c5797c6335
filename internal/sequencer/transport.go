package sequencer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"dj-backend/internal/player"
)

func (s *Sequencer) Play(ctx context.Context) string {
	return s.submit(ctx, true, func(ctx context.Context) string {
		if err := s.player.Play(ctx); err != nil {
			return failure(err)
		}
		return "Playing!"
	})
}

func (s *Sequencer) Pause(ctx context.Context) string {
	return s.submit(ctx, true, func(ctx context.Context) string {
		if err := s.player.Pause(ctx); err != nil {
			return failure(err)
		}
		return "Paused"
	})
}

// Toggle flips play/pause and reports the resulting status.
func (s *Sequencer) Toggle(ctx context.Context) string {
	return s.submit(ctx, true, func(ctx context.Context) string {
		if err := s.player.PlayPause(ctx); err != nil {
			return failure(err)
		}
		status, err := s.player.PlaybackStatus(ctx)
		if err != nil {
			status = player.StatusUnknown
		}
		return "Toggled! Now: " + status.String()
	})
}

func (s *Sequencer) Next(ctx context.Context) string {
	return s.submit(ctx, true, func(ctx context.Context) string {
		if err := s.player.Next(ctx); err != nil {
			return failure(err)
		}
		return "Skipped to next track"
	})
}

func (s *Sequencer) Previous(ctx context.Context) string {
	return s.submit(ctx, true, func(ctx context.Context) string {
		if err := s.player.Previous(ctx); err != nil {
			return failure(err)
		}
		return "Back to previous track"
	})
}

// Open loads uri and waits until the player reports it.
func (s *Sequencer) Open(ctx context.Context, uri string) string {
	if strings.TrimSpace(uri) == "" {
		return "Failed: uri is required"
	}
	return s.submit(ctx, true, func(ctx context.Context) string {
		before, _ := s.player.Metadata(ctx)
		if err := s.player.Open(ctx, uri); err != nil {
			return failure(err)
		}
		s.awaitTrack(ctx, uri, before.TrackID)
		return "Now playing: " + uri
	})
}

// Seek moves the loaded track to an absolute position and reports where the
// player actually ended up.
func (s *Sequencer) Seek(ctx context.Context, secs float64) string {
	if math.IsNaN(secs) || secs < 0 || secs > maxSeconds {
		return fmt.Sprintf("Invalid position: %v", secs)
	}
	return s.submit(ctx, true, func(ctx context.Context) string {
		md, err := s.player.Metadata(ctx)
		if err != nil {
			return failure(err)
		}
		if md.TrackID == "" {
			return "Nothing to seek: no track loaded"
		}
		if err := s.player.Seek(ctx, md.TrackID, player.Micros(secs)); err != nil {
			return failure(err)
		}
		if s.cfg.SeekSettle > 0 {
			select {
			case <-s.clock.After(s.cfg.SeekSettle):
			case <-ctx.Done():
			}
		}
		pos, err := s.player.Position(ctx)
		if err != nil {
			return failure(err)
		}
		return fmt.Sprintf("Seeked to %.1fs", pos)
	})
}

func (s *Sequencer) Position(ctx context.Context) string {
	return s.submit(ctx, false, func(ctx context.Context) string {
		pos, err := s.player.Position(ctx)
		if err != nil {
			return failure(err)
		}
		return fmt.Sprintf("Position: %.1f seconds", pos)
	})
}

// NowPlaying describes the loaded track, one "Field: value" per line.
func (s *Sequencer) NowPlaying(ctx context.Context) string {
	return s.submit(ctx, false, func(ctx context.Context) string {
		md, err := s.player.Metadata(ctx)
		if errors.Is(err, player.ErrUnavailable) {
			return "Spotify is not running or no track loaded"
		}
		if err != nil {
			return failure(err)
		}
		if md.Empty() {
			return "No track info available"
		}
		status, _ := s.player.PlaybackStatus(ctx)
		pos, _ := s.player.Position(ctx)

		var parts []string
		if md.Title != "" {
			parts = append(parts, "Track: "+md.Title)
		}
		if md.Artist != "" {
			parts = append(parts, "Artist: "+md.Artist)
		}
		if md.Album != "" {
			parts = append(parts, "Album: "+md.Album)
		}
		if md.Length > 0 {
			parts = append(parts, fmt.Sprintf("Position: %.1fs / %.1fs", pos, md.Length))
		} else {
			parts = append(parts, fmt.Sprintf("Position: %.1fs", pos))
		}
		parts = append(parts, "Status: "+status.String())
		if md.TrackID != "" {
			parts = append(parts, "URI: "+md.TrackID)
		}
		return strings.Join(parts, "\n")
	})
}

// Current returns the player's metadata. It does not supersede pending stops.
func (s *Sequencer) Current(ctx context.Context) (player.Metadata, error) {
	var (
		md  player.Metadata
		err error
	)
	status := s.submit(ctx, false, func(ctx context.Context) string {
		md, err = s.player.Metadata(ctx)
		return ""
	})
	if status != "" {
		return player.Metadata{}, errors.New(status)
	}
	return md, err
}
