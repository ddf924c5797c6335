package player

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// metadataFormat is split on tabs by parsePlayerctlMetadata.
const metadataFormat = "{{title}}\t{{artist}}\t{{album}}\t{{mpris:trackid}}\t{{mpris:length}}"

type runFunc func(ctx context.Context, args ...string) ([]byte, error)

// Playerctl drives a player through the playerctl binary.
type Playerctl struct {
	player  string
	timeout time.Duration
	run     runFunc
}

func NewPlayerctl(player string, timeout time.Duration) *Playerctl {
	p := &Playerctl{player: player, timeout: timeout}
	p.run = p.exec
	return p
}

func (p *Playerctl) Open(ctx context.Context, uri string) error {
	_, err := p.cmd(ctx, "open", uri)
	return err
}

func (p *Playerctl) Play(ctx context.Context) error {
	_, err := p.cmd(ctx, "play")
	return err
}

func (p *Playerctl) Pause(ctx context.Context) error {
	_, err := p.cmd(ctx, "pause")
	return err
}

func (p *Playerctl) PlayPause(ctx context.Context) error {
	_, err := p.cmd(ctx, "play-pause")
	return err
}

func (p *Playerctl) Next(ctx context.Context) error {
	_, err := p.cmd(ctx, "next")
	return err
}

func (p *Playerctl) Previous(ctx context.Context) error {
	_, err := p.cmd(ctx, "previous")
	return err
}

// Seek sets an absolute position. playerctl targets the loaded track itself,
// so trackID is only used to refuse seeking when nothing is loaded.
func (p *Playerctl) Seek(ctx context.Context, trackID string, offsetMicros int64) error {
	if trackID == "" {
		return errors.New("no track loaded")
	}
	_, err := p.cmd(ctx, "position", strconv.FormatFloat(Seconds(offsetMicros), 'f', 3, 64))
	return err
}

func (p *Playerctl) Metadata(ctx context.Context) (Metadata, error) {
	out, err := p.cmd(ctx, "metadata", "--format", metadataFormat)
	if err != nil {
		return Metadata{}, err
	}
	return parsePlayerctlMetadata(out), nil
}

func (p *Playerctl) PlaybackStatus(ctx context.Context) (Status, error) {
	out, err := p.cmd(ctx, "status")
	if err != nil {
		return StatusUnknown, err
	}
	return ParseStatus(out), nil
}

func (p *Playerctl) Position(ctx context.Context) (float64, error) {
	out, err := p.cmd(ctx, "position")
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected position output %q: %w", out, err)
	}
	return seconds, nil
}

func (p *Playerctl) cmd(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if p.player != "" {
		args = append([]string{"--player=" + p.player}, args...)
	}
	out, err := p.run(ctx, args...)
	if err != nil {
		logger.Debug().Err(err).Strs("args", args).Msg("playerctl failed")
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		}
		return "", err
	}
	return strings.TrimRight(string(out), "\n"), nil
}

func (p *Playerctl) exec(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "playerctl", args...)
	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return nil, fmt.Errorf("%w: playerctl not installed", ErrUnavailable)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := strings.TrimSpace(string(exitErr.Stderr))
		if strings.Contains(stderr, "No players found") || strings.Contains(stderr, "No player could handle") {
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, stderr)
		}
		if stderr != "" {
			return nil, errors.New(stderr)
		}
	}
	return nil, err
}

func parsePlayerctlMetadata(out string) Metadata {
	fields := strings.Split(out, "\t")
	for len(fields) < 5 {
		fields = append(fields, "")
	}
	md := Metadata{
		Title:   fields[0],
		Artist:  fields[1],
		Album:   fields[2],
		TrackID: fields[3],
	}
	if micros, err := strconv.ParseInt(strings.TrimSpace(fields[4]), 10, 64); err == nil && micros > 0 {
		md.Length = Seconds(micros)
	}
	return md
}
