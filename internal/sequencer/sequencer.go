// Package sequencer plays bounded snippets of tracks on a player and stops
// them again once their window has elapsed.
//
// All player calls are made by one worker goroutine. Public methods enqueue a
// job and wait for its status line; scheduled stops are enqueued by timers.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"dj-backend/internal/player"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

var logger = log.With().Str("component", "sequencer").Logger()

const (
	msgUnavailable = "Failed - is Spotify running?"
	msgClosed      = "Sequencer is shut down"
)

// maxSeconds is the longest offset or window a time.Duration can hold.
const maxSeconds = float64(math.MaxInt64 / int64(time.Second))

type Config struct {
	Clock clockwork.Clock
	// SettleTimeout bounds how long to wait for the player to report a newly
	// opened track before seeking anyway.
	SettleTimeout time.Duration
	PollInterval  time.Duration
	// SeekSettle is the pause between a manual seek and reading back the position.
	SeekSettle time.Duration
	// Supersede makes every new transport command cancel pending stops. When
	// false each snippet's stop fires on its own schedule, whatever happened since.
	Supersede bool
}

func DefaultConfig() Config {
	return Config{
		Clock:         clockwork.NewRealClock(),
		SettleTimeout: 3 * time.Second,
		PollInterval:  100 * time.Millisecond,
		SeekSettle:    200 * time.Millisecond,
		Supersede:     true,
	}
}

// Request is one snippet: Duration seconds of URI starting at Start seconds.
type Request struct {
	URI      string
	Start    float64
	Duration float64
}

func (r Request) validate() error {
	switch {
	case strings.TrimSpace(r.URI) == "":
		return errors.New("uri is required")
	case math.IsNaN(r.Start) || math.IsInf(r.Start, 0):
		return errors.New("start must be a finite number")
	case math.IsNaN(r.Duration) || math.IsInf(r.Duration, 0):
		return errors.New("duration must be a finite number")
	case r.Start < 0:
		return errors.New("start must not be negative")
	case r.Duration <= 0:
		return errors.New("duration must be positive")
	case r.Start > maxSeconds || r.Duration > maxSeconds:
		return fmt.Errorf("start and duration must be at most %.0f seconds", maxSeconds)
	}
	return nil
}

// Result is returned as soon as playback has been started. Start and End are
// the intended window of the first clip. Done is closed when the session is
// stopped or superseded.
type Result struct {
	Status   string
	OK       bool
	Session  string
	Start    float64
	End      float64
	Duration float64
	Done     <-chan struct{}
}

type job struct {
	ctx      context.Context
	mutating bool
	fn       func(ctx context.Context) string
	reply    chan string
}

type stopMsg struct {
	sess *session
}

type session struct {
	id    string
	gen   uint64
	steps []Request
	next  int
	timer clockwork.Timer
	done  chan struct{}
	ended bool
}

type Sequencer struct {
	player player.Player
	cfg    Config
	clock  clockwork.Clock

	jobs  chan job
	stops chan stopMsg
	quit  chan struct{}
	wg    sync.WaitGroup

	baseCtx context.Context
	cancel  context.CancelFunc

	// owned by the worker goroutine
	gen      uint64
	sessions map[string]*session

	closeOnce sync.Once
}

func New(p player.Player, cfg Config) *Sequencer {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Sequencer{
		player:   p,
		cfg:      cfg,
		clock:    cfg.Clock,
		jobs:     make(chan job),
		stops:    make(chan stopMsg, 16),
		quit:     make(chan struct{}),
		baseCtx:  ctx,
		cancel:   cancel,
		sessions: make(map[string]*session),
	}
	s.wg.Add(1)
	go s.loop()
	return s
}

// Close stops the worker and drops every pending stop.
func (s *Sequencer) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
		s.cancel()
		s.wg.Wait()
	})
}

func (s *Sequencer) loop() {
	defer s.wg.Done()
	for {
		select {
		case j := <-s.jobs:
			if j.mutating && s.cfg.Supersede {
				s.supersede()
			}
			j.reply <- j.fn(j.ctx)
		case m := <-s.stops:
			s.handleStop(m.sess)
		case <-s.quit:
			for _, sess := range s.sessions {
				s.end(sess)
			}
			return
		}
	}
}

// submit runs fn on the worker and returns its status line.
func (s *Sequencer) submit(ctx context.Context, mutating bool, fn func(ctx context.Context) string) string {
	j := job{ctx: ctx, mutating: mutating, fn: fn, reply: make(chan string, 1)}
	select {
	case s.jobs <- j:
	case <-ctx.Done():
		return "Cancelled: " + ctx.Err().Error()
	case <-s.quit:
		return msgClosed
	}
	return <-j.reply
}

// supersede invalidates every pending stop. Runs on the worker.
func (s *Sequencer) supersede() {
	s.gen++
	for _, sess := range s.sessions {
		logger.Debug().Str("session", sess.id).Msg("Session superseded")
		s.end(sess)
	}
}

func (s *Sequencer) end(sess *session) {
	if sess.ended {
		return
	}
	sess.ended = true
	if sess.timer != nil {
		sess.timer.Stop()
	}
	close(sess.done)
	delete(s.sessions, sess.id)
}

// Snippet opens req.URI, seeks to req.Start, plays and schedules a pause
// req.Duration seconds later. It returns once playback has been started.
func (s *Sequencer) Snippet(ctx context.Context, req Request) Result {
	return s.Sequence(ctx, []Request{req})
}

// Sequence plays reqs back to back as one session: each clip starts when the
// previous clip's window ends, and playback pauses after the last one.
func (s *Sequencer) Sequence(ctx context.Context, reqs []Request) Result {
	if len(reqs) == 0 {
		return Result{Status: "Nothing to play"}
	}
	total := 0.0
	for i, r := range reqs {
		if err := r.validate(); err != nil {
			return Result{Status: fmt.Sprintf("Invalid snippet %d: %v", i+1, err)}
		}
		total += r.Duration
	}

	var res Result
	status := s.submit(ctx, true, func(ctx context.Context) string {
		sess := &session{
			id:    uuid.NewString(),
			gen:   s.gen,
			steps: reqs,
			done:  make(chan struct{}),
		}
		s.sessions[sess.id] = sess
		if err := s.playStep(ctx, sess); err != nil {
			s.end(sess)
			return failure(err)
		}
		res = Result{
			OK:       true,
			Session:  sess.id,
			Start:    reqs[0].Start,
			End:      reqs[0].Start + reqs[0].Duration,
			Duration: total,
			Done:     sess.done,
		}
		if len(reqs) == 1 {
			r := reqs[0]
			return fmt.Sprintf("Playing snippet: %ss to %ss (%ss)", num(r.Start), num(r.Start+r.Duration), num(r.Duration))
		}
		return fmt.Sprintf("Playing %d clips (%ss)", len(reqs), num(total))
	})
	res.Status = status
	return res
}

// Wait blocks until every session running when it is called has ended,
// either by its scheduled pause or by being superseded.
func (s *Sequencer) Wait(ctx context.Context) error {
	var pending []<-chan struct{}
	status := s.submit(ctx, false, func(context.Context) string {
		for _, sess := range s.sessions {
			pending = append(pending, sess.done)
		}
		return ""
	})
	if status != "" {
		return errors.New(status)
	}
	for _, done := range pending {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// playStep plays sess.steps[sess.next] and arms the timer that ends it.
// Runs on the worker.
func (s *Sequencer) playStep(ctx context.Context, sess *session) error {
	req := sess.steps[sess.next]
	sess.next++

	before, _ := s.player.Metadata(ctx)
	if err := s.player.Open(ctx, req.URI); err != nil {
		return fmt.Errorf("open %s: %w", req.URI, err)
	}

	md, ready := s.awaitTrack(ctx, req.URI, before.TrackID)
	if !ready {
		logger.Warn().Str("uri", req.URI).Dur("timeout", s.cfg.SettleTimeout).Msg("Player did not report the new track in time")
	}
	if md.TrackID != "" {
		if err := s.player.Seek(ctx, md.TrackID, player.Micros(req.Start)); err != nil {
			logger.Warn().Err(err).Str("uri", req.URI).Msg("Seek failed")
		}
	} else {
		logger.Debug().Str("uri", req.URI).Msg("No track handle, skipping seek")
	}

	if err := s.player.Play(ctx); err != nil {
		return fmt.Errorf("play: %w", err)
	}

	sess.timer = s.clock.AfterFunc(seconds(req.Duration), func() {
		select {
		case s.stops <- stopMsg{sess: sess}:
		case <-s.quit:
		}
	})
	logger.Info().
		Str("session", sess.id).
		Str("uri", req.URI).
		Float64("start", req.Start).
		Float64("duration", req.Duration).
		Msg("Snippet started")
	return nil
}

// awaitTrack polls metadata until the player reports uri, or any track other
// than prevID, or SettleTimeout elapses.
func (s *Sequencer) awaitTrack(ctx context.Context, uri, prevID string) (player.Metadata, bool) {
	deadline := s.clock.Now().Add(s.cfg.SettleTimeout)
	for {
		md, err := s.player.Metadata(ctx)
		if err == nil && md.TrackID != "" && (SameTrack(md.TrackID, uri) || md.TrackID != prevID) {
			return md, true
		}
		if !s.clock.Now().Before(deadline) || s.cfg.PollInterval <= 0 {
			return md, false
		}
		select {
		case <-s.clock.After(s.cfg.PollInterval):
		case <-ctx.Done():
			return md, false
		}
	}
}

func (s *Sequencer) handleStop(sess *session) {
	if sess.ended {
		return
	}
	if s.cfg.Supersede && sess.gen != s.gen {
		logger.Debug().Str("session", sess.id).Msg("Ignoring stale stop")
		return
	}

	if sess.next < len(sess.steps) {
		if err := s.playStep(s.baseCtx, sess); err != nil {
			logger.Warn().Err(err).Str("session", sess.id).Msg("Next clip failed")
			s.end(sess)
		}
		return
	}

	if err := s.player.Pause(s.baseCtx); err != nil {
		logger.Warn().Err(err).Str("session", sess.id).Msg("Scheduled pause failed")
	} else {
		logger.Info().Str("session", sess.id).Msg("Snippet stopped")
	}
	s.end(sess)
}

// SameTrack reports whether a player track handle refers to uri, matching on
// the trailing id so "/com/spotify/track/x" and "spotify:track:x" agree.
func SameTrack(trackID, uri string) bool {
	return trackID == uri || lastSegment(trackID) == lastSegment(uri)
}

func lastSegment(s string) string {
	if i := strings.LastIndexAny(s, ":/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

func failure(err error) string {
	if errors.Is(err, player.ErrUnavailable) {
		return msgUnavailable
	}
	return "Failed: " + err.Error()
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
