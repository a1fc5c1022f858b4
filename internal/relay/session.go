// Package relay manages live voice relay sessions: a remote caller pushes
// audio frames over the companion app's socket and the device plays them
// at top priority, over anything else that may be sounding.
package relay

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/minaret-labs/minaret/internal/arbiter"
	"github.com/minaret-labs/minaret/internal/audio"
	"github.com/minaret-labs/minaret/internal/model"
)

const (
	// DefaultInactivityTimeout ends a session whose feed went quiet. The
	// jitter buffer already papers over short stalls with silence; this is
	// for callers that vanished without a close frame.
	DefaultInactivityTimeout = 5 * time.Second

	watchInterval  = time.Second
	ageLogInterval = 30 * time.Second
)

var (
	// ErrSessionBusy rejects a second concurrent relay; the device has one
	// output and one caller at a time.
	ErrSessionBusy = errors.New("voice relay session already active")

	// ErrNoSession is returned when frames arrive with no session open.
	ErrNoSession = errors.New("no active voice relay session")
)

// Submitter is the slice of the arbiter the relay consumes.
type Submitter interface {
	Submit(req model.PlaybackRequest) (*arbiter.Handle, error)
}

type session struct {
	id       uuid.UUID
	stream   *audio.StreamProvider
	started  time.Time
	lastPush time.Time
	stop     chan struct{}
}

// Manager owns the single relay session slot. Begin/Push/End are safe for
// concurrent use; playback ends by draining the stream, so pending lower
// priority audio resumes naturally when the caller hangs up.
type Manager struct {
	arb     Submitter
	timeout time.Duration
	now     func() time.Time

	mu  sync.Mutex
	cur *session
}

func NewManager(arb Submitter) *Manager {
	return &Manager{
		arb:     arb,
		timeout: DefaultInactivityTimeout,
		now:     time.Now,
	}
}

// SetInactivityTimeout overrides the quiet-feed cutoff.
func (m *Manager) SetInactivityTimeout(d time.Duration) { m.timeout = d }

// Begin opens a relay session and claims the output. Fails with
// ErrSessionBusy while another session is live, or with the output error if
// the sound device refuses to start.
func (m *Manager) Begin() (uuid.UUID, error) {
	now := m.now()
	s := &session{
		id:       uuid.New(),
		stream:   audio.NewStreamProvider(0),
		started:  now,
		lastPush: now,
		stop:     make(chan struct{}),
	}

	m.mu.Lock()
	if m.cur != nil {
		m.mu.Unlock()
		return uuid.Nil, ErrSessionBusy
	}
	m.cur = s
	m.mu.Unlock()

	_, err := m.arb.Submit(model.PlaybackRequest{
		Kind:        model.SourceVoiceRelay,
		Label:       "Voice relay",
		Provider:    s.stream,
		StartVolume: 1,
		Cancellable: true,
		OnDone:      func(model.CompletionReason) { m.release(s) },
	})
	if err != nil {
		m.release(s)
		return uuid.Nil, err
	}

	go m.watch(s)
	log.Info().Str("session_id", s.id.String()).Msg("voice relay session started")
	return s.id, nil
}

// Push feeds one inbound audio frame to the live session.
func (m *Manager) Push(frame []byte) error {
	m.mu.Lock()
	s := m.cur
	if s == nil {
		m.mu.Unlock()
		return ErrNoSession
	}
	s.lastPush = m.now()
	m.mu.Unlock()

	s.stream.Push(frame)
	return nil
}

// End marks the caller as done. Buffered audio still drains; the session is
// released when playback completes. Safe to call with no session open.
func (m *Manager) End() {
	m.mu.Lock()
	s := m.cur
	m.mu.Unlock()
	if s == nil {
		return
	}
	_ = s.stream.Close()
	log.Info().Str("session_id", s.id.String()).
		Dur("age", m.now().Sub(s.started)).Msg("voice relay session closing")
}

// Active reports whether a relay session currently holds the output.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur != nil
}

// release clears the session slot once its playback is done, however it
// ended. Idempotent per session.
func (m *Manager) release(s *session) {
	m.mu.Lock()
	if m.cur != s {
		m.mu.Unlock()
		return
	}
	m.cur = nil
	close(s.stop)
	m.mu.Unlock()

	_ = s.stream.Close()
	log.Info().Str("session_id", s.id.String()).
		Dur("age", m.now().Sub(s.started)).Msg("voice relay session ended")
}

// watch enforces the inactivity cutoff and logs long-running sessions.
// Sessions have no hard duration cap; the age log keeps a forgotten open
// mic visible in the device logs.
func (m *Manager) watch(s *session) {
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()
	lastAgeLog := s.started

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			now := m.now()

			m.mu.Lock()
			last := s.lastPush
			m.mu.Unlock()

			if now.Sub(last) > m.timeout {
				log.Warn().Str("session_id", s.id.String()).
					Dur("idle", now.Sub(last)).Msg("voice relay feed went quiet, closing session")
				_ = s.stream.Close()
				return
			}
			if now.Sub(lastAgeLog) >= ageLogInterval {
				lastAgeLog = now
				log.Info().Str("session_id", s.id.String()).
					Dur("age", now.Sub(s.started)).Msg("voice relay session still open")
			}
		}
	}
}
