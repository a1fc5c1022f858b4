package scheduler

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/minaret-labs/minaret/internal/audio"
	"github.com/minaret-labs/minaret/internal/db"
	"github.com/minaret-labs/minaret/internal/model"
	"github.com/minaret-labs/minaret/internal/redis"
	"github.com/minaret-labs/minaret/internal/storage"
	"github.com/minaret-labs/minaret/internal/tts"
)

// smartRampStartVolume is where a wake-style alarm begins before ramping
// to full volume.
const smartRampStartVolume = 0.1

// AlarmScheduler evaluates alarm definitions against wall-clock time each
// tick. Every alarm is isolated: one bad record never blocks the rest.
type AlarmScheduler struct {
	store  db.Store
	sounds storage.Library
	synth  tts.Synthesizer
	arb    Submitter

	grace      time.Duration
	retryDelay time.Duration

	mu        sync.Mutex
	lastFired map[int]string // alarm id -> date it last fired (this process)
	flagged   map[int]bool   // invalid alarms already logged
}

func NewAlarmScheduler(store db.Store, sounds storage.Library, synth tts.Synthesizer, arb Submitter) *AlarmScheduler {
	return &AlarmScheduler{
		store:      store,
		sounds:     sounds,
		synth:      synth,
		arb:        arb,
		grace:      DefaultGraceWindow,
		retryDelay: outputRetryDelay,
		lastFired:  map[int]string{},
		flagged:    map[int]bool{},
	}
}

// SetGraceWindow overrides the missed-trigger tolerance.
func (s *AlarmScheduler) SetGraceWindow(d time.Duration) { s.grace = d }

// Tick loads the enabled alarms and fires the due ones.
func (s *AlarmScheduler) Tick(ctx context.Context, now time.Time) {
	alarms, err := s.store.ListEnabledAlarms()
	if err != nil {
		log.Error().Err(err).Msg("listing alarms failed, skipping tick")
		return
	}

	for _, a := range alarms {
		s.evaluate(ctx, a, now)
	}
}

func (s *AlarmScheduler) evaluate(ctx context.Context, a model.Alarm, now time.Time) {
	if err := a.Validate(); err != nil {
		s.mu.Lock()
		seen := s.flagged[a.ID]
		s.flagged[a.ID] = true
		s.mu.Unlock()
		if !seen {
			log.Error().Err(err).Int("alarm_id", a.ID).Msg("skipping malformed alarm")
		}
		return
	}

	occ, ok := a.MatchAt(now, s.grace)
	if !ok {
		return
	}
	date := model.DateKey(occ)

	// At most once per calendar day, checked against this process's
	// memory first, then the stamps that survive restarts.
	s.mu.Lock()
	if s.lastFired[a.ID] == date {
		s.mu.Unlock()
		return
	}
	s.lastFired[a.ID] = date
	s.mu.Unlock()

	if a.Repeating() && s.alreadyFired(ctx, a.ID, date) {
		return
	}

	s.stamp(ctx, a.ID, date)
	s.fire(ctx, a)
}

// alreadyFired consults the redis stamp, then the database, so a repeating
// alarm stays at-most-once-per-day across scheduler restarts.
func (s *AlarmScheduler) alreadyFired(ctx context.Context, id int, date string) bool {
	if redis.AlarmLastFired(ctx, strconv.Itoa(id)) == date {
		return true
	}
	stamped, err := s.store.LastFiredDate(id)
	if err != nil {
		return false
	}
	return stamped == date
}

func (s *AlarmScheduler) stamp(ctx context.Context, id int, date string) {
	redis.StampAlarmFired(ctx, strconv.Itoa(id), date)
	if err := s.store.StampAlarmFired(id, date); err != nil {
		log.Warn().Err(err).Int("alarm_id", id).Msg("persisting alarm fire stamp failed")
	}
}

func (s *AlarmScheduler) fire(ctx context.Context, a model.Alarm) {
	req, cleanup, err := s.buildRequest(ctx, a)
	if err != nil {
		// Logged where it failed; this occurrence is skipped, the next
		// one is unaffected.
		return
	}

	label := a.Name
	if label == "" {
		label = "Alarm " + strconv.Itoa(a.ID)
	}
	req.Label = label
	if cleanup != nil {
		req.OnDone = func(model.CompletionReason) { cleanup() }
	}

	submitWithRetry(s.arb, req, s.retryDelay)

	// One-shot alarms are disabled immediately so they cannot fire again,
	// even if the scheduler restarts within the same minute.
	if !a.Repeating() {
		if err := s.store.DisableAlarm(a.ID); err != nil {
			log.Error().Err(err).Int("alarm_id", a.ID).Msg("disabling fired one-shot alarm failed")
		}
	}
}

func (s *AlarmScheduler) buildRequest(ctx context.Context, a model.Alarm) (model.PlaybackRequest, func(), error) {
	req := model.PlaybackRequest{
		Kind:        model.SourceAlarm,
		StartVolume: 1,
		Cancellable: true,
	}
	if a.SmartRampEnabled && a.SmartRampDurationSeconds > 0 {
		req.StartVolume = smartRampStartVolume
		req.RampTarget = 1
		req.RampDuration = time.Duration(a.SmartRampDurationSeconds) * time.Second
	}

	if a.Message != nil {
		renderCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		defer cancel()
		buf, err := s.synth.Render(renderCtx, *a.Message)
		if err != nil {
			log.Error().Err(err).Int("alarm_id", a.ID).Msg("alarm synthesis failed, skipping occurrence")
			return model.PlaybackRequest{}, nil, err
		}
		req.Provider = audio.NewBufferProvider(buf)
		return req, nil, nil
	}

	rc, err := s.sounds.Open(*a.SoundRef)
	if err != nil {
		log.Error().Err(err).Int("alarm_id", a.ID).Msg("alarm sound unavailable, skipping occurrence")
		return model.PlaybackRequest{}, nil, err
	}
	provider, err := audio.NewFileProvider(rc, *a.SoundRef)
	if err != nil {
		_ = rc.Close()
		log.Error().Err(err).Int("alarm_id", a.ID).Msg("alarm sound unreadable, skipping occurrence")
		return model.PlaybackRequest{}, nil, err
	}
	req.Provider = provider
	return req, func() { _ = rc.Close() }, nil
}
