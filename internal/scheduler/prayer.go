package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/minaret-labs/minaret/internal/audio"
	"github.com/minaret-labs/minaret/internal/db"
	"github.com/minaret-labs/minaret/internal/model"
	"github.com/minaret-labs/minaret/internal/storage"
	"github.com/minaret-labs/minaret/internal/timesource"
	"github.com/minaret-labs/minaret/internal/tts"
)

// Fetch retry backoff bounds for day rollover failures.
const (
	fetchBackoffMin = 30 * time.Second
	fetchBackoffMax = 10 * time.Minute
)

// prayerDayRetention is how many past days stay on disk before rollover
// pruning removes them.
const prayerDayRetention = 7

// trackedEvent carries the per-(day, event, phase) fired flags that make
// each instant fire at most once per day.
type trackedEvent struct {
	ev         model.PrayerEvent
	preFired   bool
	adhanFired bool
}

// PrayerScheduler walks each day through Unloaded -> Loaded -> DayComplete:
// it ingests the day's times on rollover, then fires pre-announcements and
// adhans as their instants pass.
type PrayerScheduler struct {
	adapter timesource.Adapter
	store   db.Store
	sounds  storage.Library
	synth   tts.Synthesizer
	arb     Submitter
	loc     timesource.Location

	grace      time.Duration
	retryDelay time.Duration

	// onSchedule, if set, is told whenever a day's schedule is computed.
	onSchedule func(model.PrayerDay)

	mu        sync.Mutex
	date      string // day the tracked events belong to; "" = unloaded
	loaded    bool
	events    []*trackedEvent
	display   []model.PrayerEvent // last-known times, display only
	staleDate string              // date the display events were fetched for
	nextFetch time.Time
	backoff   time.Duration
}

func NewPrayerScheduler(adapter timesource.Adapter, store db.Store, sounds storage.Library,
	synth tts.Synthesizer, arb Submitter, loc timesource.Location) *PrayerScheduler {
	return &PrayerScheduler{
		adapter:    adapter,
		store:      store,
		sounds:     sounds,
		synth:      synth,
		arb:        arb,
		loc:        loc,
		grace:      DefaultGraceWindow,
		retryDelay: outputRetryDelay,
	}
}

// SetGraceWindow overrides the missed-trigger tolerance.
func (s *PrayerScheduler) SetGraceWindow(d time.Duration) { s.grace = d }

// OnScheduleComputed registers the schedule feed callback. Call before the
// runner starts.
func (s *PrayerScheduler) OnScheduleComputed(fn func(model.PrayerDay)) { s.onSchedule = fn }

// Tick evaluates the prayer schedule against now. Never blocks on audio.
func (s *PrayerScheduler) Tick(ctx context.Context, now time.Time) {
	s.mu.Lock()

	today := model.DateKey(now)
	if s.date != today {
		// Day rollover: yesterday's schedule may no longer trigger
		// audio, whatever its state.
		s.date = today
		s.loaded = false
		s.events = nil
		s.backoff = 0
		s.nextFetch = now
	}

	if !s.loaded && !now.Before(s.nextFetch) {
		s.loadDayLocked(ctx, now)
	}

	if !s.loaded {
		s.mu.Unlock()
		return
	}

	due := s.collectDueLocked(now)
	s.mu.Unlock()

	for _, f := range due {
		f()
	}
}

// loadDayLocked ingests today's times: preferring the day already stored
// on-device (if ingested today), else fetching from the time source.
func (s *PrayerScheduler) loadDayLocked(ctx context.Context, now time.Time) {
	if day, err := s.store.GetPrayerDay(s.date); err == nil && model.DateKey(day.CreatedAt) == s.date {
		s.adoptDayLocked(day)
		log.Info().Str("date", s.date).Msg("prayer schedule loaded from store")
		return
	}

	fetched, err := s.adapter.FetchDay(ctx, now, s.loc)
	if err != nil {
		// Keep serving the last-known schedule for display only; no
		// stale audio triggering across a date boundary.
		if s.backoff == 0 {
			s.backoff = fetchBackoffMin
		} else if s.backoff < fetchBackoffMax {
			s.backoff *= 2
			if s.backoff > fetchBackoffMax {
				s.backoff = fetchBackoffMax
			}
		}
		s.nextFetch = now.Add(s.backoff)
		log.Error().Err(err).Str("date", s.date).Dur("retry_in", s.backoff).
			Msg("prayer time fetch failed")
		if s.display == nil {
			yesterday := model.DateKey(now.AddDate(0, 0, -1))
			if cached, ok := timesource.LastKnown(ctx, yesterday); ok {
				s.display = cached
				s.staleDate = yesterday
			}
		}
		return
	}

	day := model.PrayerDay{
		Date:      s.date,
		Events:    s.applySettings(fetched),
		CreatedAt: now,
	}
	if err := s.store.SavePrayerDay(day); err != nil {
		log.Error().Err(err).Str("date", s.date).Msg("persisting prayer day failed")
	}
	if err := s.store.PruneOldPrayerDays(prayerDayRetention); err != nil {
		log.Warn().Err(err).Msg("pruning old prayer days failed")
	}
	s.adoptDayLocked(day)
	log.Info().Str("date", s.date).Int("events", len(day.Events)).Msg("prayer schedule computed")
}

func (s *PrayerScheduler) adoptDayLocked(day model.PrayerDay) {
	s.loaded = true
	s.backoff = 0
	s.events = make([]*trackedEvent, 0, len(day.Events))
	for _, ev := range day.Events {
		s.events = append(s.events, &trackedEvent{ev: ev})
	}
	s.display = day.Events
	s.staleDate = day.Date

	if s.onSchedule != nil {
		fn, snapshot := s.onSchedule, day
		go fn(snapshot)
	}
}

// applySettings merges the per-prayer device settings onto fetched times.
func (s *PrayerScheduler) applySettings(events []model.PrayerEvent) []model.PrayerEvent {
	settings, err := s.store.ListPrayerSettings()
	if err != nil {
		log.Error().Err(err).Msg("loading prayer settings failed, using fetched times as-is")
		return events
	}
	byName := make(map[model.PrayerName]model.PrayerSettings, len(settings))
	for _, st := range settings {
		byName[st.Name] = st
	}

	out := make([]model.PrayerEvent, len(events))
	for i, ev := range events {
		st, ok := byName[ev.Name]
		if !ok {
			ev.Enabled = false
			out[i] = ev
			continue
		}
		ev.PreAnnounceOffsetSeconds = st.PreAnnounceOffsetSeconds
		ev.PreAnnounceEnabled = st.PreAnnounceEnabled
		ev.AdhanSoundRef = st.AdhanSoundRef
		ev.Enabled = st.Enabled
		out[i] = ev
	}
	return out
}

// collectDueLocked marks due instants fired and returns the submissions to
// run after the lock is released. An instant past its grace window is
// skipped for good.
func (s *PrayerScheduler) collectDueLocked(now time.Time) []func() {
	var due []func()
	for _, te := range s.events {
		te := te
		if !te.ev.Enabled {
			continue
		}

		if te.ev.PreAnnounceEnabled && !te.preFired {
			at := te.ev.PreAnnounceTime()
			if !now.Before(at) {
				te.preFired = true
				if now.Sub(at) <= s.grace {
					due = append(due, func() { s.firePreAnnounce(te.ev) })
				} else {
					log.Warn().Str("prayer", string(te.ev.Name)).Time("at", at).
						Msg("missed pre-announce instant beyond grace window, skipping")
				}
			}
		}

		if !te.adhanFired {
			at := te.ev.ScheduledTime
			if !now.Before(at) {
				te.adhanFired = true
				if now.Sub(at) <= s.grace {
					due = append(due, func() { s.fireAdhan(te.ev) })
				} else {
					log.Warn().Str("prayer", string(te.ev.Name)).Time("at", at).
						Msg("missed adhan instant beyond grace window, skipping")
				}
			}
		}
	}
	return due
}

func (s *PrayerScheduler) fireAdhan(ev model.PrayerEvent) {
	rc, err := s.sounds.Open(ev.AdhanSoundRef)
	if err != nil {
		log.Error().Err(err).Str("prayer", string(ev.Name)).Msg("adhan sound unavailable")
		return
	}
	provider, err := audio.NewFileProvider(rc, ev.AdhanSoundRef)
	if err != nil {
		_ = rc.Close()
		log.Error().Err(err).Str("prayer", string(ev.Name)).Msg("adhan sound unreadable")
		return
	}

	submitWithRetry(s.arb, model.PlaybackRequest{
		Kind:        model.SourceAdhan,
		Label:       prayerLabel("Adhan", ev.Name),
		Provider:    provider,
		StartVolume: 1,
		Cancellable: true,
		OnDone:      func(model.CompletionReason) { _ = rc.Close() },
	}, s.retryDelay)
}

func (s *PrayerScheduler) firePreAnnounce(ev model.PrayerEvent) {
	minutes := (ev.PreAnnounceOffsetSeconds + 59) / 60
	text := fmt.Sprintf("%s prayer in %d minutes.", titleCase(string(ev.Name)), minutes)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	buf, err := s.synth.Render(ctx, text)
	if err != nil {
		log.Error().Err(err).Str("prayer", string(ev.Name)).Msg("pre-announce synthesis failed, skipping occurrence")
		return
	}

	submitWithRetry(s.arb, model.PlaybackRequest{
		Kind:        model.SourcePreAnnounce,
		Label:       prayerLabel("Pre-announce", ev.Name),
		Provider:    audio.NewBufferProvider(buf),
		StartVolume: 1,
		Cancellable: true,
	}, s.retryDelay)
}

// Schedule returns the events to display and whether they are live for
// today (false = stale last-known copy after a failed rollover fetch).
func (s *PrayerScheduler) Schedule() (date string, events []model.PrayerEvent, live bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staleDate, s.display, s.loaded
}

func prayerLabel(phase string, name model.PrayerName) string {
	return fmt.Sprintf("%s — %s", phase, titleCase(string(name)))
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
