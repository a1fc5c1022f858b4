package scheduler

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"mime/multipart"
	"sync"
	"time"

	"github.com/minaret-labs/minaret/internal/arbiter"
	"github.com/minaret-labs/minaret/internal/model"
	"github.com/minaret-labs/minaret/internal/timesource"
)

// fakeSubmitter records playback submissions and can fail a configured
// number of times to exercise caller retry policy.
type fakeSubmitter struct {
	mu       sync.Mutex
	requests []model.PlaybackRequest
	failures int
}

func (f *fakeSubmitter) Submit(req model.PlaybackRequest) (*arbiter.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return nil, arbiter.ErrOutputUnavailable
	}
	f.requests = append(f.requests, req)
	return &arbiter.Handle{}, nil
}

func (f *fakeSubmitter) submitted() []model.PlaybackRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.PlaybackRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

func (f *fakeSubmitter) kinds() []model.SourceKind {
	var out []model.SourceKind
	for _, r := range f.submitted() {
		out = append(out, r.Kind)
	}
	return out
}

// fakeStore is an in-memory db.Store.
type fakeStore struct {
	mu       sync.Mutex
	alarms   map[int]model.Alarm
	stamps   map[int]string
	days     map[string]model.PrayerDay
	settings []model.PrayerSettings
	nextID   int
}

func newFakeStore() *fakeStore {
	settings := make([]model.PrayerSettings, 0, len(model.PrayerNames))
	for _, name := range model.PrayerNames {
		settings = append(settings, model.PrayerSettings{
			Name:                     name,
			PreAnnounceOffsetSeconds: 900,
			AdhanSoundRef:            "adhan_default.pcm",
			Enabled:                  name != model.Sunrise,
		})
	}
	return &fakeStore{
		alarms:   map[int]model.Alarm{},
		stamps:   map[int]string{},
		days:     map[string]model.PrayerDay{},
		settings: settings,
	}
}

func (s *fakeStore) addAlarm(a model.Alarm) model.Alarm {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	a.ID = s.nextID
	s.alarms[a.ID] = a
	return a
}

func (s *fakeStore) CreateAlarm(a model.Alarm) (model.Alarm, error) { return s.addAlarm(a), nil }

func (s *fakeStore) UpdateAlarm(a model.Alarm) (model.Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alarms[a.ID] = a
	return a, nil
}

func (s *fakeStore) DeleteAlarm(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.alarms, id)
	return nil
}

func (s *fakeStore) GetAlarm(id int) (model.Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alarms[id]
	if !ok {
		return model.Alarm{}, sql.ErrNoRows
	}
	return a, nil
}

func (s *fakeStore) ListAlarms() ([]model.Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Alarm
	for _, a := range s.alarms {
		out = append(out, a)
	}
	return out, nil
}

func (s *fakeStore) ListEnabledAlarms() ([]model.Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Alarm
	for _, a := range s.alarms {
		if a.Enabled {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeStore) DisableAlarm(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.alarms[id]
	a.Enabled = false
	s.alarms[id] = a
	return nil
}

func (s *fakeStore) StampAlarmFired(id int, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamps[id] = date
	return nil
}

func (s *fakeStore) LastFiredDate(id int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stamps[id], nil
}

func (s *fakeStore) GetPrayerDay(date string) (model.PrayerDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day, ok := s.days[date]
	if !ok {
		return model.PrayerDay{}, sql.ErrNoRows
	}
	return day, nil
}

func (s *fakeStore) SavePrayerDay(day model.PrayerDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.days[day.Date] = day
	return nil
}

func (s *fakeStore) ListPrayerSettings() ([]model.PrayerSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.PrayerSettings, len(s.settings))
	copy(out, s.settings)
	return out, nil
}

func (s *fakeStore) PruneOldPrayerDays(keep int) error { return nil }

func (s *fakeStore) UpdatePrayerSettings(st model.PrayerSettings) (model.PrayerSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.settings {
		if s.settings[i].Name == st.Name {
			s.settings[i] = st
		}
	}
	return st, nil
}

// fakeLibrary serves sound refs from memory.
type fakeLibrary struct {
	sounds map[string][]byte
}

func newFakeLibrary(refs ...string) *fakeLibrary {
	l := &fakeLibrary{sounds: map[string][]byte{}}
	for _, ref := range refs {
		l.sounds[ref] = bytes.Repeat([]byte{0x01, 0x02}, 64)
	}
	return l
}

func (l *fakeLibrary) Open(ref string) (io.ReadCloser, error) {
	data, ok := l.sounds[ref]
	if !ok {
		return nil, errors.New("no such sound: " + ref)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (l *fakeLibrary) SaveFile(_ *multipart.FileHeader, _ string) (string, error) {
	return "", errors.New("not supported")
}

func (l *fakeLibrary) List() ([]string, error) {
	var refs []string
	for ref := range l.sounds {
		refs = append(refs, ref)
	}
	return refs, nil
}

// fakeSynth renders text deterministically or fails.
type fakeSynth struct {
	mu    sync.Mutex
	err   error
	texts []string
}

func (f *fakeSynth) Render(_ context.Context, text string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.texts = append(f.texts, text)
	return []byte("pcm:" + text), nil
}

func (f *fakeSynth) rendered() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.texts))
	copy(out, f.texts)
	return out
}

// fakeAdapter returns canned prayer times or an error.
type fakeAdapter struct {
	mu     sync.Mutex
	events []model.PrayerEvent
	err    error
	calls  int
}

func (f *fakeAdapter) FetchDay(_ context.Context, _ time.Time, _ timesource.Location) ([]model.PrayerEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.PrayerEvent, len(f.events))
	copy(out, f.events)
	return out, nil
}

func (f *fakeAdapter) setError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeAdapter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
