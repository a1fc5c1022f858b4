package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minaret-labs/minaret/internal/model"
	"github.com/minaret-labs/minaret/internal/timesource"
)

func dayAt(h, m, sec int) time.Time {
	return time.Date(2026, 8, 24, h, m, sec, 0, time.UTC)
}

func newPrayerFixture(t *testing.T, events ...model.PrayerEvent) (*PrayerScheduler, *fakeAdapter, *fakeStore, *fakeSubmitter, *fakeSynth) {
	t.Helper()
	adapter := &fakeAdapter{events: events}
	store := newFakeStore()
	sub := &fakeSubmitter{}
	synth := &fakeSynth{}
	sched := NewPrayerScheduler(adapter, store, newFakeLibrary("adhan_default.pcm"), synth, sub,
		timesource.Location{Latitude: 52.37, Longitude: 4.89, Method: 3})
	sched.retryDelay = 10 * time.Millisecond
	return sched, adapter, store, sub, synth
}

func TestAdhanFiresOnceAtScheduledTime(t *testing.T) {
	sched, adapter, _, sub, _ := newPrayerFixture(t,
		model.PrayerEvent{Name: model.Maghrib, ScheduledTime: dayAt(19, 45, 0)},
	)

	sched.Tick(context.Background(), dayAt(0, 0, 5))
	assert.Equal(t, 1, adapter.callCount())
	assert.Empty(t, sub.submitted())

	sched.Tick(context.Background(), dayAt(19, 45, 2))
	require.Len(t, sub.submitted(), 1)
	req := sub.submitted()[0]
	assert.Equal(t, model.SourceAdhan, req.Kind)
	assert.Contains(t, req.Label, "Maghrib")
	assert.NotNil(t, req.Provider)

	sched.Tick(context.Background(), dayAt(19, 45, 10))
	sched.Tick(context.Background(), dayAt(19, 46, 0))
	assert.Len(t, sub.submitted(), 1)
}

func TestPreAnnounceFiresBeforeAdhan(t *testing.T) {
	sched, _, store, sub, synth := newPrayerFixture(t,
		model.PrayerEvent{Name: model.Fajr, ScheduledTime: dayAt(5, 12, 0)},
	)
	for i := range store.settings {
		if store.settings[i].Name == model.Fajr {
			store.settings[i].PreAnnounceEnabled = true
		}
	}

	sched.Tick(context.Background(), dayAt(0, 0, 5))

	// 900 seconds ahead of 05:12 is 04:57.
	sched.Tick(context.Background(), dayAt(4, 57, 3))
	require.Len(t, sub.submitted(), 1)
	assert.Equal(t, model.SourcePreAnnounce, sub.submitted()[0].Kind)
	assert.Equal(t, []string{"Fajr prayer in 15 minutes."}, synth.rendered())

	sched.Tick(context.Background(), dayAt(5, 12, 1))
	require.Len(t, sub.submitted(), 2)
	assert.Equal(t, model.SourceAdhan, sub.submitted()[1].Kind)
}

func TestFetchFailureKeepsAudioSilent(t *testing.T) {
	sched, adapter, _, sub, _ := newPrayerFixture(t,
		model.PrayerEvent{Name: model.Dhuhr, ScheduledTime: dayAt(13, 30, 0)},
	)
	adapter.setError(errors.New("api unreachable"))

	start := dayAt(0, 0, 1)
	sched.Tick(context.Background(), start)
	assert.Equal(t, 1, adapter.callCount())

	_, _, live := sched.Schedule()
	assert.False(t, live)

	// Inside the backoff window nothing is retried.
	sched.Tick(context.Background(), start.Add(5*time.Second))
	assert.Equal(t, 1, adapter.callCount())

	// After the first backoff a retry happens; still failing.
	sched.Tick(context.Background(), start.Add(31*time.Second))
	assert.Equal(t, 2, adapter.callCount())

	// Even past a scheduled instant, a stale day never triggers audio.
	sched.Tick(context.Background(), dayAt(13, 30, 5))
	assert.Empty(t, sub.submitted())
}

func TestFetchRecoversAfterBackoff(t *testing.T) {
	sched, adapter, _, _, _ := newPrayerFixture(t,
		model.PrayerEvent{Name: model.Dhuhr, ScheduledTime: dayAt(13, 30, 0)},
	)
	adapter.setError(errors.New("api unreachable"))

	start := dayAt(0, 0, 1)
	sched.Tick(context.Background(), start)              // fail, backoff 30s
	sched.Tick(context.Background(), start.Add(31*time.Second)) // fail, backoff 60s

	adapter.setError(nil)
	sched.Tick(context.Background(), start.Add(95*time.Second))
	_, events, live := sched.Schedule()
	assert.True(t, live)
	assert.NotEmpty(t, events)
}

func TestMissedInstantBeyondGraceSkipped(t *testing.T) {
	sched, _, _, sub, _ := newPrayerFixture(t,
		model.PrayerEvent{Name: model.Asr, ScheduledTime: dayAt(10, 0, 0)},
	)

	// First tick is already five minutes past the instant.
	sched.Tick(context.Background(), dayAt(10, 5, 0))
	sched.Tick(context.Background(), dayAt(10, 5, 1))
	assert.Empty(t, sub.submitted())
}

func TestStoredDayPreferredOverFetch(t *testing.T) {
	sched, adapter, store, sub, _ := newPrayerFixture(t)
	require.NoError(t, store.SavePrayerDay(model.PrayerDay{
		Date: "2026-08-24",
		Events: []model.PrayerEvent{{
			Name:          model.Isha,
			ScheduledTime: dayAt(21, 15, 0),
			AdhanSoundRef: "adhan_default.pcm",
			Enabled:       true,
		}},
		CreatedAt: dayAt(0, 0, 0),
	}))

	sched.Tick(context.Background(), dayAt(0, 1, 0))
	assert.Equal(t, 0, adapter.callCount())

	sched.Tick(context.Background(), dayAt(21, 15, 1))
	require.Len(t, sub.submitted(), 1)
	assert.Equal(t, model.SourceAdhan, sub.submitted()[0].Kind)
}

func TestStaleStoredDayRefetched(t *testing.T) {
	sched, adapter, store, _, _ := newPrayerFixture(t,
		model.PrayerEvent{Name: model.Fajr, ScheduledTime: dayAt(5, 12, 0)},
	)
	// A row for today created on a previous date must not be trusted.
	require.NoError(t, store.SavePrayerDay(model.PrayerDay{
		Date:      "2026-08-24",
		CreatedAt: dayAt(0, 0, 0).AddDate(0, 0, -3),
	}))

	sched.Tick(context.Background(), dayAt(0, 1, 0))
	assert.Equal(t, 1, adapter.callCount())
}

func TestDisabledPrayerNeverFires(t *testing.T) {
	sched, _, _, sub, _ := newPrayerFixture(t,
		model.PrayerEvent{Name: model.Sunrise, ScheduledTime: dayAt(6, 30, 0)},
	)

	sched.Tick(context.Background(), dayAt(0, 0, 1))
	sched.Tick(context.Background(), dayAt(6, 30, 1))
	assert.Empty(t, sub.submitted())
}

func TestDayRolloverRefetches(t *testing.T) {
	sched, adapter, _, _, _ := newPrayerFixture(t,
		model.PrayerEvent{Name: model.Fajr, ScheduledTime: dayAt(5, 12, 0)},
	)

	sched.Tick(context.Background(), dayAt(12, 0, 0))
	assert.Equal(t, 1, adapter.callCount())

	sched.Tick(context.Background(), dayAt(12, 0, 0).AddDate(0, 0, 1))
	assert.Equal(t, 2, adapter.callCount())
}

func TestScheduleComputedCallback(t *testing.T) {
	sched, _, _, _, _ := newPrayerFixture(t,
		model.PrayerEvent{Name: model.Fajr, ScheduledTime: dayAt(5, 12, 0)},
	)
	got := make(chan model.PrayerDay, 1)
	sched.OnScheduleComputed(func(day model.PrayerDay) { got <- day })

	sched.Tick(context.Background(), dayAt(0, 0, 1))

	select {
	case day := <-got:
		assert.Equal(t, "2026-08-24", day.Date)
		assert.Len(t, day.Events, 1)
	case <-time.After(time.Second):
		t.Fatal("schedule callback never invoked")
	}
}
