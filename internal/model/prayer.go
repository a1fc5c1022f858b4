package model

import "time"

// PrayerName enumerates the six daily prayer events the device announces.
// Sunrise carries no adhan by convention but is kept in the schedule for
// display and optional pre-announce.
type PrayerName string

const (
	Fajr    PrayerName = "fajr"
	Sunrise PrayerName = "sunrise"
	Dhuhr   PrayerName = "dhuhr"
	Asr     PrayerName = "asr"
	Maghrib PrayerName = "maghrib"
	Isha    PrayerName = "isha"
)

// PrayerNames is the canonical daily order.
var PrayerNames = []PrayerName{Fajr, Sunrise, Dhuhr, Asr, Maghrib, Isha}

// PrayerEvent is one prayer occurrence on a given day, merged from the
// remote time source and the per-prayer device settings.
type PrayerEvent struct {
	Name          PrayerName `db:"name" json:"name"`
	ScheduledTime time.Time  `db:"scheduled_at" json:"scheduled_time"`

	PreAnnounceOffsetSeconds int  `db:"pre_announce_offset_seconds" json:"pre_announce_offset_seconds"`
	PreAnnounceEnabled       bool `db:"pre_announce_enabled" json:"pre_announce_enabled"`

	AdhanSoundRef string `db:"adhan_sound_ref" json:"adhan_sound_ref"`
	Enabled       bool   `db:"enabled" json:"enabled"`
}

// PreAnnounceTime is the instant the pre-announcement fires.
func (e *PrayerEvent) PreAnnounceTime() time.Time {
	return e.ScheduledTime.Add(-time.Duration(e.PreAnnounceOffsetSeconds) * time.Second)
}

// PrayerDay is one calendar day's prayer schedule. Immutable once the day
// has passed; refetched when missing or created on a different date.
type PrayerDay struct {
	Date      string        `db:"date" json:"date"` // YYYY-MM-DD, device-local
	Events    []PrayerEvent `json:"events"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// PrayerSettings are the per-prayer knobs the owner can edit; applied on
// top of fetched times when a day is loaded.
type PrayerSettings struct {
	Name                     PrayerName `db:"name" json:"name"`
	PreAnnounceOffsetSeconds int        `db:"pre_announce_offset_seconds" json:"pre_announce_offset_seconds"`
	PreAnnounceEnabled       bool       `db:"pre_announce_enabled" json:"pre_announce_enabled"`
	AdhanSoundRef            string     `db:"adhan_sound_ref" json:"adhan_sound_ref"`
	Enabled                  bool       `db:"enabled" json:"enabled"`
	UpdatedAt                time.Time  `db:"updated_at" json:"updated_at"`
}

// DateKey formats t as the canonical day key used across db, cache and
// scheduler state.
func DateKey(t time.Time) string { return t.Format("2006-01-02") }
