package model

import (
	"errors"
	"time"
)

// ErrInvalidAlarmSpec marks an alarm whose trigger or payload data is
// malformed. The scheduler skips and flags such alarms instead of failing
// the whole tick.
var ErrInvalidAlarmSpec = errors.New("invalid alarm spec")

// Alarm is a user-defined announcement. The trigger is either a single
// absolute instant (At set) or a weekly repeat (RepeatDays bitset + Hour +
// Minute). The payload is either a text message for synthesis or a sound
// file reference; exactly one must be set.
type Alarm struct {
	ID   int    `db:"id" json:"id"`
	Name string `db:"name" json:"name"`

	At         *time.Time `db:"at_ts" json:"at,omitempty"`
	RepeatDays int        `db:"repeat_days" json:"repeat_days"` // bit n = time.Weekday n (Sunday = 0)
	Hour       int        `db:"hour" json:"hour"`
	Minute     int        `db:"minute" json:"minute"`

	Message  *string `db:"message" json:"message,omitempty"`
	SoundRef *string `db:"sound_ref" json:"sound_ref,omitempty"`

	Enabled bool `db:"enabled" json:"enabled"`

	SmartRampEnabled         bool `db:"smart_ramp_enabled" json:"smart_ramp_enabled"`
	SmartRampDurationSeconds int  `db:"smart_ramp_duration_seconds" json:"smart_ramp_duration_seconds"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Repeating reports whether the alarm recurs weekly.
func (a *Alarm) Repeating() bool { return a.At == nil }

// RepeatsOn reports whether the repeat bitset includes the given weekday.
func (a *Alarm) RepeatsOn(d time.Weekday) bool {
	return a.RepeatDays&(1<<uint(d)) != 0
}

// Validate checks trigger and payload shape. Wraps ErrInvalidAlarmSpec.
func (a *Alarm) Validate() error {
	if a.At == nil {
		if a.RepeatDays == 0 || a.RepeatDays >= 1<<7 {
			return errors.Join(ErrInvalidAlarmSpec, errors.New("repeat_days out of range"))
		}
		if a.Hour < 0 || a.Hour > 23 || a.Minute < 0 || a.Minute > 59 {
			return errors.Join(ErrInvalidAlarmSpec, errors.New("hour/minute out of range"))
		}
	}
	if (a.Message == nil) == (a.SoundRef == nil) {
		return errors.Join(ErrInvalidAlarmSpec, errors.New("exactly one of message or sound_ref required"))
	}
	return nil
}

// MatchAt reports whether the alarm is due at now, within the grace window
// after its trigger instant. The returned occurrence is the instant the
// alarm was scheduled for (used for at-most-once-per-day stamps).
func (a *Alarm) MatchAt(now time.Time, grace time.Duration) (time.Time, bool) {
	if a.At != nil {
		t := *a.At
		if !now.Before(t) && now.Sub(t) <= grace {
			return t, true
		}
		return time.Time{}, false
	}

	// A grace window straddling midnight can make yesterday's occurrence
	// still due, so both candidates are checked.
	for _, day := range []time.Time{now, now.Add(-24 * time.Hour)} {
		if !a.RepeatsOn(day.Weekday()) {
			continue
		}
		t := time.Date(day.Year(), day.Month(), day.Day(), a.Hour, a.Minute, 0, 0, now.Location())
		if !now.Before(t) && now.Sub(t) <= grace {
			return t, true
		}
	}
	return time.Time{}, false
}
