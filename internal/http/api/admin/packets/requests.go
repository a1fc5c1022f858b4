package packets

import "time"

// CreateAlarmRequest carries a new alarm definition. Exactly one trigger
// (at vs repeat_days+hour+minute) and one payload (message vs sound_ref)
// must be present; the model validates the combination.
type CreateAlarmRequest struct {
	Name string `json:"name"`

	At         *time.Time `json:"at"`
	RepeatDays int        `json:"repeat_days"`
	Hour       int        `json:"hour"`
	Minute     int        `json:"minute"`

	Message  *string `json:"message"`
	SoundRef *string `json:"sound_ref"`

	Enabled *bool `json:"enabled"` // nil = enabled

	SmartRampEnabled         bool `json:"smart_ramp_enabled"`
	SmartRampDurationSeconds int  `json:"smart_ramp_duration_seconds"`
}

type UpdateAlarmRequest struct {
	Name *string `json:"name"`

	At         *time.Time `json:"at"`
	RepeatDays *int       `json:"repeat_days"`
	Hour       *int       `json:"hour"`
	Minute     *int       `json:"minute"`

	Message  *string `json:"message"`
	SoundRef *string `json:"sound_ref"`

	Enabled *bool `json:"enabled"`

	SmartRampEnabled         *bool `json:"smart_ramp_enabled"`
	SmartRampDurationSeconds *int  `json:"smart_ramp_duration_seconds"`
}

type UpdatePrayerSettingsRequest struct {
	PreAnnounceOffsetSeconds *int    `json:"pre_announce_offset_seconds"`
	PreAnnounceEnabled       *bool   `json:"pre_announce_enabled"`
	AdhanSoundRef            *string `json:"adhan_sound_ref"`
	Enabled                  *bool   `json:"enabled"`
}

// PlayRequest starts ad-hoc playback of a library sound. Kind selects the
// arbitration tier: "murattal" for recitation sessions, anything else is
// plain ad-hoc.
type PlayRequest struct {
	SoundRef string `json:"sound_ref" binding:"required"`
	Kind     string `json:"kind"`
}
