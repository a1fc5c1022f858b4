package packets

import "github.com/minaret-labs/minaret/internal/model"

type PrayerDayResponse struct {
	Date   string              `json:"date"`
	Live   bool                `json:"live"` // false = stale last-known copy
	Events []model.PrayerEvent `json:"events"`
}

type PlaybackStatusResponse struct {
	Playing bool             `json:"playing"`
	Kind    model.SourceKind `json:"kind,omitempty"`
}

type SoundListResponse struct {
	Sounds []string `json:"sounds"`
}

type UploadSoundResponse struct {
	Ref string `json:"ref"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
