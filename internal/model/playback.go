package model

import (
	"time"

	"github.com/minaret-labs/minaret/internal/audio"
)

// SourceKind identifies what a playback request is for. Priority is derived
// from it; callers never pick a numeric priority directly.
type SourceKind string

const (
	SourceVoiceRelay  SourceKind = "voice_relay"
	SourceAdhan       SourceKind = "adhan"
	SourceAlarm       SourceKind = "alarm"
	SourcePreAnnounce SourceKind = "pre_announce"
	SourceMurattal    SourceKind = "murattal"
	SourceAdHoc       SourceKind = "ad_hoc"
)

// Priority orders competing playback requests; higher wins.
type Priority int

const (
	PriorityAdHoc Priority = iota
	PriorityMurattal
	PriorityPreAnnounce
	PriorityAlarm
	PriorityAdhan
	PriorityVoiceRelay
)

// Priority returns the arbitration tier for the source kind. Unknown kinds
// get the lowest tier.
func (k SourceKind) Priority() Priority {
	switch k {
	case SourceVoiceRelay:
		return PriorityVoiceRelay
	case SourceAdhan:
		return PriorityAdhan
	case SourceAlarm:
		return PriorityAlarm
	case SourcePreAnnounce:
		return PriorityPreAnnounce
	case SourceMurattal:
		return PriorityMurattal
	default:
		return PriorityAdHoc
	}
}

// CompletionReason tells a submitter why its request stopped playing.
type CompletionReason string

const (
	// CompletionFinished: the audio drained naturally.
	CompletionFinished CompletionReason = "finished"
	// CompletionInterrupted: a higher-or-equal priority request preempted it.
	CompletionInterrupted CompletionReason = "interrupted"
	// CompletionCancelled: the submitter cancelled it.
	CompletionCancelled CompletionReason = "cancelled"
)

// PlaybackRequest is an ephemeral ask for the audio output. It is created
// at submission and destroyed at completion or preemption; never persisted.
type PlaybackRequest struct {
	Kind  SourceKind
	Label string // human-readable, e.g. "Adhan — Maghrib"

	Provider audio.Provider

	StartVolume  float64
	RampTarget   float64       // ignored unless RampDuration > 0
	RampDuration time.Duration

	Cancellable bool

	// OnDone, if set, is invoked exactly once when the request leaves the
	// output, with the reason. Must not block.
	OnDone func(CompletionReason)
}

// Priority is shorthand for the request's derived tier.
func (r *PlaybackRequest) Priority() Priority { return r.Kind.Priority() }
