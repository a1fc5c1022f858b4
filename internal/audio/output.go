// Package audio owns the device's single physical sound output and the
// provider abstraction that feeds it. Only the playback arbiter is expected
// to hold an Output; everything else goes through the arbiter.
package audio

import "errors"

// Audio format shared by every provider and the output device.
// Sound files and synthesized buffers are expected to already be in this
// format; the appliance ships its sound packs pre-converted.
const (
	SampleRate     = 44100
	ChannelCount   = 2
	BytesPerSample = 2 // signed 16-bit little endian
)

// ErrOutputUnavailable is returned when the sound device cannot start
// playback (busy, absent, or the backend errored).
var ErrOutputUnavailable = errors.New("audio: output unavailable")

// Output is the exclusive handle to the physical audio device. At most one
// provider drives it at a time; Start on a busy output is an error.
type Output interface {
	// Start begins playing PCM read from p at the given volume (0..1).
	// done is invoked exactly once if and when the provider drains
	// naturally; it is not invoked when playback is cut by Stop.
	Start(p Provider, volume float64, done func()) error

	// Stop cuts current playback and releases the device. No-op when idle.
	Stop()

	// SetVolume adjusts the output volume (0..1) of the current playback.
	SetVolume(v float64)

	// Busy reports whether a provider is currently attached.
	Busy() bool
}
