// Package tts renders announcement text into playable audio. The engine is
// a black box behind Synthesizer; the device talks to it over HTTP and
// memoizes rendered phrases so repeated announcements cost one render.
package tts

import (
	"context"
	"errors"
)

// ErrSynthesisFailed wraps any render error. The affected announcement is
// skipped for that occurrence only; the schedulers keep ticking.
var ErrSynthesisFailed = errors.New("speech synthesis failed")

// Synthesizer renders a message into a playable audio buffer (WAV or raw
// PCM in the device format).
type Synthesizer interface {
	Render(ctx context.Context, text string) ([]byte, error)
}
