// Package arbiter is the single point of contention resolution for the
// device's audio output. Every component submits playback through it;
// nothing else touches the output port.
package arbiter

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/minaret-labs/minaret/internal/audio"
	"github.com/minaret-labs/minaret/internal/model"
)

// ErrOutputUnavailable is returned when the sound device refuses to start.
// The arbiter does not retry internally; retries are caller policy.
var ErrOutputUnavailable = audio.ErrOutputUnavailable

const rampTick = time.Second

// Handle identifies one submitted playback request for cancel/inspect.
type Handle struct {
	id  uuid.UUID
	req model.PlaybackRequest
}

// Kind returns the source kind the handle was submitted with.
func (h *Handle) Kind() model.SourceKind { return h.req.Kind }

// StateListener observes the "now playing" feed. playing == false means the
// output went silent; kind is then the source that just left. Listeners
// must not block.
type StateListener func(kind model.SourceKind, playing bool)

// Arbiter owns the audio output and arbitrates among playback requests by
// source-kind priority. All submit/cancel calls are totally ordered by one
// mutex; ramp updates run on their own timer.
type Arbiter struct {
	mu        sync.Mutex
	out       audio.Output
	active    *Handle
	rampStop  chan struct{}
	pending   map[model.SourceKind]*Handle
	listeners []StateListener
}

func New(out audio.Output) *Arbiter {
	return &Arbiter{
		out:     out,
		pending: map[model.SourceKind]*Handle{},
	}
}

// Subscribe registers a now-playing listener. Not safe to call after the
// arbiter starts receiving submissions.
func (a *Arbiter) Subscribe(fn StateListener) {
	a.listeners = append(a.listeners, fn)
}

// NowPlaying reports the currently active source, if any.
func (a *Arbiter) NowPlaying() (model.SourceKind, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active == nil {
		return "", false
	}
	return a.active.req.Kind, true
}

// Submit asks for the output. Lower-or-equal priority active playback is
// preempted (equal priority: last submitted wins); under a strictly higher
// priority active request the submission parks in the pending slot for its
// kind, replacing any earlier pending request of the same kind. VoiceRelay
// preempts everything and is itself never preempted.
func (a *Arbiter) Submit(req model.PlaybackRequest) (*Handle, error) {
	h := &Handle{id: uuid.New(), req: req}

	a.mu.Lock()
	var after []func()

	switch {
	case a.active == nil:
		if err := a.startLocked(h, &after); err != nil {
			a.mu.Unlock()
			runAll(after)
			return nil, err
		}

	case a.shouldPreempt(h):
		old := a.active
		a.stopActiveLocked()
		notifyDone(old, model.CompletionInterrupted, &after)
		if err := a.startLocked(h, &after); err != nil {
			a.promoteLocked(&after)
			if a.active == nil {
				a.notifyStateLocked(old.req.Kind, false, &after)
			}
			a.mu.Unlock()
			runAll(after)
			return nil, err
		}

	default:
		if prev, ok := a.pending[req.Kind]; ok {
			notifyDone(prev, model.CompletionCancelled, &after)
		}
		a.pending[req.Kind] = h
	}

	a.mu.Unlock()
	runAll(after)
	return h, nil
}

// shouldPreempt decides whether h takes the output from the active request.
// Callers hold the lock and have checked active != nil.
func (a *Arbiter) shouldPreempt(h *Handle) bool {
	if a.active.req.Kind == model.SourceVoiceRelay {
		return false
	}
	if h.req.Kind == model.SourceVoiceRelay {
		return true
	}
	return h.req.Priority() >= a.active.req.Priority()
}

// Cancel stops the request if active, removes it if queued, and is a no-op
// if it already completed. Idempotent and best-effort: a request may finish
// naturally in the window between the cancel decision and its execution.
func (a *Arbiter) Cancel(h *Handle) {
	if h == nil {
		return
	}

	a.mu.Lock()
	var after []func()

	switch {
	case a.active == h:
		a.stopActiveLocked()
		notifyDone(h, model.CompletionCancelled, &after)
		a.promoteLocked(&after)
		if a.active == nil {
			a.notifyStateLocked(h.req.Kind, false, &after)
		}
	case a.pending[h.req.Kind] == h:
		delete(a.pending, h.req.Kind)
		notifyDone(h, model.CompletionCancelled, &after)
	}

	a.mu.Unlock()
	runAll(after)
}

// StopAll silences the device: cancels the active request and clears every
// pending slot. Exposed to the API layer as the panic button.
func (a *Arbiter) StopAll() {
	a.mu.Lock()
	var after []func()

	if a.active != nil {
		old := a.active
		a.stopActiveLocked()
		notifyDone(old, model.CompletionCancelled, &after)
		a.notifyStateLocked(old.req.Kind, false, &after)
	}
	for kind, h := range a.pending {
		delete(a.pending, kind)
		notifyDone(h, model.CompletionCancelled, &after)
	}

	a.mu.Unlock()
	runAll(after)
}

// startLocked hands the output to h. On device failure the submission
// fails synchronously and the output stays free.
func (a *Arbiter) startLocked(h *Handle, after *[]func()) error {
	err := a.out.Start(h.req.Provider, h.req.StartVolume, func() { a.onDrained(h) })
	if err != nil {
		log.Error().Err(err).Str("kind", string(h.req.Kind)).Str("label", h.req.Label).
			Msg("audio output failed to start")
		return fmt.Errorf("starting %s: %w", h.req.Kind, ErrOutputUnavailable)
	}

	a.active = h
	if h.req.RampDuration > 0 && h.req.RampTarget != h.req.StartVolume {
		a.rampStop = make(chan struct{})
		go a.ramp(h, a.rampStop)
	}

	log.Info().Str("kind", string(h.req.Kind)).Str("label", h.req.Label).Msg("playback started")
	a.notifyStateLocked(h.req.Kind, true, after)
	return nil
}

// stopActiveLocked cuts current playback and abandons its ramp.
func (a *Arbiter) stopActiveLocked() {
	if a.rampStop != nil {
		close(a.rampStop)
		a.rampStop = nil
	}
	a.out.Stop()
	a.active = nil
}

// onDrained runs when the output reports natural exhaustion of h's audio.
func (a *Arbiter) onDrained(h *Handle) {
	a.mu.Lock()
	if a.active != h {
		// Preempted or cancelled in the meantime; its notification
		// already went out.
		a.mu.Unlock()
		return
	}
	var after []func()
	if a.rampStop != nil {
		close(a.rampStop)
		a.rampStop = nil
	}
	a.active = nil
	notifyDone(h, model.CompletionFinished, &after)
	a.notifyStateLocked(h.req.Kind, false, &after)
	a.promoteLocked(&after)
	a.mu.Unlock()

	log.Info().Str("kind", string(h.req.Kind)).Str("label", h.req.Label).Msg("playback finished")
	runAll(after)
}

// promoteLocked hands the freed output to the highest-priority pending
// request. A pending request whose start fails is dropped, not retried.
func (a *Arbiter) promoteLocked(after *[]func()) {
	for {
		var next *Handle
		for _, h := range a.pending {
			if next == nil || h.req.Priority() > next.req.Priority() {
				next = h
			}
		}
		if next == nil {
			return
		}
		delete(a.pending, next.req.Kind)

		if err := a.startLocked(next, after); err != nil {
			log.Error().Err(err).Str("kind", string(next.req.Kind)).
				Msg("promoting pending playback failed, dropping")
			notifyDone(next, model.CompletionCancelled, after)
			continue
		}
		return
	}
}

// ramp linearly interpolates the output volume, re-evaluated once a
// second. Abandoned when the request leaves the output.
func (a *Arbiter) ramp(h *Handle, stop chan struct{}) {
	start := time.Now()
	ticker := time.NewTicker(rampTick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			v, final := RampVolume(h.req.StartVolume, h.req.RampTarget,
				time.Since(start), h.req.RampDuration)

			a.mu.Lock()
			if a.active != h {
				a.mu.Unlock()
				return
			}
			a.out.SetVolume(v)
			a.mu.Unlock()

			if final {
				return
			}
		}
	}
}

// RampVolume computes the linear interpolation between start and target at
// the given point of the ramp. final is true once target is reached.
func RampVolume(start, target float64, elapsed, duration time.Duration) (v float64, final bool) {
	if duration <= 0 || elapsed >= duration {
		return target, true
	}
	frac := float64(elapsed) / float64(duration)
	return start + (target-start)*frac, false
}

func (a *Arbiter) notifyStateLocked(kind model.SourceKind, playing bool, after *[]func()) {
	for _, fn := range a.listeners {
		fn := fn
		*after = append(*after, func() { fn(kind, playing) })
	}
}

func notifyDone(h *Handle, reason model.CompletionReason, after *[]func()) {
	if h.req.OnDone == nil {
		return
	}
	cb := h.req.OnDone
	*after = append(*after, func() { cb(reason) })
}

func runAll(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}
