// Package scheduler computes fire instants for prayer events and alarms
// and submits playback to the arbiter when they come due. Both schedulers
// share one periodic tick so a slow day never skews the other's timing.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/minaret-labs/minaret/internal/arbiter"
	"github.com/minaret-labs/minaret/internal/model"
)

// DefaultTickInterval is the shared scheduling cadence. Sub-second audio
// timing is out of scope; one second is the resolution everything here
// is specified against.
const DefaultTickInterval = time.Second

// DefaultGraceWindow is how long past its instant a missed trigger may
// still fire. Older misses are skipped and logged, never fired late.
const DefaultGraceWindow = 30 * time.Second

// outputRetryDelay is the single-retry backoff after the output reports
// unavailable.
const outputRetryDelay = 2 * time.Second

// Submitter is the slice of the arbiter the schedulers consume.
type Submitter interface {
	Submit(req model.PlaybackRequest) (*arbiter.Handle, error)
}

// Job is one scheduler evaluated on the shared cadence. Tick must never
// block on audio; submission is bounded by contract.
type Job interface {
	Tick(ctx context.Context, now time.Time)
}

// Runner drives its jobs on one ticker. Job errors are the jobs' problem;
// the loop itself only stops with the context.
type Runner struct {
	interval time.Duration
	jobs     []Job
}

func NewRunner(interval time.Duration, jobs ...Job) *Runner {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Runner{interval: interval, jobs: jobs}
}

// Run blocks until ctx is cancelled. Intended to be called as a goroutine.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", r.interval).Int("jobs", len(r.jobs)).Msg("scheduler started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler stopped")
			return
		case now := <-ticker.C:
			for _, j := range r.jobs {
				j.Tick(ctx, now)
			}
		}
	}
}

// submitWithRetry sends a request to the arbiter, retrying exactly once
// after a short delay when the output is unavailable. Anything else, or a
// second failure, is logged and dropped.
func submitWithRetry(arb Submitter, req model.PlaybackRequest, retryDelay time.Duration) {
	_, err := arb.Submit(req)
	if err == nil {
		return
	}
	log.Warn().Err(err).Str("kind", string(req.Kind)).Str("label", req.Label).
		Msg("playback submission failed, retrying once")

	time.AfterFunc(retryDelay, func() {
		if _, err := arb.Submit(req); err != nil {
			log.Error().Err(err).Str("kind", string(req.Kind)).Str("label", req.Label).
				Msg("playback submission failed twice, dropping")
		}
	})
}
