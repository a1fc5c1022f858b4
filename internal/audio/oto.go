package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog/log"
)

// OtoOutput drives the system sound device through oto. One instance owns
// the oto context for the lifetime of the process.
type OtoOutput struct {
	ctx *oto.Context

	mu     sync.Mutex
	player *oto.Player
	gen    uint64 // invalidates the drain watcher of a stopped playback
}

// NewOtoOutput initializes the system audio context. Returns an error if
// the audio device is unavailable.
func NewOtoOutput() (*OtoOutput, error) {
	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("audio: opening output device: %w", err)
	}
	<-readyChan

	log.Info().Int("sample_rate", SampleRate).Int("channels", ChannelCount).Msg("audio output initialized")
	return &OtoOutput{ctx: ctx}, nil
}

func (o *OtoOutput) Start(p Provider, volume float64, done func()) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		return ErrOutputUnavailable
	}

	player := o.ctx.NewPlayer(p)
	player.SetVolume(clampVolume(volume))
	player.Play()
	if err := player.Err(); err != nil {
		_ = player.Close()
		log.Error().Err(err).Msg("audio output failed to start")
		return ErrOutputUnavailable
	}

	o.player = player
	o.gen++
	go o.watchDrain(player, o.gen, done)
	return nil
}

// watchDrain polls the player until its buffer is exhausted, then fires the
// completion callback. A generation check keeps a watcher of a stopped
// playback from closing the player that replaced it.
func (o *OtoOutput) watchDrain(player *oto.Player, gen uint64, done func()) {
	for player.IsPlaying() {
		time.Sleep(20 * time.Millisecond)
	}

	o.mu.Lock()
	current := o.gen == gen && o.player == player
	if current {
		o.player = nil
	}
	o.mu.Unlock()

	if !current {
		return
	}
	if err := player.Close(); err != nil {
		log.Error().Err(err).Msg("audio player close")
	}
	if done != nil {
		done()
	}
}

func (o *OtoOutput) Stop() {
	o.mu.Lock()
	player := o.player
	o.player = nil
	o.gen++
	o.mu.Unlock()

	if player == nil {
		return
	}
	player.Pause()
	if err := player.Close(); err != nil {
		log.Error().Err(err).Msg("audio player close")
	}
}

func (o *OtoOutput) SetVolume(v float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player != nil {
		o.player.SetVolume(clampVolume(v))
	}
}

func (o *OtoOutput) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.player != nil
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
