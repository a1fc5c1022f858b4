package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// HTTPSynthesizer posts text to a local or remote TTS engine and returns
// the audio bytes it responds with.
type HTTPSynthesizer struct {
	Endpoint string
	Voice    string
	Client   *http.Client
}

var _ Synthesizer = (*HTTPSynthesizer)(nil)

func NewHTTPSynthesizer(endpoint, voice string) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		Endpoint: endpoint,
		Voice:    voice,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type renderRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

func (s *HTTPSynthesizer) Render(ctx context.Context, text string) ([]byte, error) {
	payload, err := json.Marshal(renderRequest{Text: text, Voice: s.Voice})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("tts engine request failed")
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: engine status %d", ErrSynthesisFailed, resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading audio: %v", ErrSynthesisFailed, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: engine returned no audio", ErrSynthesisFailed)
	}
	return audio, nil
}
