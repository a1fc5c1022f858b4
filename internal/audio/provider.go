package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// Provider yields playable PCM data, possibly incrementally, possibly
// indefinitely for live streams. Read follows io.Reader semantics; io.EOF
// marks natural exhaustion of the source.
type Provider interface {
	io.Reader
}

// NewFileProvider wraps a sound file in a Provider, decoding by extension.
// Supported: .mp3 (decoded), .wav (RIFF header stripped), .pcm (raw).
func NewFileProvider(r io.Reader, ref string) (Provider, error) {
	switch strings.ToLower(filepath.Ext(ref)) {
	case ".mp3":
		dec, err := mp3.NewDecoder(r)
		if err != nil {
			return nil, fmt.Errorf("audio: decoding %s: %w", ref, err)
		}
		return dec, nil
	case ".wav":
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("audio: reading %s: %w", ref, err)
		}
		pcm, err := ExtractPCM(data)
		if err != nil {
			return nil, fmt.Errorf("audio: %s: %w", ref, err)
		}
		return bytes.NewReader(pcm), nil
	case ".pcm", "":
		return r, nil
	default:
		return nil, fmt.Errorf("audio: unsupported sound format %q", filepath.Ext(ref))
	}
}

// NewBufferProvider wraps an in-memory audio buffer, e.g. a synthesized
// announcement. WAV data is accepted and stripped to PCM; anything else is
// treated as raw PCM.
func NewBufferProvider(data []byte) Provider {
	if pcm, err := ExtractPCM(data); err == nil {
		return bytes.NewReader(pcm)
	}
	return bytes.NewReader(data)
}

// ExtractPCM strips the WAV/RIFF header and returns raw PCM data.
func ExtractPCM(wav []byte) ([]byte, error) {
	if len(wav) < 44 {
		return nil, errors.New("wav data too short")
	}

	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, errors.New("not a valid WAV file")
	}

	// Walk chunks to find the "data" chunk.
	pos := 12
	for pos < len(wav)-8 {
		chunkID := string(wav[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))

		if chunkID == "data" {
			start := pos + 8
			end := start + chunkSize
			if end > len(wav) {
				end = len(wav)
			}
			return wav[start:end], nil
		}

		pos += 8 + chunkSize
		// Chunks are word-aligned.
		if chunkSize%2 != 0 {
			pos++
		}
	}

	return nil, errors.New("data chunk not found in WAV")
}
