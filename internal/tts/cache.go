package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachingSynthesizer memoizes rendered phrases. The key hashes voice and
// text together so a voice change misses until switched back.
type CachingSynthesizer struct {
	inner Synthesizer
	voice string
	cache *gocache.Cache
}

var _ Synthesizer = (*CachingSynthesizer)(nil)

func NewCachingSynthesizer(inner Synthesizer, voice string) *CachingSynthesizer {
	return &CachingSynthesizer{
		inner: inner,
		voice: voice,
		cache: gocache.New(24*time.Hour, time.Hour),
	}
}

func (c *CachingSynthesizer) Render(ctx context.Context, text string) ([]byte, error) {
	key := c.key(text)
	if cached, ok := c.cache.Get(key); ok {
		return cached.([]byte), nil
	}

	audio, err := c.inner.Render(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, audio, gocache.DefaultExpiration)
	return audio, nil
}

func (c *CachingSynthesizer) key(text string) string {
	sum := sha256.Sum256([]byte(c.voice + ":" + text))
	return hex.EncodeToString(sum[:])
}
