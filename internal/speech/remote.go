package speech

import (
	"context"
	"fmt"

	"github.com/hammamikhairi/distype/internal/domain"
	"github.com/hammamikhairi/distype/internal/logger"
)

// Provider is a network speech service that turns text into encoded
// audio (WAV or MP3).
type Provider interface {
	// Name identifies the provider in logs and config.
	Name() string
	// Voice is baked into cache keys.
	Voice() string
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Compile-time interface check.
var _ domain.Vocalizer = (*RemoteVocalizer)(nil)

// RemoteVocalizer plays a Provider's audio on the shared sink. Audio is
// fetched through the cache when one is configured.
type RemoteVocalizer struct {
	provider Provider
	sink     AudioSink
	cache    *AudioCache
	log      *logger.Logger
}

// NewRemoteVocalizer wires a provider to the player. cache may be nil.
func NewRemoteVocalizer(p Provider, sink AudioSink, cache *AudioCache, log *logger.Logger) *RemoteVocalizer {
	return &RemoteVocalizer{provider: p, sink: sink, cache: cache, log: log}
}

// Vocalize synthesizes text, then calls begin right before playback.
// If begin returns false nothing is played and ErrNotStarted is returned.
func (v *RemoteVocalizer) Vocalize(ctx context.Context, text string, begin func() bool) error {
	pcm, err := v.load(ctx, text)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if !begin() {
		v.log.Debug("%s: start rejected, dropping %d bytes", v.provider.Name(), len(pcm))
		return domain.ErrNotStarted
	}
	return v.sink.PlayContext(ctx, pcm)
}

// load returns decoded audio for text. Only audio that decodes is cached;
// a cached entry that no longer decodes is dropped and fetched again.
func (v *RemoteVocalizer) load(ctx context.Context, text string) ([]byte, error) {
	voice := v.provider.Name() + ":" + v.provider.Voice()
	if v.cache != nil {
		if audio, ok := v.cache.Get(voice, text); ok {
			pcm, err := ToPCM(audio)
			if err == nil {
				return pcm, nil
			}
			v.log.Warn("%s: dropping undecodable cache entry for %q: %v", v.provider.Name(), truncate(text, 40), err)
			v.cache.Delete(voice, text)
		}
	}

	audio, err := v.provider.Synthesize(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", v.provider.Name(), err)
	}
	pcm, err := ToPCM(audio)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", v.provider.Name(), err)
	}
	if v.cache != nil {
		v.cache.Put(voice, text, audio)
	}
	return pcm, nil
}
