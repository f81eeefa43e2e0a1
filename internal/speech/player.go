package speech

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/hammamikhairi/distype/internal/logger"
)

// AudioSink plays raw PCM in the player's format. *Player implements it;
// tests substitute a recorder.
type AudioSink interface {
	PlayContext(ctx context.Context, pcm []byte) error
}

var _ AudioSink = (*Player)(nil)

// Player handles playback of 16-bit mono PCM via oto. oto allows a single
// context per process, so every engine shares one Player.
type Player struct {
	ctx    *oto.Context
	log    *logger.Logger
	mu     sync.Mutex
	active *oto.Player // currently playing, nil when idle
}

// NewPlayer creates an audio player. Initializes the system audio context.
// Returns an error if the audio device is unavailable.
func NewPlayer(log *logger.Logger) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-readyChan

	log.Debug("audio player initialized (rate=%d, channels=%d)", SampleRate, ChannelCount)
	return &Player{ctx: ctx, log: log}, nil
}

// PlayContext plays PCM synchronously. Blocks until playback finishes,
// Stop is called, or ctx is cancelled; a cancelled ctx pauses the player
// and returns ctx.Err().
func (p *Player) PlayContext(ctx context.Context, pcm []byte) error {
	player := p.ctx.NewPlayer(bytes.NewReader(pcm))

	p.mu.Lock()
	if p.active != nil {
		// A newer utterance takes the device.
		p.active.Pause()
	}
	p.active = player
	p.mu.Unlock()

	player.Play()
	p.log.Debug("audio player: playing %d bytes of PCM", len(pcm))

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	var err error
loop:
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			err = ctx.Err()
			break loop
		case <-ticker.C:
		}
	}

	p.mu.Lock()
	if p.active == player {
		p.active = nil
	}
	p.mu.Unlock()

	if cerr := player.Close(); err == nil {
		err = cerr
	}
	return err
}

// Stop interrupts the currently playing audio, if any. Safe to call
// concurrently and when nothing is playing.
func (p *Player) Stop() {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()

	if active != nil {
		active.Pause()
		p.log.Debug("audio player: interrupted")
	}
}
