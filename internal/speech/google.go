package speech

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	google_translate_tts "github.com/GrailFinder/google-translate-tts"
	"github.com/GrailFinder/google-translate-tts/handlers"

	"github.com/hammamikhairi/distype/internal/logger"
)

var _ Provider = (*GoogleClient)(nil)

// GoogleClient synthesizes MP3 speech through the Google Translate TTS
// endpoint. It needs no credentials.
type GoogleClient struct {
	speech *google_translate_tts.Speech
	log    *logger.Logger
}

// NewGoogleClient creates a client for the given language code ("en",
// "ru", ...). speed 0 means normal rate.
func NewGoogleClient(language string, speed float32, log *logger.Logger) *GoogleClient {
	if language == "" {
		language = "en"
	}
	if speed <= 0 {
		speed = 1.0
	}
	return &GoogleClient{
		speech: &google_translate_tts.Speech{
			Folder:   filepath.Join(os.TempDir(), "distype-tts"),
			Language: language,
			Speed:    speed,
			Handler:  &handlers.Beep{},
		},
		log: log,
	}
}

func (c *GoogleClient) Name() string  { return "google" }
func (c *GoogleClient) Voice() string { return c.speech.Language }

// Synthesize returns MP3 audio for text. The library call is not
// cancellable, so ctx only abandons the wait.
func (c *GoogleClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	type result struct {
		audio []byte
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		reader, err := c.speech.GenerateSpeech(text)
		if err != nil {
			ch <- result{err: fmt.Errorf("generate speech failed: %w", err)}
			return
		}
		audio, err := io.ReadAll(reader)
		ch <- result{audio: audio, err: err}
	}()

	c.log.Debug("google tts: synthesizing %d chars (%s)", len(text), c.speech.Language)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.audio, r.err
	}
}
