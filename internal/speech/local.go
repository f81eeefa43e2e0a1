package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/hammamikhairi/distype/internal/domain"
	"github.com/hammamikhairi/distype/internal/logger"
)

// LocalOption configures the local synthesizer.
type LocalOption func(*LocalSynth)

// WithLocalBinary sets the synthesizer executable.
func WithLocalBinary(bin string) LocalOption {
	return func(s *LocalSynth) { s.binary = bin }
}

// WithLocalVoice sets the espeak voice name.
func WithLocalVoice(voice string) LocalOption {
	return func(s *LocalSynth) { s.voice = voice }
}

// WithLocalRate sets the speaking rate in words per minute.
func WithLocalRate(wpm int) LocalOption {
	return func(s *LocalSynth) { s.rate = wpm }
}

// Compile-time interface check.
var _ domain.Synthesizer = (*LocalSynth)(nil)

// LocalSynth speaks through an on-device espeak-compatible engine that
// writes WAV to stdout.
type LocalSynth struct {
	binary string
	voice  string
	rate   int
	sink   AudioSink
	log    *logger.Logger
}

// NewLocalSynth creates a local synthesizer playing on sink.
func NewLocalSynth(sink AudioSink, log *logger.Logger, opts ...LocalOption) *LocalSynth {
	s := &LocalSynth{
		binary: DefaultLocalBinary,
		voice:  DefaultLocalVoice,
		rate:   DefaultLocalRate,
		sink:   sink,
		log:    log,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Available reports whether the synthesizer binary is on PATH.
func (s *LocalSynth) Available() bool {
	_, err := exec.LookPath(s.binary)
	return err == nil
}

func (s *LocalSynth) args(text string) []string {
	return []string{"--stdout", "-v", s.voice, "-s", strconv.Itoa(s.rate), "--", text}
}

// Synthesize runs the engine and returns its WAV output.
func (s *LocalSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.binary, s.args(text)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	s.log.Debug("local tts: %s voice=%s rate=%d (%d chars)", s.binary, s.voice, s.rate, len(text))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w: %s", s.binary, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// Speak synthesizes text and blocks until playback ends or ctx is done.
func (s *LocalSynth) Speak(ctx context.Context, text string) error {
	wav, err := s.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	pcm, err := ToPCM(wav)
	if err != nil {
		return fmt.Errorf("local tts: %w", err)
	}
	return s.sink.PlayContext(ctx, pcm)
}
