package speech

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	audiotranscriber "github.com/sklyt/whisper/pkg"

	"github.com/hammamikhairi/distype/internal/logger"
)

// ErrNothingHeard is returned when a dictation ends without speech.
var ErrNothingHeard = errors.New("no speech heard")

// envAnnotation matches whisper environmental annotations like
// "(keyboard clicking)", "[laughter]", "(speaking French)", etc.
var envAnnotation = regexp.MustCompile(`[\(\[][a-zA-Z][a-zA-Z\s]*[\)\]]`)

// DictationOption configures Dictation.
type DictationOption func(*Dictation)

// WithChunkDuration sets the length of each recorded chunk.
func WithChunkDuration(d time.Duration) DictationOption {
	return func(dc *Dictation) { dc.chunk = d }
}

// WithMaxDuration caps a single dictation.
func WithMaxDuration(d time.Duration) DictationOption {
	return func(dc *Dictation) { dc.maxDuration = d }
}

// WithTempDir sets the directory for temporary WAV files.
func WithTempDir(dir string) DictationOption {
	return func(dc *Dictation) { dc.tempDir = dir }
}

// WithSilencer stops the given dispatcher before recording so the
// microphone does not pick up our own speech.
func WithSilencer(d *Dispatcher) DictationOption {
	return func(dc *Dictation) { dc.silencer = d }
}

// recordFunc records one chunk and returns its raw transcription.
type recordFunc func(ctx context.Context, d time.Duration) (string, error)

// Dictation turns microphone input into text with a local Whisper model.
// Listen records chunks until the speaker falls silent.
type Dictation struct {
	whisperBin  string
	modelPath   string
	tempDir     string
	chunk       time.Duration
	maxDuration time.Duration
	silencer    *Dispatcher
	record      recordFunc
	log         *logger.Logger
}

// NewDictation creates a dictation source.
//
//   - whisperBin: path to the whisper-cli executable
//   - modelPath:  path to the GGML model file
func NewDictation(whisperBin, modelPath string, log *logger.Logger, opts ...DictationOption) *Dictation {
	dc := &Dictation{
		whisperBin:  whisperBin,
		modelPath:   modelPath,
		tempDir:     ".distype-stt",
		chunk:       2 * time.Second,
		maxDuration: 20 * time.Second,
		log:         log,
	}
	dc.record = dc.recordChunk
	for _, opt := range opts {
		opt(dc)
	}
	return dc
}

// Available reports whether the whisper binary is on PATH.
func (dc *Dictation) Available() bool {
	_, err := exec.LookPath(dc.whisperBin)
	return err == nil
}

// Listen records until silence, the max duration, or ctx cancellation,
// and returns the cleaned transcription.
func (dc *Dictation) Listen(ctx context.Context) (string, error) {
	if dc.silencer != nil {
		dc.silencer.Stop()
	}
	dc.log.Info("dictation: listening (chunk=%s, max=%s)", dc.chunk, dc.maxDuration)

	deadline := time.Now().Add(dc.maxDuration)
	var parts []string
	emptyRuns := 0
	heardSpeech := false
	// More silence is tolerated before the first words than after them.
	const graceEmpty = 3
	const postSpeechEmpty = 1

	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		raw, err := dc.record(ctx, dc.chunk)
		if err != nil {
			return "", fmt.Errorf("dictation: %w", err)
		}
		chunk := cleanTranscription(raw)

		if chunk == "" {
			emptyRuns++
			maxEmpty := graceEmpty
			if heardSpeech {
				maxEmpty = postSpeechEmpty
			}
			if emptyRuns >= maxEmpty {
				dc.log.Debug("dictation: silence detected (heard_speech=%v)", heardSpeech)
				break
			}
			continue
		}

		emptyRuns = 0
		heardSpeech = true
		dc.log.Debug("dictation: chunk %q", chunk)
		parts = append(parts, chunk)
	}

	combined := strings.TrimSpace(strings.Join(parts, " "))
	if combined == "" {
		return "", ErrNothingHeard
	}
	dc.log.Info("dictation: heard %q", combined)
	return combined, nil
}

// recordChunk does one recording cycle and returns the transcription.
func (dc *Dictation) recordChunk(ctx context.Context, duration time.Duration) (string, error) {
	var result string
	var wg sync.WaitGroup
	wg.Add(1)

	callback := func(text string) {
		result = text
		wg.Done()
	}

	verbose := dc.log.GetLevel() >= logger.LevelVerbose
	t, err := audiotranscriber.NewTranscriber(
		dc.whisperBin,
		dc.modelPath,
		dc.tempDir,
		"wav",
		callback,
		verbose,
	)
	if err != nil {
		return "", fmt.Errorf("transcriber init: %w", err)
	}
	if err := t.Start(); err != nil {
		return "", fmt.Errorf("recording start: %w", err)
	}

	select {
	case <-time.After(duration):
	case <-ctx.Done():
		t.Stop()
		wg.Wait()
		return "", ctx.Err()
	}

	t.Stop()
	wg.Wait()
	return result, nil
}

var whisperJunk = []string{
	"[BLANK_AUDIO]",
	"[BLANK AUDIO]",
	"(silence)",
	"[silence]",
	"(no speech)",
	"[no speech]",
	"[Music]",
	"(music)",
	"(inaudible)",
	"(unintelligible)",
	"(background noise)",
	"(static)",
}

var whisperHallucinations = []string{
	"...",
	"you",
	"Thanks for watching!",
	"Thank you for watching.",
	"The end.",
	"Sous-titres réalisés para la communauté d'Amara.org",
}

// cleanTranscription removes whisper artifacts and known hallucinations.
func cleanTranscription(s string) string {
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)

	// Timestamp prefix like "[00:00:00.000 --> 00:00:05.000]".
	if strings.HasPrefix(s, "[") {
		if idx := strings.Index(s, "]"); idx != -1 && idx < 40 && strings.Contains(s[:idx], "-->") {
			s = s[idx+1:]
		}
	}

	for _, j := range whisperJunk {
		s = strings.ReplaceAll(s, j, "")
		s = strings.ReplaceAll(s, strings.ToLower(j), "")
		s = strings.ReplaceAll(s, strings.ToUpper(j), "")
	}
	s = envAnnotation.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")

	lower := strings.ToLower(s)
	for _, h := range whisperHallucinations {
		if strings.ToLower(h) == lower {
			return ""
		}
	}
	return s
}
