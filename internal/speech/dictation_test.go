package speech

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hammamikhairi/distype/internal/logger"
)

func TestCleanTranscription(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  I want water  ", "I want water"},
		{"[BLANK_AUDIO]", ""},
		{"hello (keyboard clicking) there", "hello there"},
		{"[00:00:00.000 --> 00:00:02.000]  good morning", "good morning"},
		{"line one\nline two", "line one line two"},
		{"Thanks for watching!", ""},
		{"you", ""},
		{"[laughter] thank you", "thank you"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := cleanTranscription(tt.in); got != tt.want {
				t.Fatalf("cleanTranscription(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// scripted returns one canned transcription per chunk.
func scripted(chunks ...string) recordFunc {
	i := 0
	return func(ctx context.Context, d time.Duration) (string, error) {
		if i >= len(chunks) {
			return "", nil
		}
		c := chunks[i]
		i++
		return c, nil
	}
}

func TestDictationListen(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)

	tests := []struct {
		name    string
		chunks  []string
		want    string
		wantErr error
	}{
		{"joins chunks until silence", []string{"", "I would like", "a cup of tea", "", "ignored"}, "I would like a cup of tea", nil},
		{"only artifacts", []string{"[BLANK_AUDIO]", "(silence)", ""}, "", ErrNothingHeard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dc := NewDictation("whisper-cli", "model.bin", log, WithChunkDuration(time.Millisecond))
			dc.record = scripted(tt.chunks...)

			got, err := dc.Listen(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDictationRecorderError(t *testing.T) {
	dc := NewDictation("whisper-cli", "model.bin", logger.New(logger.LevelOff, nil))
	dc.record = func(ctx context.Context, d time.Duration) (string, error) {
		return "", errors.New("no microphone")
	}
	if _, err := dc.Listen(context.Background()); err == nil {
		t.Fatal("expected recorder error to surface")
	}
}
