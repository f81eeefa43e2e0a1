package speech

import (
	"context"
	"reflect"
	"testing"

	"github.com/hammamikhairi/distype/internal/logger"
)

func TestLocalSynthArgs(t *testing.T) {
	s := NewLocalSynth(&recordingSink{}, logger.New(logger.LevelOff, nil),
		WithLocalVoice("ru"), WithLocalRate(140))

	got := s.args("-v looks like a flag")
	want := []string{"--stdout", "-v", "ru", "-s", "140", "--", "-v looks like a flag"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("args = %v, want %v", got, want)
	}
}

func TestLocalSynthMissingBinary(t *testing.T) {
	sink := &recordingSink{}
	s := NewLocalSynth(sink, logger.New(logger.LevelOff, nil),
		WithLocalBinary("distype-no-such-synth"))

	if s.Available() {
		t.Fatal("expected binary to be unavailable")
	}
	if err := s.Speak(context.Background(), "hello"); err == nil {
		t.Fatal("expected an error for a missing binary")
	}
	if len(sink.plays) != 0 {
		t.Fatal("nothing should play when synthesis fails")
	}
}
