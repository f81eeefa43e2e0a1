package speech

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// ErrUnknownAudio is returned for payloads that are neither WAV nor MP3.
var ErrUnknownAudio = errors.New("unrecognized audio format")

// resampleQuality trades CPU for quality in beep.Resample.
const resampleQuality = 4

// ToPCM decodes WAV or MP3 audio and converts it to the player format:
// SampleRate Hz, mono, signed 16-bit little endian.
func ToPCM(audio []byte) ([]byte, error) {
	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)
	switch {
	case isWAV(audio):
		streamer, format, err = wav.Decode(bytes.NewReader(audio))
	case isMP3(audio):
		streamer, format, err = mp3.Decode(io.NopCloser(bytes.NewReader(audio)))
	default:
		return nil, ErrUnknownAudio
	}
	if err != nil {
		return nil, fmt.Errorf("decode audio: %w", err)
	}
	defer streamer.Close()

	var src beep.Streamer = streamer
	if format.SampleRate != SampleRate {
		src = beep.Resample(resampleQuality, format.SampleRate, beep.SampleRate(SampleRate), streamer)
	}
	return streamToPCM(src), nil
}

// streamToPCM drains a streamer, averaging both channels into one.
func streamToPCM(s beep.Streamer) []byte {
	var out bytes.Buffer
	buf := make([][2]float64, 512)
	sample := make([]byte, 2)
	for {
		n, ok := s.Stream(buf)
		for _, frame := range buf[:n] {
			v := (frame[0] + frame[1]) / 2
			v = math.Max(-1, math.Min(1, v))
			binary.LittleEndian.PutUint16(sample, uint16(int16(v*math.MaxInt16)))
			out.Write(sample)
		}
		if !ok {
			break
		}
	}
	return out.Bytes()
}

func isWAV(b []byte) bool {
	return len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WAVE"
}

func isMP3(b []byte) bool {
	if len(b) >= 3 && string(b[0:3]) == "ID3" {
		return true
	}
	// MPEG frame sync: 11 set bits.
	return len(b) >= 2 && b[0] == 0xFF && b[1]&0xE0 == 0xE0
}
