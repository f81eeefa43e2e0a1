// Package speech turns text into audio: remote providers, the local
// synthesizer, the shared player and the dispatcher that picks between them.
// It also hosts voice input through a local Whisper model.
package speech

import "time"

// FallbackTimeout is how long the dispatcher waits for the remote engine
// to start playing before switching to the local synthesizer.
const FallbackTimeout = 1500 * time.Millisecond

// Output format of the shared player. Every engine's audio is decoded and
// resampled to this before playback.
const (
	SampleRate   = 24000
	ChannelCount = 1
	BitDepth     = 16
)

// Azure defaults.
// Full voice list: https://learn.microsoft.com/en-us/azure/ai-services/speech-service/language-support
const (
	DefaultAzureVoice  = "en-US-AvaNeural"
	DefaultAzureFormat = "riff-24khz-16bit-mono-pcm"
)

// Yandex SpeechKit defaults.
const (
	DefaultYandexURL   = "https://tts.api.cloud.yandex.net/speech/v1/tts:synthesize"
	DefaultYandexVoice = "alena"
	DefaultYandexLang  = "ru-RU"
)

// Local synthesizer defaults.
const (
	DefaultLocalBinary = "espeak-ng"
	DefaultLocalVoice  = "en"
	DefaultLocalRate   = 160
)

// Env var names for remote credentials.
const (
	EnvAzureSpeechKey    = "AZURE_SPEECH_KEY"
	EnvAzureSpeechRegion = "AZURE_SPEECH_REGION"
	EnvYandexAPIKey      = "YANDEX_API_KEY"
)
