package domain

// Engine identifies which speech path produced an utterance.
type Engine int

const (
	EngineNone Engine = iota
	EngineRemote
	EngineLocal
)

// String returns a human-readable engine name.
func (e Engine) String() string {
	switch e {
	case EngineRemote:
		return "remote"
	case EngineLocal:
		return "local"
	default:
		return "none"
	}
}

// SpeechState is the dispatcher's observable state.
type SpeechState int32

const (
	StateIdle SpeechState = iota
	StateRemotePending
	StateRemotePlaying
	StateLocalPlaying
)

// String returns a human-readable speech state.
func (s SpeechState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRemotePending:
		return "remote_pending"
	case StateRemotePlaying:
		return "remote_playing"
	case StateLocalPlaying:
		return "local_playing"
	default:
		return "unknown"
	}
}

// Speaking reports whether the state represents an utterance in flight.
func (s SpeechState) Speaking() bool { return s != StateIdle }
