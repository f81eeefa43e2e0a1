package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hammamikhairi/distype/internal/config"
	"github.com/hammamikhairi/distype/internal/domain"
	"github.com/hammamikhairi/distype/internal/logger"
	"github.com/hammamikhairi/distype/internal/netprobe"
	"github.com/hammamikhairi/distype/internal/phrasebook"
	"github.com/hammamikhairi/distype/internal/speech"
	"github.com/hammamikhairi/distype/internal/storage"
)

// openBackend opens a phrase store. The returned close func is never nil.
func openBackend(backend, path, user string, log *logger.Logger) (domain.PhraseStore, func() error, error) {
	noop := func() error { return nil }

	if backend != config.BackendMemory && path != "" && path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, noop, fmt.Errorf("creating store dir: %w", err)
			}
		}
	}

	switch backend {
	case config.BackendMemory:
		return storage.NewMemoryStore(log), noop, nil
	case config.BackendSQL:
		s, err := storage.OpenSQLStore(path, log)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case config.BackendDocument:
		s, err := storage.OpenDocStore(path, log, storage.WithUser(user))
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown store backend %q", backend)
	}
}

// openStore opens the configured store and registers it for closing.
func (a *app) openStore() (domain.PhraseStore, error) {
	c := a.cfg.Store
	store, closeFn, err := openBackend(c.Backend, c.Path, c.User, a.log.Named("store"))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeFn)
	return store, nil
}

// openBook opens the store and wraps it in a phrase book. speaker may be
// nil for commands that never speak.
func (a *app) openBook(speaker phrasebook.Speaker) (*phrasebook.Book, error) {
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	return phrasebook.New(store, speaker, a.log.Named("book")), nil
}

func (a *app) newCache() *speech.AudioCache {
	c := a.cfg.Cache
	return speech.NewAudioCache(a.log.Named("cache"),
		speech.WithCacheDir(c.Dir),
		speech.WithCacheLimitMB(c.LimitMB),
		speech.WithCacheEnabled(c.Enabled),
	)
}

// newProvider builds the configured online voice. voice overrides the
// configured voice when non-empty. Returns nil when the provider is
// disabled or lacks credentials.
func (a *app) newProvider(voice string) speech.Provider {
	c := a.cfg
	if !c.RemoteConfigured() {
		return nil
	}
	switch strings.ToLower(c.Speech.Provider) {
	case config.ProviderYandex:
		var opts []speech.YandexOption
		if v := firstNonEmpty(voice, c.Yandex.Voice); v != "" {
			opts = append(opts, speech.WithYandexVoice(v))
		}
		if c.Yandex.Lang != "" {
			opts = append(opts, speech.WithYandexLang(c.Yandex.Lang))
		}
		if c.Yandex.URL != "" {
			opts = append(opts, speech.WithYandexURL(c.Yandex.URL))
		}
		if c.Yandex.Folder != "" {
			opts = append(opts, speech.WithYandexFolder(c.Yandex.Folder))
		}
		return speech.NewYandexClient(c.Yandex.APIKey, a.log.Named("yandex"), opts...)
	case config.ProviderAzure:
		var opts []speech.AzureOption
		if v := firstNonEmpty(voice, c.Azure.Voice); v != "" {
			opts = append(opts, speech.WithAzureVoice(v))
		}
		return speech.NewAzureClient(c.Azure.Key, c.Azure.Region, a.log.Named("azure"), opts...)
	case config.ProviderGoogle:
		return speech.NewGoogleClient(firstNonEmpty(voice, c.Google.Lang), c.Google.Speed, a.log.Named("google"))
	}
	return nil
}

// newLocal builds the on-device synthesizer. sink may be nil when only
// Synthesize is used.
func (a *app) newLocal(sink speech.AudioSink) *speech.LocalSynth {
	c := a.cfg.Local
	return speech.NewLocalSynth(sink, a.log.Named("local"),
		speech.WithLocalBinary(c.Binary),
		speech.WithLocalVoice(c.Voice),
		speech.WithLocalRate(c.Rate),
	)
}

func (a *app) newProbe() domain.ConnectivityProbe {
	if a.cfg.Probe.Offline {
		return netprobe.NewStatic(false)
	}
	return netprobe.NewTCPProbe(a.cfg.Probe.Address, a.log.Named("probe"))
}

// speechStack is everything needed to speak.
type speechStack struct {
	disp   *speech.Dispatcher
	player *speech.Player
	cache  *speech.AudioCache
	probe  domain.ConnectivityProbe
}

// remoteFor wraps a provider for the dispatcher. A nil provider yields a
// nil vocalizer.
func (s *speechStack) remoteFor(p speech.Provider, log *logger.Logger) domain.Vocalizer {
	if p == nil {
		return nil
	}
	return speech.NewRemoteVocalizer(p, s.player, s.cache, log)
}

// newSpeech opens the audio device and builds the dispatcher.
func (a *app) newSpeech(listener func(domain.SpeechState)) (*speechStack, error) {
	player, err := speech.NewPlayer(a.log.Named("player"))
	if err != nil {
		return nil, fmt.Errorf("audio output: %w", err)
	}
	a.closers = append(a.closers, func() error {
		player.Stop()
		return nil
	})

	local := a.newLocal(player)
	if !local.Available() {
		a.log.Warn("local voice %q not found on PATH; offline speech will fail", a.cfg.Local.Binary)
	}

	st := &speechStack{player: player, cache: a.newCache(), probe: a.newProbe()}
	opts := []speech.DispatcherOption{speech.WithProbe(st.probe)}
	if listener != nil {
		opts = append(opts, speech.WithStateListener(listener))
	}
	if remote := st.remoteFor(a.newProvider(""), a.log.Named("remote")); remote != nil {
		opts = append(opts, speech.WithRemote(remote))
		a.log.Info("online voice: %s (fallback after %s)", a.cfg.Speech.Provider, speech.FallbackTimeout)
	} else {
		a.log.Info("online voice disabled: provider %q not configured", a.cfg.Speech.Provider)
	}

	st.disp = speech.NewDispatcher(local, a.log.Named("dispatch"), opts...)
	return st, nil
}

func (a *app) chunkDuration() time.Duration {
	return time.Duration(a.cfg.Dictation.ChunkSeconds) * time.Second
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
