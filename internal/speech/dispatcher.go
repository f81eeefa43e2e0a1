package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hammamikhairi/distype/internal/domain"
	"github.com/hammamikhairi/distype/internal/logger"
)

// DispatcherOption configures the Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRemote sets the network vocalizer. Without one every utterance
// goes straight to the local synthesizer.
func WithRemote(v domain.Vocalizer) DispatcherOption {
	return func(d *Dispatcher) { d.remote = v }
}

// WithProbe sets the connectivity probe consulted before each remote
// attempt. Without one the network is assumed to be up.
func WithProbe(p domain.ConnectivityProbe) DispatcherOption {
	return func(d *Dispatcher) { d.probe = p }
}

// WithStateListener registers a callback for state changes. It runs on
// the dispatcher's goroutines and must not block.
func WithStateListener(fn func(domain.SpeechState)) DispatcherOption {
	return func(d *Dispatcher) { d.listener = fn }
}

// Dispatcher decides which engine speaks each utterance. The remote
// engine gets FallbackTimeout to start playing; if it has not started by
// then, or fails before starting, the local synthesizer speaks the same
// text instead. Exactly one engine plays per utterance.
//
// One utterance is in flight at a time. Speaking again interrupts the
// current one.
type Dispatcher struct {
	remote   domain.Vocalizer
	local    domain.Synthesizer
	probe    domain.ConnectivityProbe
	listener func(domain.SpeechState)
	log      *logger.Logger
	timeout  time.Duration

	mu      sync.Mutex
	current *Utterance
	state   domain.SpeechState
}

// NewDispatcher creates a dispatcher around the local synthesizer.
func NewDispatcher(local domain.Synthesizer, log *logger.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		local:   local,
		log:     log,
		timeout: FallbackTimeout,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Utterance is the handle for one Speak call.
type Utterance struct {
	Text string

	remote domain.Vocalizer
	state  atomic.Int32 // domain.SpeechState
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	engine domain.Engine
	err    error
}

// Done is closed when the utterance has finished or was interrupted.
func (u *Utterance) Done() <-chan struct{} { return u.done }

// Wait blocks until the utterance ends and reports which engine spoke.
// An interrupted utterance returns an error wrapping ErrInterrupted.
func (u *Utterance) Wait() (domain.Engine, error) {
	<-u.done
	return u.engine, u.err
}

func (u *Utterance) cas(from, to domain.SpeechState) bool {
	return u.state.CompareAndSwap(int32(from), int32(to))
}

func (u *Utterance) interrupt() {
	// Idle blocks both the timer and the remote start from winning.
	u.state.Store(int32(domain.StateIdle))
	u.cancel()
}

// Speak starts speaking text and returns immediately. preferOnline asks
// for the remote engine; it is only used when one is configured and the
// probe reports a connection.
func (d *Dispatcher) Speak(ctx context.Context, text string, preferOnline bool) (*Utterance, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyText
	}

	d.mu.Lock()
	remote := d.remote
	d.mu.Unlock()

	useRemote := preferOnline && remote != nil
	if useRemote && d.probe != nil && !d.probe.Online(ctx) {
		d.log.Debug("dispatch: offline, using local engine")
		useRemote = false
	}

	uctx, cancel := context.WithCancel(ctx)
	u := &Utterance{Text: text, remote: remote, ctx: uctx, cancel: cancel, done: make(chan struct{})}

	d.mu.Lock()
	prev := d.current
	d.current = u
	d.mu.Unlock()

	if prev != nil {
		d.log.Debug("dispatch: interrupting %q", truncate(prev.Text, 40))
		prev.interrupt()
		<-prev.done
	}

	if useRemote {
		u.state.Store(int32(domain.StateRemotePending))
		d.publish(u, domain.StateRemotePending)
		go d.runRemote(u)
	} else {
		u.state.Store(int32(domain.StateLocalPlaying))
		d.publish(u, domain.StateLocalPlaying)
		go d.runLocal(u, false)
	}
	return u, nil
}

// Toggle is the say/stop button: it stops the current utterance when one
// is in flight, otherwise it speaks text. A stop returns a nil Utterance.
func (d *Dispatcher) Toggle(ctx context.Context, text string, preferOnline bool) (*Utterance, error) {
	if d.Speaking() {
		d.Stop()
		return nil, nil
	}
	return d.Speak(ctx, text, preferOnline)
}

// Stop interrupts the current utterance and waits for it to wind down.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	u := d.current
	d.mu.Unlock()

	if u == nil {
		return
	}
	u.interrupt()
	<-u.done
}

// SetRemote replaces the network vocalizer, e.g. after a voice change.
// nil disables the remote path. Utterances in flight keep the old one.
func (d *Dispatcher) SetRemote(v domain.Vocalizer) {
	d.mu.Lock()
	d.remote = v
	d.mu.Unlock()
}

// State returns the state of the current utterance.
func (d *Dispatcher) State() domain.SpeechState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Speaking reports whether an utterance is in flight.
func (d *Dispatcher) Speaking() bool {
	return d.State().Speaking()
}

func (d *Dispatcher) runRemote(u *Utterance) {
	remoteCtx, cancelRemote := context.WithCancel(u.ctx)
	defer cancelRemote()

	fallback := make(chan struct{}, 1)
	timer := time.AfterFunc(d.timeout, func() {
		if u.cas(domain.StateRemotePending, domain.StateLocalPlaying) {
			cancelRemote()
			fallback <- struct{}{}
		}
	})
	defer timer.Stop()

	begin := func() bool {
		if !u.cas(domain.StateRemotePending, domain.StateRemotePlaying) {
			return false
		}
		timer.Stop()
		d.publish(u, domain.StateRemotePlaying)
		return true
	}

	remoteDone := make(chan error, 1)
	go func() { remoteDone <- u.remote.Vocalize(remoteCtx, u.Text, begin) }()

	select {
	case <-fallback:
		d.log.Info("dispatch: remote did not start within %s, falling back", d.timeout)
		d.runLocal(u, true)
		return
	case err := <-remoteDone:
		// Failed (or returned) before starting: same as the timeout.
		if u.cas(domain.StateRemotePending, domain.StateLocalPlaying) {
			timer.Stop()
			if err != nil {
				d.log.Warn("dispatch: remote failed before start: %v", err)
			}
			d.runLocal(u, true)
			return
		}
		switch domain.SpeechState(u.state.Load()) {
		case domain.StateLocalPlaying:
			// The timer won at the same moment.
			d.runLocal(u, true)
		case domain.StateRemotePlaying:
			d.finish(u, domain.EngineRemote, err)
		default:
			d.finish(u, domain.EngineNone, err)
		}
	}
}

// runLocal speaks on the local engine. fallback is set when the remote
// path handed over, so the state change still has to be published.
func (d *Dispatcher) runLocal(u *Utterance, fallback bool) {
	if u.ctx.Err() != nil {
		d.finish(u, domain.EngineNone, u.ctx.Err())
		return
	}
	if fallback {
		d.publish(u, domain.StateLocalPlaying)
	}
	err := d.local.Speak(u.ctx, u.Text)
	d.finish(u, domain.EngineLocal, err)
}

func (d *Dispatcher) finish(u *Utterance, engine domain.Engine, err error) {
	if u.ctx.Err() != nil {
		err = fmt.Errorf("%w: %v", domain.ErrInterrupted, u.ctx.Err())
	} else if err != nil && !errors.Is(err, domain.ErrInterrupted) {
		d.log.Error("dispatch: %s engine failed: %v", engine, err)
	}
	u.engine = engine
	u.err = err
	u.state.Store(int32(domain.StateIdle))
	u.cancel()

	d.mu.Lock()
	isCurrent := d.current == u
	if isCurrent {
		d.current = nil
		d.state = domain.StateIdle
	}
	listener := d.listener
	d.mu.Unlock()

	if isCurrent && listener != nil {
		listener(domain.StateIdle)
	}
	close(u.done)
}

// publish records state for the current utterance and notifies the
// listener. Updates from a superseded utterance are dropped.
func (d *Dispatcher) publish(u *Utterance, state domain.SpeechState) {
	d.mu.Lock()
	if d.current != u {
		d.mu.Unlock()
		return
	}
	d.state = state
	listener := d.listener
	d.mu.Unlock()

	if listener != nil {
		listener(state)
	}
}
