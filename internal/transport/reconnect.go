package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/krutagidon-client/internal/telemetry"
)

type State string

const (
	StateIdle         State = "idle"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateReconnecting State = "reconnecting"
	StateResynced     State = "resynced"
)

type ReconnectPolicy struct {
	Initial    time.Duration
	Max        time.Duration
	MaxElapsed time.Duration
}

func (p ReconnectPolicy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if p.Initial > 0 {
		b.InitialInterval = p.Initial
	}
	if p.Max > 0 {
		b.MaxInterval = p.Max
	}
	return b
}

// ResyncFunc brings the client back in step after a reconnect, usually by
// rejoining the game and refetching the snapshot.
type ResyncFunc func(ctx context.Context) error

// Supervisor watches a Transport for unexpected drops and walks it through
// disconnected -> reconnecting -> resynced with exponential backoff. It knows
// nothing about prompts; whatever needs rebuilding happens in the ResyncFunc.
type Supervisor struct {
	t      Transport
	resync ResyncFunc
	policy ReconnectPolicy
	logger *zap.Logger

	drops chan error

	mu        sync.Mutex
	state     State
	listeners Listeners[State]
}

func NewSupervisor(t Transport, resync ResyncFunc, policy ReconnectPolicy, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		t:      t,
		resync: resync,
		policy: policy,
		logger: telemetry.OrNop(logger).Named("reconnect"),
		drops:  make(chan error, 1),
		state:  StateIdle,
	}
}

func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) OnStateChange(fn func(State)) (unsubscribe func()) {
	return s.listeners.Add("", fn)
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	if s.state == st {
		s.mu.Unlock()
		return
	}
	s.state = st
	s.mu.Unlock()

	s.logger.Debug("state", zap.String("state", string(st)))
	s.listeners.Dispatch("", st)
}

// Run blocks until ctx is done, reconnecting after every drop.
func (s *Supervisor) Run(ctx context.Context) error {
	unsubscribe := s.t.OnDisconnect(func(err error) {
		select {
		case s.drops <- err:
		default:
			// a reconnect is already queued
		}
	})
	defer unsubscribe()

	if s.t.Connected() {
		s.setState(StateConnected)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-s.drops:
			s.logger.Warn("transport dropped", zap.Error(err))
			s.setState(StateDisconnected)
			if err := s.reconnect(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("giving up on reconnect", zap.Error(err))
				s.setState(StateDisconnected)
			}
		}
	}
}

func (s *Supervisor) reconnect(ctx context.Context) error {
	s.setState(StateReconnecting)

	attempt := func() (struct{}, error) {
		if err := s.t.Connect(ctx); err != nil {
			return struct{}{}, err
		}
		if s.resync == nil {
			return struct{}{}, nil
		}
		if err := s.resync(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(s.policy.backOff()),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Info("reconnect attempt failed", zap.Error(err), zap.Duration("retry_in", next))
		}),
	}
	if s.policy.MaxElapsed > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(s.policy.MaxElapsed))
	}

	if _, err := backoff.Retry(ctx, attempt, opts...); err != nil {
		return err
	}

	s.setState(StateResynced)
	s.setState(StateConnected)
	return nil
}
