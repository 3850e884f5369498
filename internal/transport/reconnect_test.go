package transport_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/krutagidon-client/internal/transport"
	"github.com/DoyleJ11/krutagidon-client/internal/transport/transporttest"
)

type stateLog struct {
	mu     sync.Mutex
	states []transport.State
}

func (l *stateLog) add(s transport.State) {
	l.mu.Lock()
	l.states = append(l.states, s)
	l.mu.Unlock()
}

func (l *stateLog) snapshot() []transport.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]transport.State(nil), l.states...)
}

func fastPolicy() transport.ReconnectPolicy {
	return transport.ReconnectPolicy{Initial: 5 * time.Millisecond, Max: 20 * time.Millisecond, MaxElapsed: time.Second}
}

func TestSupervisor_ReconnectsAndResyncs(t *testing.T) {
	fake := transporttest.New()
	require.NoError(t, fake.Connect(context.Background()))

	resyncs := make(chan struct{}, 4)
	sup := transport.NewSupervisor(fake, func(ctx context.Context) error {
		resyncs <- struct{}{}
		return nil
	}, fastPolicy(), nil)

	var log stateLog
	sup.OnStateChange(log.add)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	require.Eventually(t, func() bool { return sup.State() == transport.StateConnected }, time.Second, 5*time.Millisecond)

	fake.FailConnect(errors.New("refused"))
	fake.Drop(errors.New("eof"))
	require.Eventually(t, func() bool { return sup.State() == transport.StateReconnecting }, time.Second, 5*time.Millisecond)

	fake.FailConnect(nil)
	select {
	case <-resyncs:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for resync")
	}
	require.Eventually(t, func() bool { return sup.State() == transport.StateConnected }, time.Second, 5*time.Millisecond)
	assert.True(t, fake.Connected())

	assert.Equal(t, []transport.State{
		transport.StateConnected,
		transport.StateDisconnected,
		transport.StateReconnecting,
		transport.StateResynced,
		transport.StateConnected,
	}, log.snapshot())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestSupervisor_RetriesFailedResync(t *testing.T) {
	fake := transporttest.New()
	require.NoError(t, fake.Connect(context.Background()))

	var mu sync.Mutex
	attempts := 0
	sup := transport.NewSupervisor(fake, func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return errors.New("snapshot unavailable")
		}
		return nil
	}, fastPolicy(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx)
	require.Eventually(t, func() bool { return sup.State() == transport.StateConnected }, time.Second, 5*time.Millisecond)

	fake.Drop(errors.New("eof"))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return attempts == 3
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return sup.State() == transport.StateConnected }, time.Second, 5*time.Millisecond)
}

func TestSupervisor_CancelAbandonsRetry(t *testing.T) {
	fake := transporttest.New()
	fake.FailConnect(errors.New("refused"))

	sup := transport.NewSupervisor(fake, nil, transport.ReconnectPolicy{Initial: 50 * time.Millisecond, Max: 50 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	require.Eventually(t, func() bool { return fake.DisconnectHooks() == 1 }, time.Second, 5*time.Millisecond)
	fake.Drop(errors.New("eof"))
	require.Eventually(t, func() bool { return sup.State() == transport.StateReconnecting }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
