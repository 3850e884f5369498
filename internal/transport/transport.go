// Package transport is the push channel to the game server: a persistent
// websocket carrying named events in and named commands out.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

var ErrNotConnected = errors.New("transport: not connected")

// Handler receives the raw data of one push event.
type Handler func(data json.RawMessage)

// Transport is what the rest of the client needs from the push channel.
// Socket is the production implementation; transporttest.Fake is the one
// used in tests.
type Transport interface {
	// Connect is idempotent: it returns nil when a connection is already open.
	Connect(ctx context.Context) error
	// Disconnect tears the connection down. Safe to call when disconnected.
	Disconnect() error
	// Emit is fire-and-forget. Frames emitted while disconnected are dropped
	// and logged; nothing is queued or retried.
	Emit(event string, payload any)
	// On registers h for event. The returned func may be called any number of times.
	On(event string, h Handler) (unsubscribe func())
	Connected() bool
	// OnDisconnect fires when the connection drops without Disconnect being called.
	OnDisconnect(fn func(error)) (unsubscribe func())
}

// Subscriber is the subscribe half of Transport.
type Subscriber interface {
	On(event string, h Handler) (unsubscribe func())
}

// Emitter is the send half of Transport.
type Emitter interface {
	Emit(event string, payload any)
}

type listener[T any] struct {
	id uint64
	fn func(T)
}

// Listeners is a keyed list of callbacks kept in registration order.
type Listeners[T any] struct {
	mu    sync.RWMutex
	seq   uint64
	byKey map[string][]listener[T]
}

func (l *Listeners[T]) Add(key string, fn func(T)) (remove func()) {
	l.mu.Lock()
	if l.byKey == nil {
		l.byKey = make(map[string][]listener[T])
	}
	l.seq++
	id := l.seq
	l.byKey[key] = append(l.byKey[key], listener[T]{id: id, fn: fn})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(key, id) })
	}
}

func (l *Listeners[T]) remove(key string, id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	list := l.byKey[key]
	for i, entry := range list {
		if entry.id == id {
			l.byKey[key] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(l.byKey[key]) == 0 {
		delete(l.byKey, key)
	}
}

// Dispatch calls every listener for key, outside the lock, and reports how
// many there were.
func (l *Listeners[T]) Dispatch(key string, v T) int {
	l.mu.RLock()
	list := append([]listener[T](nil), l.byKey[key]...)
	l.mu.RUnlock()

	for _, entry := range list {
		entry.fn(v)
	}
	return len(list)
}

func (l *Listeners[T]) Count(key string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byKey[key])
}

func (l *Listeners[T]) Total() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, list := range l.byKey {
		n += len(list)
	}
	return n
}
