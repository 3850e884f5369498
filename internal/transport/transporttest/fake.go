// Package transporttest provides an in-memory transport.Transport for tests.
package transporttest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/DoyleJ11/krutagidon-client/internal/transport"
)

// Emitted is one frame sent through the fake.
type Emitted struct {
	Event string
	Data  json.RawMessage
}

// Fake delivers events synchronously on the caller's goroutine, so a test
// that calls Deliver knows every handler has run when it returns.
type Fake struct {
	handlers transport.Listeners[json.RawMessage]
	dropped  transport.Listeners[error]

	mu         sync.Mutex
	connected  bool
	connectErr error
	connects   int
	emitted    []Emitted
	dropCount  int
}

var _ transport.Transport = (*Fake)(nil)

func New() *Fake { return &Fake{} }

// FailConnect makes subsequent Connect calls return err. Pass nil to heal.
func (f *Fake) FailConnect(err error) {
	f.mu.Lock()
	f.connectErr = err
	f.mu.Unlock()
}

func (f *Fake) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	if !f.connected {
		f.connected = true
		f.connects++
	}
	return nil
}

func (f *Fake) Disconnect() error {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
	return nil
}

func (f *Fake) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// Connects counts transitions from disconnected to connected.
func (f *Fake) Connects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

func (f *Fake) Emit(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		f.dropCount++
		return
	}
	f.emitted = append(f.emitted, Emitted{Event: event, Data: data})
}

func (f *Fake) On(event string, h transport.Handler) func() {
	return f.handlers.Add(event, h)
}

func (f *Fake) OnDisconnect(fn func(error)) func() {
	return f.dropped.Add("", fn)
}

// Deliver marshals payload and runs every handler registered for event.
// It returns how many handlers ran.
func (f *Fake) Deliver(event string, payload any) int {
	var data json.RawMessage
	switch p := payload.(type) {
	case json.RawMessage:
		data = p
	case string:
		data = json.RawMessage(p)
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			panic(err)
		}
		data = b
	}
	return f.handlers.Dispatch(event, data)
}

// Drop simulates the server going away.
func (f *Fake) Drop(err error) {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
	f.dropped.Dispatch("", err)
}

func (f *Fake) Emitted() []Emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Emitted(nil), f.emitted...)
}

// EmittedEvents lists only the event names, in order.
func (f *Fake) EmittedEvents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.emitted))
	for _, e := range f.emitted {
		out = append(out, e.Event)
	}
	return out
}

// DroppedEmits counts frames emitted while disconnected.
func (f *Fake) DroppedEmits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropCount
}

func (f *Fake) HandlerCount(event string) int { return f.handlers.Count(event) }

// Handlers counts every registered event handler.
func (f *Fake) Handlers() int { return f.handlers.Total() }

// DisconnectHooks counts registered OnDisconnect callbacks.
func (f *Fake) DisconnectHooks() int { return f.dropped.Total() }
