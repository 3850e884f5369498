// Package reconcile owns the authoritative snapshot. Commands the client
// has sent are tracked here as in flight until the next snapshot lands;
// nothing else ever changes the view.
package reconcile

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/krutagidon-client/internal/protocol"
	"github.com/DoyleJ11/krutagidon-client/internal/telemetry"
)

type Ticket uint64

// InFlight is a command sent to the server and not yet confirmed by a
// snapshot.
type InFlight struct {
	Ticket  Ticket    `json:"ticket"`
	Command string    `json:"command"`
	Since   time.Time `json:"since"`
}

type Reconciler struct {
	me     protocol.ID
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	snapshot *protocol.Snapshot
	view     View
	applied  uint64
	next     Ticket
	inflight []InFlight

	lmu     sync.Mutex
	onApply []func(View)
	onWait  []func([]InFlight)
}

func New(me protocol.ID, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		me:     me,
		logger: telemetry.OrNop(logger).Named("reconcile"),
		now:    time.Now,
	}
}

func (r *Reconciler) LocalPlayer() protocol.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.me
}

// ApplySnapshot replaces the canonical snapshot, derives a fresh view and
// clears every in-flight command.
func (r *Reconciler) ApplySnapshot(s protocol.Snapshot) View {
	r.mu.Lock()
	return r.applyLocked(s)
}

// ApplyFetched applies a snapshot obtained by request, unless a pushed
// snapshot has landed since Applied returned since. A push is always at
// least as new as a fetch that started before it.
func (r *Reconciler) ApplyFetched(s protocol.Snapshot, since uint64) (View, bool) {
	r.mu.Lock()
	if r.applied != since {
		r.mu.Unlock()
		r.logger.Debug("fetched snapshot superseded by a push", zap.Int("turn", s.Turn))
		return View{}, false
	}
	return r.applyLocked(s), true
}

// applyLocked is called with r.mu held and releases it.
func (r *Reconciler) applyLocked(s protocol.Snapshot) View {
	v := Derive(s, r.me)
	cp := s
	r.snapshot = &cp
	r.view = v
	r.applied++
	cleared := len(r.inflight)
	r.inflight = nil
	r.mu.Unlock()

	r.logger.Debug("snapshot applied",
		zap.Int("turn", s.Turn),
		zap.String("current_player", s.CurrentPlayer.String()),
		zap.Int("confirmed", cleared),
	)

	for _, fn := range r.applyListeners() {
		fn(v)
	}
	if cleared > 0 {
		r.notifyWaiting(nil)
	}
	return v
}

// Snapshot returns the last applied snapshot.
func (r *Reconciler) Snapshot() (protocol.Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snapshot == nil {
		return protocol.Snapshot{}, false
	}
	return *r.snapshot, true
}

func (r *Reconciler) View() (View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view, r.snapshot != nil
}

// Applied counts snapshots applied so far.
func (r *Reconciler) Applied() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applied
}

// Begin marks command as sent.
func (r *Reconciler) Begin(command string) Ticket {
	r.mu.Lock()
	r.next++
	t := r.next
	r.inflight = append(r.inflight, InFlight{Ticket: t, Command: command, Since: r.now()})
	waiting := append([]InFlight(nil), r.inflight...)
	r.mu.Unlock()

	r.notifyWaiting(waiting)
	return t
}

// Fail drops a command the server refused or never received. Failing a
// ticket a snapshot already cleared is a no-op.
func (r *Reconciler) Fail(t Ticket) {
	r.mu.Lock()
	found := false
	for i, f := range r.inflight {
		if f.Ticket == t {
			r.inflight = append(r.inflight[:i:i], r.inflight[i+1:]...)
			found = true
			break
		}
	}
	waiting := append([]InFlight(nil), r.inflight...)
	r.mu.Unlock()

	if found {
		r.notifyWaiting(waiting)
	}
}

func (r *Reconciler) Waiting() []InFlight {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]InFlight(nil), r.inflight...)
}

// Reset forgets the snapshot and anything in flight and switches the
// local player, for a new binding.
func (r *Reconciler) Reset(me protocol.ID) {
	r.mu.Lock()
	r.me = me
	r.snapshot = nil
	r.view = View{}
	r.inflight = nil
	r.mu.Unlock()
}

// OnApplied registers fn to run after every ApplySnapshot.
func (r *Reconciler) OnApplied(fn func(View)) {
	r.lmu.Lock()
	r.onApply = append(r.onApply, fn)
	r.lmu.Unlock()
}

// OnWaiting registers fn to run whenever the in-flight set changes.
func (r *Reconciler) OnWaiting(fn func([]InFlight)) {
	r.lmu.Lock()
	r.onWait = append(r.onWait, fn)
	r.lmu.Unlock()
}

func (r *Reconciler) applyListeners() []func(View) {
	r.lmu.Lock()
	defer r.lmu.Unlock()
	return append([]func(View){}, r.onApply...)
}

func (r *Reconciler) notifyWaiting(waiting []InFlight) {
	r.lmu.Lock()
	fns := append([]func([]InFlight){}, r.onWait...)
	r.lmu.Unlock()
	for _, fn := range fns {
		fn(waiting)
	}
}
