// Package prompt is the interaction state machine: it turns the server's
// "decision required" pushes into at most one pending prompt for the local
// player, and turns the player's answer into a command.
//
// All state lives in one goroutine fed by a single inbox, so push events,
// snapshots, timer fires and user input are handled strictly one at a time.
package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/krutagidon-client/internal/dispatch"
	"github.com/DoyleJ11/krutagidon-client/internal/notify"
	"github.com/DoyleJ11/krutagidon-client/internal/protocol"
	"github.com/DoyleJ11/krutagidon-client/internal/reconcile"
	"github.com/DoyleJ11/krutagidon-client/internal/telemetry"
	"github.com/DoyleJ11/krutagidon-client/internal/transport"
)

var (
	ErrNoPendingInteraction = errors.New("prompt: no pending interaction")
	ErrInvalidResolution    = errors.New("prompt: resolution does not fit the pending interaction")
	ErrStopped              = errors.New("prompt: machine stopped")
)

type Submitter interface {
	Submit(ctx context.Context, scope dispatch.Scope, cmd dispatch.Command) error
}

type Notifier interface {
	Publish(level notify.Level, key string, args ...any) notify.Notification
}

// Status is what observers receive after every change.
type Status struct {
	Seq         uint64
	Armed       bool
	Interaction Interaction
	Waiting     []reconcile.InFlight
}

func (s Status) Kind() Kind {
	if s.Interaction == nil {
		return KindNone
	}
	return s.Interaction.Kind()
}

func (s Status) MarshalJSON() ([]byte, error) {
	var inter any
	if s.Kind() != KindNone {
		inter = s.Interaction
	}
	waiting := s.Waiting
	if waiting == nil {
		waiting = []reconcile.InFlight{}
	}
	return json.Marshal(struct {
		Seq         uint64               `json:"seq"`
		Armed       bool                 `json:"armed"`
		Kind        Kind                 `json:"kind"`
		Interaction any                  `json:"interaction,omitempty"`
		Waiting     []reconcile.InFlight `json:"waiting"`
	}{s.Seq, s.Armed, s.Kind(), inter, waiting})
}

type msg interface{ isPromptMsg() }

type armMsg struct {
	scope  dispatch.Scope
	unsubs []func()
}

type disarmMsg struct{ done chan struct{} }

type eventMsg struct {
	event string
	data  json.RawMessage
}

type snapshotMsg struct{ view reconcile.View }

type waitingMsg struct{ waiting []reconcile.InFlight }

type resolveMsg struct {
	res   Resolution
	reply chan error
}

type cancelMsg struct{ reply chan error }

type timerMsg struct{ gen uint64 }

type statusMsg struct{ reply chan Status }

type joinMsg struct {
	id  string
	out chan Status
}

type leaveMsg struct{ id string }

type rebootstrapMsg struct{}

func (armMsg) isPromptMsg()         {}
func (disarmMsg) isPromptMsg()      {}
func (eventMsg) isPromptMsg()       {}
func (snapshotMsg) isPromptMsg()    {}
func (waitingMsg) isPromptMsg()     {}
func (resolveMsg) isPromptMsg()     {}
func (cancelMsg) isPromptMsg()      {}
func (timerMsg) isPromptMsg()       {}
func (statusMsg) isPromptMsg()      {}
func (joinMsg) isPromptMsg()        {}
func (leaveMsg) isPromptMsg()       {}
func (rebootstrapMsg) isPromptMsg() {}

// Events the machine listens to while armed.
var promptEvents = []string{
	protocol.EvtAttackRequired,
	protocol.EvtAttackTargetRequired,
	protocol.EvtAttackTargetNotification,
	protocol.EvtDefenseRequired,
	protocol.EvtAttackNotification,
	protocol.EvtSelectionRequired,
	protocol.EvtSelectionUpdated,
	protocol.EvtLegendaryCardRevealed,
}

type Machine struct {
	inbox  chan msg
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	submitter Submitter
	feed      Notifier
	policy    TimeoutPolicy
	logger    *zap.Logger

	// Owned by loop.
	armed     bool
	scope     dispatch.Scope
	unsubs    []func()
	current   Interaction
	seq       uint64
	gen       uint64
	timer     *time.Timer
	bootstrap bool
	gameOver  bool
	view      *reconcile.View
	waiting   []reconcile.InFlight
	observers map[string]chan Status
}

func New(parent context.Context, submitter Submitter, feed Notifier, policy TimeoutPolicy, logger *zap.Logger) *Machine {
	ctx, cancel := context.WithCancel(parent)
	m := &Machine{
		inbox:     make(chan msg, 64),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		submitter: submitter,
		feed:      feed,
		policy:    policy,
		logger:    telemetry.OrNop(logger).Named("prompt"),
		current:   None{},
		observers: make(map[string]chan Status),
	}
	go m.loop()
	return m
}

func (m *Machine) send(x msg) bool {
	select {
	case <-m.ctx.Done():
		return false
	default:
	}
	select {
	case m.inbox <- x:
		return true
	case <-m.ctx.Done():
		return false
	}
}

// Arm subscribes to the prompt events on sub and starts answering for
// scope. Arming again replaces the previous subscriptions.
func (m *Machine) Arm(sub transport.Subscriber, scope dispatch.Scope) {
	unsubs := make([]func(), 0, len(promptEvents))
	for _, ev := range promptEvents {
		unsubs = append(unsubs, sub.On(ev, func(data json.RawMessage) {
			m.send(eventMsg{event: ev, data: data})
		}))
	}
	if !m.send(armMsg{scope: scope, unsubs: unsubs}) {
		for _, u := range unsubs {
			u()
		}
	}
}

// Disarm drops every subscription and the pending interaction. It returns
// once the handlers are gone.
func (m *Machine) Disarm() {
	done := make(chan struct{})
	if !m.send(disarmMsg{done: done}) {
		return
	}
	select {
	case <-done:
	case <-m.done:
	}
}

// SnapshotApplied feeds a freshly derived view in; wire it to
// reconcile.Reconciler.OnApplied.
func (m *Machine) SnapshotApplied(v reconcile.View) {
	m.send(snapshotMsg{view: v})
}

// WaitingChanged feeds the in-flight command set in; wire it to
// reconcile.Reconciler.OnWaiting.
func (m *Machine) WaitingChanged(w []reconcile.InFlight) {
	m.send(waitingMsg{waiting: w})
}

// Rebootstrap makes the next snapshot eligible to rebuild a prompt from
// pendingPlayCard, as after a reconnect.
func (m *Machine) Rebootstrap() {
	m.send(rebootstrapMsg{})
}

// Resolve answers the pending interaction. The command is sent in the
// background; the prompt closes immediately.
func (m *Machine) Resolve(ctx context.Context, res Resolution) error {
	reply := make(chan error, 1)
	return m.ask(ctx, resolveMsg{res: res, reply: reply}, reply)
}

// Cancel backs out of an attack target prompt, or closes a reveal-only top
// deck prompt.
func (m *Machine) Cancel(ctx context.Context) error {
	reply := make(chan error, 1)
	return m.ask(ctx, cancelMsg{reply: reply}, reply)
}

func (m *Machine) ask(ctx context.Context, x msg, reply chan error) error {
	if !m.send(x) {
		return ErrStopped
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrStopped
	}
}

func (m *Machine) Status(ctx context.Context) (Status, error) {
	reply := make(chan Status, 1)
	if !m.send(statusMsg{reply: reply}) {
		return Status{}, ErrStopped
	}
	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	case <-m.done:
		return Status{}, ErrStopped
	}
}

// Join registers an observer. out should be buffered: an observer that
// cannot keep up is dropped and its channel closed.
func (m *Machine) Join(id string, out chan Status) { m.send(joinMsg{id: id, out: out}) }

func (m *Machine) Leave(id string) { m.send(leaveMsg{id: id}) }

// Shutdown stops the loop and waits for it.
func (m *Machine) Shutdown() {
	m.cancel()
	<-m.done
}

func (m *Machine) loop() {
	defer close(m.done)
	for {
		select {
		case <-m.ctx.Done():
			m.shutdown()
			return
		case x := <-m.inbox:
			m.handle(x)
		}
	}
}

func (m *Machine) handle(x msg) {
	switch x := x.(type) {
	case armMsg:
		m.disarm()
		m.armed = true
		m.scope = x.scope
		m.unsubs = x.unsubs
		m.bootstrap = true
		m.gameOver = false
		m.view = nil
		m.logger.Info("armed", zap.String("game_id", x.scope.GameID.String()), zap.String("player_id", x.scope.PlayerID.String()))
		m.broadcast()

	case disarmMsg:
		wasArmed := m.armed
		m.disarm()
		close(x.done)
		if wasArmed {
			m.broadcast()
		}

	case eventMsg:
		if !m.armed {
			return
		}
		m.onEvent(x.event, x.data)

	case snapshotMsg:
		m.onSnapshot(x.view)

	case waitingMsg:
		m.waiting = x.waiting
		m.broadcast()

	case resolveMsg:
		x.reply <- m.resolve(x.res)

	case cancelMsg:
		x.reply <- m.cancelPrompt()

	case timerMsg:
		if x.gen != m.gen || m.current.Kind() == KindNone {
			m.logger.Debug("stale prompt timer", zap.Uint64("gen", x.gen))
			return
		}
		m.expire()

	case statusMsg:
		x.reply <- m.status()

	case joinMsg:
		m.observers[x.id] = x.out
		select {
		case x.out <- m.status():
		default:
			close(x.out)
			delete(m.observers, x.id)
		}

	case leaveMsg:
		delete(m.observers, x.id)

	case rebootstrapMsg:
		m.bootstrap = true
	}
}

func (m *Machine) disarm() {
	for _, u := range m.unsubs {
		u()
	}
	m.unsubs = nil
	m.armed = false
	m.bootstrap = false
	m.stopTimer()
	m.current = None{}
}

func (m *Machine) shutdown() {
	m.disarm()
	for id, ch := range m.observers {
		close(ch)
		delete(m.observers, id)
	}
}

func (m *Machine) me() protocol.ID { return m.scope.PlayerID }

func (m *Machine) onEvent(event string, data json.RawMessage) {
	switch event {
	case protocol.EvtAttackRequired:
		var ev protocol.AttackRequired
		if !m.decode(event, data, &ev) {
			return
		}
		if ev.PlayerID != m.me() {
			m.publish(notify.LevelInfo, notify.KeyOtherPlayerDeciding, ev.PlayerID)
			return
		}
		m.set(AttackTargetSelection{
			CardID:  ev.Data.CardID,
			Damage:  ev.Data.Damage,
			Targets: ev.Data.Targets,
			Origin:  OriginAttackMove,
		})

	case protocol.EvtAttackTargetRequired:
		var ev protocol.AttackTargetRequired
		if !m.decode(event, data, &ev) {
			return
		}
		if ev.PlayerID != m.me() {
			m.publish(notify.LevelInfo, notify.KeyOtherPlayerDeciding, ev.PlayerID)
			return
		}
		m.set(AttackTargetSelection{
			CardID:  ev.Data.CardID,
			Damage:  m.handDamage(ev.Data.CardID),
			Targets: ev.Data.Targets,
			Origin:  OriginTargetRequest,
		})

	case protocol.EvtAttackTargetNotification:
		var ev protocol.AttackTargetNotification
		if !m.decode(event, data, &ev) {
			return
		}
		if ev.PlayerID != m.me() {
			m.publish(notify.LevelInfo, notify.KeyAttackSelecting, ev.PlayerID)
		}

	case protocol.EvtDefenseRequired:
		var ev protocol.DefenseRequired
		if !m.decode(event, data, &ev) {
			return
		}
		a := ev.AttackData
		if a.OpponentID != m.me() {
			m.publish(notify.LevelInfo, notify.KeyOtherPlayerDeciding, a.OpponentID)
			return
		}
		m.set(DefenseResponse{AttackerID: a.AttackerID, OpponentID: a.OpponentID, CardID: a.CardID, Damage: a.Damage})

	case protocol.EvtAttackNotification:
		var ev protocol.AttackNotification
		if !m.decode(event, data, &ev) {
			return
		}
		if ev.AttackerID != m.me() && ev.OpponentID != m.me() {
			m.publish(notify.LevelInfo, notify.KeyAttackInProgress, ev.AttackerID, ev.OpponentID, ev.Damage)
		}

	case protocol.EvtSelectionRequired:
		var ev protocol.SelectionRequired
		if !m.decode(event, data, &ev) {
			return
		}
		if ev.PlayerID != m.me() {
			m.publish(notify.LevelInfo, notify.KeyOtherPlayerDeciding, ev.PlayerID)
			return
		}
		m.onSelection(ev.Data)

	case protocol.EvtSelectionUpdated:
		var ev protocol.SelectionUpdated
		if !m.decode(event, data, &ev) {
			return
		}
		if ev.PlayerID != m.me() {
			m.publish(notify.LevelInfo, notify.KeySelectionUpdated, ev.PlayerID)
		}

	case protocol.EvtLegendaryCardRevealed:
		var card protocol.Card
		if !m.decode(event, data, &card) {
			return
		}
		m.publish(notify.LevelInfo, notify.KeyLegendaryRevealed, card.Name)
	}
}

func (m *Machine) onSelection(d protocol.SelectionData) {
	switch d.Type {
	case protocol.SelectDestroyFromDiscard:
		m.set(DiscardDestruction{Candidates: d.Cards})
	case protocol.SelectCheckTopDeck, protocol.SelectDrawOrReturn, protocol.SelectViewTopDeck:
		// Nothing to show or to name in the answer.
		if d.Card == nil {
			m.logger.Warn("top deck selection without a card", zap.String("type", string(d.Type)))
			return
		}
		choice := TopDeckChoice{SelectionType: d.Type, Card: d.Card}
		if d.Type != protocol.SelectViewTopDeck {
			choice.Actions = d.Actions
		}
		m.set(choice)
	default:
		m.logger.Warn("unknown selection type", zap.String("type", string(d.Type)))
	}
}

func (m *Machine) onSnapshot(v reconcile.View) {
	m.view = &v
	if !m.armed {
		return
	}
	changed := false

	pending := v.PendingPlayCard
	pendingForMe := pending != nil && pending.PlayerID == m.me()

	if cur, ok := m.current.(AttackTargetSelection); ok && cur.Origin == OriginPendingCard && !pendingForMe {
		m.clear()
		changed = true
	}

	if m.bootstrap {
		m.bootstrap = false
		if pendingForMe && m.current.Kind() == KindNone && v.Me != nil {
			for _, c := range v.Me.Hand {
				if c.ID == pending.CardID && c.IsAttack {
					m.set(AttackTargetSelection{
						CardID:  c.ID,
						Damage:  c.Damage,
						Targets: v.AttackTargets,
						Origin:  OriginPendingCard,
					})
					return
				}
			}
		}
	}

	if v.GameOver && !m.gameOver {
		m.gameOver = true
		winner := ""
		if v.Winner != nil {
			winner = v.Winner.Username
		}
		m.publish(notify.LevelInfo, notify.KeyGameOver, winner)
		if m.current.Kind() != KindNone {
			m.clear()
			changed = true
		}
	}

	if changed {
		m.broadcast()
	}
}

func (m *Machine) handDamage(cardID protocol.ID) int {
	if m.view == nil || m.view.Me == nil {
		return 0
	}
	for _, c := range m.view.Me.Hand {
		if c.ID == cardID {
			return c.Damage
		}
	}
	return 0
}

func (m *Machine) decode(event string, data json.RawMessage, into any) bool {
	if err := json.Unmarshal(data, into); err != nil {
		m.logger.Warn("bad payload", zap.String("event", event), zap.Error(err))
		return false
	}
	return true
}

// set replaces the current interaction (latest wins) and restarts its timer.
func (m *Machine) set(i Interaction) {
	m.stopTimer()
	m.current = i
	if m.policy.applies(i.Kind()) {
		gen := m.gen
		m.timer = time.AfterFunc(m.policy.After, func() {
			m.send(timerMsg{gen: gen})
		})
	}
	m.logger.Debug("prompt", zap.String("kind", string(i.Kind())))
	m.broadcast()
}

func (m *Machine) clear() {
	m.stopTimer()
	m.current = None{}
}

func (m *Machine) stopTimer() {
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Machine) resolve(res Resolution) error {
	cmd, err := m.commandFor(res)
	if err != nil {
		return err
	}
	m.clear()
	m.submit(cmd)
	m.broadcast()
	return nil
}

func (m *Machine) commandFor(res Resolution) (dispatch.Command, error) {
	switch cur := m.current.(type) {
	case None:
		return nil, ErrNoPendingInteraction

	case AttackTargetSelection:
		r, ok := res.(ChooseTarget)
		if !ok {
			return nil, fmt.Errorf("%w: %T for %s", ErrInvalidResolution, res, cur.Kind())
		}
		if !slices.Contains(cur.Targets, r.OpponentID) {
			return nil, fmt.Errorf("%w: %s is not a candidate target", ErrInvalidResolution, r.OpponentID)
		}
		if cur.Origin == OriginAttackMove {
			return dispatch.Attack{CardID: cur.CardID, OpponentID: r.OpponentID, Damage: cur.Damage}, nil
		}
		return dispatch.ChooseAttackTarget{OpponentID: r.OpponentID}, nil

	case DefenseResponse:
		r, ok := res.(Defend)
		if !ok {
			return nil, fmt.Errorf("%w: %T for %s", ErrInvalidResolution, res, cur.Kind())
		}
		if r.CardID != nil && !m.inHand(*r.CardID) {
			return nil, fmt.Errorf("%w: card %s is not in hand", ErrInvalidResolution, *r.CardID)
		}
		return dispatch.ResolveDefense{CardID: r.CardID}, nil

	case DiscardDestruction:
		r, ok := res.(Destroy)
		if !ok {
			return nil, fmt.Errorf("%w: %T for %s", ErrInvalidResolution, res, cur.Kind())
		}
		if r.CardID != nil && !slices.ContainsFunc(cur.Candidates, func(c protocol.Card) bool { return c.ID == *r.CardID }) {
			return nil, fmt.Errorf("%w: card %s is not a candidate", ErrInvalidResolution, *r.CardID)
		}
		return dispatch.DestroyCard{CardID: r.CardID}, nil

	case TopDeckChoice:
		r, ok := res.(ChooseTopDeck)
		if !ok {
			return nil, fmt.Errorf("%w: %T for %s", ErrInvalidResolution, res, cur.Kind())
		}
		if !cur.allows(r.Action) {
			return nil, fmt.Errorf("%w: action %q not offered", ErrInvalidResolution, r.Action)
		}
		return dispatch.TopDeckSelection{CardID: cur.cardID(), Action: r.Action}, nil
	}
	return nil, ErrInvalidResolution
}

// inHand is permissive until a snapshot has arrived; the server has the
// final word either way.
func (m *Machine) inHand(id protocol.ID) bool {
	if m.view == nil || m.view.Me == nil {
		return true
	}
	return slices.ContainsFunc(m.view.Me.Hand, func(c protocol.Card) bool { return c.ID == id })
}

func (m *Machine) cancelPrompt() error {
	switch cur := m.current.(type) {
	case None:
		return ErrNoPendingInteraction
	case AttackTargetSelection:
		m.clear()
		m.submit(dispatch.CancelAttackTarget{})
		m.broadcast()
		return nil
	case TopDeckChoice:
		if len(cur.Actions) > 0 {
			return fmt.Errorf("%w: choose one of %v", ErrInvalidResolution, cur.Actions)
		}
		m.clear()
		m.broadcast()
		return nil
	default:
		return fmt.Errorf("%w: %s cannot be cancelled", ErrInvalidResolution, cur.Kind())
	}
}

// expire answers the current prompt with its neutral choice.
func (m *Machine) expire() {
	var cmd dispatch.Command
	switch cur := m.current.(type) {
	case AttackTargetSelection:
		cmd = dispatch.CancelAttackTarget{}
	case DefenseResponse:
		cmd = dispatch.ResolveDefense{}
	case DiscardDestruction:
		cmd = dispatch.DestroyCard{}
	case TopDeckChoice:
		if cur.allows(protocol.ActionReturn) {
			cmd = dispatch.TopDeckSelection{CardID: cur.cardID(), Action: protocol.ActionReturn}
		}
	}

	kind := m.current.Kind()
	m.logger.Info("prompt timed out", zap.String("kind", string(kind)))
	m.publish(notify.LevelWarn, notify.KeyPromptTimedOut, string(kind))
	m.clear()
	if cmd != nil {
		m.submit(cmd)
	}
	m.broadcast()
}

func (m *Machine) submit(cmd dispatch.Command) {
	if m.submitter == nil {
		return
	}
	scope := m.scope
	go func() {
		if err := m.submitter.Submit(m.ctx, scope, cmd); err != nil {
			m.logger.Debug("submit failed", zap.String("command", cmd.Name()), zap.Error(err))
		}
	}()
}

func (m *Machine) publish(level notify.Level, key string, args ...any) {
	if m.feed != nil {
		m.feed.Publish(level, key, args...)
	}
}

func (m *Machine) status() Status {
	return Status{
		Seq:         m.seq,
		Armed:       m.armed,
		Interaction: m.current,
		Waiting:     append([]reconcile.InFlight(nil), m.waiting...),
	}
}

func (m *Machine) broadcast() {
	m.seq++
	st := m.status()
	for id, ch := range m.observers {
		select {
		case ch <- st:
		default:
			close(ch)
			delete(m.observers, id)
		}
	}
}
