package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/krutagidon-client/internal/dispatch"
	"github.com/DoyleJ11/krutagidon-client/internal/notify"
	"github.com/DoyleJ11/krutagidon-client/internal/protocol"
	"github.com/DoyleJ11/krutagidon-client/internal/reconcile"
	"github.com/DoyleJ11/krutagidon-client/internal/transport/transporttest"
)

type submitted struct {
	Scope   dispatch.Scope
	Command dispatch.Command
}

type fakeSubmitter struct {
	out chan submitted
	// err is returned from every Submit; set it before the command is sent.
	err error
}

func (f *fakeSubmitter) Submit(_ context.Context, scope dispatch.Scope, cmd dispatch.Command) error {
	f.out <- submitted{Scope: scope, Command: cmd}
	return f.err
}

var scope = dispatch.Scope{GameID: "42", PlayerID: "7"}

type rig struct {
	m    *Machine
	sock *transporttest.Fake
	sub  *fakeSubmitter
	feed *notify.Feed
	obs  chan Status
}

func newRig(t *testing.T, policy TimeoutPolicy) *rig {
	t.Helper()
	r := &rig{
		sock: transporttest.New(),
		sub:  &fakeSubmitter{out: make(chan submitted, 16)},
		feed: notify.NewFeed("en", time.Minute, nil),
		obs:  make(chan Status, 32),
	}
	r.m = New(context.Background(), r.sub, r.feed, policy, nil)
	t.Cleanup(r.m.Shutdown)

	r.m.Join("test", r.obs)
	recvStatus(t, r.obs) // initial
	r.m.Arm(r.sock, scope)
	st := recvStatus(t, r.obs)
	require.True(t, st.Armed)
	return r
}

// noTimeouts keeps prompts open until the test answers them.
func noTimeouts() TimeoutPolicy { return TimeoutPolicy{} }

func recvStatus(t *testing.T, ch <-chan Status) Status {
	t.Helper()
	select {
	case st, ok := <-ch:
		if !ok {
			t.Fatalf("observer channel closed")
		}
		return st
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for status")
	}
	return Status{}
}

func recvNoStatus(t *testing.T, ch <-chan Status, wait time.Duration) {
	t.Helper()
	select {
	case st := <-ch:
		t.Fatalf("unexpected status: kind=%s seq=%d", st.Kind(), st.Seq)
	case <-time.After(wait):
	}
}

func recvCommand(t *testing.T, ch <-chan submitted) submitted {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for a command")
	}
	return submitted{}
}

func recvNoCommand(t *testing.T, ch <-chan submitted, wait time.Duration) {
	t.Helper()
	select {
	case s := <-ch:
		t.Fatalf("unexpected command %s", s.Command.Name())
	case <-time.After(wait):
	}
}

// settle waits until every message sent so far has been handled.
func (r *rig) settle(t *testing.T) Status {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	st, err := r.m.Status(ctx)
	require.NoError(t, err)
	return st
}

func snapshotWithPending(pending *protocol.PendingPlayCard) protocol.Snapshot {
	return protocol.Snapshot{
		Turn:          3,
		CurrentPlayer: "7",
		Status:        protocol.StatusActive,
		Players: []protocol.Player{
			{ID: "2", Username: "ann", Health: 20},
			{ID: "3", Username: "bob", Health: 12},
			{ID: "7", Username: "me", Health: 15, Hand: []protocol.Card{
				{ID: "101", Name: "Fireball", Damage: 5, IsAttack: true},
				{ID: "55", Name: "Ward", IsDefense: true},
			}},
		},
		PendingPlayCard: pending,
	}
}

func TestArm_SubscribesEachEventOnce(t *testing.T) {
	r := newRig(t, noTimeouts())
	r.settle(t)
	assert.Equal(t, len(promptEvents), r.sock.Handlers())

	r.m.Arm(r.sock, scope)
	r.settle(t)
	assert.Equal(t, len(promptEvents), r.sock.Handlers(), "re-arming must not stack handlers")

	r.m.Disarm()
	assert.Equal(t, 0, r.sock.Handlers())
	assert.False(t, r.settle(t).Armed)
}

func TestScenarioA_AttackTargetRequired(t *testing.T) {
	r := newRig(t, noTimeouts())

	r.sock.Deliver(protocol.EvtAttackTargetRequired, `{"playerId":"7","data":{"cardId":101,"targets":[2,3]}}`)
	st := recvStatus(t, r.obs)
	require.Equal(t, KindAttackTarget, st.Kind())
	sel := st.Interaction.(AttackTargetSelection)
	assert.Equal(t, protocol.ID("101"), sel.CardID)
	assert.Equal(t, []protocol.ID{"2", "3"}, sel.Targets)
	assert.Equal(t, OriginTargetRequest, sel.Origin)

	require.NoError(t, r.m.Resolve(context.Background(), ChooseTarget{OpponentID: "3"}))
	assert.Equal(t, KindNone, recvStatus(t, r.obs).Kind())

	got := recvCommand(t, r.sub.out)
	assert.Equal(t, dispatch.ChooseAttackTarget{OpponentID: "3"}, got.Command)
	assert.Equal(t, scope, got.Scope)
}

func TestFailedSubmitDoesNotRearm(t *testing.T) {
	r := newRig(t, noTimeouts())
	r.sub.err = errors.New("409 not your turn")

	r.sock.Deliver(protocol.EvtAttackTargetRequired, `{"playerId":"7","data":{"cardId":101,"targets":[2,3]}}`)
	require.Equal(t, KindAttackTarget, recvStatus(t, r.obs).Kind())

	require.NoError(t, r.m.Resolve(context.Background(), ChooseTarget{OpponentID: "3"}))
	assert.Equal(t, KindNone, recvStatus(t, r.obs).Kind())
	assert.Equal(t, dispatch.ChooseAttackTarget{OpponentID: "3"}, recvCommand(t, r.sub.out).Command)

	recvNoStatus(t, r.obs, 50*time.Millisecond)
	assert.Equal(t, KindNone, r.settle(t).Kind())
}

func TestScenarioB_DefenseSkip(t *testing.T) {
	r := newRig(t, noTimeouts())

	r.sock.Deliver(protocol.EvtDefenseRequired, `{"attackData":{"attackerId":2,"opponentId":7,"cardId":55,"damage":4}}`)
	st := recvStatus(t, r.obs)
	require.Equal(t, KindDefense, st.Kind())
	assert.Equal(t, DefenseResponse{AttackerID: "2", OpponentID: "7", CardID: "55", Damage: 4}, st.Interaction)

	require.NoError(t, r.m.Resolve(context.Background(), Defend{}))
	assert.Equal(t, KindNone, recvStatus(t, r.obs).Kind())
	assert.Equal(t, dispatch.ResolveDefense{}, recvCommand(t, r.sub.out).Command)
}

func TestScenarioC_DiscardTimesOutToSkip(t *testing.T) {
	policy := DefaultTimeoutPolicy()
	policy.After = 30 * time.Millisecond
	r := newRig(t, policy)

	r.sock.Deliver(protocol.EvtSelectionRequired,
		`{"playerId":"7","data":{"type":"destroyCardFromDiscard","cards":[{"id":9,"name":"a"},{"id":10,"name":"b"}]}}`)
	st := recvStatus(t, r.obs)
	require.Equal(t, KindDiscardDestruction, st.Kind())
	assert.Len(t, st.Interaction.(DiscardDestruction).Candidates, 2)

	assert.Equal(t, dispatch.DestroyCard{}, recvCommand(t, r.sub.out).Command)
	assert.Equal(t, KindNone, recvStatus(t, r.obs).Kind())

	n, ok := r.feed.Latest()
	require.True(t, ok)
	assert.Equal(t, notify.KeyPromptTimedOut, n.Key)
}

func TestScenarioD_BootstrapFromPendingCard(t *testing.T) {
	r := newRig(t, noTimeouts())

	snap := snapshotWithPending(&protocol.PendingPlayCard{PlayerID: "7", CardID: "101"})
	r.m.SnapshotApplied(reconcile.Derive(snap, "7"))

	st := recvStatus(t, r.obs)
	require.Equal(t, KindAttackTarget, st.Kind())
	assert.Equal(t, AttackTargetSelection{
		CardID:  "101",
		Damage:  5,
		Targets: []protocol.ID{"2", "3"},
		Origin:  OriginPendingCard,
	}, st.Interaction)

	// Only the first snapshot after arming bootstraps.
	require.NoError(t, r.m.Cancel(context.Background()))
	recvStatus(t, r.obs)
	recvCommand(t, r.sub.out)
	r.m.SnapshotApplied(reconcile.Derive(snap, "7"))
	recvNoStatus(t, r.obs, 50*time.Millisecond)

	r.m.Rebootstrap()
	r.m.SnapshotApplied(reconcile.Derive(snap, "7"))
	assert.Equal(t, KindAttackTarget, recvStatus(t, r.obs).Kind())
}

func TestBootstrap_IgnoresOtherPlayersAndNonAttackCards(t *testing.T) {
	cases := []struct {
		name    string
		pending *protocol.PendingPlayCard
	}{
		{"no pending card", nil},
		{"someone else's card", &protocol.PendingPlayCard{PlayerID: "2", CardID: "101"}},
		{"defense card", &protocol.PendingPlayCard{PlayerID: "7", CardID: "55"}},
		{"card not in hand", &protocol.PendingPlayCard{PlayerID: "7", CardID: "999"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRig(t, noTimeouts())
			r.m.SnapshotApplied(reconcile.Derive(snapshotWithPending(tc.pending), "7"))
			assert.Equal(t, KindNone, r.settle(t).Kind())
		})
	}
}

func TestPendingCardPromptClosesWhenSnapshotClearsIt(t *testing.T) {
	r := newRig(t, noTimeouts())
	r.m.SnapshotApplied(reconcile.Derive(snapshotWithPending(&protocol.PendingPlayCard{PlayerID: "7", CardID: "101"}), "7"))
	require.Equal(t, KindAttackTarget, recvStatus(t, r.obs).Kind())

	r.m.SnapshotApplied(reconcile.Derive(snapshotWithPending(nil), "7"))
	assert.Equal(t, KindNone, recvStatus(t, r.obs).Kind())
	recvNoCommand(t, r.sub.out, 30*time.Millisecond)
}

func TestAttackRequired_ResolvesWithAttackMove(t *testing.T) {
	r := newRig(t, noTimeouts())

	r.sock.Deliver(protocol.EvtAttackRequired, `{"playerId":7,"data":{"cardId":101,"damage":6,"targets":[2,3]}}`)
	require.Equal(t, KindAttackTarget, recvStatus(t, r.obs).Kind())

	require.NoError(t, r.m.Resolve(context.Background(), ChooseTarget{OpponentID: "2"}))
	recvStatus(t, r.obs)
	assert.Equal(t, dispatch.Attack{CardID: "101", OpponentID: "2", Damage: 6}, recvCommand(t, r.sub.out).Command)
}

func TestAttackTargetRequired_TakesDamageFromHand(t *testing.T) {
	r := newRig(t, noTimeouts())
	r.m.SnapshotApplied(reconcile.Derive(snapshotWithPending(nil), "7"))

	r.sock.Deliver(protocol.EvtAttackTargetRequired, `{"playerId":"7","data":{"cardId":101,"targets":[2]}}`)
	st := recvStatus(t, r.obs)
	assert.Equal(t, 5, st.Interaction.(AttackTargetSelection).Damage)
}

func TestEventsForOthersOnlyNotify(t *testing.T) {
	cases := []struct {
		name  string
		event string
		data  string
		key   string
		text  string
	}{
		{"attack required", protocol.EvtAttackRequired, `{"playerId":"2","data":{"cardId":1,"damage":3,"targets":[7]}}`,
			notify.KeyOtherPlayerDeciding, "Player 2 is deciding."},
		{"defense required", protocol.EvtDefenseRequired, `{"attackData":{"attackerId":7,"opponentId":3,"cardId":1,"damage":3}}`,
			notify.KeyOtherPlayerDeciding, "Player 3 is deciding."},
		{"selection required", protocol.EvtSelectionRequired, `{"playerId":"3","data":{"type":"checkTopDeckCard","actions":["take","remove"]}}`,
			notify.KeyOtherPlayerDeciding, "Player 3 is deciding."},
		{"target notification", protocol.EvtAttackTargetNotification, `{"playerId":"2","cardId":1}`,
			notify.KeyAttackSelecting, "Player 2 is selecting an attack target."},
		{"attack notification", protocol.EvtAttackNotification, `{"attackerId":2,"opponentId":3,"cardId":1,"damage":4}`,
			notify.KeyAttackInProgress, "Player 2 is attacking Player 3 with 4 damage!"},
		{"selection updated", protocol.EvtSelectionUpdated, `{"playerId":"3"}`,
			notify.KeySelectionUpdated, "Player 3 made a selection."},
		{"legendary revealed", protocol.EvtLegendaryCardRevealed, `{"id":77,"name":"Krutagidon","cost":0}`,
			notify.KeyLegendaryRevealed, "Legendary card revealed: Krutagidon"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRig(t, noTimeouts())
			r.sock.Deliver(tc.event, tc.data)

			assert.Equal(t, KindNone, r.settle(t).Kind())
			recvNoStatus(t, r.obs, 20*time.Millisecond)
			n, ok := r.feed.Latest()
			require.True(t, ok)
			assert.Equal(t, tc.key, n.Key)
			assert.Equal(t, tc.text, n.Text)
		})
	}
}

func TestNotificationsAboutMeAreSilent(t *testing.T) {
	r := newRig(t, noTimeouts())
	r.sock.Deliver(protocol.EvtAttackNotification, `{"attackerId":7,"opponentId":3,"cardId":1,"damage":4}`)
	r.sock.Deliver(protocol.EvtAttackTargetNotification, `{"playerId":"7","cardId":1}`)
	r.settle(t)

	_, ok := r.feed.Latest()
	assert.False(t, ok)
}

func TestLatestEventReplacesPrompt(t *testing.T) {
	r := newRig(t, noTimeouts())

	r.sock.Deliver(protocol.EvtDefenseRequired, `{"attackData":{"attackerId":2,"opponentId":7,"cardId":55,"damage":4}}`)
	require.Equal(t, KindDefense, recvStatus(t, r.obs).Kind())

	r.sock.Deliver(protocol.EvtSelectionRequired, `{"playerId":"7","data":{"type":"drawOrReturn","card":{"id":9,"name":"x"},"actions":["draw","return"]}}`)
	st := recvStatus(t, r.obs)
	require.Equal(t, KindTopDeckChoice, st.Kind())

	err := r.m.Resolve(context.Background(), Defend{})
	assert.ErrorIs(t, err, ErrInvalidResolution)
	assert.Equal(t, KindTopDeckChoice, r.settle(t).Kind(), "a wrong answer leaves the prompt open")
}

func TestResolve_Validation(t *testing.T) {
	r := newRig(t, noTimeouts())

	err := r.m.Resolve(context.Background(), ChooseTarget{OpponentID: "3"})
	assert.ErrorIs(t, err, ErrNoPendingInteraction)

	r.sock.Deliver(protocol.EvtAttackTargetRequired, `{"playerId":"7","data":{"cardId":101,"targets":[2,3]}}`)
	recvStatus(t, r.obs)

	err = r.m.Resolve(context.Background(), ChooseTarget{OpponentID: "7"})
	assert.ErrorIs(t, err, ErrInvalidResolution)

	r.sock.Deliver(protocol.EvtSelectionRequired, `{"playerId":"7","data":{"type":"destroyCardFromDiscard","cards":[{"id":9,"name":"a"}]}}`)
	recvStatus(t, r.obs)
	err = r.m.Resolve(context.Background(), Destroy{CardID: protocol.ID("10").Ptr()})
	assert.ErrorIs(t, err, ErrInvalidResolution)

	require.NoError(t, r.m.Resolve(context.Background(), Destroy{CardID: protocol.ID("9").Ptr()}))
	assert.Equal(t, dispatch.DestroyCard{CardID: protocol.ID("9").Ptr()}, recvCommand(t, r.sub.out).Command)
	recvNoCommand(t, r.sub.out, 20*time.Millisecond)
}

func TestTopDeckChoice(t *testing.T) {
	r := newRig(t, noTimeouts())

	r.sock.Deliver(protocol.EvtSelectionRequired, `{"playerId":"7","data":{"type":"checkTopDeckCard","card":{"id":9,"name":"x"},"actions":["take","remove"]}}`)
	recvStatus(t, r.obs)

	assert.ErrorIs(t, r.m.Resolve(context.Background(), ChooseTopDeck{Action: protocol.ActionDraw}), ErrInvalidResolution)
	assert.ErrorIs(t, r.m.Cancel(context.Background()), ErrInvalidResolution)

	require.NoError(t, r.m.Resolve(context.Background(), ChooseTopDeck{Action: protocol.ActionRemove}))
	assert.Equal(t, dispatch.TopDeckSelection{CardID: "9", Action: protocol.ActionRemove}, recvCommand(t, r.sub.out).Command)
}

func TestTopDeckChoiceWithoutCardIsIgnored(t *testing.T) {
	r := newRig(t, TimeoutPolicy{After: 10 * time.Millisecond, Kinds: map[Kind]bool{KindTopDeckChoice: true}})

	r.sock.Deliver(protocol.EvtSelectionRequired, `{"playerId":"7","data":{"type":"drawOrReturn","actions":["draw","return"]}}`)
	assert.Equal(t, KindNone, r.settle(t).Kind())
	recvNoStatus(t, r.obs, 50*time.Millisecond)
	recvNoCommand(t, r.sub.out, 20*time.Millisecond)
}

func TestViewTopDeckIsDismissedLocally(t *testing.T) {
	r := newRig(t, noTimeouts())

	r.sock.Deliver(protocol.EvtSelectionRequired, `{"playerId":"7","data":{"type":"viewTopDeckCard","card":{"id":9,"name":"x"}}}`)
	require.Equal(t, KindTopDeckChoice, recvStatus(t, r.obs).Kind())

	require.NoError(t, r.m.Cancel(context.Background()))
	assert.Equal(t, KindNone, recvStatus(t, r.obs).Kind())
	recvNoCommand(t, r.sub.out, 30*time.Millisecond)
}

func TestCancelAttackTarget(t *testing.T) {
	r := newRig(t, noTimeouts())

	assert.ErrorIs(t, r.m.Cancel(context.Background()), ErrNoPendingInteraction)

	r.sock.Deliver(protocol.EvtAttackTargetRequired, `{"playerId":"7","data":{"cardId":101,"targets":[2]}}`)
	recvStatus(t, r.obs)
	require.NoError(t, r.m.Cancel(context.Background()))
	assert.Equal(t, KindNone, recvStatus(t, r.obs).Kind())
	assert.Equal(t, dispatch.CancelAttackTarget{}, recvCommand(t, r.sub.out).Command)

	r.sock.Deliver(protocol.EvtDefenseRequired, `{"attackData":{"attackerId":2,"opponentId":7,"cardId":55,"damage":4}}`)
	recvStatus(t, r.obs)
	assert.ErrorIs(t, r.m.Cancel(context.Background()), ErrInvalidResolution, "defense has no cancel")
}

func TestTimeoutDefaults(t *testing.T) {
	cases := []struct {
		name  string
		event string
		data  string
		want  dispatch.Command
	}{
		{"attack target", protocol.EvtAttackTargetRequired, `{"playerId":"7","data":{"cardId":101,"targets":[2]}}`,
			dispatch.CancelAttackTarget{}},
		{"defense", protocol.EvtDefenseRequired, `{"attackData":{"attackerId":2,"opponentId":7,"cardId":55,"damage":4}}`,
			dispatch.ResolveDefense{}},
		{"draw or return", protocol.EvtSelectionRequired, `{"playerId":"7","data":{"type":"drawOrReturn","card":{"id":9,"name":"x"},"actions":["draw","return"]}}`,
			dispatch.TopDeckSelection{CardID: "9", Action: protocol.ActionReturn}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			policy := DefaultTimeoutPolicy()
			policy.After = 20 * time.Millisecond
			r := newRig(t, policy)

			r.sock.Deliver(tc.event, tc.data)
			recvStatus(t, r.obs)
			assert.Equal(t, tc.want, recvCommand(t, r.sub.out).Command)
			assert.Equal(t, KindNone, recvStatus(t, r.obs).Kind())
		})
	}
}

func TestTimeout_TopDeckWithoutReturnClosesLocally(t *testing.T) {
	policy := DefaultTimeoutPolicy()
	policy.After = 20 * time.Millisecond
	r := newRig(t, policy)

	r.sock.Deliver(protocol.EvtSelectionRequired, `{"playerId":"7","data":{"type":"checkTopDeckCard","card":{"id":9,"name":"x"},"actions":["take","remove"]}}`)
	recvStatus(t, r.obs)
	assert.Equal(t, KindNone, recvStatus(t, r.obs).Kind())
	recvNoCommand(t, r.sub.out, 30*time.Millisecond)
}

func TestTimeout_AnsweredPromptDoesNotFire(t *testing.T) {
	policy := DefaultTimeoutPolicy()
	policy.After = 40 * time.Millisecond
	r := newRig(t, policy)

	r.sock.Deliver(protocol.EvtDefenseRequired, `{"attackData":{"attackerId":2,"opponentId":7,"cardId":55,"damage":4}}`)
	recvStatus(t, r.obs)
	require.NoError(t, r.m.Resolve(context.Background(), Defend{CardID: protocol.ID("55").Ptr()}))
	recvCommand(t, r.sub.out)

	recvNoCommand(t, r.sub.out, 100*time.Millisecond)
	_, ok := r.feed.Latest()
	assert.False(t, ok)
}

func TestTimeout_PolicyCanExcludeKinds(t *testing.T) {
	policy, unknown := PolicyFromConfig(20*time.Millisecond, []string{"defense", "bogus"})
	assert.Equal(t, []string{"bogus"}, unknown)
	r := newRig(t, policy)

	r.sock.Deliver(protocol.EvtAttackTargetRequired, `{"playerId":"7","data":{"cardId":101,"targets":[2]}}`)
	recvStatus(t, r.obs)
	recvNoCommand(t, r.sub.out, 80*time.Millisecond)
	assert.Equal(t, KindAttackTarget, r.settle(t).Kind())
}

func TestGameOverClearsPrompt(t *testing.T) {
	r := newRig(t, noTimeouts())
	r.sock.Deliver(protocol.EvtAttackTargetRequired, `{"playerId":"7","data":{"cardId":101,"targets":[2]}}`)
	recvStatus(t, r.obs)

	snap := snapshotWithPending(nil)
	snap.GameOver = true
	snap.Winner = &snap.Players[1]
	r.m.SnapshotApplied(reconcile.Derive(snap, "7"))

	assert.Equal(t, KindNone, recvStatus(t, r.obs).Kind())
	n, ok := r.feed.Latest()
	require.True(t, ok)
	assert.Equal(t, "Game over. Winner: bob", n.Text)
}

func TestWaitingIsBroadcast(t *testing.T) {
	r := newRig(t, noTimeouts())
	r.m.WaitingChanged([]reconcile.InFlight{{Ticket: 1, Command: "endTurn"}})

	st := recvStatus(t, r.obs)
	require.Len(t, st.Waiting, 1)
	assert.Equal(t, "endTurn", st.Waiting[0].Command)
}

func TestSlowObserverIsDropped(t *testing.T) {
	r := newRig(t, noTimeouts())
	slow := make(chan Status, 1)
	r.m.Join("slow", slow)

	for range 3 {
		r.m.WaitingChanged(nil)
	}
	r.settle(t)

	<-slow // initial status
	_, open := <-slow
	assert.False(t, open)
}

func TestDisarmedMachineIgnoresEvents(t *testing.T) {
	r := newRig(t, noTimeouts())
	h := r.sock
	r.m.Disarm()
	recvStatus(t, r.obs)

	assert.Equal(t, 0, h.Deliver(protocol.EvtAttackTargetRequired, `{"playerId":"7","data":{"cardId":101,"targets":[2]}}`))
	assert.Equal(t, KindNone, r.settle(t).Kind())
}

func TestStatusJSON(t *testing.T) {
	st := Status{Seq: 4, Armed: true, Interaction: DiscardDestruction{Candidates: []protocol.Card{{ID: "9", Name: "a"}}}}
	data, err := json.Marshal(st)
	require.NoError(t, err)
	assert.JSONEq(t, `{"seq":4,"armed":true,"kind":"discardDestruction","interaction":{"candidates":[{"id":9,"name":"a","cost":0}]},"waiting":[]}`, string(data))

	data, err = json.Marshal(Status{Interaction: None{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"seq":0,"armed":false,"kind":"none","waiting":[]}`, string(data))
}
