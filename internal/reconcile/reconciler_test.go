package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/krutagidon-client/internal/protocol"
)

func snapshotFixture(t *testing.T) protocol.Snapshot {
	t.Helper()
	var s protocol.Snapshot
	require.NoError(t, json.Unmarshal([]byte(`{
		"turn": 5,
		"currentPlayer": 7,
		"status": "active",
		"players": [
			{"id": 7, "username": "ann", "health": 20,
			 "hand": [{"id": 101, "name": "Fireball", "isAttack": true, "damage": 4}, {"id": 102, "name": "Shield", "isDefense": true}],
			 "deck": [{"id": 1}, {"id": 2}], "discard": [{"id": 3}]},
			{"id": 3, "username": "bob", "health": 12, "hand": [{"id": 201}, {"id": 202}], "deck": [{"id": 4}]},
			{"id": 4, "username": "cat", "health": 0, "hand": []}
		],
		"currentMarketplace": [{"id": 501, "cost": 3}],
		"strayMagicDeck": [{"id": 601}, {"id": 602}],
		"pendingPlayCard": {"playerId": 7, "cardId": 101}
	}`), &s))
	return s
}

func TestDerive_RedactsOtherHands(t *testing.T) {
	v := Derive(snapshotFixture(t), "7")

	require.NotNil(t, v.Me)
	assert.Len(t, v.Me.Hand, 2)
	assert.True(t, v.IsMyTurn)

	require.Len(t, v.Players, 3)
	bob := v.Players[1]
	assert.False(t, bob.IsMe)
	assert.Nil(t, bob.Hand)
	assert.Equal(t, 2, bob.HandCount)
	assert.Equal(t, 1, bob.DeckCount)

	assert.Equal(t, 2, v.StrayMagicCount)
	assert.Equal(t, []protocol.ID{"3"}, v.AttackTargets, "dead players and me are not targets")
	require.Len(t, v.DefenseCards, 1)
	assert.Equal(t, protocol.ID("102"), v.DefenseCards[0].ID)
}

func TestDerive_Spectator(t *testing.T) {
	v := Derive(snapshotFixture(t), "99")
	assert.Nil(t, v.Me)
	assert.False(t, v.IsMyTurn)
	for _, p := range v.Players {
		assert.Nil(t, p.Hand)
	}
}

func TestApplySnapshot_IsIdempotent(t *testing.T) {
	r := New("7", nil)
	s := snapshotFixture(t)

	first := r.ApplySnapshot(s)
	second := r.ApplySnapshot(s)
	assert.Equal(t, first, second)

	got, ok := r.View()
	require.True(t, ok)
	assert.Equal(t, first, got)
	assert.Equal(t, uint64(2), r.Applied())
}

func TestApplyFetched_YieldsToNewerPush(t *testing.T) {
	r := New("7", nil)
	fetched := snapshotFixture(t)
	fetched.Turn = 1
	pushed := snapshotFixture(t)
	pushed.Turn = 5

	since := r.Applied()
	r.ApplySnapshot(pushed)
	_, ok := r.ApplyFetched(fetched, since)
	assert.False(t, ok)
	v, _ := r.View()
	assert.Equal(t, 5, v.Turn)

	v, ok = r.ApplyFetched(fetched, r.Applied())
	require.True(t, ok)
	assert.Equal(t, 1, v.Turn)
}

func TestApplySnapshot_IsSoleSourceOfState(t *testing.T) {
	r := New("7", nil)
	_, ok := r.View()
	assert.False(t, ok)

	before := r.ApplySnapshot(snapshotFixture(t))
	r.Begin("buyCard")
	after, _ := r.View()
	assert.Equal(t, before, after, "sending a command does not touch the view")

	next := snapshotFixture(t)
	next.Players[0].Health = 15
	v := r.ApplySnapshot(next)
	assert.Equal(t, 15, v.Me.Health)
}

func TestInFlight_ClearedBySnapshotOrFailure(t *testing.T) {
	r := New("7", nil)
	var waits [][]InFlight
	r.OnWaiting(func(w []InFlight) { waits = append(waits, w) })

	a := r.Begin("chooseAttackTarget")
	b := r.Begin("endTurn")
	require.Len(t, r.Waiting(), 2)

	r.Fail(a)
	require.Len(t, r.Waiting(), 1)
	assert.Equal(t, b, r.Waiting()[0].Ticket)

	r.ApplySnapshot(snapshotFixture(t))
	assert.Empty(t, r.Waiting())

	r.Fail(b)
	assert.Len(t, waits, 4, "begin, begin, fail, snapshot; failing a confirmed ticket is silent")
}

func TestOnApplied_ReceivesView(t *testing.T) {
	r := New("7", nil)
	var got []View
	r.OnApplied(func(v View) { got = append(got, v) })

	r.ApplySnapshot(snapshotFixture(t))
	require.Len(t, got, 1)
	require.NotNil(t, got[0].PendingPlayCard)
	assert.Equal(t, protocol.ID("101"), got[0].PendingPlayCard.CardID)
}

func TestReset_SwitchesLocalPlayer(t *testing.T) {
	r := New("7", nil)
	r.ApplySnapshot(snapshotFixture(t))
	r.Reset("3")

	_, ok := r.Snapshot()
	assert.False(t, ok)
	v := r.ApplySnapshot(snapshotFixture(t))
	require.NotNil(t, v.Me)
	assert.Equal(t, "bob", v.Me.Username)
	assert.False(t, v.IsMyTurn)
}
