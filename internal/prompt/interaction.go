package prompt

import (
	"github.com/DoyleJ11/krutagidon-client/internal/protocol"
)

type Kind string

const (
	KindNone               Kind = "none"
	KindAttackTarget       Kind = "attackTarget"
	KindDefense            Kind = "defense"
	KindDiscardDestruction Kind = "discardDestruction"
	KindTopDeckChoice      Kind = "topDeckChoice"
)

// Origin records which server signal produced an attack target prompt; it
// decides which command answers it and what closes it.
type Origin string

const (
	// OriginAttackMove came from attackRequired and is answered with an
	// attack move.
	OriginAttackMove Origin = "attackMove"
	// OriginTargetRequest came from attackTargetRequired.
	OriginTargetRequest Origin = "targetRequest"
	// OriginPendingCard was rebuilt from a snapshot's pendingPlayCard and
	// closes when a snapshot clears it.
	OriginPendingCard Origin = "pendingCard"
)

// Interaction is the one decision the local player owes the server.
type Interaction interface {
	Kind() Kind
	isInteraction()
}

type None struct{}

type AttackTargetSelection struct {
	CardID  protocol.ID   `json:"cardId"`
	Damage  int           `json:"damage"`
	Targets []protocol.ID `json:"targets"`
	Origin  Origin        `json:"origin"`
}

type DefenseResponse struct {
	AttackerID protocol.ID `json:"attackerId"`
	OpponentID protocol.ID `json:"opponentId"`
	CardID     protocol.ID `json:"cardId"`
	Damage     int         `json:"damage"`
}

type DiscardDestruction struct {
	Candidates []protocol.Card `json:"candidates"`
}

// TopDeckChoice shows the top card of the deck. With no actions it is only
// a reveal (viewTopDeckCard) and is closed locally.
type TopDeckChoice struct {
	SelectionType protocol.SelectionType   `json:"selectionType"`
	Card          *protocol.Card           `json:"card,omitempty"`
	Actions       []protocol.TopDeckAction `json:"actions"`
}

func (None) Kind() Kind                  { return KindNone }
func (AttackTargetSelection) Kind() Kind { return KindAttackTarget }
func (DefenseResponse) Kind() Kind       { return KindDefense }
func (DiscardDestruction) Kind() Kind    { return KindDiscardDestruction }
func (TopDeckChoice) Kind() Kind         { return KindTopDeckChoice }

func (None) isInteraction()                  {}
func (AttackTargetSelection) isInteraction() {}
func (DefenseResponse) isInteraction()       {}
func (DiscardDestruction) isInteraction()    {}
func (TopDeckChoice) isInteraction()         {}

func (c TopDeckChoice) allows(a protocol.TopDeckAction) bool {
	for _, x := range c.Actions {
		if x == a {
			return true
		}
	}
	return false
}

func (c TopDeckChoice) cardID() protocol.ID {
	if c.Card == nil {
		return ""
	}
	return c.Card.ID
}

// Resolution is the local player's answer to the active Interaction.
type Resolution interface {
	isResolution()
}

type ChooseTarget struct {
	OpponentID protocol.ID
}

// Defend plays CardID against the attack; nil takes the hit.
type Defend struct {
	CardID *protocol.ID
}

// Destroy removes CardID from the discard pile; nil declines.
type Destroy struct {
	CardID *protocol.ID
}

type ChooseTopDeck struct {
	Action protocol.TopDeckAction
}

func (ChooseTarget) isResolution()  {}
func (Defend) isResolution()        {}
func (Destroy) isResolution()       {}
func (ChooseTopDeck) isResolution() {}
