package reconcile

import (
	"github.com/DoyleJ11/krutagidon-client/internal/protocol"
)

// PlayerView is one seat as the local player is allowed to see it. Hand
// cards are only filled in for the local player; deck order is never shown.
type PlayerView struct {
	ID              protocol.ID     `json:"id"`
	Username        string          `json:"username"`
	Health          int             `json:"health"`
	MaxHealth       int             `json:"maxHealth"`
	Power           int             `json:"power"`
	DeadWizardCount int             `json:"deadWizardCount"`
	KrutagidonCups  int             `json:"krutagidonCups"`
	Alive           bool            `json:"alive"`
	IsMe            bool            `json:"isMe"`
	Hand            []protocol.Card `json:"hand,omitempty"`
	HandCount       int             `json:"handCount"`
	DeckCount       int             `json:"deckCount"`
	DiscardCount    int             `json:"discardCount"`
	Discard         []protocol.Card `json:"discard"`
	PlayArea        []protocol.Card `json:"playArea"`
	Familiar        *protocol.Card  `json:"familiar,omitempty"`
}

// View is everything the display needs, derived from one snapshot.
type View struct {
	Turn                 int                       `json:"turn"`
	Status               protocol.GameStatus       `json:"status,omitempty"`
	CurrentPlayer        protocol.ID               `json:"currentPlayer"`
	IsMyTurn             bool                      `json:"isMyTurn"`
	Me                   *PlayerView               `json:"me,omitempty"`
	Players              []PlayerView              `json:"players"`
	Marketplace          []protocol.Card           `json:"marketplace"`
	LegendaryMarketplace []protocol.Card           `json:"legendaryMarketplace"`
	StrayMagicCount      int                       `json:"strayMagicCount"`
	AttackTargets        []protocol.ID             `json:"attackTargets"`
	DefenseCards         []protocol.Card           `json:"defenseCards"`
	PendingPlayCard      *protocol.PendingPlayCard `json:"pendingPlayCard,omitempty"`
	GameOver             bool                      `json:"gameOver"`
	Winner               *PlayerView               `json:"winner,omitempty"`
}

// Derive is a pure function of the snapshot and the local player: the same
// inputs always give an equal View.
func Derive(s protocol.Snapshot, me protocol.ID) View {
	v := View{
		Turn:                 s.Turn,
		Status:               s.Status,
		CurrentPlayer:        s.CurrentPlayer,
		IsMyTurn:             !me.IsZero() && s.CurrentPlayer == me,
		Players:              make([]PlayerView, 0, len(s.Players)),
		Marketplace:          cloneCards(s.Marketplace),
		LegendaryMarketplace: cloneCards(s.LegendaryMarketplace),
		StrayMagicCount:      len(s.StrayMagicDeck),
		AttackTargets:        AttackTargets(s, me),
		GameOver:             s.GameOver,
	}
	if s.PendingPlayCard != nil {
		p := *s.PendingPlayCard
		v.PendingPlayCard = &p
	}

	for _, p := range s.Players {
		pv := playerView(p, p.ID == me)
		v.Players = append(v.Players, pv)
		if pv.IsMe {
			mine := pv
			v.Me = &mine
			for _, c := range p.Hand {
				if c.IsDefense {
					v.DefenseCards = append(v.DefenseCards, c)
				}
			}
		}
	}

	if s.Winner != nil {
		w := playerView(*s.Winner, s.Winner.ID == me)
		v.Winner = &w
	}
	return v
}

// AttackTargets lists the living players other than me, in seat order.
func AttackTargets(s protocol.Snapshot, me protocol.ID) []protocol.ID {
	var out []protocol.ID
	for _, p := range s.Players {
		if p.ID != me && p.Alive() {
			out = append(out, p.ID)
		}
	}
	return out
}

func playerView(p protocol.Player, isMe bool) PlayerView {
	pv := PlayerView{
		ID:              p.ID,
		Username:        p.Username,
		Health:          p.Health,
		MaxHealth:       p.MaxHealth,
		Power:           p.Power,
		DeadWizardCount: p.DeadWizardCount,
		KrutagidonCups:  p.KrutagidonCups,
		Alive:           p.Alive(),
		IsMe:            isMe,
		HandCount:       len(p.Hand),
		DeckCount:       len(p.Deck),
		DiscardCount:    len(p.Discard),
		Discard:         cloneCards(p.Discard),
		PlayArea:        cloneCards(p.PlayArea),
	}
	if isMe {
		pv.Hand = cloneCards(p.Hand)
	}
	if p.Familiar != nil {
		f := *p.Familiar
		pv.Familiar = &f
	}
	return pv
}

func cloneCards(cards []protocol.Card) []protocol.Card {
	if cards == nil {
		return nil
	}
	out := make([]protocol.Card, len(cards))
	copy(out, cards)
	return out
}
