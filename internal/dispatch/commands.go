package dispatch

import (
	"context"
	"fmt"

	"github.com/DoyleJ11/krutagidon-client/internal/protocol"
)

// Command is one player decision bound for the server. The set is closed.
type Command interface {
	Name() string
	validate() error
	send(ctx context.Context, d *Dispatcher, scope Scope) error
}

// Attack resolves an attack card's move with a chosen opponent.
type Attack struct {
	CardID     protocol.ID
	OpponentID protocol.ID
	Damage     int
}

func (Attack) Name() string { return "attack" }

func (c Attack) validate() error {
	if c.CardID.IsZero() || c.OpponentID.IsZero() {
		return fmt.Errorf("%w: attack needs a card and an opponent", ErrInvalidCommand)
	}
	return nil
}

func (c Attack) send(ctx context.Context, d *Dispatcher, s Scope) error {
	return d.api.MakeMove(ctx, s.GameID, c.move())
}

func (c Attack) move() protocol.Move {
	return protocol.Move{Type: protocol.MoveAttack, CardID: c.CardID.Ptr(), OpponentID: c.OpponentID.Ptr(), Damage: c.Damage}
}

// ChooseAttackTarget answers attackTargetRequired.
type ChooseAttackTarget struct {
	OpponentID protocol.ID
}

func (ChooseAttackTarget) Name() string { return "chooseAttackTarget" }

func (c ChooseAttackTarget) validate() error {
	if c.OpponentID.IsZero() {
		return fmt.Errorf("%w: no opponent chosen", ErrInvalidCommand)
	}
	return nil
}

func (c ChooseAttackTarget) send(ctx context.Context, d *Dispatcher, s Scope) error {
	return d.api.ResolveAttackTarget(ctx, s.GameID, s.PlayerID, c.OpponentID)
}

// CancelAttackTarget backs out of target selection. The server decides what
// happens to the card.
type CancelAttackTarget struct{}

func (CancelAttackTarget) Name() string    { return "cancelAttackTarget" }
func (CancelAttackTarget) validate() error { return nil }

func (CancelAttackTarget) send(ctx context.Context, d *Dispatcher, s Scope) error {
	return d.api.CancelAttackTargetSelection(ctx, s.GameID, s.PlayerID)
}

// ResolveDefense answers defenseRequired. A nil CardID takes the hit.
type ResolveDefense struct {
	CardID *protocol.ID
}

func (ResolveDefense) Name() string    { return "resolveDefense" }
func (ResolveDefense) validate() error { return nil }

func (c ResolveDefense) send(ctx context.Context, d *Dispatcher, s Scope) error {
	return d.api.ResolveDefense(ctx, s.GameID, s.PlayerID, c.CardID)
}

// DestroyCard answers a discard destruction prompt. A nil CardID declines.
type DestroyCard struct {
	CardID *protocol.ID
}

func (DestroyCard) Name() string    { return "destroyCard" }
func (DestroyCard) validate() error { return nil }

func (c DestroyCard) send(ctx context.Context, d *Dispatcher, s Scope) error {
	return d.api.DestroyCard(ctx, s.GameID, s.PlayerID, c.CardID)
}

type TopDeckSelection struct {
	CardID protocol.ID
	Action protocol.TopDeckAction
}

func (TopDeckSelection) Name() string { return "topDeckSelection" }

func (c TopDeckSelection) validate() error {
	if c.CardID.IsZero() {
		return fmt.Errorf("%w: no top deck card", ErrInvalidCommand)
	}
	if !c.Action.Valid() {
		return fmt.Errorf("%w: unknown top deck action %q", ErrInvalidCommand, c.Action)
	}
	return nil
}

func (c TopDeckSelection) send(ctx context.Context, d *Dispatcher, s Scope) error {
	return d.api.TopDeckSelection(ctx, s.GameID, protocol.TopDeckSelectionRequest{
		PlayerID: s.PlayerID,
		CardID:   c.CardID,
		Action:   c.Action,
	})
}

type PlayCard struct {
	CardID protocol.ID
}

func (PlayCard) Name() string { return "playCard" }

func (c PlayCard) validate() error {
	if c.CardID.IsZero() {
		return fmt.Errorf("%w: no card to play", ErrInvalidCommand)
	}
	return nil
}

func (c PlayCard) send(ctx context.Context, d *Dispatcher, s Scope) error {
	return d.api.MakeMove(ctx, s.GameID, protocol.Move{Type: protocol.MovePlayCard, CardID: c.CardID.Ptr()})
}

type BuyCard struct {
	CardID    protocol.ID
	Legendary bool
}

func (BuyCard) Name() string { return "buyCard" }

func (c BuyCard) validate() error {
	if c.CardID.IsZero() {
		return fmt.Errorf("%w: no card to buy", ErrInvalidCommand)
	}
	return nil
}

func (c BuyCard) send(ctx context.Context, d *Dispatcher, s Scope) error {
	move := protocol.Move{Type: protocol.MoveBuyCard, CardID: c.CardID.Ptr(), IsLegendary: c.Legendary}
	if err := d.api.MakeMove(ctx, s.GameID, move); err != nil {
		return err
	}
	d.echo(s, move)
	return nil
}

type EndTurn struct{}

func (EndTurn) Name() string    { return "endTurn" }
func (EndTurn) validate() error { return nil }

func (EndTurn) send(ctx context.Context, d *Dispatcher, s Scope) error {
	move := protocol.Move{Type: protocol.MoveEndTurn}
	if err := d.api.MakeMove(ctx, s.GameID, move); err != nil {
		return err
	}
	d.echo(s, move)
	return nil
}
