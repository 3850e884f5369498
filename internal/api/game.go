package api

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/DoyleJ11/krutagidon-client/internal/protocol"
)

func gamePath(gameID protocol.ID, action string) string {
	return "/game/" + url.PathEscape(gameID.String()) + "/" + action
}

// FetchGame returns the game with its current snapshot.
func (c *Client) FetchGame(ctx context.Context, gameID protocol.ID) (protocol.Game, error) {
	return getJSON[protocol.Game](ctx, c, "/game/"+url.PathEscape(gameID.String()))
}

func (c *Client) CreateGame(ctx context.Context, invitationID protocol.ID) (protocol.Game, error) {
	return postJSON[protocol.Game](ctx, c, "/game/create", protocol.CreateGameRequest{InvitationID: invitationID})
}

// MakeMove posts a move. The answer is not a snapshot; the next gameUpdate is.
func (c *Client) MakeMove(ctx context.Context, gameID protocol.ID, move protocol.Move) error {
	_, err := postJSON[json.RawMessage](ctx, c, "/game/move", protocol.MoveRequest{GameID: gameID, Move: move})
	return err
}

func (c *Client) ResolveAttackTarget(ctx context.Context, gameID, playerID, opponentID protocol.ID) error {
	_, err := postJSON[json.RawMessage](ctx, c, gamePath(gameID, "resolveAttackTarget"),
		protocol.ResolveAttackTargetRequest{PlayerID: playerID, OpponentID: opponentID})
	return err
}

func (c *Client) CancelAttackTargetSelection(ctx context.Context, gameID, playerID protocol.ID) error {
	_, err := postJSON[json.RawMessage](ctx, c, gamePath(gameID, "cancelAttackTargetSelection"),
		protocol.CancelAttackTargetRequest{PlayerID: playerID})
	return err
}

// ResolveDefense answers a defenseRequired. A nil card skips the defense.
func (c *Client) ResolveDefense(ctx context.Context, gameID, opponentID protocol.ID, cardID *protocol.ID) error {
	_, err := postJSON[json.RawMessage](ctx, c, gamePath(gameID, "resolve-defense"),
		protocol.ResolveDefenseRequest{OpponentID: opponentID, DefenseCardID: cardID})
	return err
}

// DestroyCard answers a discard destruction prompt. A nil card declines.
func (c *Client) DestroyCard(ctx context.Context, gameID, playerID protocol.ID, cardID *protocol.ID) error {
	_, err := postJSON[json.RawMessage](ctx, c, gamePath(gameID, "destroyCard"),
		protocol.DestroyCardRequest{PlayerID: playerID, CardID: cardID})
	return err
}

func (c *Client) TopDeckSelection(ctx context.Context, gameID protocol.ID, req protocol.TopDeckSelectionRequest) error {
	_, err := postJSON[json.RawMessage](ctx, c, gamePath(gameID, "topDeckSelection"), req)
	return err
}

// FetchSelectionOptions returns the pre-game draft offer for a player.
func (c *Client) FetchSelectionOptions(ctx context.Context, gameID, playerID protocol.ID) (protocol.SelectionOptions, error) {
	return getJSON[protocol.SelectionOptions](ctx, c, gamePath(gameID, "selection-options/"+url.PathEscape(playerID.String())))
}
