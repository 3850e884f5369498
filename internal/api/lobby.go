package api

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/DoyleJ11/krutagidon-client/internal/protocol"
)

func (c *Client) FetchLobby(ctx context.Context, invitationID protocol.ID) (protocol.Lobby, error) {
	return getJSON[protocol.Lobby](ctx, c, "/game/lobby/"+url.PathEscape(invitationID.String()))
}

func (c *Client) CreateInvitation(ctx context.Context) (protocol.Invitation, error) {
	return postJSON[protocol.Invitation](ctx, c, "/invitations/create", struct{}{})
}

// JoinLobbyByToken redeems an invite link token.
func (c *Client) JoinLobbyByToken(ctx context.Context, token string) (protocol.Lobby, error) {
	return getJSON[protocol.Lobby](ctx, c, "/invitations/join-by-token?token="+url.QueryEscape(token))
}

func (c *Client) SetReady(ctx context.Context, invitationID, userID protocol.ID) error {
	_, err := postJSON[json.RawMessage](ctx, c, "/invitations/ready/"+url.PathEscape(invitationID.String()),
		protocol.SetReadyRequest{UserID: userID})
	return err
}
