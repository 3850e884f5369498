package protocol

type MoveType string

const (
	MovePlayCard MoveType = "play-card"
	MoveAttack   MoveType = "attack"
	MoveBuyCard  MoveType = "buy-card"
	MoveEndTurn  MoveType = "end-turn"
)

type Move struct {
	Type        MoveType `json:"type"`
	CardID      *ID      `json:"cardId,omitempty"`
	OpponentID  *ID      `json:"opponentId,omitempty"`
	Damage      int      `json:"damage,omitempty"`
	IsLegendary bool     `json:"isLegendary,omitempty"`
}

type TopDeckAction string

const (
	ActionTake   TopDeckAction = "take"
	ActionRemove TopDeckAction = "remove"
	ActionDraw   TopDeckAction = "draw"
	ActionReturn TopDeckAction = "return"
)

func (a TopDeckAction) Valid() bool {
	switch a {
	case ActionTake, ActionRemove, ActionDraw, ActionReturn:
		return true
	}
	return false
}

// Socket payloads.

type JoinGame struct {
	GameID   ID `json:"gameId"`
	PlayerID ID `json:"playerId"`
}

type JoinLobby struct {
	LobbyID ID `json:"lobbyId"`
}

type MoveEcho struct {
	GameID ID   `json:"gameId"`
	UserID ID   `json:"userId"`
	Move   Move `json:"move"`
}

// HTTP request bodies.

type MoveRequest struct {
	GameID ID   `json:"gameId"`
	Move   Move `json:"move"`
}

type ResolveAttackTargetRequest struct {
	PlayerID   ID `json:"playerId"`
	OpponentID ID `json:"opponentId"`
}

type CancelAttackTargetRequest struct {
	PlayerID ID `json:"playerId"`
}

// ResolveDefenseRequest skips the defense when DefenseCardID is nil.
type ResolveDefenseRequest struct {
	OpponentID    ID  `json:"opponentId"`
	DefenseCardID *ID `json:"defenseCardId,omitempty"`
}

// DestroyCardRequest declines the destruction when CardID is nil.
type DestroyCardRequest struct {
	PlayerID ID  `json:"playerId"`
	CardID   *ID `json:"cardId,omitempty"`
}

type TopDeckSelectionRequest struct {
	PlayerID ID            `json:"playerId"`
	CardID   ID            `json:"cardId"`
	Action   TopDeckAction `json:"action"`
}

type CreateGameRequest struct {
	InvitationID ID `json:"invitationId"`
}

type SetReadyRequest struct {
	UserID ID `json:"userId"`
}
