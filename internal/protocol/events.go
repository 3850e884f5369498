package protocol

import "encoding/json"

// Push events (server -> client).
const (
	EvtGameUpdate               = "gameUpdate"
	EvtMoveMade                 = "moveMade"
	EvtAttackRequired           = "attackRequired"
	EvtAttackTargetRequired     = "attackTargetRequired"
	EvtAttackTargetNotification = "attackTargetNotification"
	EvtDefenseRequired          = "defenseRequired"
	EvtAttackNotification       = "attackNotification"
	EvtSelectionRequired        = "selectionRequired"
	EvtSelectionUpdated         = "selectionUpdated"
	EvtLobbyUpdate              = "lobbyUpdate"
	EvtGameStarted              = "gameStarted"
	EvtLegendaryCardRevealed    = "legendaryCardRevealed"
)

// Socket commands (client -> server).
const (
	CmdJoinGame  = "joinGame"
	CmdJoinLobby = "joinLobby"
	CmdMakeMove  = "makeMove"
)

// Envelope is one websocket text frame in either direction.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type AttackRequired struct {
	PlayerID ID `json:"playerId"`
	Data     struct {
		CardID  ID   `json:"cardId"`
		Damage  int  `json:"damage"`
		Targets []ID `json:"targets"`
	} `json:"data"`
}

type AttackTargetRequired struct {
	PlayerID ID `json:"playerId"`
	Data     struct {
		CardID  ID   `json:"cardId"`
		Targets []ID `json:"targets"`
	} `json:"data"`
}

type AttackTargetNotification struct {
	PlayerID ID `json:"playerId"`
	CardID   ID `json:"cardId"`
}

type AttackData struct {
	AttackerID ID  `json:"attackerId"`
	OpponentID ID  `json:"opponentId"`
	CardID     ID  `json:"cardId"`
	Damage     int `json:"damage"`
}

type DefenseRequired struct {
	GameID     ID         `json:"gameId,omitempty"`
	AttackData AttackData `json:"attackData"`
}

// AttackNotification is broadcast to everyone; its fields sit at the top level.
type AttackNotification = AttackData

type SelectionType string

const (
	SelectDestroyFromDiscard SelectionType = "destroyCardFromDiscard"
	SelectCheckTopDeck       SelectionType = "checkTopDeckCard"
	SelectDrawOrReturn       SelectionType = "drawOrReturn"
	SelectViewTopDeck        SelectionType = "viewTopDeckCard"
)

type SelectionData struct {
	Type    SelectionType   `json:"type"`
	Cards   []Card          `json:"cards,omitempty"`
	Card    *Card           `json:"card,omitempty"`
	Actions []TopDeckAction `json:"actions,omitempty"`
}

type SelectionRequired struct {
	PlayerID ID            `json:"playerId"`
	Data     SelectionData `json:"data"`
}

type SelectionUpdated struct {
	PlayerID  ID              `json:"playerId"`
	Selection json.RawMessage `json:"selection,omitempty"`
}

type GameStarted struct {
	GameID ID `json:"gameId"`
}
