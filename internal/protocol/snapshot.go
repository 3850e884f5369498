package protocol

// Card is a value object. The client never mutates a card, it only sees it
// move between zones in successive snapshots.
type Card struct {
	ID          ID       `json:"id"`
	Name        string   `json:"name"`
	Type        string   `json:"type,omitempty"`
	Cost        int      `json:"cost"`
	Damage      int      `json:"damage,omitempty"`
	Effect      string   `json:"effect,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Properties  []string `json:"properties,omitempty"`
	IsAttack    bool     `json:"isAttack,omitempty"`
	IsDefense   bool     `json:"isDefense,omitempty"`
	IsPermanent bool     `json:"isPermanent,omitempty"`
}

type Player struct {
	ID                 ID     `json:"id"`
	UserID             ID     `json:"userId,omitempty"`
	Username           string `json:"username"`
	Hand               []Card `json:"hand"`
	Deck               []Card `json:"deck"`
	Discard            []Card `json:"discard"`
	PlayArea           []Card `json:"playArea"`
	Familiar           *Card  `json:"familiar,omitempty"`
	Health             int    `json:"health"`
	MaxHealth          int    `json:"maxHealth"`
	Power              int    `json:"power"`
	DeadWizardCount    int    `json:"deadWizardCount"`
	KrutagidonCups     int    `json:"krutagidonCups"`
	SelectionCompleted bool   `json:"selectionCompleted"`
}

func (p Player) Alive() bool { return p.Health > 0 }

// CardInHand looks a card up by id in the player's hand.
func (p Player) CardInHand(id ID) (Card, bool) {
	for _, c := range p.Hand {
		if c.ID == id {
			return c, true
		}
	}
	return Card{}, false
}

// PendingPlayCard marks a card the server is still resolving and which needs
// more input from its owner.
type PendingPlayCard struct {
	CardID   ID `json:"cardId"`
	PlayerID ID `json:"playerId"`
}

type GameStatus string

const (
	StatusPending  GameStatus = "pending"
	StatusActive   GameStatus = "active"
	StatusFinished GameStatus = "finished"
)

// Snapshot is the authoritative state of one game, replaced wholesale by
// every gameUpdate/moveMade push.
type Snapshot struct {
	Turn                 int              `json:"turn"`
	CurrentPlayer        ID               `json:"currentPlayer"`
	Status               GameStatus       `json:"status,omitempty"`
	Players              []Player         `json:"players"`
	Marketplace          []Card           `json:"currentMarketplace"`
	LegendaryMarketplace []Card           `json:"currentLegendaryMarketplace"`
	StrayMagicDeck       []Card           `json:"strayMagicDeck"`
	PendingPlayCard      *PendingPlayCard `json:"pendingPlayCard,omitempty"`
	GameOver             bool             `json:"gameOver"`
	Winner               *Player          `json:"winner,omitempty"`
}

func (s Snapshot) Player(id ID) (Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// PendingFor reports the pending play card if it belongs to playerID.
func (s Snapshot) PendingFor(playerID ID) (PendingPlayCard, bool) {
	if s.PendingPlayCard == nil || s.PendingPlayCard.PlayerID != playerID {
		return PendingPlayCard{}, false
	}
	return *s.PendingPlayCard, true
}

// Game is the GET /game/:id response.
type Game struct {
	ID        ID           `json:"id"`
	Players   []GameMember `json:"players"`
	GameState Snapshot     `json:"gameState"`
}

type GameMember struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
}

// Lobby is the lobbyUpdate payload and the GET /invitations/lobby/:id body.
type Lobby struct {
	Invitation Invitation    `json:"invitation"`
	Players    []LobbyMember `json:"players"`
}

type Invitation struct {
	ID     ID     `json:"id"`
	Token  string `json:"token,omitempty"`
	Status string `json:"status,omitempty"`
}

type LobbyMember struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
	Ready    bool   `json:"ready"`
}

// SelectionOptions is the pre-game draft offer for one player.
type SelectionOptions struct {
	Properties  []Card `json:"properties"`
	Familiars   []Card `json:"familiars"`
	PlayerAreas []Card `json:"playerAreas"`
}
