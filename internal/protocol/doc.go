// Package protocol holds the wire types shared with the game server.
//
// Push channel (websocket text frames, both directions):
//
//	{"event": "<name>", "data": <payload>}
//
// Server -> client:
//
//	gameUpdate, moveMade:      Snapshot
//	attackRequired:            {playerId, data: {cardId, damage, targets}}
//	attackTargetRequired:      {playerId, data: {cardId, targets}}
//	attackTargetNotification:  {playerId, cardId}
//	defenseRequired:           {gameId, attackData: {attackerId, opponentId, cardId, damage}}
//	attackNotification:        {attackerId, opponentId, cardId, damage}
//	selectionRequired:         {playerId, data: {type, cards?, card?, actions?}}
//	selectionUpdated:          {playerId, selection}
//	lobbyUpdate:               Lobby
//	gameStarted:               {gameId}
//	legendaryCardRevealed:     Card
//
// Client -> server:
//
//	joinGame:  {gameId, playerId}
//	joinLobby: {lobbyId}
//	makeMove:  {gameId, userId, move}
//
// Everything that changes game state goes over HTTP (see package api); the
// socket only carries joins and the makeMove echo.
package protocol
