// Package session owns the binding between the client and one game (or one
// lobby) on the server: which push events are subscribed, whether the prompt
// machine is armed, and which snapshot seeded the reconciler.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/krutagidon-client/internal/dispatch"
	"github.com/DoyleJ11/krutagidon-client/internal/protocol"
	"github.com/DoyleJ11/krutagidon-client/internal/reconcile"
	"github.com/DoyleJ11/krutagidon-client/internal/telemetry"
	"github.com/DoyleJ11/krutagidon-client/internal/transport"
)

var (
	ErrSnapshotUnavailable = errors.New("session: initial snapshot unavailable")
	ErrNotBound            = errors.New("session: not bound to a game")
	ErrBindCancelled       = errors.New("session: bind cancelled by a later unbind or bind")
)

type GameFetcher interface {
	FetchGame(ctx context.Context, gameID protocol.ID) (protocol.Game, error)
}

type Reconciler interface {
	ApplySnapshot(s protocol.Snapshot) reconcile.View
	ApplyFetched(s protocol.Snapshot, since uint64) (reconcile.View, bool)
	Applied() uint64
	Reset(me protocol.ID)
}

// Prompter is the part of prompt.Machine the binder drives.
type Prompter interface {
	Arm(sub transport.Subscriber, scope dispatch.Scope)
	Disarm()
	Rebootstrap()
}

// LobbyHandlers receive lobby pushes. They run on the transport's read
// goroutine; a handler that wants to bind to the started game must do so
// from another goroutine.
type LobbyHandlers struct {
	OnUpdate      func(protocol.Lobby)
	OnGameStarted func(protocol.GameStarted)
}

type Binder struct {
	t       transport.Transport
	games   GameFetcher
	rec     Reconciler
	prompts Prompter
	logger  *zap.Logger

	// Network calls never run under mu: connecting or fetching can end the
	// session, and the logout hooks call Unbind. attempt changes on every
	// bind start and every unbind; an I/O phase that finds it changed is
	// stale and commits nothing.
	mu       sync.Mutex
	game     *dispatch.Scope
	lobby    protocol.ID
	unsubs   []func()
	gen      uint64
	refs     int
	attempt  uint64
	lastBind uint64
}

func NewBinder(t transport.Transport, games GameFetcher, rec Reconciler, prompts Prompter, logger *zap.Logger) *Binder {
	return &Binder{
		t:       t,
		games:   games,
		rec:     rec,
		prompts: prompts,
		logger:  telemetry.OrNop(logger).Named("session"),
	}
}

// BindToGame makes (gameID, playerID) the active game. Binding the pair that
// is already active does nothing; any other binding is released first. If the
// initial snapshot cannot be fetched the binder is left unbound and the
// prompt machine is never armed.
func (b *Binder) BindToGame(ctx context.Context, gameID, playerID protocol.ID) error {
	_, err := b.bindGame(ctx, gameID, playerID, false)
	return err
}

func (b *Binder) bindGame(ctx context.Context, gameID, playerID protocol.ID, acquire bool) (uint64, error) {
	if gameID.IsZero() || playerID.IsZero() {
		return 0, errors.New("session: bind needs a game and a player")
	}

	b.mu.Lock()
	if b.game != nil && b.game.GameID == gameID && b.game.PlayerID == playerID {
		b.logger.Debug("already bound", zap.String("game_id", gameID.String()))
		if acquire {
			b.refs++
		}
		gen := b.gen
		b.mu.Unlock()
		return gen, nil
	}
	attempt := b.beginLocked()
	b.mu.Unlock()

	game, err := b.connectAndFetch(ctx, gameID)

	b.mu.Lock()
	defer b.mu.Unlock()
	if cerr := b.checkAttemptLocked(attempt); cerr != nil {
		if err != nil {
			return 0, fmt.Errorf("%w: %w", cerr, err)
		}
		return 0, cerr
	}
	if err != nil {
		if derr := b.t.Disconnect(); derr != nil {
			err = multierr.Append(err, derr)
		}
		return 0, err
	}

	// The fetched snapshot goes in before anything is subscribed or the room
	// is joined, so every push that follows is newer than it. Arming first
	// lets the prompt machine bootstrap from it.
	scope := dispatch.Scope{GameID: gameID, PlayerID: playerID}
	b.rec.Reset(playerID)
	b.prompts.Arm(b.t, scope)
	b.rec.ApplySnapshot(game.GameState)
	b.unsubs = append(b.unsubs,
		b.t.On(protocol.EvtGameUpdate, b.applySnapshot(protocol.EvtGameUpdate)),
		b.t.On(protocol.EvtMoveMade, b.applySnapshot(protocol.EvtMoveMade)),
	)
	b.t.Emit(protocol.CmdJoinGame, protocol.JoinGame{GameID: gameID, PlayerID: playerID})

	b.game = &scope
	b.gen++
	if acquire {
		b.refs = 1
	}
	b.logger.Info("bound to game", zap.String("game_id", gameID.String()), zap.String("player_id", playerID.String()))
	return b.gen, nil
}

func (b *Binder) connectAndFetch(ctx context.Context, gameID protocol.ID) (protocol.Game, error) {
	if err := b.t.Connect(ctx); err != nil {
		return protocol.Game{}, fmt.Errorf("session: connect: %w", err)
	}
	game, err := b.games.FetchGame(ctx, gameID)
	if err != nil {
		b.logger.Error("initial snapshot", zap.String("game_id", gameID.String()), zap.Error(err))
		return protocol.Game{}, fmt.Errorf("%w: %w", ErrSnapshotUnavailable, err)
	}
	return game, nil
}

// beginLocked releases the current binding and opens a new bind attempt.
func (b *Binder) beginLocked() uint64 {
	if err := b.unbindLocked(); err != nil {
		b.logger.Warn("unbind before rebind", zap.Error(err))
	}
	b.attempt++
	b.lastBind = b.attempt
	return b.attempt
}

// checkAttemptLocked reports whether the attempt was overtaken while its I/O
// ran. If the latest bind is still this one, an Unbind did it and the
// connection it opened is closed here.
func (b *Binder) checkAttemptLocked(attempt uint64) error {
	if b.attempt == attempt {
		return nil
	}
	if b.lastBind == attempt {
		if err := b.t.Disconnect(); err != nil {
			b.logger.Warn("disconnect after cancelled bind", zap.Error(err))
		}
	}
	b.logger.Info("bind cancelled")
	return ErrBindCancelled
}

func (b *Binder) applySnapshot(event string) transport.Handler {
	return func(data json.RawMessage) {
		var s protocol.Snapshot
		if err := json.Unmarshal(data, &s); err != nil {
			b.logger.Warn("bad snapshot", zap.String("event", event), zap.Error(err))
			return
		}
		b.rec.ApplySnapshot(s)
	}
}

// BindToLobby follows a lobby until the game starts. It replaces any game
// binding.
func (b *Binder) BindToLobby(ctx context.Context, lobbyID protocol.ID, h LobbyHandlers) error {
	if lobbyID.IsZero() {
		return errors.New("session: bind needs a lobby")
	}

	b.mu.Lock()
	if b.game == nil && b.lobby == lobbyID {
		b.mu.Unlock()
		return nil
	}
	attempt := b.beginLocked()
	b.mu.Unlock()

	connErr := b.t.Connect(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if cerr := b.checkAttemptLocked(attempt); cerr != nil {
		if connErr != nil {
			return fmt.Errorf("%w: %w", cerr, connErr)
		}
		return cerr
	}
	if connErr != nil {
		return fmt.Errorf("session: connect: %w", connErr)
	}

	b.unsubs = append(b.unsubs,
		b.t.On(protocol.EvtLobbyUpdate, func(data json.RawMessage) {
			var l protocol.Lobby
			if err := json.Unmarshal(data, &l); err != nil {
				b.logger.Warn("bad lobby update", zap.Error(err))
				return
			}
			if h.OnUpdate != nil {
				h.OnUpdate(l)
			}
		}),
		b.t.On(protocol.EvtGameStarted, func(data json.RawMessage) {
			var gs protocol.GameStarted
			if err := json.Unmarshal(data, &gs); err != nil {
				b.logger.Warn("bad gameStarted", zap.Error(err))
				return
			}
			if h.OnGameStarted != nil {
				h.OnGameStarted(gs)
			}
		}),
	)
	b.t.Emit(protocol.CmdJoinLobby, protocol.JoinLobby{LobbyID: lobbyID})
	b.lobby = lobbyID
	b.gen++
	b.logger.Info("bound to lobby", zap.String("lobby_id", lobbyID.String()))
	return nil
}

// Unbind drops every subscription, disarms the prompt machine, clears the
// reconciler and closes the transport. A bind still connecting or fetching
// is cancelled. It is safe to call when nothing is bound.
func (b *Binder) Unbind() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unbindLocked()
}

func (b *Binder) unbindLocked() error {
	b.attempt++
	if b.game == nil && b.lobby.IsZero() && len(b.unsubs) == 0 {
		return nil
	}
	for _, u := range b.unsubs {
		u()
	}
	b.unsubs = nil

	if b.game != nil {
		b.prompts.Disarm()
		b.rec.Reset("")
		b.logger.Info("unbound from game", zap.String("game_id", b.game.GameID.String()))
	}
	b.game = nil
	b.lobby = ""
	b.refs = 0
	b.gen++

	var err error
	if derr := b.t.Disconnect(); derr != nil {
		err = multierr.Append(err, fmt.Errorf("session: disconnect: %w", derr))
	}
	return err
}

// Acquire binds and hands back the matching release. Acquisitions of the
// same game are counted and the last release unbinds. Release is idempotent
// and does nothing once the binder has moved on to another binding.
func (b *Binder) Acquire(ctx context.Context, gameID, playerID protocol.ID) (release func() error, err error) {
	gen, err := b.bindGame(ctx, gameID, playerID, true)
	if err != nil {
		return func() error { return nil }, err
	}
	return sync.OnceValue(func() error {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.gen != gen {
			return nil
		}
		b.refs--
		if b.refs > 0 {
			return nil
		}
		return b.unbindLocked()
	}), nil
}

// WithGame runs fn while bound to the game, releasing the binding however fn
// returns.
func (b *Binder) WithGame(ctx context.Context, gameID, playerID protocol.ID, fn func(ctx context.Context) error) (err error) {
	release, err := b.Acquire(ctx, gameID, playerID)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			_ = release()
			panic(r)
		}
		err = multierr.Append(err, release())
	}()
	return fn(ctx)
}

// Resync brings a reconnected transport back in line: it rejoins the room,
// refetches the snapshot and lets the prompt machine rebuild from it. A
// snapshot pushed after the rejoin wins over the fetched one.
func (b *Binder) Resync(ctx context.Context) error {
	b.mu.Lock()
	if b.game == nil {
		if !b.lobby.IsZero() {
			b.t.Emit(protocol.CmdJoinLobby, protocol.JoinLobby{LobbyID: b.lobby})
		}
		b.mu.Unlock()
		return nil
	}
	scope, attempt := *b.game, b.attempt
	b.prompts.Rebootstrap()
	since := b.rec.Applied()
	b.t.Emit(protocol.CmdJoinGame, protocol.JoinGame{GameID: scope.GameID, PlayerID: scope.PlayerID})
	b.mu.Unlock()

	game, err := b.games.FetchGame(ctx, scope.GameID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSnapshotUnavailable, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.attempt != attempt {
		b.logger.Debug("binding changed during resync", zap.String("game_id", scope.GameID.String()))
		return nil
	}
	if _, ok := b.rec.ApplyFetched(game.GameState, since); !ok {
		b.logger.Debug("kept pushed snapshot over resync fetch", zap.String("game_id", scope.GameID.String()))
	}
	b.logger.Info("resynced", zap.String("game_id", scope.GameID.String()))
	return nil
}

// Scope is the active game binding.
func (b *Binder) Scope() (dispatch.Scope, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.game == nil {
		return dispatch.Scope{}, false
	}
	return *b.game, true
}

// Require is Scope for callers that cannot act without a game.
func (b *Binder) Require() (dispatch.Scope, error) {
	s, ok := b.Scope()
	if !ok {
		return dispatch.Scope{}, ErrNotBound
	}
	return s, nil
}
