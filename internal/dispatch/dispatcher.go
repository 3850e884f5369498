// Package dispatch turns player decisions into authenticated server calls.
// It is the boundary for command errors: every failure becomes a
// notification here and is not retried.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/DoyleJ11/krutagidon-client/internal/api"
	"github.com/DoyleJ11/krutagidon-client/internal/notify"
	"github.com/DoyleJ11/krutagidon-client/internal/protocol"
	"github.com/DoyleJ11/krutagidon-client/internal/reconcile"
	"github.com/DoyleJ11/krutagidon-client/internal/telemetry"
	"github.com/DoyleJ11/krutagidon-client/internal/transport"
)

var ErrInvalidCommand = errors.New("dispatch: invalid command")

// Scope is the game and seat a command acts for.
type Scope struct {
	GameID   protocol.ID
	PlayerID protocol.ID
	// UserID goes into the makeMove echo. Defaults to PlayerID.
	UserID protocol.ID
}

// GameAPI is the slice of api.Client that commands use.
type GameAPI interface {
	MakeMove(ctx context.Context, gameID protocol.ID, move protocol.Move) error
	ResolveAttackTarget(ctx context.Context, gameID, playerID, opponentID protocol.ID) error
	CancelAttackTargetSelection(ctx context.Context, gameID, playerID protocol.ID) error
	ResolveDefense(ctx context.Context, gameID, opponentID protocol.ID, cardID *protocol.ID) error
	DestroyCard(ctx context.Context, gameID, playerID protocol.ID, cardID *protocol.ID) error
	TopDeckSelection(ctx context.Context, gameID protocol.ID, req protocol.TopDeckSelectionRequest) error
}

type Tracker interface {
	Begin(command string) reconcile.Ticket
	Fail(t reconcile.Ticket)
}

type Notifier interface {
	Publish(level notify.Level, key string, args ...any) notify.Notification
}

type Dispatcher struct {
	api     GameAPI
	emitter transport.Emitter
	tracker Tracker
	feed    Notifier
	logger  *zap.Logger
	tracer  trace.Tracer

	// Fatal runs after the server rejected us twice for auth. The session is
	// already gone at that point; the hook is for tearing down the binding.
	Fatal func(error)
}

func New(gameAPI GameAPI, emitter transport.Emitter, tracker Tracker, feed Notifier, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		api:     gameAPI,
		emitter: emitter,
		tracker: tracker,
		feed:    feed,
		logger:  telemetry.OrNop(logger).Named("dispatch"),
		tracer:  otel.Tracer("github.com/DoyleJ11/krutagidon-client/internal/dispatch"),
	}
}

// Submit sends cmd. The response is not treated as new state; the command
// stays in flight until the next snapshot or until it fails here.
func (d *Dispatcher) Submit(ctx context.Context, scope Scope, cmd Command) error {
	ctx, span := d.tracer.Start(ctx, "dispatch."+cmd.Name(), trace.WithAttributes(
		attribute.String("game.id", scope.GameID.String()),
		attribute.String("player.id", scope.PlayerID.String()),
	))
	defer span.End()

	if err := cmd.validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if scope.GameID.IsZero() || scope.PlayerID.IsZero() {
		err := fmt.Errorf("%w: %s without a bound game", ErrInvalidCommand, cmd.Name())
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	ticket := d.tracker.Begin(cmd.Name())
	if err := cmd.send(ctx, d, scope); err != nil {
		d.tracker.Fail(ticket)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.report(cmd, err)
		return fmt.Errorf("%s: %w", cmd.Name(), err)
	}

	if _, ok := cmd.(CancelAttackTarget); ok && d.feed != nil {
		d.feed.Publish(notify.LevelInfo, notify.KeyAttackCancelled)
	}
	d.logger.Debug("command sent", zap.String("command", cmd.Name()), zap.String("game_id", scope.GameID.String()))
	return nil
}

func (d *Dispatcher) report(cmd Command, err error) {
	var se *api.StatusError
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		d.logger.Error("command unauthorized", zap.String("command", cmd.Name()), zap.Error(err))
		d.publish(notify.LevelError, notify.KeySessionExpired)
		if d.Fatal != nil {
			d.Fatal(err)
		}
	case errors.As(err, &se) && se.Rejected():
		d.logger.Warn("command rejected", zap.String("command", cmd.Name()), zap.Int("status", se.Status), zap.String("reason", se.Message))
		d.publish(notify.LevelWarn, notify.KeyCommandRejected, cmd.Name(), se.Message)
	default:
		d.logger.Error("command failed", zap.String("command", cmd.Name()), zap.Error(err))
		d.publish(notify.LevelError, notify.KeyCommandFailed, cmd.Name())
	}
}

func (d *Dispatcher) publish(level notify.Level, key string, args ...any) {
	if d.feed != nil {
		d.feed.Publish(level, key, args...)
	}
}

// echo tells the other clients about a move over the socket. It is best
// effort; the server's snapshot is what counts.
func (d *Dispatcher) echo(s Scope, move protocol.Move) {
	if d.emitter == nil {
		return
	}
	user := s.UserID
	if user.IsZero() {
		user = s.PlayerID
	}
	d.emitter.Emit(protocol.CmdMakeMove, protocol.MoveEcho{GameID: s.GameID, UserID: user, Move: move})
}
