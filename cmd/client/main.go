package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/krutagidon-client/internal/api"
	"github.com/DoyleJ11/krutagidon-client/internal/auth"
	"github.com/DoyleJ11/krutagidon-client/internal/config"
	"github.com/DoyleJ11/krutagidon-client/internal/dispatch"
	"github.com/DoyleJ11/krutagidon-client/internal/httpapi"
	"github.com/DoyleJ11/krutagidon-client/internal/notify"
	"github.com/DoyleJ11/krutagidon-client/internal/prompt"
	"github.com/DoyleJ11/krutagidon-client/internal/protocol"
	"github.com/DoyleJ11/krutagidon-client/internal/reconcile"
	"github.com/DoyleJ11/krutagidon-client/internal/session"
	"github.com/DoyleJ11/krutagidon-client/internal/store"
	"github.com/DoyleJ11/krutagidon-client/internal/telemetry"
	"github.com/DoyleJ11/krutagidon-client/internal/timeouts"
	"github.com/DoyleJ11/krutagidon-client/internal/transport"
)

type flags struct {
	dotenv   string
	gameID   string
	playerID string
	lobbyID  string
	login    string
}

func main() {
	var f flags
	flag.StringVar(&f.dotenv, "env", ".env", "dotenv file to load before reading the environment")
	flag.StringVar(&f.gameID, "game", "", "game to bind to")
	flag.StringVar(&f.playerID, "player", "", "seat to play; defaults to the logged-in user")
	flag.StringVar(&f.lobbyID, "lobby", "", "lobby to follow until its game starts")
	flag.StringVar(&f.login, "login", "", "log in as this user; the password is read from "+config.Prefix+"PASSWORD")
	flag.Parse()

	if err := run(f); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(f flags) (err error) {
	cfg, err := config.Load(f.dotenv)
	if err != nil {
		return err
	}
	logger, err := telemetry.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, "krutagidon-client", cfg.OTelEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	}

	blobs, err := store.Open(cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, blobs.Close()) }()

	httpClient := &http.Client{}
	creds := auth.NewSession(cfg.APIBase, httpClient, blobs, logger)
	if err := creds.Restore(ctx); err != nil && !errors.Is(err, auth.ErrNoSession) {
		logger.Warn("restore session", zap.Error(err))
	}
	if f.login != "" {
		user, err := creds.Login(ctx, f.login, os.Getenv(config.Prefix+"PASSWORD"))
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		logger.Info("logged in", zap.String("user", user.Username))
	}

	client := api.NewClient(cfg.APIBase, httpClient, creds, logger)
	sock := transport.NewSocket(cfg.WSURL, bearer(creds), logger)
	rec := reconcile.New("", logger)
	feed := notify.NewFeed(cfg.Locale, cfg.NotificationTTL, logger)
	disp := dispatch.New(client, sock, rec, feed, logger)

	policy, unknown := prompt.PolicyFromConfig(cfg.PromptTimeout, cfg.PromptTimeoutKinds)
	if len(unknown) > 0 {
		logger.Warn("unknown prompt kinds in timeout config", zap.Strings("kinds", unknown))
	}
	prompts := prompt.New(ctx, disp, feed, policy, logger)
	defer prompts.Shutdown()
	rec.OnApplied(prompts.SnapshotApplied)
	rec.OnWaiting(prompts.WaitingChanged)

	binder := session.NewBinder(sock, client, rec, prompts, logger)
	disp.Fatal = func(err error) {
		logger.Error("session lost", zap.Error(err))
		if err := binder.Unbind(); err != nil {
			logger.Warn("unbind", zap.Error(err))
		}
	}
	creds.OnLogout(func() {
		if err := binder.Unbind(); err != nil {
			logger.Warn("unbind after logout", zap.Error(err))
		}
	})

	supervisor := transport.NewSupervisor(sock, binder.Resync, transport.ReconnectPolicy{
		Initial:    cfg.ReconnectInitial,
		Max:        cfg.ReconnectMax,
		MaxElapsed: cfg.ReconnectMaxElapsed,
	}, logger)
	supervisor.OnStateChange(func(st transport.State) {
		switch st {
		case transport.StateDisconnected:
			feed.Publish(notify.LevelWarn, notify.KeyConnectionLost)
		case transport.StateResynced:
			feed.Publish(notify.LevelInfo, notify.KeyConnectionRestored)
		}
	})

	player := protocol.ID(f.playerID)
	if player.IsZero() {
		if u, ok := creds.User(); ok {
			player = u.ID
		}
	}
	if err := bind(ctx, binder, f, player, logger); err != nil {
		return err
	}

	srv := &http.Server{
		Addr: cfg.BridgeAddr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Views:         rec,
			Prompts:       prompts,
			Commands:      disp,
			Scopes:        binder,
			Notifications: feed,
			Stream:        prompts,
			Logger:        logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return supervisor.Run(gctx) })
	g.Go(func() error {
		logger.Info("display bridge listening", zap.String("addr", cfg.BridgeAddr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	return multierr.Combine(err, binder.Unbind(), shutdownTracing(shutdownCtx))
}

func bind(ctx context.Context, binder *session.Binder, f flags, player protocol.ID, logger *zap.Logger) error {
	switch {
	case f.gameID != "":
		if player.IsZero() {
			return errors.New("-player is required when not logged in")
		}
		return binder.BindToGame(ctx, protocol.ID(f.gameID), player)

	case f.lobbyID != "":
		return binder.BindToLobby(ctx, protocol.ID(f.lobbyID), session.LobbyHandlers{
			OnUpdate: func(l protocol.Lobby) {
				logger.Info("lobby update", zap.String("lobby_id", l.Invitation.ID.String()), zap.Int("players", len(l.Players)))
			},
			OnGameStarted: func(gs protocol.GameStarted) {
				// Rebinding closes the socket this handler runs on.
				go func() {
					if err := binder.BindToGame(ctx, gs.GameID, player); err != nil {
						logger.Error("bind to started game", zap.String("game_id", gs.GameID.String()), zap.Error(err))
					}
				}()
			},
		})
	}
	logger.Info("no game or lobby given; waiting on the display bridge only")
	return nil
}

func bearer(creds *auth.Session) transport.HeaderFunc {
	return func(ctx context.Context) (http.Header, error) {
		tok, err := creds.AccessToken(ctx)
		if err != nil {
			return nil, err
		}
		h := http.Header{}
		h.Set("Authorization", "Bearer "+tok)
		return h, nil
	}
}
