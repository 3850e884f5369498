// Package auth keeps the player's credentials: the short-lived bearer token
// every command carries, and the refresh flow that renews it.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/DoyleJ11/krutagidon-client/internal/protocol"
	"github.com/DoyleJ11/krutagidon-client/internal/store"
	"github.com/DoyleJ11/krutagidon-client/internal/telemetry"
)

// StoreKey is where the credentials live in the blob store.
const StoreKey = "auth"

var (
	ErrNoSession      = errors.New("auth: not logged in")
	ErrSessionExpired = errors.New("auth: session expired")
)

type User struct {
	ID       protocol.ID `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email,omitempty"`
}

type Credentials struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// Session owns the credentials for one user. It is safe for concurrent use;
// concurrent refreshes collapse into one request.
type Session struct {
	base   string
	http   *http.Client
	blobs  store.BlobStore
	logger *zap.Logger
	now    func() time.Time

	refreshes singleflight.Group
	logouts   listeners

	mu    sync.RWMutex
	creds Credentials
}

type listeners struct {
	mu  sync.Mutex
	fns []func()
}

func (l *listeners) add(fn func()) {
	l.mu.Lock()
	l.fns = append(l.fns, fn)
	l.mu.Unlock()
}

func (l *listeners) fire() {
	l.mu.Lock()
	fns := append([]func(){}, l.fns...)
	l.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// NewSession builds a session against apiBase. The http client should carry
// a cookie jar when the server keeps the refresh token in a cookie.
func NewSession(apiBase string, client *http.Client, blobs store.BlobStore, logger *zap.Logger) *Session {
	if client == nil {
		client = http.DefaultClient
	}
	if blobs == nil {
		blobs = store.NewMemory()
	}
	return &Session{
		base:   strings.TrimRight(apiBase, "/"),
		http:   client,
		blobs:  blobs,
		logger: telemetry.OrNop(logger).Named("auth"),
		now:    time.Now,
	}
}

// Restore loads persisted credentials. A missing entry is not an error.
func (s *Session) Restore(ctx context.Context) error {
	raw, err := s.blobs.Get(ctx, StoreKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore credentials: %w", err)
	}
	var c Credentials
	if err := json.Unmarshal(raw, &c); err != nil {
		return fmt.Errorf("decode credentials: %w", err)
	}
	s.mu.Lock()
	s.creds = c
	s.mu.Unlock()
	return nil
}

func (s *Session) Login(ctx context.Context, identifier, password string) (User, error) {
	var resp Credentials
	body := map[string]string{"identifier": identifier, "password": password}
	if err := s.post(ctx, "/auth/login", "", body, &resp); err != nil {
		return User{}, fmt.Errorf("login: %w", err)
	}
	if resp.AccessToken == "" {
		return User{}, fmt.Errorf("login: response carried no access token")
	}
	if err := s.save(ctx, resp); err != nil {
		return User{}, err
	}
	s.logger.Info("logged in", zap.String("identifier", identifier))
	if resp.User == nil {
		return User{}, nil
	}
	return *resp.User, nil
}

// SetCredentials installs credentials obtained elsewhere.
func (s *Session) SetCredentials(ctx context.Context, c Credentials) error {
	return s.save(ctx, c)
}

func (s *Session) Current() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds.User == nil {
		return User{}, false
	}
	return *s.creds.User, true
}

// AccessToken returns a token that has not expired yet, refreshing first
// when the current one is past its exp claim.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	tok := s.creds.AccessToken
	s.mu.RUnlock()

	if tok == "" {
		return "", ErrNoSession
	}
	if !s.expired(tok) {
		return tok, nil
	}
	s.logger.Debug("access token expired, refreshing")
	return s.Refresh(ctx)
}

func (s *Session) expired(tok string) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		// Opaque tokens are left for the server to judge.
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !s.now().Before(claims.ExpiresAt.Time)
}

// Refresh trades the refresh credential for a new access token. A failed
// refresh ends the session: credentials are dropped and logout hooks run.
func (s *Session) Refresh(ctx context.Context) (string, error) {
	v, err, _ := s.refreshes.Do("refresh", func() (any, error) {
		s.mu.RLock()
		current := s.creds
		s.mu.RUnlock()

		var body any
		if current.RefreshToken != "" {
			body = map[string]string{"refreshToken": current.RefreshToken}
		}
		var resp Credentials
		if err := s.post(ctx, "/auth/refresh", "", body, &resp); err != nil || resp.AccessToken == "" {
			s.logger.Warn("refresh failed", zap.Error(err))
			s.Expire(ctx)
			return "", ErrSessionExpired
		}

		next := current
		next.AccessToken = resp.AccessToken
		if resp.RefreshToken != "" {
			next.RefreshToken = resp.RefreshToken
		}
		if resp.User != nil {
			next.User = resp.User
		}
		if err := s.save(ctx, next); err != nil {
			s.logger.Warn("persist refreshed token", zap.Error(err))
		}
		return next.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Logout tells the server and then forgets the credentials regardless of
// the server's answer.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.RLock()
	tok := s.creds.AccessToken
	s.mu.RUnlock()

	var err error
	if tok != "" {
		err = s.post(ctx, "/auth/logout", tok, struct{}{}, nil)
	}
	s.Expire(ctx)
	return err
}

// Expire drops the credentials and fires the logout hooks.
func (s *Session) Expire(ctx context.Context) {
	s.mu.Lock()
	s.creds = Credentials{}
	s.mu.Unlock()

	if err := s.blobs.Delete(ctx, StoreKey); err != nil {
		s.logger.Warn("delete credentials", zap.Error(err))
	}
	s.logger.Info("session ended")
	s.logouts.fire()
}

// OnLogout registers fn to run whenever the session ends.
func (s *Session) OnLogout(fn func()) {
	s.logouts.add(fn)
}

func (s *Session) save(ctx context.Context, c Credentials) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.creds = c
	s.mu.Unlock()
	if err := s.blobs.Put(ctx, StoreKey, raw); err != nil {
		return fmt.Errorf("persist credentials: %w", err)
	}
	return nil
}

func (s *Session) post(ctx context.Context, path, bearer string, in, out any) error {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
