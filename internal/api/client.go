// Package api is the request/response half of the game protocol. Every
// call is authenticated with the session's bearer token and retried once
// after a refresh when the server answers 401.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/krutagidon-client/internal/telemetry"
	"github.com/DoyleJ11/krutagidon-client/internal/timeouts"
)

// ErrUnauthorized means the server kept rejecting us after a refresh. The
// session has been expired by the time a caller sees it.
var ErrUnauthorized = errors.New("api: unauthorized")

// StatusError is any other non-2xx answer.
type StatusError struct {
	Status  int
	Message string
	Path    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Path, e.Status)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Path, e.Status, e.Message)
}

// Rejected reports whether the server understood the request and said no,
// as opposed to failing to answer.
func (e *StatusError) Rejected() bool {
	return e.Status >= 400 && e.Status < 500
}

// Credentials is what the client needs from the auth session.
type Credentials interface {
	AccessToken(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
	Expire(ctx context.Context)
}

type Client struct {
	base   string
	http   *http.Client
	creds  Credentials
	logger *zap.Logger
}

func NewClient(apiBase string, httpClient *http.Client, creds Credentials, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		base:   strings.TrimRight(apiBase, "/"),
		http:   httpClient,
		creds:  creds,
		logger: telemetry.OrNop(logger).Named("api"),
	}
}

func getJSON[T any](ctx context.Context, c *Client, path string) (T, error) {
	var result T
	err := c.do(ctx, http.MethodGet, path, nil, &result)
	return result, err
}

func postJSON[Res any](ctx context.Context, c *Client, path string, body any) (Res, error) {
	var result Res
	err := c.do(ctx, http.MethodPost, path, body, &result)
	return result, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Request)
	defer cancel()

	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		payload = b
	}

	token, err := c.creds.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", path, ErrUnauthorized, err)
	}
	requestID := uuid.NewString()

	resp, err := c.send(ctx, method, path, payload, token, requestID)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		c.logger.Info("401, refreshing token", zap.String("path", path), zap.String("request_id", requestID))

		token, err = c.creds.Refresh(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w: %w", path, ErrUnauthorized, err)
		}
		resp, err = c.send(ctx, method, path, payload, token, requestID)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			resp.Body.Close()
			c.logger.Warn("401 after refresh, ending session", zap.String("path", path))
			c.creds.Expire(ctx)
			return fmt.Errorf("%s: %w", path, ErrUnauthorized)
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Status: resp.StatusCode, Message: errorMessage(body), Path: path}
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, token, requestID string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// errorMessage pulls a human readable reason out of an error body.
func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return strings.TrimSpace(string(body))
}
