package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/DoyleJ11/krutagidon-client/internal/api"
	"github.com/DoyleJ11/krutagidon-client/internal/dispatch"
	"github.com/DoyleJ11/krutagidon-client/internal/notify"
	"github.com/DoyleJ11/krutagidon-client/internal/prompt"
	"github.com/DoyleJ11/krutagidon-client/internal/protocol"
	"github.com/DoyleJ11/krutagidon-client/internal/reconcile"
	"github.com/DoyleJ11/krutagidon-client/internal/session"
	"github.com/DoyleJ11/krutagidon-client/internal/ws"
)

type Prompts interface {
	Status(ctx context.Context) (prompt.Status, error)
	Resolve(ctx context.Context, res prompt.Resolution) error
	Cancel(ctx context.Context) error
}

type Views interface {
	View() (reconcile.View, bool)
}

type Commands interface {
	Submit(ctx context.Context, scope dispatch.Scope, cmd dispatch.Command) error
}

type Scopes interface {
	Require() (dispatch.Scope, error)
}

type Notifications interface {
	Active() []notify.Notification
}

// Deps are the client components the routes read from and write to.
type Deps struct {
	Views         Views
	Prompts       Prompts
	Commands      Commands
	Scopes        Scopes
	Notifications Notifications
	Stream        ws.StatusSource
	Logger        *zap.Logger
}

var errBadRequest = errors.New("bad request")

type StateResponse struct {
	View          *reconcile.View       `json:"view"`
	Status        prompt.Status         `json:"status"`
	Notifications []notify.Notification `json:"notifications"`
}

// ResolveRequest answers whatever prompt is open. Which field is read depends
// on the prompt kind; Skip declines a defense or a discard destruction.
type ResolveRequest struct {
	TargetID      *protocol.ID            `json:"targetId,omitempty"`
	DefenseCardID *protocol.ID            `json:"defenseCardId,omitempty"`
	CardID        *protocol.ID            `json:"cardId,omitempty"`
	Action        *protocol.TopDeckAction `json:"action,omitempty"`
	Skip          bool                    `json:"skip,omitempty"`
}

type PlayCardRequest struct {
	HandIndex int `json:"handIndex"`
}

type BuyCardRequest struct {
	CardID    protocol.ID `json:"cardId"`
	Legendary bool        `json:"legendary"`
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func State(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := d.Prompts.Status(r.Context())
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		resp := StateResponse{Status: st, Notifications: []notify.Notification{}}
		if v, ok := d.Views.View(); ok {
			resp.View = &v
		}
		if d.Notifications != nil {
			resp.Notifications = append(resp.Notifications, d.Notifications.Active()...)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func ResolvePrompt(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResolveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, d.Logger, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		st, err := d.Prompts.Status(r.Context())
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		res, err := resolutionFor(st.Kind(), req)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		if err := d.Prompts.Resolve(r.Context(), res); err != nil {
			writeError(w, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

// resolutionFor reads the request according to the open prompt. The machine
// re-checks the answer, so a prompt that changed in between is still caught.
func resolutionFor(kind prompt.Kind, req ResolveRequest) (prompt.Resolution, error) {
	switch kind {
	case prompt.KindNone:
		return nil, prompt.ErrNoPendingInteraction
	case prompt.KindAttackTarget:
		if req.TargetID == nil {
			return nil, fmt.Errorf("%w: targetId is required", errBadRequest)
		}
		return prompt.ChooseTarget{OpponentID: *req.TargetID}, nil
	case prompt.KindDefense:
		if req.Skip {
			return prompt.Defend{}, nil
		}
		if req.DefenseCardID == nil {
			return nil, fmt.Errorf("%w: defenseCardId or skip is required", errBadRequest)
		}
		return prompt.Defend{CardID: req.DefenseCardID}, nil
	case prompt.KindDiscardDestruction:
		if req.Skip {
			return prompt.Destroy{}, nil
		}
		if req.CardID == nil {
			return nil, fmt.Errorf("%w: cardId or skip is required", errBadRequest)
		}
		return prompt.Destroy{CardID: req.CardID}, nil
	case prompt.KindTopDeckChoice:
		if req.Action == nil {
			return nil, fmt.Errorf("%w: action is required", errBadRequest)
		}
		return prompt.ChooseTopDeck{Action: *req.Action}, nil
	}
	return nil, prompt.ErrInvalidResolution
}

func CancelPrompt(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Prompts.Cancel(r.Context()); err != nil {
			writeError(w, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func PlayCard(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlayCardRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, d.Logger, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		v, ok := d.Views.View()
		if !ok || v.Me == nil {
			writeError(w, d.Logger, session.ErrNotBound)
			return
		}
		if req.HandIndex < 0 || req.HandIndex >= len(v.Me.Hand) {
			writeError(w, d.Logger, fmt.Errorf("%w: hand index %d out of range", errBadRequest, req.HandIndex))
			return
		}
		submit(w, r, d, dispatch.PlayCard{CardID: v.Me.Hand[req.HandIndex].ID})
	}
}

func BuyCard(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BuyCardRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, d.Logger, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		submit(w, r, d, dispatch.BuyCard{CardID: req.CardID, Legendary: req.Legendary})
	}
}

func EndTurn(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		submit(w, r, d, dispatch.EndTurn{})
	}
}

func submit(w http.ResponseWriter, r *http.Request, d Deps, cmd dispatch.Command) {
	scope, err := d.Scopes.Require()
	if err != nil {
		writeError(w, d.Logger, err)
		return
	}
	if err := d.Commands.Submit(r.Context(), scope, cmd); err != nil {
		writeError(w, d.Logger, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := http.StatusInternalServerError
	var se *api.StatusError
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, dispatch.ErrInvalidCommand):
		status = http.StatusBadRequest
	case errors.Is(err, prompt.ErrNoPendingInteraction), errors.Is(err, prompt.ErrInvalidResolution):
		status = http.StatusConflict
	case errors.Is(err, session.ErrNotBound), errors.Is(err, prompt.ErrStopped):
		status = http.StatusServiceUnavailable
	case errors.Is(err, api.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.As(err, &se) && se.Rejected():
		status = http.StatusConflict
	case errors.As(err, &se):
		status = http.StatusBadGateway
	}
	if status >= 500 && logger != nil {
		logger.Warn("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: err.Error()})
}
