// Package ws streams prompt status to a display process over a websocket.
package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/krutagidon-client/internal/prompt"
	"github.com/DoyleJ11/krutagidon-client/internal/telemetry"
	"github.com/DoyleJ11/krutagidon-client/internal/timeouts"
)

// StatusSource is the observer half of prompt.Machine.
type StatusSource interface {
	Join(id string, out chan prompt.Status)
	Leave(id string)
}

// Frame is one message written to the display.
type Frame struct {
	Type   string        `json:"type"`
	Status prompt.Status `json:"status"`
}

const FramePromptStatus = "PromptStatus"

func Handler(src StatusSource, logger *zap.Logger) http.HandlerFunc {
	logger = telemetry.OrNop(logger).Named("ws")
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
		})
		if err != nil {
			logger.Debug("accept", zap.Error(err))
			return
		}
		defer conn.CloseNow()

		// The display never talks back on this socket; CloseRead notices when
		// it goes away.
		ctx := conn.CloseRead(r.Context())

		out := make(chan prompt.Status, 8)
		id := uuid.NewString()
		src.Join(id, out)
		defer src.Leave(id)
		logger.Debug("display joined", zap.String("id", id))

		for {
			select {
			case <-ctx.Done():
				return
			case st, ok := <-out:
				if !ok {
					logger.Warn("display too slow, dropping", zap.String("id", id))
					_ = conn.Close(websocket.StatusPolicyViolation, "too slow")
					return
				}
				if err := write(ctx, conn, st); err != nil {
					logger.Debug("write", zap.String("id", id), zap.Error(err))
					return
				}
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, st prompt.Status) error {
	payload, err := json.Marshal(Frame{Type: FramePromptStatus, Status: st})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Write)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
