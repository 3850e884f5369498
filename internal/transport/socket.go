package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/krutagidon-client/internal/protocol"
	"github.com/DoyleJ11/krutagidon-client/internal/telemetry"
	"github.com/DoyleJ11/krutagidon-client/internal/timeouts"
)

// Snapshots carry every player's zones; the library default of 32KiB is too small.
const readLimit = 4 << 20

// HeaderFunc supplies handshake headers, typically the bearer token.
type HeaderFunc func(ctx context.Context) (http.Header, error)

// Socket is a websocket Transport. Incoming frames are decoded on a single
// reader goroutine and handed to handlers in arrival order.
type Socket struct {
	url    string
	header HeaderFunc
	logger *zap.Logger

	handlers Listeners[json.RawMessage]
	dropped  Listeners[error]

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
}

func NewSocket(url string, header HeaderFunc, logger *zap.Logger) *Socket {
	return &Socket{
		url:    url,
		header: header,
		logger: telemetry.OrNop(logger).Named("socket"),
	}
}

func (s *Socket) Connect(ctx context.Context) error {
	if s.Connected() {
		return nil
	}

	// The header func may refresh credentials, and a failed refresh runs
	// logout hooks that call Disconnect, so nothing here holds s.mu.
	opts := &websocket.DialOptions{}
	if s.header != nil {
		h, err := s.header(ctx)
		if err != nil {
			return fmt.Errorf("socket headers: %w", err)
		}
		opts.HTTPHeader = h
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeouts.Dial)
	defer cancel()

	conn, resp, err := websocket.Dial(dialCtx, s.url, opts)
	if err != nil {
		if resp != nil {
			s.logger.Warn("dial rejected", zap.String("url", s.url), zap.Int("status", resp.StatusCode))
		}
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	conn.SetReadLimit(readLimit)

	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		_ = conn.CloseNow()
		return nil
	}
	readCtx, readCancel := context.WithCancel(context.Background())
	s.conn = conn
	s.cancel = readCancel
	s.mu.Unlock()

	go s.readLoop(readCtx, conn)
	s.logger.Info("connected", zap.String("url", s.url))
	return nil
}

func (s *Socket) Disconnect() error {
	s.mu.Lock()
	conn, cancel := s.conn, s.cancel
	s.conn, s.cancel = nil, nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	defer cancel()
	s.logger.Info("disconnecting")
	// The peer may hang up before answering our close frame; the connection
	// is gone either way.
	if err := conn.Close(websocket.StatusNormalClosure, "bye"); err != nil {
		s.logger.Debug("close handshake", zap.Error(err))
	}
	return nil
}

func (s *Socket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

func (s *Socket) Emit(event string, payload any) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		s.logger.Error("emit dropped", zap.String("event", event), zap.Error(ErrNotConnected))
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("emit payload", zap.String("event", event), zap.Error(err))
		return
	}
	frame, err := json.Marshal(protocol.Envelope{Event: event, Data: data})
	if err != nil {
		s.logger.Error("emit frame", zap.String("event", event), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Write)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
		s.logger.Error("emit failed", zap.String("event", event), zap.Error(err))
		return
	}
	s.logger.Debug("emitted", zap.String("event", event))
}

func (s *Socket) On(event string, h Handler) func() {
	return s.handlers.Add(event, h)
}

func (s *Socket) OnDisconnect(fn func(error)) func() {
	return s.dropped.Add("", fn)
}

func (s *Socket) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			s.lost(conn, err)
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			s.logger.Warn("bad frame", zap.ByteString("frame", data), zap.Error(err))
			continue
		}
		if n := s.handlers.Dispatch(env.Event, env.Data); n == 0 {
			s.logger.Debug("unhandled event", zap.String("event", env.Event))
		}
	}
}

// lost runs when the reader fails. A Disconnect in progress has already
// cleared s.conn, in which case nobody is told.
func (s *Socket) lost(conn *websocket.Conn, err error) {
	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.conn, s.cancel = nil, nil
	s.mu.Unlock()

	_ = conn.CloseNow()
	s.logger.Warn("connection lost", zap.Error(err))
	s.dropped.Dispatch("", err)
}
