package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lox/majorules/internal/ledger"
	"github.com/lox/majorules/internal/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	feedBuffer = 256
)

// Event is a committed block as sent to clients, with its payload decoded.
type Event struct {
	ledger.Block
	Payload any `json:"payload,omitempty"`
}

func newEvent(b ledger.Block) Event {
	e := Event{Block: b}
	if len(b.Payload) == 0 {
		return e
	}
	// Operations are committed without an origin chain.
	if b.Origin == "" {
		if op, err := protocol.UnmarshalOperation(b.Payload); err == nil {
			e.Payload = op
		}
		return e
	}
	if msg, err := protocol.UnmarshalMessage(b.Payload); err == nil {
		e.Payload = msg
	}
	return e
}

// handleWebSocket streams every committed block to the client until either
// side closes. Clients send nothing; reads only service control frames.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}
	blocks, unsubscribe := s.node.Feed().Subscribe(feedBuffer)
	s.logger.Info().Str("remote", r.RemoteAddr).Int("subscribers", s.node.Feed().Subscribers()).Msg("Feed client connected")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Debug().Err(err).Msg("Feed client read failed")
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		unsubscribe()
		_ = conn.Close()
		s.logger.Info().Str("remote", r.RemoteAddr).Msg("Feed client disconnected")
	}()

	for {
		select {
		case b, ok := <-blocks:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(newEvent(b)); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
