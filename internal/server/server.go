// Package server exposes a node over HTTP: read-only JSON projections of the
// lobby and its games, signed operation submission, and a websocket feed of
// committed blocks.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lox/majorules/internal/auth"
	"github.com/lox/majorules/internal/chainid"
	"github.com/lox/majorules/internal/identity"
	"github.com/lox/majorules/internal/ledger"
	"github.com/lox/majorules/internal/node"
	"github.com/lox/majorules/internal/protocol"
	"github.com/rs/zerolog"
)

// maxOperationSize bounds a submitted SignedOperation.
const maxOperationSize = 64 << 10

// ErrRegistrationDenied means a valid token was presented for another key.
var ErrRegistrationDenied = errors.New("server: token does not cover this player")

// Server serves one node.
type Server struct {
	node      *node.Node
	logger    zerolog.Logger
	upgrader  websocket.Upgrader
	mux       *http.ServeMux
	validator auth.Validator
}

// Option configures a Server.
type Option func(*Server)

// WithRegistrationAuth requires a bearer token accepted by v to register
// players.
func WithRegistrationAuth(v auth.Validator) Option {
	return func(s *Server) { s.validator = v }
}

// New creates a server for n.
func New(n *node.Node, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		node:   n,
		logger: logger.With().Str("component", "server").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		mux:       http.NewServeMux(),
		validator: auth.NoopValidator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /lobby", s.handleLobby)
	s.mux.HandleFunc("GET /games", s.handleGames)
	s.mux.HandleFunc("GET /games/{id}", s.handleGame)
	s.mux.HandleFunc("GET /leaderboard", s.handleLeaderboard)
	s.mux.HandleFunc("POST /players", s.handleRegisterPlayer)
	s.mux.HandleFunc("GET /players/{id}", s.handlePlayer)
	s.mux.HandleFunc("GET /chains/{id}/blocks", s.handleBlocks)
	s.mux.HandleFunc("POST /operations", s.handleSubmit)
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.mux }

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info().Msg("HTTP server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "OK")
}

func (s *Server) handleLobby(w http.ResponseWriter, _ *http.Request) {
	v, err := s.node.LobbyView()
	s.respond(w, v, err)
}

func (s *Server) handleGames(w http.ResponseWriter, _ *http.Request) {
	games, err := s.node.Games()
	s.respond(w, games, err)
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	id, ok := s.chainParam(w, r)
	if !ok {
		return
	}
	snap, err := s.node.Game(id)
	s.respond(w, snap, err)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, _ *http.Request) {
	board, err := s.node.Leaderboard()
	s.respond(w, board, err)
}

type registerRequest struct {
	Player identity.PlayerID `json:"player"`
}

type registerResponse struct {
	Chain chainid.ID `json:"chain"`
}

func (s *Server) handleRegisterPlayer(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxOperationSize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	grant, err := s.validator.Validate(r.Context(), token)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !grant.Allows(req.Player) {
		s.fail(w, fmt.Errorf("%w: %s", ErrRegistrationDenied, req.Player.Short()))
		return
	}
	id, err := s.node.RegisterPlayer(req.Player)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{Chain: id})
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	id, ok := s.chainParam(w, r)
	if !ok {
		return
	}
	v, err := s.node.Player(id)
	s.respond(w, v, err)
}

func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	id, ok := s.chainParam(w, r)
	if !ok {
		return
	}
	blocks, err := s.node.Blocks(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	events := make([]Event, 0, len(blocks))
	for _, b := range blocks {
		events = append(events, newEvent(b))
	}
	writeJSON(w, http.StatusOK, events)
}

// handleSubmit accepts a msgpack-encoded SignedOperation. Messages the
// operation produces are delivered asynchronously by the node's pump.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxOperationSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(body) > maxOperationSize {
		writeError(w, http.StatusRequestEntityTooLarge, errors.New("operation too large"))
		return
	}
	op, err := protocol.UnmarshalSigned(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.node.Submit(r.Context(), op); err != nil {
		s.logger.Debug().Err(err).Str("chain", op.Chain.Short()).Str("signer", op.Signer.Short()).Msg("Operation rejected")
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]uint64{"next_nonce": op.Nonce + 1})
}

func (s *Server) chainParam(w http.ResponseWriter, r *http.Request) (chainid.ID, bool) {
	id := chainid.ID(r.PathValue("id"))
	if err := chainid.Validate(id); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return "", false
	}
	return id, true
}

func (s *Server) respond(w http.ResponseWriter, v any, err error) {
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("Request failed")
	}
	writeError(w, status, err)
}

// statusFor maps domain errors onto HTTP statuses. Anything a state machine
// rejects that is not listed here is a 422.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrUnknownChain):
		return http.StatusNotFound
	case errors.Is(err, node.ErrNotGame), errors.Is(err, node.ErrNotPlayer):
		return http.StatusNotFound
	case errors.Is(err, node.ErrNoJournal):
		return http.StatusNotImplemented
	case errors.Is(err, identity.ErrBadSignature),
		errors.Is(err, ledger.ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ledger.ErrNotOwner), errors.Is(err, ledger.ErrUnauthorizedDebit), errors.Is(err, ErrRegistrationDenied):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrBadNonce), errors.Is(err, ledger.ErrChainExists):
		return http.StatusConflict
	case errors.Is(err, identity.ErrInvalidPlayerID),
		errors.Is(err, protocol.ErrMalformed),
		errors.Is(err, protocol.ErrUnknownMessageType):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusUnprocessableEntity
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
