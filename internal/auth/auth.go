// Package auth gates player registration behind an optional external token
// check. Registering a player mints faucet funds, so public nodes point this
// at an account service.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lox/majorules/internal/identity"
)

var (
	// ErrInvalidToken means the account service rejected the token.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrUnavailable means the account service could not give an answer.
	// Registration fails closed.
	ErrUnavailable = errors.New("auth: unavailable")
)

// Grant is what a valid token entitles its holder to.
type Grant struct {
	Account string `json:"account"`
	// Player, when set, is the only key this token may register.
	Player identity.PlayerID `json:"player,omitempty"`
}

// Allows reports whether the grant covers registering p.
func (g *Grant) Allows(p identity.PlayerID) bool {
	return g == nil || g.Player == "" || g.Player == p
}

// Validator checks registration tokens.
type Validator interface {
	// Validate returns (grant, nil) for a valid token, ErrInvalidToken or
	// ErrUnavailable otherwise. NoopValidator returns (nil, nil).
	Validate(ctx context.Context, token string) (*Grant, error)
}

const validateTimeout = 500 * time.Millisecond

// HTTPValidator asks an external endpoint about each token.
type HTTPValidator struct {
	url         string
	client      *http.Client
	adminSecret string
}

// NewHTTPValidator creates a validator that posts tokens to url.
func NewHTTPValidator(url string, adminSecret string) *HTTPValidator {
	return &HTTPValidator{
		url:         url,
		adminSecret: adminSecret,
		client:      &http.Client{Timeout: validateTimeout},
	}
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	Valid   bool              `json:"valid"`
	Account string            `json:"account,omitempty"`
	Player  identity.PlayerID `json:"player,omitempty"`
	Error   string            `json:"error,omitempty"`
}

func (v *HTTPValidator) Validate(ctx context.Context, token string) (*Grant, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	ctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	reqBody, err := json.Marshal(validateRequest{Token: token})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.adminSecret != "" {
		req.Header.Set("X-Admin-Secret", v.adminSecret)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrInvalidToken
	default:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out validateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrUnavailable, err)
	}
	if !out.Valid {
		return nil, ErrInvalidToken
	}
	if out.Player != "" {
		if err := out.Player.Validate(); err != nil {
			return nil, fmt.Errorf("%w: service returned %v", ErrUnavailable, err)
		}
	}
	return &Grant{Account: out.Account, Player: out.Player}, nil
}

// NoopValidator lets anyone register (dev mode).
type NoopValidator struct{}

func (NoopValidator) Validate(context.Context, string) (*Grant, error) {
	return nil, nil
}
