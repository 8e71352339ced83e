package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lox/majorules/internal/escrow"
)

// SettleCmd prints how a finished match's pool would be split.
type SettleCmd struct {
	Fee     string `kong:"required,help='Entry fee in tokens'"`
	Players int    `kong:"required,help='Players in the match'"`
	Winners int    `kong:"required,help='Players who survived'"`
}

func (c *SettleCmd) Run() error {
	s, err := c.settle()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func (c *SettleCmd) settle() (escrow.Settlement, error) {
	fee, err := escrow.ParseAmount(c.Fee)
	if err != nil {
		return escrow.Settlement{}, fmt.Errorf("fee: %w", err)
	}
	if c.Players < 1 {
		return escrow.Settlement{}, fmt.Errorf("players must be positive, got %d", c.Players)
	}
	if c.Winners < 0 || c.Winners > c.Players {
		return escrow.Settlement{}, fmt.Errorf("winners must be between 0 and %d, got %d", c.Players, c.Winners)
	}
	return escrow.Settle(fee, c.Players, c.Winners), nil
}
