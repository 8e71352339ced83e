package main

import (
	"encoding/json"
	"os"

	"github.com/lox/majorules/internal/identity"
	"github.com/lox/majorules/internal/node"
)

// KeygenCmd prints a fresh player key and the chain it would register.
type KeygenCmd struct{}

func (c *KeygenCmd) Run() error {
	s, err := identity.NewSigner()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]string{
		"player":      s.ID().String(),
		"private_key": s.PrivateHex(),
		"chain":       node.PlayerChain(s.ID()).String(),
	})
}
