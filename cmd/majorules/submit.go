package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lox/majorules/internal/chainid"
	"github.com/lox/majorules/internal/escrow"
	"github.com/lox/majorules/internal/identity"
	"github.com/lox/majorules/internal/node"
	"github.com/lox/majorules/internal/protocol"
)

// SubmitCmd signs one operation and posts it to a node.
type SubmitCmd struct {
	Op       string        `kong:"arg,enum='register,enter,join,leave,ask,answer,process-round',help='Operation: register, enter, join, leave, ask, answer or process-round'"`
	Server   string        `kong:"default='http://localhost:8080',help='Node URL'"`
	Key      string        `kong:"required,env='MAJORULES_KEY',help='Hex private key'"`
	Chain    string        `kong:"help='Target chain (defaults to your player chain, or the lobby for join/leave)'"`
	Nonce    uint64        `kong:"help='Your operation count on the target chain'"`
	Stake    string        `kong:"default='0',help='Stake moved to the lobby by enter'"`
	Question string        `kong:"help='Question text for ask'"`
	Options  []string      `kong:"help='Three comma-separated options for ask'"`
	Answer   uint8         `kong:"help='Answer 1-3 for ask and answer'"`
	Timeout  time.Duration `kong:"default='10s',help='HTTP timeout'"`
}

func (c *SubmitCmd) Run() error {
	signer, err := identity.SignerFromHex(c.Key)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: c.Timeout}
	base := strings.TrimRight(c.Server, "/")

	if c.Op == "register" {
		body, _ := json.Marshal(map[string]string{"player": signer.ID().String()})
		resp, err := client.Post(base+"/players", "application/json", bytes.NewReader(body))
		if err != nil {
			return err
		}
		return printResponse(resp)
	}

	op, err := c.operation(signer.ID())
	if err != nil {
		return err
	}
	target := chainid.ID(c.Chain)
	if target == "" {
		target = node.PlayerChain(signer.ID())
		if c.Op == "join" || c.Op == "leave" {
			target = chainid.Root(node.LobbyName)
		}
	}
	if err := chainid.Validate(target); err != nil {
		return err
	}

	signed, err := protocol.Sign(signer, target, c.Nonce, op)
	if err != nil {
		return err
	}
	body, err := protocol.MarshalSigned(signed)
	if err != nil {
		return err
	}
	resp, err := client.Post(base+"/operations", "application/msgpack", bytes.NewReader(body))
	if err != nil {
		return err
	}
	return printResponse(resp)
}

func (c *SubmitCmd) operation(self identity.PlayerID) (protocol.Operation, error) {
	switch c.Op {
	case "enter":
		stake, err := escrow.ParseAmount(c.Stake)
		if err != nil {
			return nil, fmt.Errorf("stake: %w", err)
		}
		return protocol.EnterLobby{Stake: stake}, nil
	case "join":
		return protocol.Join{Callback: node.PlayerChain(self)}, nil
	case "leave":
		return protocol.Leave{}, nil
	case "ask":
		if len(c.Options) != 3 {
			return nil, fmt.Errorf("ask needs exactly three options, got %d", len(c.Options))
		}
		return protocol.AskQuestion{
			Question: c.Question,
			Options:  [3]string{c.Options[0], c.Options[1], c.Options[2]},
			Answer:   c.Answer,
		}, nil
	case "answer":
		return protocol.SubmitAnswer{Answer: c.Answer}, nil
	case "process-round":
		return protocol.ProcessRound{}, nil
	}
	return nil, fmt.Errorf("unknown operation %q", c.Op)
}

func printResponse(resp *http.Response) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	_, _ = os.Stdout.Write(body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("node returned %s", resp.Status)
	}
	return nil
}
