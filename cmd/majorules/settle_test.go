package main

import (
	"testing"

	"github.com/lox/majorules/internal/escrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettleCmd(t *testing.T) {
	s, err := (&SettleCmd{Fee: "1", Players: 10, Winners: 4}).settle()
	require.NoError(t, err)
	assert.Equal(t, escrow.MustParseAmount("0.5"), s.PlatformFee)
	assert.Equal(t, escrow.MustParseAmount("2.375"), s.PerWinner)
	assert.True(t, s.Remainder.IsZero())

	_, err = (&SettleCmd{Fee: "1", Players: 3, Winners: 4}).settle()
	assert.Error(t, err)
	_, err = (&SettleCmd{Fee: "x", Players: 3, Winners: 1}).settle()
	assert.Error(t, err)
}
