// Package escrow implements the token arithmetic used to hold entry fees and
// settle finished matches. All operations saturate instead of wrapping, so an
// Amount can never overflow or underflow into an invalid balance.
package escrow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/tinylib/msgp/msgp"
)

// Decimals is the number of fractional digits of one token.
const Decimals = 18

var (
	// ErrInvalidAmount is returned when a decimal amount cannot be parsed.
	ErrInvalidAmount = errors.New("escrow: invalid amount")

	attosPerToken = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(Decimals))
)

// Amount is a non-negative fixed-point token quantity counted in attos.
// It is a value type; copies never alias.
type Amount struct {
	v uint256.Int
}

// Zero is the empty amount.
var Zero = Amount{}

// FromAttos builds an amount from a raw atto count.
func FromAttos(attos uint64) Amount {
	var a Amount
	a.v.SetUint64(attos)
	return a
}

// Tokens builds an amount of whole tokens.
func Tokens(n uint64) Amount {
	return FromAttos(n).SaturatingMulInt(attosPerToken.Uint64())
}

// FromBytes32 decodes a big-endian 32 byte representation.
func FromBytes32(b [32]byte) Amount {
	var a Amount
	a.v.SetBytes32(b[:])
	return a
}

// Bytes32 returns the big-endian 32 byte representation.
func (a Amount) Bytes32() [32]byte {
	return a.v.Bytes32()
}

// EncodeMsg implements msgp.Encodable. Amounts travel as 32 big-endian bytes.
func (a Amount) EncodeMsg(w *msgp.Writer) error {
	b := a.v.Bytes32()
	return w.WriteBytes(b[:])
}

// DecodeMsg implements msgp.Decodable.
func (a *Amount) DecodeMsg(r *msgp.Reader) error {
	var buf [32]byte
	raw, err := r.ReadBytes(buf[:0])
	if err != nil {
		return err
	}
	if len(raw) != len(buf) {
		return fmt.Errorf("%w: %d byte encoding", ErrInvalidAmount, len(raw))
	}
	a.v.SetBytes32(raw)
	return nil
}

// ParseAmount parses a decimal token string such as "1", "0.25" or "12.000001".
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > Decimals {
		return Zero, fmt.Errorf("%w: more than %d fractional digits in %q", ErrInvalidAmount, Decimals, s)
	}
	digits := strings.TrimLeft(whole+frac+strings.Repeat("0", Decimals-len(frac)), "0")
	if digits == "" {
		return Zero, nil
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}
	v, err := uint256.FromDecimal(digits)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	return Amount{v: *v}, nil
}

// MustParseAmount is ParseAmount for constants and tests.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String renders the amount in tokens with trailing zeros trimmed.
func (a Amount) String() string {
	dec := a.v.Dec()
	if len(dec) <= Decimals {
		dec = strings.Repeat("0", Decimals-len(dec)+1) + dec
	}
	whole, frac := dec[:len(dec)-Decimals], strings.TrimRight(dec[len(dec)-Decimals:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// Attos renders the raw atto count.
func (a Amount) Attos() string {
	return a.v.Dec()
}

// MarshalText encodes the amount as a decimal token string.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes a decimal token string.
func (a *Amount) UnmarshalText(b []byte) error {
	parsed, err := ParseAmount(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// IsZero reports whether the amount is empty.
func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

// Cmp returns -1, 0 or 1.
func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

// SaturatingAdd returns a+b, clamped at the maximum representable amount.
func (a Amount) SaturatingAdd(b Amount) Amount {
	var out Amount
	if _, overflow := out.v.AddOverflow(&a.v, &b.v); overflow {
		out.v.SetAllOne()
	}
	return out
}

// SaturatingSub returns a-b, clamped at zero.
func (a Amount) SaturatingSub(b Amount) Amount {
	if a.v.Lt(&b.v) {
		return Zero
	}
	var out Amount
	out.v.Sub(&a.v, &b.v)
	return out
}

// SaturatingMulInt returns a*n, clamped at the maximum representable amount.
func (a Amount) SaturatingMulInt(n uint64) Amount {
	var out Amount
	if _, overflow := out.v.MulOverflow(&a.v, uint256.NewInt(n)); overflow {
		out.v.SetAllOne()
	}
	return out
}

// DivInt returns a/n truncated towards zero. Division by zero yields zero.
func (a Amount) DivInt(n uint64) Amount {
	if n == 0 {
		return Zero
	}
	var out Amount
	out.v.Div(&a.v, uint256.NewInt(n))
	return out
}
