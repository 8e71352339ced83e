// Package identity defines player principals. A PlayerID is the hex encoded
// compressed secp256k1 public key of the player, so any signed operation can
// be verified against the id alone.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

var (
	ErrInvalidPlayerID = errors.New("identity: invalid player id")
	ErrBadSignature    = errors.New("identity: signature does not verify")
)

// PlayerID identifies a player. Ids compare and order as strings.
type PlayerID string

func (p PlayerID) String() string { return string(p) }

// Short returns an abbreviated form for logs.
func (p PlayerID) Short() string {
	if len(p) <= 12 {
		return string(p)
	}
	return string(p[:12])
}

// Validate checks that the id is the canonical encoding of a curve point.
func (p PlayerID) Validate() error {
	_, err := p.PublicKey()
	return err
}

// PublicKey parses the id. Only lowercase hex of the compressed key is
// accepted, so each key has exactly one PlayerID.
func (p PlayerID) PublicKey() (*secp256k1.PublicKey, error) {
	if len(p) != 2*secp256k1.PubKeyBytesLenCompressed {
		return nil, fmt.Errorf("%w: want %d hex characters, got %d", ErrInvalidPlayerID, 2*secp256k1.PubKeyBytesLenCompressed, len(p))
	}
	raw, err := hex.DecodeString(string(p))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlayerID, err)
	}
	pub, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlayerID, err)
	}
	if hex.EncodeToString(pub.SerializeCompressed()) != string(p) {
		return nil, fmt.Errorf("%w: not in canonical form", ErrInvalidPlayerID)
	}
	return pub, nil
}

// Sort orders ids in place.
func Sort(ids []PlayerID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// Signer holds a player's private key.
type Signer struct {
	key *secp256k1.PrivateKey
	id  PlayerID
}

// NewSigner generates a fresh key.
func NewSigner() (*Signer, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return newSigner(key), nil
}

// SignerFromSeed derives a key deterministically. Intended for simulations
// and tests where reproducible identities matter.
func SignerFromSeed(seed []byte) *Signer {
	sum := sha256.Sum256(seed)
	return newSigner(secp256k1.PrivKeyFromBytes(sum[:]))
}

// SignerFromHex parses a hex encoded private key.
func SignerFromHex(s string) (*Signer, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("identity: private key must be 32 hex encoded bytes")
	}
	return newSigner(secp256k1.PrivKeyFromBytes(raw)), nil
}

func newSigner(key *secp256k1.PrivateKey) *Signer {
	return &Signer{
		key: key,
		id:  PlayerID(hex.EncodeToString(key.PubKey().SerializeCompressed())),
	}
}

// ID is the signer's public identity.
func (s *Signer) ID() PlayerID { return s.id }

// PrivateHex exports the private key.
func (s *Signer) PrivateHex() string {
	return hex.EncodeToString(s.key.Serialize())
}

// Sign returns a DER signature over sha256(payload).
func (s *Signer) Sign(payload []byte) []byte {
	digest := sha256.Sum256(payload)
	return ecdsa.Sign(s.key, digest[:]).Serialize()
}

// Verify checks that sig is id's signature over payload.
func Verify(id PlayerID, payload, sig []byte) error {
	pub, err := id.PublicKey()
	if err != nil {
		return err
	}
	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	digest := sha256.Sum256(payload)
	if !parsed.Verify(digest[:], pub) {
		return ErrBadSignature
	}
	return nil
}
