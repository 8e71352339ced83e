// Package chainid derives and validates authority addresses.
//
// Addresses are UUIDv5 values derived from the parent authority and a creation
// index, encoded as 26 lowercase Crockford base32 characters. Derivation is a
// pure function of its inputs, so every replica that re-executes the spawning
// block computes the same address for the new authority.
package chainid

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// Base32 alphabet (Crockford's base32, as used by TypeID)
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// namespace scopes every derived address to this application.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("majorules:authority"))

// ID is an authority address.
type ID string

func (id ID) String() string { return string(id) }

// Short returns an abbreviated form for logs.
func (id ID) Short() string {
	if len(id) <= 8 {
		return string(id)
	}
	return string(id[len(id)-8:])
}

// Root derives the address of a top-level authority such as the lobby.
func Root(name string) ID {
	return encode(uuid.NewSHA1(namespace, []byte("root:"+name)))
}

// Child derives the address of the index-th authority opened by parent.
func Child(parent ID, index uint64) ID {
	buf := make([]byte, 0, len(parent)+9)
	buf = append(buf, parent...)
	buf = append(buf, ':')
	buf = binary.BigEndian.AppendUint64(buf, index)
	return encode(uuid.NewSHA1(namespace, buf))
}

func encode(u uuid.UUID) ID {
	return ID(encodeBase32(u))
}

// encodeBase32 encodes a 128-bit UUID as a 26-character base32 string
func encodeBase32(data [16]byte) string {
	result := make([]byte, 26)

	// 26 groups of 5 bits; the final group is padded with two zero bits
	for i := 0; i < 26; i++ {
		bitOffset := i * 5
		byteIndex := bitOffset / 8
		bitIndex := bitOffset % 8

		var value uint8
		if byteIndex < 16 {
			if bitIndex <= 3 {
				value = (data[byteIndex] >> (3 - bitIndex)) & 0x1f
			} else {
				value = (data[byteIndex] << (bitIndex - 3)) & 0x1f
				if byteIndex+1 < 16 {
					value |= data[byteIndex+1] >> (11 - bitIndex)
				}
			}
		}

		result[i] = alphabet[value]
	}

	return string(result)
}

// Validate checks that id is 26 characters of the base32 alphabet.
func Validate(id ID) error {
	if len(id) != 26 {
		return fmt.Errorf("chain id must be exactly 26 characters, got %d", len(id))
	}

	for i, char := range string(id) {
		valid := false
		for _, validChar := range alphabet {
			if char == validChar {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid character %c at position %d", char, i)
		}
	}

	return nil
}
