// Package randutil provides the seeded random stream used for fairness-critical
// draws. Identical seeds and identical draw sequences always produce identical
// outputs, so every replica re-executing a block agrees on the result without
// exchanging random bits.
package randutil

import (
	"encoding/binary"
	"hash/fnv"
	rand "math/rand/v2"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// Stream is a reproducible random stream. The zero value is not usable; build
// one with New.
type Stream struct {
	pcg *rand.PCG
	rng *rand.Rand
}

// New returns a Stream seeded deterministically from the provided int64.
func New(seed int64) *Stream {
	u := uint64(seed)
	pcg := rand.NewPCG(mix(u), mix(u+goldenRatio64))
	return &Stream{pcg: pcg, rng: rand.New(pcg)}
}

// SeedFrom derives a seed from execution-visible data: a block timestamp in
// microseconds and a salt such as the authority address. Never seed production
// streams with a constant.
func SeedFrom(timestampMicros uint64, salt []byte) int64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], timestampMicros)
	_, _ = h.Write(buf[:])
	_, _ = h.Write(salt)
	return int64(mix(h.Sum64()))
}

// IntRange draws uniformly from the inclusive range [lo, hi].
func (s *Stream) IntRange(lo, hi uint64) uint64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	span := hi - lo
	if span == ^uint64(0) {
		return s.rng.Uint64()
	}
	return lo + s.rng.Uint64N(span+1)
}

// Pick draws an index in [0, n). It returns 0 when n <= 1.
func (s *Stream) Pick(n int) int {
	if n <= 1 {
		return 0
	}
	return int(s.IntRange(0, uint64(n-1)))
}

// MarshalBinary captures the stream position so it can be stored in state.
func (s *Stream) MarshalBinary() ([]byte, error) {
	return s.pcg.MarshalBinary()
}

// UnmarshalBinary restores a stream captured with MarshalBinary.
func (s *Stream) UnmarshalBinary(data []byte) error {
	if s.pcg == nil {
		s.pcg = rand.NewPCG(0, 0)
	}
	if err := s.pcg.UnmarshalBinary(data); err != nil {
		return err
	}
	s.rng = rand.New(s.pcg)
	return nil
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
