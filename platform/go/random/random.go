// Package random provides the uniform random sources consumed by the draw engine.
//
// Every source yields float64 values in [0,1). Sources are injected into the
// engine and services so tests can replace them with seeded or scripted values.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"
)

// Source yields uniformly distributed values in [0,1).
type Source interface {
	Float64() float64
}

// Locked guards a math/rand generator so one instance can serve concurrent requests.
type Locked struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeeded returns a deterministic source. Equal seeds produce equal sequences.
func NewSeeded(seed uint64) *Locked {
	return &Locked{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewSecure returns a ChaCha8 source keyed from crypto/rand.
func NewSecure() (*Locked, error) {
	var key [32]byte
	if _, err := crand.Read(key[:]); err != nil {
		return nil, fmt.Errorf("read random key: %w", err)
	}
	return &Locked{rng: rand.New(rand.NewChaCha8(key))}, nil
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// Float64 implements Source.
func (l *Locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Float64()
}

// Sequence replays a fixed list of values, wrapping around at the end.
// Values outside [0,1) are clamped so a script can never break the Source contract.
type Sequence struct {
	mu     sync.Mutex
	values []float64
	next   int
}

// NewSequence builds a Sequence. With no values it always yields 0.
func NewSequence(values ...float64) *Sequence {
	return &Sequence{values: append([]float64(nil), values...)}
}

// Float64 implements Source.
func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return clamp(v)
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v >= 1:
		return 1 - 1e-12
	default:
		return v
	}
}

var (
	_ Source = (*Locked)(nil)
	_ Source = (*Sequence)(nil)
)
