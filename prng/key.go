// SPDX-License-Identifier: MIT

// Package prng provides explicit, splittable random keys.
//
// No function in lvflow reads ambient random state. Every operation that needs
// randomness receives a Key, and any child randomness is derived with Split:
//
//	permKey, layerKeys := keys[0], keys[1:]  // keys := key.Split(layers + 1)
//
// A Key is consumed once; draw functions (Normal, Uniform, Permutation) and
// Split use disjoint streams of the same key, so splitting a key and drawing
// from it never produce correlated values.
package prng

import (
	"math/rand/v2"
)

// Stream salts keep Split and the draw functions on disjoint PCG streams.
const (
	splitSalt = 0x9e3779b97f4a7c15
	drawSalt  = 0xbf58476d1ce4e5b9
)

// Key is an explicit random seed value. The zero Key is valid.
type Key [2]uint64

// NewKey derives a key from a user-facing integer seed.
func NewKey(seed uint64) Key {
	r := rand.New(rand.NewPCG(seed, splitSalt^drawSalt))

	return Key{r.Uint64(), r.Uint64()}
}

// Split deterministically derives n independent child keys.
// Split(n)[i] is the same for every call with the same key and n ≥ i+1.
func (k Key) Split(n int) []Key {
	if n <= 0 {
		return nil
	}
	r := rand.New(rand.NewPCG(k[0], k[1]^splitSalt))
	keys := make([]Key, n)
	for i := range keys {
		keys[i] = Key{r.Uint64(), r.Uint64()}
	}

	return keys
}

// Split2 is Split(2) unpacked.
func (k Key) Split2() (Key, Key) {
	keys := k.Split(2)

	return keys[0], keys[1]
}

// Source returns a fresh math/rand/v2 source for drawing values from k.
// The source is for the caller's exclusive use; it is never shared.
func (k Key) Source() rand.Source {
	return rand.NewPCG(k[0], k[1]^drawSalt)
}

// Rand returns a fresh generator drawing from k.
func (k Key) Rand() *rand.Rand {
	return rand.New(k.Source())
}
