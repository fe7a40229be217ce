package analyzer

import (
	"hash/fnv"
	"math"
)

const defaultNumHashes = 128

// splitmix64 finalizer constants
const (
	mixMul1   = 0xbf58476d1ce4e5b9
	mixMul2   = 0x94d049bb133111eb
	seedBase  = 0x517cc1b727220a95
	seedDelta = 0x9e3779b97f4a7c15
)

// MinHasher computes MinHash signatures over string feature sets
type MinHasher struct {
	numHashes int
	seeds     []uint64
}

// MinHashSignature is a fixed-size MinHash signature
type MinHashSignature struct {
	values []uint64
}

// Signatures returns the per-hash minimum values
func (s *MinHashSignature) Signatures() []uint64 {
	return s.values
}

// NewMinHasher creates a hasher with numHashes independent hash functions
func NewMinHasher(numHashes int) *MinHasher {
	if numHashes <= 0 {
		numHashes = defaultNumHashes
	}
	seeds := make([]uint64, numHashes)
	state := uint64(seedBase)
	for i := range seeds {
		state += seedDelta
		seeds[i] = mix64(state)
	}
	return &MinHasher{numHashes: numHashes, seeds: seeds}
}

// NumHashes returns the signature length
func (m *MinHasher) NumHashes() int {
	return m.numHashes
}

// ComputeSignature returns the MinHash signature of the feature set.
// Duplicate features do not change the signature.
func (m *MinHasher) ComputeSignature(features []string) *MinHashSignature {
	values := make([]uint64, m.numHashes)
	for i := range values {
		values[i] = math.MaxUint64
	}

	seen := make(map[string]struct{}, len(features))
	for _, f := range features {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}

		base := hash64(f)
		for i, seed := range m.seeds {
			if h := mix64(base ^ seed); h < values[i] {
				values[i] = h
			}
		}
	}
	return &MinHashSignature{values: values}
}

// hash64 is the FNV-1a base hash of a feature
func hash64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func mix64(x uint64) uint64 {
	x = (x ^ (x >> 30)) * mixMul1
	x = (x ^ (x >> 27)) * mixMul2
	return x ^ (x >> 31)
}
