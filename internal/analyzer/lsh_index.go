package analyzer

import (
	"encoding/binary"
	"errors"
	"hash/fnv"
	"sort"
)

const (
	defaultBands = 32
	defaultRows  = 4
)

// LSHIndex buckets MinHash signatures by band so similar fragments can be
// found without comparing every pair
type LSHIndex struct {
	bands   int
	rows    int
	buckets []map[uint64][]string
	sigs    map[string]*MinHashSignature
}

// NewLSHIndex creates an index with the given band layout
func NewLSHIndex(bands, rows int) *LSHIndex {
	if bands <= 0 {
		bands = defaultBands
	}
	if rows <= 0 {
		rows = defaultRows
	}
	buckets := make([]map[uint64][]string, bands)
	for i := range buckets {
		buckets[i] = make(map[uint64][]string)
	}
	return &LSHIndex{
		bands:   bands,
		rows:    rows,
		buckets: buckets,
		sigs:    make(map[string]*MinHashSignature),
	}
}

// Bands returns the number of bands
func (idx *LSHIndex) Bands() int { return idx.bands }

// Rows returns the number of rows per band
func (idx *LSHIndex) Rows() int { return idx.rows }

// Size returns the number of indexed fragments
func (idx *LSHIndex) Size() int { return len(idx.sigs) }

// AddFragment indexes a signature under id. Re-adding an id is a no-op.
func (idx *LSHIndex) AddFragment(id string, sig *MinHashSignature) error {
	if sig == nil {
		return errors.New("lsh: signature must not be nil")
	}
	if id == "" {
		return errors.New("lsh: fragment id must not be empty")
	}
	if _, exists := idx.sigs[id]; exists {
		return nil
	}
	idx.sigs[id] = sig
	for b, h := range idx.bandHashes(sig) {
		idx.buckets[b][h] = append(idx.buckets[b][h], id)
	}
	return nil
}

// FindCandidates returns the sorted ids sharing at least one band with sig
func (idx *LSHIndex) FindCandidates(sig *MinHashSignature) []string {
	if sig == nil || len(idx.sigs) == 0 {
		return []string{}
	}
	seen := make(map[string]bool)
	for b, h := range idx.bandHashes(sig) {
		for _, id := range idx.buckets[b][h] {
			seen[id] = true
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// bandHashes hashes each band of rows consecutive values. Bands past the end
// of a short signature are skipped.
func (idx *LSHIndex) bandHashes(sig *MinHashSignature) map[int]uint64 {
	values := sig.Signatures()
	out := make(map[int]uint64, idx.bands)
	buf := make([]byte, 8)
	for b := 0; b < idx.bands; b++ {
		start := b * idx.rows
		end := start + idx.rows
		if end > len(values) {
			break
		}
		h := fnv.New64a()
		for _, v := range values[start:end] {
			binary.LittleEndian.PutUint64(buf, v)
			_, _ = h.Write(buf)
		}
		out[b] = h.Sum64()
	}
	return out
}
