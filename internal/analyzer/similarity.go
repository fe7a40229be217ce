package analyzer

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// tokenAlphabet maps fingerprint tokens onto private-use runes so token
// sequences can be diffed as strings
type tokenAlphabet struct {
	runes map[string]rune
}

func newTokenAlphabet() *tokenAlphabet {
	return &tokenAlphabet{runes: make(map[string]rune)}
}

func (a *tokenAlphabet) encode(tokens []string) []rune {
	out := make([]rune, len(tokens))
	for i, t := range tokens {
		r, ok := a.runes[t]
		if !ok {
			r = privateRune(len(a.runes))
			a.runes[t] = r
		}
		out[i] = r
	}
	return out
}

// privateRune returns the n-th code point of the Unicode private use areas
func privateRune(n int) rune {
	const bmpSize = 0xF8FF - 0xE000 + 1
	if n < bmpSize {
		return rune(0xE000 + n)
	}
	return rune(0xF0000 + n - bmpSize)
}

// SequenceSimilarity scores two encoded token sequences as
// 1 - levenshtein/max(len). Two empty sequences are identical.
func SequenceSimilarity(a, b []rune) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1.0
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	diffs := dmp.DiffMainRunes(a, b, false)
	distance := dmp.DiffLevenshtein(diffs)

	sim := 1.0 - float64(distance)/float64(maxLen)
	if sim < 0 {
		return 0
	}
	return sim
}

// TokenSimilarity scores two token sequences directly
func TokenSimilarity(a, b []string) float64 {
	alphabet := newTokenAlphabet()
	return SequenceSimilarity(alphabet.encode(a), alphabet.encode(b))
}
