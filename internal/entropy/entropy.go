// Package entropy scores how random a token looks.
package entropy

import (
	"math"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Base64Alphabet is the reference set secrets are scored against
const Base64Alphabet = "+/=" +
	"abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"0123456789"

// Shannon returns the entropy of data in bits per character, counting only the
// characters of alphabet. Characters outside the alphabet still contribute to
// the length, so text that is mostly punctuation or whitespace scores low.
// It never fails: empty input and internal faults both yield 0.
func Shannon(data, alphabet string) (h float64) {
	defer func() {
		if r := recover(); r != nil {
			zap.S().Errorw("entropy calculation failed", "panic", r)
			h = 0
		}
	}()

	n := utf8.RuneCountInString(data)
	if n == 0 {
		return 0
	}

	counts := make(map[rune]int, len(alphabet))
	for _, c := range data {
		counts[c]++
	}

	seen := make(map[rune]bool, len(alphabet))
	for _, c := range alphabet {
		if seen[c] {
			continue
		}
		seen[c] = true

		p := float64(counts[c]) / float64(n)
		if p > 0 {
			h -= p * math.Log2(p)
		}
	}
	return h
}

// Base64 scores data against Base64Alphabet
func Base64(data string) float64 {
	return Shannon(data, Base64Alphabet)
}
