package random

import (
	"crypto/rand"
)

// Random produces random room codes; mocked in tests to force collisions
type Random interface {
	// String returns length characters drawn uniformly from alphabet
	String(length int, alphabet string) string
}

// CryptoRandom draws from crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// String returns length characters drawn uniformly from alphabet.
// Bytes that would bias the distribution are rejected and redrawn.
func (r *CryptoRandom) String(length int, alphabet string) string {
	n := len(alphabet)
	if length <= 0 || n == 0 || n > 256 {
		return ""
	}
	limit := 256 - (256 % n)

	out := make([]byte, 0, length)
	buf := make([]byte, length*2)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			// crypto/rand.Read does not fail on supported platforms
			panic(err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%n])
			if len(out) == length {
				break
			}
		}
	}
	return string(out)
}
