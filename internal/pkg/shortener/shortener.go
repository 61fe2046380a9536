package shortener

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Base62 alphabet (0-9, a-z, A-Z) used for public short codes.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateSecureSlug creates a cryptographically secure random Base62 slug.
func GenerateSecureSlug(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid slug length: %d", length)
	}

	// Rejection sampling to avoid modulo bias.
	// 248 is the largest multiple of 62 below 256.
	const maxRandomByte = 248

	slug := make([]byte, length)
	buf := make([]byte, length*2)
	written := 0

	for written < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read secure random bytes: %w", err)
		}

		for _, b := range buf {
			if b >= maxRandomByte {
				continue
			}
			slug[written] = alphabet[int(b)%len(alphabet)]
			written++
			if written == length {
				break
			}
		}
	}

	return string(slug), nil
}

// EncodeID converts a numeric id into its base62 representation, the same
// scheme URL shorteners use for compact sequential codes.
func EncodeID(id uint) string {
	if id == 0 {
		return string(alphabet[0])
	}

	base := uint(len(alphabet))
	encoded := strings.Builder{}

	for id > 0 {
		encoded.WriteByte(alphabet[id%base])
		id = id / base
	}

	// Digits were produced least-significant first.
	str := encoded.String()
	reversed := make([]byte, len(str))
	for i := 0; i < len(str); i++ {
		reversed[len(str)-1-i] = str[i]
	}
	return string(reversed)
}

// DecodeID converts a base62 code back into its numeric id. Characters
// outside the alphabet are skipped.
func DecodeID(encoded string) uint {
	base := uint(len(alphabet))
	var id uint

	for i := 0; i < len(encoded); i++ {
		value := strings.IndexByte(alphabet, encoded[i])
		if value == -1 {
			continue
		}
		id = id*base + uint(value)
	}
	return id
}
