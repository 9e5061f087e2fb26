package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"natours/src/types"
)

// GenerateRandomToken returns n random bytes, hex encoded.
func GenerateRandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashToken is the form in which single-use tokens are stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// TokenMatches compares a plaintext token against a stored hash in constant
// time. A nil hash never matches.
func TokenMatches(token string, hashed *string) bool {
	if hashed == nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(*hashed)) == 1
}

// ParseID parses a path id. Failures are reported as a cast error on field.
func ParseID(field, raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, &types.CastError{Path: field, Value: raw}
	}
	return uint(id), nil
}

// ParseLngLat reads "lng,lat".
func ParseLngLat(s string) (lng, lat float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid coordinates %q", s)
	}
	if lng, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err != nil {
		return 0, 0, err
	}
	if lat, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err != nil {
		return 0, 0, err
	}
	return lng, lat, nil
}
