// internal/directory/code.go
package directory

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const (
	codeCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeLength  = 6
)

// NewRoomCode generates a 6-character base-36 room code. Uniqueness is the
// caller's problem: CreateRoom checks the store and retries on collision.
func NewRoomCode() (string, error) {
	b := make([]byte, codeLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate room code: %w", err)
	}
	for i := range b {
		b[i] = codeCharset[int(b[i])%len(codeCharset)]
	}
	return string(b), nil
}

// NormalizeCode maps an inbound code to its canonical uppercase form and
// validates it. Codes are case-sensitive as stored, so everything is
// uppercased at the boundary and only the canonical form ever reaches the
// store.
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != codeLength {
		return "", fmt.Errorf("%w: room code must be %d characters", ErrValidation, codeLength)
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(codeCharset, rune(code[i])) {
			return "", fmt.Errorf("%w: room code must be alphanumeric", ErrValidation)
		}
	}
	return code, nil
}
