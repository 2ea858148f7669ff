package users

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

// PasswordAlphabet is the character set generated passwords draw from.
const PasswordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%^&*"

// PasswordLength is the length of every generated password.
const PasswordLength = 10

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// GenerateUsername derives firstname.lastname, lowercased, with all whitespace
// removed. "Jean", "Dupont" gives "jean.dupont".
func GenerateUsername(firstName, lastName string) string {
	return strings.ToLower(stripSpace(firstName)) + "." + strings.ToLower(stripSpace(lastName))
}

// GeneratePassword returns a random PasswordLength password over PasswordAlphabet.
func GeneratePassword() (string, error) {
	max := big.NewInt(int64(len(PasswordAlphabet)))
	b := make([]byte, PasswordLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		b[i] = PasswordAlphabet[n.Int64()]
	}
	return string(b), nil
}
