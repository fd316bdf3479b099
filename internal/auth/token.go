package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
)

// NewSecureToken returns a 256-bit random token as a 64-char hex string.
// Used for invitation and password-reset tokens.
func NewSecureToken() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

// NewTempPassword returns a random 16-char password that satisfies the
// account password rules: one uppercase letter, digit and special character
// are guaranteed, the rest is drawn from the full charset.
func NewTempPassword() (string, error) {
	const (
		lower   = "abcdefghijkmnopqrstuvwxyz"
		upper   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
		digits  = "23456789"
		special = "!@#$%^&*"
	)
	pick := func(set string) (byte, error) {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
		if err != nil {
			return 0, err
		}
		return set[n.Int64()], nil
	}

	pw := make([]byte, 16)
	var err error
	for i, set := range []string{upper, digits, special} {
		if pw[i], err = pick(set); err != nil {
			return "", err
		}
	}
	for i := 3; i < len(pw); i++ {
		if pw[i], err = pick(lower + upper + digits + special); err != nil {
			return "", err
		}
	}
	for i := len(pw) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		j := n.Int64()
		pw[i], pw[j] = pw[j], pw[i]
	}
	return string(pw), nil
}

// HashToken returns the hex sha256 of a bearer token. Sessions store only
// this hash so a database leak does not leak usable credentials.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
