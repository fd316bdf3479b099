// Package validate holds the request validation rules shared by the HTTP API
// and the CLI. Rules are field-scoped: each validator returns every violated
// rule so the caller can render them all at once.
package validate

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"
)

var slugRe = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// FieldErrors maps a field name to the messages for every rule it violated.
type FieldErrors map[string][]string

func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func (e FieldErrors) Empty() bool { return len(e) == 0 }

// Password enforces the account password policy: at least 8 characters with
// one uppercase letter, one digit and one special character. Each violated
// rule produces its own message.
func Password(pw string) []string {
	var msgs []string
	if len(pw) < 8 {
		msgs = append(msgs, "password must be at least 8 characters")
	}
	var hasUpper, hasDigit, hasSpecial bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			hasSpecial = true
		}
	}
	if !hasUpper {
		msgs = append(msgs, "password must contain an uppercase letter")
	}
	if !hasDigit {
		msgs = append(msgs, "password must contain a digit")
	}
	if !hasSpecial {
		msgs = append(msgs, "password must contain a special character")
	}
	return msgs
}

// OrgSlug reports whether s is a valid organization slug: lowercase letter
// first, then lowercase letters, digits or dashes, 3-50 characters.
func OrgSlug(s string) bool {
	if len(s) < 3 || len(s) > 50 {
		return false
	}
	return slugRe.MatchString(s)
}

// Email performs a light RFC 5322 address check.
func Email(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// FullName requires a non-blank display name of at most 200 characters.
func FullName(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && len(s) <= 200
}
