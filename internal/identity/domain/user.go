package domain

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode"
)

// User is an account on the platform. Emails are globally unique and always
// stored lower-cased; NormalizeEmail must be applied before any lookup or
// insert. The reset token fields are a pair: both set or both nil.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string // argon2id PHC encoded
	SuperAdmin   bool
	ResetTokenHash *string    // SHA-256 fingerprint of the reset token (nullable)
	ResetSentAt    *time.Time // when the reset token was issued (nullable)
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const (
	MinPasswordLength = 8
	MinNameLength     = 2
	MaxNameLength     = 100
)

var (
	ErrInvalidEmail     = errors.New("domain: invalid email address")
	ErrPasswordTooShort = errors.New("domain: password must be at least 8 characters")
	ErrInvalidName      = errors.New("domain: name must be between 2 and 100 characters")
)

// NormalizeEmail lower-cases and trims an email address. Every code path
// that touches the users table goes through this, there is no save hook
// doing it implicitly.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the address parses as a bare RFC 5322 address.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// ValidateName enforces display name length bounds.
func ValidateName(name string) error {
	n := len([]rune(strings.TrimSpace(name)))
	if n < MinNameLength || n > MaxNameLength {
		return ErrInvalidName
	}
	return nil
}

// DisplayNameFromEmail derives a human-looking display name from the local
// part of an email address: "jane.doe@example.com" becomes "Jane Doe".
// Used when auto-provisioning accounts for invited users.
func DisplayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(NormalizeEmail(email), "@")
	words := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	if len(words) == 0 {
		return local
	}
	return strings.Join(words, " ")
}
