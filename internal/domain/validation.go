package domain

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Password length bounds, in characters.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 20
)

// PasswordSpecialChars is the set of characters that satisfy the
// special-character requirement of RequireStrongPassword.
const PasswordSpecialChars = "!@#$%^&-+=()"

// MinPhoneDigits is the fewest digits a phone number may contain.
const MinPhoneDigits = 3

// phonePattern accepts an optional "+CCC" country code, an optional "(AAA)"
// area code, then a run of digits, spaces and hyphens. It is matched anywhere
// in the input, so it is a shape check rather than a full-string grammar.
var phonePattern = regexp.MustCompile(`(?:\+\d{1,3}[-\s]?)?(?:\(\d{1,3}\)[-.\s]?)?[\d\-\s]{3,}`)

// RequireNonBlank fails if s is empty or only whitespace.
func RequireNonBlank(field, s string) error {
	if strings.TrimSpace(s) == "" {
		return NewValidationError(field, field+" must not be blank")
	}
	return nil
}

// RequirePhoneShape fails unless s looks like a phone number.
func RequirePhoneShape(s string) error {
	if err := RequireNonBlank("phone", s); err != nil {
		return err
	}

	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}

	if digits < MinPhoneDigits || !phonePattern.MatchString(s) {
		return NewValidationError("phone", "phone number format is invalid")
	}
	return nil
}

// RequireNonNegative fails if n is below zero.
func RequireNonNegative(field string, n int) error {
	if n < 0 {
		return NewValidationError(field, field+" must not be negative")
	}
	return nil
}

// RequireStrongPassword fails unless s is 8-20 characters long, has no
// whitespace, and mixes digits, upper and lower case letters and at least one
// character from PasswordSpecialChars.
func RequireStrongPassword(s string) error {
	n := utf8.RuneCountInString(s)
	if n < MinPasswordLength || n > MaxPasswordLength {
		return NewValidationError("password", "password must be between 8 and 20 characters")
	}

	var hasDigit, hasUpper, hasLower, hasSpecial bool
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			return NewValidationError("password", "password must not contain whitespace")
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case strings.ContainsRune(PasswordSpecialChars, r):
			hasSpecial = true
		}
	}

	switch {
	case !hasDigit:
		return NewValidationError("password", "password must contain a digit")
	case !hasUpper:
		return NewValidationError("password", "password must contain an uppercase letter")
	case !hasLower:
		return NewValidationError("password", "password must contain a lowercase letter")
	case !hasSpecial:
		return NewValidationError("password", "password must contain one of "+PasswordSpecialChars)
	}
	return nil
}
