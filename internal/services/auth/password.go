// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"fmt"
	"unicode"
)

// ValidationError reports a malformed, non-sensitive input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// PasswordPolicy holds the configurable strength requirements.
type PasswordPolicy struct {
	MinLength int
}

// Validate checks a candidate password against the policy.
func (p PasswordPolicy) Validate(password string) error {
	minLength := p.MinLength
	if minLength <= 0 {
		minLength = 8
	}

	if len(password) < minLength {
		return &ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("password must be at least %d characters long", minLength),
		}
	}

	if entirelyNumeric(password) {
		return &ValidationError{
			Field:   "password",
			Message: "password cannot be entirely numeric",
		}
	}

	return nil
}

func entirelyNumeric(password string) bool {
	for _, r := range password {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(password) > 0
}
