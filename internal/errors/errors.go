package errors

import (
	"errors"
	"fmt"
)

// Common error types for the keygrant server
var (
	// Proof errors
	ErrMalformedTokenID = errors.New("malformed token id")
	ErrInvalidProof     = errors.New("invalid proof")
	ErrRequestTime      = errors.New("request time outside window")
	ErrProofReplayed    = errors.New("proof already used")

	// Token errors
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenInactive = errors.New("token inactive")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")

	// Identity provider errors
	ErrCodeExchange     = errors.New("authorization code exchange failed")
	ErrIdentityResolve  = errors.New("identity resolution failed")
	ErrIdentityNotAllow = errors.New("identity not on allow list")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need only one errors import
func New(text string) error {
	return errors.New(text)
}
