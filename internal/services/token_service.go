package services

import (
	"github.com/stampcard/stampcard-api/internal/apperrors"
)

// TokenValidator authorizes a stamp-add request. The deployed strategy is a
// single static shared secret; a rotating or signed-token scheme can be
// swapped in behind the same interface without touching the stamp engine.
type TokenValidator interface {
	Authorize(token string) error
}

// StaticTokenValidator compares the presented token against one
// process-wide shared secret using exact string equality. No rotation, no
// expiry, no replay protection: any holder of the printed QR code can stamp
// any identifier, bounded only by the cooldown. That is the intended
// (minimal) security contract.
type StaticTokenValidator struct {
	secret string
}

// NewStaticTokenValidator creates a validator for the given shared secret.
func NewStaticTokenValidator(secret string) *StaticTokenValidator {
	return &StaticTokenValidator{secret: secret}
}

// Authorize returns apperrors.ErrUnauthorized unless token equals the
// shared secret. An empty secret rejects everything rather than accepting
// empty tokens.
func (v *StaticTokenValidator) Authorize(token string) error {
	if v.secret == "" || token != v.secret {
		return apperrors.Unauthorizedf("invalid stamp token")
	}
	return nil
}
