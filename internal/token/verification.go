package token

import "github.com/google/uuid"

// NewVerificationToken produces a single-use opaque token for email
// confirmation. Uniqueness is enforced by the account store, which keeps a
// unique index on the token column; a collision surfaces there as a
// constraint violation rather than being silently ignored.
func NewVerificationToken() string {
	return uuid.NewString()
}
