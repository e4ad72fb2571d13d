package domain

import "time"

// Account represents one registered user of the service.
type Account struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	IsVerified   bool
	// VerificationToken is present while the account is unverified and
	// cleared (empty) once the email has been confirmed.
	VerificationToken string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
