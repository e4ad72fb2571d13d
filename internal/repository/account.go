package repository

import (
	"context"
	"errors"

	"account-service/internal/domain"
)

var (
	// ErrNotFound is returned when no account matches the lookup key.
	ErrNotFound = errors.New("account not found")
	// ErrUsernameExists is returned when a create collides on username.
	ErrUsernameExists = errors.New("username already exists")
	// ErrEmailExists is returned when a create collides on email.
	ErrEmailExists = errors.New("email already exists")
)

// AccountRepository defines persistence operations for Account entities.
// Create must be atomic with respect to the uniqueness of username, email
// and verification token: two concurrent creates with a colliding key
// cannot both succeed.
type AccountRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, account *domain.Account) (int64, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByVerificationToken(ctx context.Context, token string) (*domain.Account, error)
	MarkVerified(ctx context.Context, id int64) (*domain.Account, error)
}
