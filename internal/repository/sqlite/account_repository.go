package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"account-service/internal/domain"
	"account-service/internal/repository"
)

const createAccountsTable = `
CREATE TABLE IF NOT EXISTS accounts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	is_verified INTEGER NOT NULL DEFAULT 0,
	verification_token TEXT UNIQUE,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) repository.AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createAccountsTable); err != nil {
		return fmt.Errorf("create accounts table: %w", err)
	}
	return nil
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (int64, error) {
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO accounts (username, email, password_hash, is_verified, verification_token, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.IsVerified,
		nullableToken(account.VerificationToken),
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return 0, mapInsertError(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("account last insert id: %w", err)
	}
	account.ID = id
	return id, nil
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, selectAccount+`WHERE username = ?`, username)
	return scanAccount(row)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, selectAccount+`WHERE email = ?`, email)
	return scanAccount(row)
}

func (r *AccountRepository) GetByVerificationToken(ctx context.Context, token string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, selectAccount+`WHERE verification_token = ?`, token)
	return scanAccount(row)
}

func (r *AccountRepository) MarkVerified(ctx context.Context, id int64) (*domain.Account, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE accounts
SET is_verified = 1, verification_token = NULL, updated_at = ?
WHERE id = ?`,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("mark account verified: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("mark verified rows affected: %w", err)
	}
	if affected == 0 {
		return nil, repository.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, selectAccount+`WHERE id = ?`, id)
	return scanAccount(row)
}

const selectAccount = `
SELECT id, username, email, password_hash, is_verified, verification_token, created_at, updated_at
FROM accounts
`

// mapInsertError translates sqlite UNIQUE violations into repository
// sentinels. The username constraint is checked first so that a request
// colliding on both keys reports the username deterministically.
func mapInsertError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique") {
		switch {
		case strings.Contains(msg, "accounts.username"):
			return repository.ErrUsernameExists
		case strings.Contains(msg, "accounts.email"):
			return repository.ErrEmailExists
		}
		return fmt.Errorf("account uniqueness violation: %w", err)
	}
	return fmt.Errorf("insert account: %w", err)
}

func nullableToken(token string) sql.NullString {
	return sql.NullString{String: token, Valid: token != ""}
}

func scanAccount(row interface {
	Scan(dest ...any) error
}) (*domain.Account, error) {
	var account domain.Account
	var token sql.NullString
	if err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.IsVerified,
		&token,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	if token.Valid {
		account.VerificationToken = token.String
	}
	return &account, nil
}
