package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/sirupsen/logrus"

	"account-service/internal/domain"
	"account-service/internal/notify"
	"account-service/internal/password"
	"account-service/internal/repository"
	"account-service/internal/token"
)

var (
	// ErrValidation indicates a malformed username or email.
	ErrValidation = errors.New("invalid input")
	// ErrWeakPassword indicates the password fails the strength policy.
	ErrWeakPassword = errors.New("password too weak")
	// ErrUsernameTaken is returned when the username is already registered.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrEmailTaken is returned when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidVerificationToken covers tokens that were never issued or
	// have already been consumed.
	ErrInvalidVerificationToken = errors.New("invalid or expired token")
	// ErrInvalidCredentials covers both unknown email and wrong password;
	// callers cannot tell which.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailNotVerified is returned on login before email confirmation.
	ErrEmailNotVerified = errors.New("email not verified")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// AccountService orchestrates the account lifecycle: registration, email
// verification, login and profile lookup.
type AccountService interface {
	Register(ctx context.Context, username, email, plaintext string) (*domain.Account, error)
	VerifyEmail(ctx context.Context, verificationToken string) (*domain.Account, error)
	Login(ctx context.Context, email, plaintext string) (string, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
}

type accountService struct {
	accounts repository.AccountRepository
	hasher   password.Hasher
	sessions *token.Issuer
	notifier notify.Notifier
	logger   *logrus.Logger
}

func NewAccountService(
	accounts repository.AccountRepository,
	hasher password.Hasher,
	sessions *token.Issuer,
	notifier notify.Notifier,
	logger *logrus.Logger,
) AccountService {
	return &accountService{
		accounts: accounts,
		hasher:   hasher,
		sessions: sessions,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *accountService) Register(ctx context.Context, username, email, plaintext string) (*domain.Account, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := validateShape(username, email); err != nil {
		return nil, err
	}
	if err := validateStrength(plaintext); err != nil {
		return nil, err
	}

	// Username is checked before email so a request colliding on both
	// reports the username conflict.
	if err := s.ensureAvailable(ctx, username, email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &domain.Account{
		Username:          username,
		Email:             email,
		PasswordHash:      hash,
		VerificationToken: token.NewVerificationToken(),
	}

	if _, err := s.accounts.Create(ctx, account); err != nil {
		// The store's unique constraints close the race the lookups above
		// cannot; map them to the same conflicts.
		switch {
		case errors.Is(err, repository.ErrUsernameExists):
			return nil, ErrUsernameTaken
		case errors.Is(err, repository.ErrEmailExists):
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	if err := s.notifier.SendVerification(ctx, account.Email, account.VerificationToken); err != nil {
		s.logger.Warnf("send verification to %s: %v", account.Email, err)
	}

	return sanitizeAccount(account), nil
}

func (s *accountService) VerifyEmail(ctx context.Context, verificationToken string) (*domain.Account, error) {
	if verificationToken == "" {
		return nil, ErrInvalidVerificationToken
	}

	account, err := s.accounts.GetByVerificationToken(ctx, verificationToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidVerificationToken
		}
		return nil, err
	}

	updated, err := s.accounts.MarkVerified(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("mark verified: %w", err)
	}

	s.logger.Infof("account verified: %s", updated.Username)
	return sanitizeAccount(updated), nil
}

func (s *accountService) Login(ctx context.Context, email, plaintext string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || plaintext == "" {
		return "", ErrInvalidCredentials
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if !s.hasher.Verify(plaintext, account.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	// Checked only after the password matched, so this cannot be used to
	// probe for registered emails.
	if !account.IsVerified {
		return "", ErrEmailNotVerified
	}

	session, err := s.sessions.Issue(account.Email)
	if err != nil {
		return "", fmt.Errorf("issue session token: %w", err)
	}

	s.logger.Infof("account logged in: %s", account.Username)
	return session, nil
}

func (s *accountService) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return sanitizeAccount(account), nil
}

func validateShape(username, email string) error {
	if err := validation.Validate(username,
		validation.Required,
		validation.Length(3, 50),
		validation.Match(usernamePattern).Error("must contain only letters, digits and underscores"),
	); err != nil {
		return fmt.Errorf("%w: username %s", ErrValidation, err)
	}
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return fmt.Errorf("%w: email %s", ErrValidation, err)
	}
	return nil
}

func validateStrength(plaintext string) error {
	if len(plaintext) < 8 {
		return fmt.Errorf("%w: must be at least 8 characters", ErrWeakPassword)
	}
	var hasLetter, hasDigit bool
	for _, r := range plaintext {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter {
		return fmt.Errorf("%w: must contain at least one letter", ErrWeakPassword)
	}
	if !hasDigit {
		return fmt.Errorf("%w: must contain at least one digit", ErrWeakPassword)
	}
	return nil
}

func (s *accountService) ensureAvailable(ctx context.Context, username, email string) error {
	if _, err := s.accounts.GetByUsername(ctx, username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

// sanitizeAccount strips the credential hash and the verification token
// before an account leaves the service.
func sanitizeAccount(account *domain.Account) *domain.Account {
	if account == nil {
		return nil
	}
	return &domain.Account{
		ID:         account.ID,
		Username:   account.Username,
		Email:      account.Email,
		IsVerified: account.IsVerified,
		CreatedAt:  account.CreatedAt,
		UpdatedAt:  account.UpdatedAt,
	}
}
