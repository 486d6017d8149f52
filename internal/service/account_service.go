package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"accounthub/api/internal/config"
	"accounthub/api/internal/ids"
	"accounthub/api/internal/models"
	"accounthub/api/internal/repository"
	"accounthub/api/internal/security"
)

var (
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailNotVerified    = errors.New("email not verified")
	ErrUnknownEmail        = errors.New("unknown email")
	ErrAlreadyVerified     = errors.New("already verified")
	ErrNotFound            = errors.New("not found")
	ErrInvalidSubscription = errors.New("invalid subscription")
	ErrDelivery            = errors.New("verification delivery failed")
)

// UserStore is the persistence surface the account state machine needs.
// Implemented by repository.UserRepository.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	Verify(ctx context.Context, verificationToken string) error
	SetSessionToken(ctx context.Context, id string, token string) error
	ClearSessionToken(ctx context.Context, id string) error
	UpdateSubscription(ctx context.Context, id string, tier models.SubscriptionTier) error
}

// Notifier delivers verification messages. Implemented by mailer.Mailer.
type Notifier interface {
	SendVerification(ctx context.Context, to string, verificationToken string) error
}

// AccountService orchestrates registration, verification, login, logout
// and subscription changes over the store, hasher, token issuer and
// notifier.
type AccountService struct {
	users    UserStore
	notifier Notifier
	cfg      *config.AppConfig
	log      zerolog.Logger
}

func NewAccountService(users UserStore, notifier Notifier, cfg *config.AppConfig, log zerolog.Logger) *AccountService {
	return &AccountService{
		users:    users,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
	}
}

type RegisterInput struct {
	Email    string
	Password string
}

// Register creates an unverified account on the starter tier and mails
// the verification token. Duplicate emails surface as ErrEmailTaken via
// the store's unique constraint; there is no pre-check.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (models.User, error) {
	email := normalizeEmail(input.Email)

	verificationToken, err := security.NewVerificationToken()
	if err != nil {
		return models.User{}, err
	}

	passwordHash, err := security.HashPassword(input.Password, s.cfg.Security.BcryptCost)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:                ids.New(),
		Email:             email,
		PasswordHash:      passwordHash,
		Subscription:      models.SubscriptionStarter,
		AvatarURL:         security.AvatarURL(email),
		Verified:          false,
		VerificationToken: &verificationToken,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}

	if err := s.notifier.SendVerification(ctx, email, verificationToken); err != nil {
		if s.cfg.Mail.StrictDelivery {
			// The row already persisted; the caller still sees a failure.
			return models.User{}, fmt.Errorf("%w: %v", ErrDelivery, err)
		}
		s.log.Error().Err(err).Str("email", email).Msg("verification email failed, continuing")
	}

	return user, nil
}

// Verify consumes a verification token. Tokens are single-use: a second
// call with the same token reports ErrNotFound.
func (s *AccountService) Verify(ctx context.Context, verificationToken string) error {
	if err := s.users.Verify(ctx, verificationToken); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// ResendVerification mails the stored token again. The token is never
// regenerated here.
func (s *AccountService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUnknownEmail
		}
		return err
	}

	if user.Verified {
		return ErrAlreadyVerified
	}
	if user.VerificationToken == nil {
		return fmt.Errorf("unverified account %s has no verification token", user.ID)
	}

	if err := s.notifier.SendVerification(ctx, user.Email, *user.VerificationToken); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginResult struct {
	Token string
	User  models.User
}

// Login gates on existence, verification and password in that order. An
// unknown email and a wrong password produce the same error, so callers
// cannot probe which addresses are registered.
func (s *AccountService) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if !user.Verified {
		return LoginResult{}, ErrEmailNotVerified
	}

	if !security.VerifyPassword(input.Password, user.PasswordHash) {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := security.GenerateSessionToken(
		s.cfg.Security.JWTSecret,
		user.ID,
		user.Email,
		string(user.Subscription),
		s.cfg.Security.TokenTTL,
	)
	if err != nil {
		return LoginResult{}, err
	}

	// The signed token is only honored while it matches this stored copy,
	// which is what makes logout and single-session enforcement work.
	if err := s.users.SetSessionToken(ctx, user.ID, token); err != nil {
		return LoginResult{}, err
	}

	user.SessionToken = &token
	return LoginResult{Token: token, User: user}, nil
}

func (s *AccountService) Logout(ctx context.Context, userID string) error {
	return s.users.ClearSessionToken(ctx, userID)
}

// UpdateSubscription moves the account to another tier from the fixed
// enumeration.
func (s *AccountService) UpdateSubscription(ctx context.Context, userID string, subscription string) (models.SubscriptionTier, error) {
	tier, ok := models.ParseSubscriptionTier(subscription)
	if !ok {
		return "", ErrInvalidSubscription
	}

	if err := s.users.UpdateSubscription(ctx, userID, tier); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return tier, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
