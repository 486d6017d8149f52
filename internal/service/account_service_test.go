package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"accounthub/api/internal/config"
	"accounthub/api/internal/models"
	"accounthub/api/internal/repository"
	"accounthub/api/internal/security"
)

type memStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]models.User)}
}

func (s *memStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = user
	return nil
}

func (s *memStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (s *memStore) GetByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (s *memStore) Verify(_ context.Context, verificationToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, user := range s.users {
		if !user.Verified && user.VerificationToken != nil && *user.VerificationToken == verificationToken {
			user.Verified = true
			user.VerificationToken = nil
			s.users[id] = user
			return nil
		}
	}
	return repository.ErrUserNotFound
}

func (s *memStore) SetSessionToken(_ context.Context, id string, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.SessionToken = &token
	s.users[id] = user
	return nil
}

func (s *memStore) ClearSessionToken(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.SessionToken = nil
	s.users[id] = user
	return nil
}

func (s *memStore) UpdateSubscription(_ context.Context, id string, tier models.SubscriptionTier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.Subscription = tier
	s.users[id] = user
	return nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

type sentMail struct {
	To    string
	Token string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (n *fakeNotifier) SendVerification(_ context.Context, to string, verificationToken string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{To: to, Token: verificationToken})
	return nil
}

func (n *fakeNotifier) last(t *testing.T) sentMail {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent)
	return n.sent[len(n.sent)-1]
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Environment: "test",
		Security: config.SecurityConfig{
			JWTSecret:         "test-secret",
			TokenTTL:          time.Hour,
			BcryptCost:        bcrypt.MinCost,
			MinPasswordLength: 6,
		},
		Mail: config.MailConfig{
			BaseURL:        "http://localhost:8080",
			StrictDelivery: true,
		},
	}
}

func newTestService(cfg *config.AppConfig) (*AccountService, *memStore, *fakeNotifier) {
	store := newMemStore()
	notifier := &fakeNotifier{}
	svc := NewAccountService(store, notifier, cfg, zerolog.Nop())
	return svc, store, notifier
}

func TestRegister(t *testing.T) {
	svc, store, notifier := newTestService(testConfig())
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: "A@B.CO", Password: "secret123"})
	require.NoError(t, err)

	require.Equal(t, "a@b.co", user.Email)
	require.Equal(t, models.SubscriptionStarter, user.Subscription)
	require.False(t, user.Verified)
	require.NotNil(t, user.VerificationToken)
	require.NotEmpty(t, user.AvatarURL)
	require.NotEqual(t, "secret123", user.PasswordHash)
	require.True(t, security.VerifyPassword("secret123", user.PasswordHash))

	mail := notifier.last(t)
	require.Equal(t, "a@b.co", mail.To)
	require.Equal(t, *user.VerificationToken, mail.Token)

	stored, err := store.FindByEmail(ctx, "a@b.co")
	require.NoError(t, err)
	require.False(t, stored.Verified)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, store, _ := newTestService(testConfig())
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "a@b.co", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Email: "a@b.co", Password: "different9"})
	require.ErrorIs(t, err, ErrEmailTaken)
	require.Equal(t, 1, store.count())
}

func TestRegisterDeliveryFailureStrict(t *testing.T) {
	svc, store, notifier := newTestService(testConfig())
	notifier.err = errors.New("smtp down")

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.co", Password: "secret123"})
	require.ErrorIs(t, err, ErrDelivery)

	// The row persisted even though the caller saw a failure.
	require.Equal(t, 1, store.count())
}

func TestRegisterDeliveryFailureBestEffort(t *testing.T) {
	cfg := testConfig()
	cfg.Mail.StrictDelivery = false
	svc, store, notifier := newTestService(cfg)
	notifier.err = errors.New("smtp down")

	user, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.co", Password: "secret123"})
	require.NoError(t, err)
	require.Equal(t, "a@b.co", user.Email)
	require.Equal(t, 1, store.count())
}

func TestVerifySingleUse(t *testing.T) {
	svc, store, _ := newTestService(testConfig())
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: "a@b.co", Password: "secret123"})
	require.NoError(t, err)
	token := *user.VerificationToken

	require.NoError(t, svc.Verify(ctx, token))

	stored, err := store.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, stored.Verified)
	require.Nil(t, stored.VerificationToken)

	require.ErrorIs(t, svc.Verify(ctx, token), ErrNotFound)
}

func TestVerifyUnknownToken(t *testing.T) {
	svc, _, _ := newTestService(testConfig())
	require.ErrorIs(t, svc.Verify(context.Background(), "no-such-token"), ErrNotFound)
}

func TestResendVerification(t *testing.T) {
	svc, _, notifier := newTestService(testConfig())
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: "a@b.co", Password: "secret123"})
	require.NoError(t, err)
	original := *user.VerificationToken

	require.NoError(t, svc.ResendVerification(ctx, "a@b.co"))

	// The stored token is resent, never regenerated.
	mail := notifier.last(t)
	require.Equal(t, original, mail.Token)
}

func TestResendVerificationUnknownEmail(t *testing.T) {
	svc, _, _ := newTestService(testConfig())
	require.ErrorIs(t, svc.ResendVerification(context.Background(), "nobody@b.co"), ErrUnknownEmail)
}

func TestResendVerificationAlreadyVerified(t *testing.T) {
	svc, _, _ := newTestService(testConfig())
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: "a@b.co", Password: "secret123"})
	require.NoError(t, err)
	require.NoError(t, svc.Verify(ctx, *user.VerificationToken))

	require.ErrorIs(t, svc.ResendVerification(ctx, "a@b.co"), ErrAlreadyVerified)
}

func TestLoginBeforeVerification(t *testing.T) {
	svc, _, _ := newTestService(testConfig())
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "a@b.co", Password: "secret123"})
	require.NoError(t, err)

	// Correct password, still rejected until verified.
	_, err = svc.Login(ctx, LoginInput{Email: "a@b.co", Password: "secret123"})
	require.ErrorIs(t, err, ErrEmailNotVerified)
}

func TestLoginCredentialFailuresIndistinguishable(t *testing.T) {
	svc, _, _ := newTestService(testConfig())
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: "a@b.co", Password: "secret123"})
	require.NoError(t, err)
	require.NoError(t, svc.Verify(ctx, *user.VerificationToken))

	_, wrongPassword := svc.Login(ctx, LoginInput{Email: "a@b.co", Password: "wrong-password"})
	_, unknownEmail := svc.Login(ctx, LoginInput{Email: "nobody@b.co", Password: "secret123"})

	require.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	require.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
}

func TestLogin(t *testing.T) {
	cfg := testConfig()
	svc, store, _ := newTestService(cfg)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: "a@b.co", Password: "secret123"})
	require.NoError(t, err)
	require.NoError(t, svc.Verify(ctx, *user.VerificationToken))

	result, err := svc.Login(ctx, LoginInput{Email: "a@b.co", Password: "secret123"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	require.Equal(t, "a@b.co", result.User.Email)
	require.Equal(t, models.SubscriptionStarter, result.User.Subscription)

	claims, err := security.ParseSessionToken(result.Token, cfg.Security.JWTSecret)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, "a@b.co", claims.Email)
	require.Equal(t, "starter", claims.Subscription)

	stored, err := store.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.SessionToken)
	require.Equal(t, result.Token, *stored.SessionToken)
}

func TestLogout(t *testing.T) {
	svc, store, _ := newTestService(testConfig())
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: "a@b.co", Password: "secret123"})
	require.NoError(t, err)
	require.NoError(t, svc.Verify(ctx, *user.VerificationToken))

	_, err = svc.Login(ctx, LoginInput{Email: "a@b.co", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, user.ID))

	stored, err := store.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Nil(t, stored.SessionToken)
}

func TestUpdateSubscription(t *testing.T) {
	svc, store, _ := newTestService(testConfig())
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: "a@b.co", Password: "secret123"})
	require.NoError(t, err)

	tier, err := svc.UpdateSubscription(ctx, user.ID, "pro")
	require.NoError(t, err)
	require.Equal(t, models.SubscriptionPro, tier)

	stored, err := store.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubscriptionPro, stored.Subscription)
}

func TestUpdateSubscriptionInvalidTier(t *testing.T) {
	svc, _, _ := newTestService(testConfig())
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: "a@b.co", Password: "secret123"})
	require.NoError(t, err)

	for _, tier := range []string{"", "enterprise", "Starter", "gold"} {
		_, err := svc.UpdateSubscription(ctx, user.ID, tier)
		require.ErrorIs(t, err, ErrInvalidSubscription, "tier %q", tier)
	}
}

func TestUpdateSubscriptionUnknownUser(t *testing.T) {
	svc, _, _ := newTestService(testConfig())
	_, err := svc.UpdateSubscription(context.Background(), "missing", "pro")
	require.ErrorIs(t, err, ErrNotFound)
}
