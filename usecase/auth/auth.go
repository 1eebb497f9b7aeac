package auth

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/accounts/domain"
	"github.com/fastygo/accounts/pkg/token"
	"github.com/fastygo/accounts/repository"
)

// Registrar creates users; implemented by the users service.
type Registrar interface {
	Create(ctx context.Context, input domain.NewUser, actor string) (*domain.User, error)
}

// CredentialVerifier checks a plaintext credential against a stored hash.
type CredentialVerifier interface {
	Verify(plain, hash string) bool
}

// TokenIssuer signs and verifies session tokens.
type TokenIssuer interface {
	Issue(userID int64, nationalID string) (string, error)
	Verify(raw string) (*token.Claims, error)
}

// Session is what a client receives after registering or logging in.
type Session struct {
	Token string             `json:"token"`
	User  domain.UserSummary `json:"user"`
}

type UseCase struct {
	registrar Registrar
	users     repository.UserRepository
	verifier  CredentialVerifier
	tokens    TokenIssuer
	logger    *zap.Logger
}

func New(registrar Registrar, users repository.UserRepository, verifier CredentialVerifier, tokens TokenIssuer, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		registrar: registrar,
		users:     users,
		verifier:  verifier,
		tokens:    tokens,
		logger:    logger,
	}
}

// Register creates the account through the cache-aware users service and
// opens a session for it.
func (uc *UseCase) Register(ctx context.Context, input domain.NewUser) (*domain.User, *Session, error) {
	user, err := uc.registrar.Create(ctx, input, domain.SystemActor)
	if err != nil {
		return nil, nil, err
	}

	session, err := uc.issue(user)
	if err != nil {
		return nil, nil, err
	}
	uc.logger.Info("user registered", zap.Int64("user_id", user.ID))
	return user, session, nil
}

// Login authenticates against the store, never the cache. Unknown national
// ids, removed accounts and wrong passwords fail identically.
func (uc *UseCase) Login(ctx context.Context, nationalID, password string) (*Session, error) {
	nationalID = strings.TrimSpace(nationalID)
	if nationalID == "" || password == "" {
		return nil, domain.Invalid("national_id and password are required", nil)
	}

	user, err := uc.users.FindByNationalID(ctx, nationalID)
	if err != nil && !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		return nil, err
	}

	var hash string
	if user != nil {
		hash = user.PasswordHash
	}
	if !uc.verifier.Verify(password, hash) || !user.IsActive() {
		return nil, domain.ErrInvalidCredentials
	}

	return uc.issue(user)
}

// Authenticate resolves a session token to the acting user id.
func (uc *UseCase) Authenticate(raw string) (int64, error) {
	claims, err := uc.tokens.Verify(raw)
	if err != nil {
		return 0, domain.WrapError(domain.ErrCodeUnauthorized, "invalid session token", err)
	}
	return claims.UserID, nil
}

func (uc *UseCase) issue(user *domain.User) (*Session, error) {
	signed, err := uc.tokens.Issue(user.ID, user.NationalID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "could not issue session token", err)
	}
	return &Session{Token: signed, User: user.Summary()}, nil
}
