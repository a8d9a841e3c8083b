package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/hotel-booking/internal/token"
)

// UserRepository captures the persistence operations for accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, creds UserCredentials) error
	UpdateUser(ctx context.Context, creds UserCredentials) error
	GetUser(ctx context.Context, id string) (UserCredentials, error)
	GetUserByEmail(ctx context.Context, email string) (UserCredentials, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// SessionRepository captures the persistence interactions for issued sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	RevokeSession(ctx context.Context, id string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// TokenIssuer signs and verifies bearer tokens.
type TokenIssuer interface {
	Issue(userID, role string) (string, token.Claims, error)
	Parse(raw string) (token.Claims, error)
}

// AuthService coordinates registration, login and session validation.
type AuthService struct {
	users          UserRepository
	sessions       SessionRepository
	tokens         TokenIssuer
	hashPassword   PasswordHasher
	verifyPassword PasswordVerifier
	idGenerator    func() string
	now            func() time.Time
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(users UserRepository, sessions SessionRepository, tokens TokenIssuer, hash PasswordHasher, verify PasswordVerifier, idGenerator func() string, now func() time.Time) *AuthService {
	return NewAuthServiceWithLogger(users, sessions, tokens, hash, verify, idGenerator, now, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(users UserRepository, sessions SessionRepository, tokens TokenIssuer, hash PasswordHasher, verify PasswordVerifier, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AuthService {
	if hash == nil {
		hash = HashPassword
	}
	if verify == nil {
		verify = VerifyPassword
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		users:          users,
		sessions:       sessions,
		tokens:         tokens,
		hashPassword:   hash,
		verifyPassword: verify,
		idGenerator:    idGenerator,
		now:            now,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

func (s *AuthService) check() error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}
	if s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}
	if s.tokens == nil {
		return fmt.Errorf("token issuer not configured")
	}
	return nil
}

// Register creates a guest account and signs it in.
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (result AuthResult, err error) {
	if err = s.check(); err != nil {
		return
	}

	email := normalizeEmail(params.Email)
	name := strings.TrimSpace(params.Name)

	logger := s.loggerWith(ctx, "Register", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "registration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", result.User.ID).InfoContext(ctx, "account registered")
	}()

	vErr := &ValidationError{}
	validateEmail(vErr, "email", email)
	validatePassword(vErr, "password", params.Password)
	validateName(vErr, "name", name)
	if err = vErr.orNil(); err != nil {
		return
	}

	if _, lookupErr := s.users.GetUserByEmail(ctx, email); lookupErr == nil {
		err = ErrEmailTaken
		return
	} else if mapped := mapRepoError(lookupErr); !errors.Is(mapped, ErrNotFound) {
		err = mapped
		return
	}

	var digest string
	digest, err = s.hashPassword(params.Password)
	if err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	now := s.now()
	creds := UserCredentials{
		User: User{
			ID:        s.idGenerator(),
			Email:     email,
			Name:      name,
			Role:      RoleGuest,
			CreatedAt: now,
			UpdatedAt: now,
		},
		PasswordHash: digest,
	}
	if err = s.users.CreateUser(ctx, creds); err != nil {
		err = mapUserRepoError(err)
		return
	}

	result, err = s.issue(ctx, creds.User)
	return
}

// Login verifies credentials and issues a token. Every failure is reported
// as ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, params LoginParams) (result AuthResult, err error) {
	if err = s.check(); err != nil {
		return
	}

	email := normalizeEmail(params.Email)
	logger := s.loggerWith(ctx, "Login", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", result.User.ID).InfoContext(ctx, "authentication succeeded")
	}()

	if email == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	var creds UserCredentials
	creds, err = s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	if verifyErr := s.verifyPassword(creds.PasswordHash, params.Password); verifyErr != nil {
		err = ErrInvalidCredentials
		return
	}

	result, err = s.issue(ctx, creds.User)
	return
}

func (s *AuthService) issue(ctx context.Context, user User) (AuthResult, error) {
	raw, claims, err := s.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}

	now := s.now()
	if err := s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
		return AuthResult{}, err
	}
	session := Session{
		ID:        claims.ID,
		UserID:    user.ID,
		ExpiresAt: claims.ExpiresAt,
		CreatedAt: now,
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return AuthResult{}, mapRepoError(err)
	}

	return AuthResult{User: user, Token: raw, ExpiresAt: claims.ExpiresAt}, nil
}

// Logout revokes the session behind the token.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	if err := s.check(); err != nil {
		return err
	}

	logger := s.loggerWith(ctx, "Logout")

	claims, err := s.parse(raw)
	if err != nil {
		logger.ErrorContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if err := s.sessions.RevokeSession(ctx, claims.ID, s.now()); err != nil {
		err = mapRepoError(err)
		if errors.Is(err, ErrNotFound) {
			err = ErrUnauthorized
		}
		logger.ErrorContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.With("session_id", claims.ID, "user_id", claims.UserID).InfoContext(ctx, "session revoked")
	return nil
}

// ValidateSession verifies the token and its session row and returns the
// principal with the role currently stored for the user.
func (s *AuthService) ValidateSession(ctx context.Context, raw string) (principal Principal, err error) {
	if err = s.check(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ValidateSession", "token_provided", strings.TrimSpace(raw) != "")
	defer func() {
		if err != nil {
			logger.DebugContext(ctx, "session validation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("principal_id", principal.UserID).DebugContext(ctx, "session validated")
	}()

	var claims token.Claims
	claims, err = s.parse(raw)
	if err != nil {
		return
	}

	var session Session
	session, err = s.sessions.GetSession(ctx, claims.ID)
	if err != nil {
		if err = mapRepoError(err); errors.Is(err, ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}
	if session.RevokedAt != nil {
		err = ErrSessionRevoked
		return
	}
	if !session.ExpiresAt.After(s.now()) {
		err = ErrSessionExpired
		return
	}
	if session.UserID != claims.UserID {
		err = ErrUnauthorized
		return
	}

	var creds UserCredentials
	creds, err = s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if err = mapRepoError(err); errors.Is(err, ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}

	principal = Principal{UserID: creds.User.ID, Role: creds.User.Role}
	return
}

func (s *AuthService) parse(raw string) (token.Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return token.Claims{}, ErrUnauthorized
	}
	claims, err := s.tokens.Parse(raw)
	switch {
	case errors.Is(err, token.ErrTokenExpired):
		return token.Claims{}, ErrSessionExpired
	case err != nil:
		return token.Claims{}, ErrUnauthorized
	}
	return claims, nil
}
