package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/example/hotel-booking/internal/persistence"
)

// AccountService manages accounts on behalf of their owners and administrators.
type AccountService struct {
	users          UserRepository
	hashPassword   PasswordHasher
	verifyPassword PasswordVerifier
	idGenerator    func() string
	now            func() time.Time
	logger         *slog.Logger
}

// NewAccountService wires dependencies for the account service.
func NewAccountService(users UserRepository, hash PasswordHasher, verify PasswordVerifier, idGenerator func() string, now func() time.Time) *AccountService {
	return NewAccountServiceWithLogger(users, hash, verify, idGenerator, now, nil)
}

// NewAccountServiceWithLogger wires dependencies with a specified logger.
func NewAccountServiceWithLogger(users UserRepository, hash PasswordHasher, verify PasswordVerifier, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AccountService {
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
	return &AccountService{
		users:          users,
		hashPassword:   hash,
		verifyPassword: verify,
		idGenerator:    idGenerator,
		now:            now,
		logger:         defaultLogger(logger),
	}
}

func (s *AccountService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AccountService", operation, attrs...)
}

func (s *AccountService) check() error {
	if s == nil {
		return fmt.Errorf("AccountService is nil")
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}
	return nil
}

// CreateStaffAccount lets an administrator create an account with any role.
func (s *AccountService) CreateStaffAccount(ctx context.Context, params CreateStaffAccountParams) (user User, err error) {
	if err = s.check(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CreateStaffAccount",
		"principal_id", params.Principal.UserID,
		"role", params.Role,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create account", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "account created")
	}()

	if err = requireAdmin(params.Principal); err != nil {
		return
	}

	email := normalizeEmail(params.Email)
	name := strings.TrimSpace(params.Name)

	vErr := &ValidationError{}
	validateEmail(vErr, "email", email)
	validatePassword(vErr, "password", params.Password)
	validateName(vErr, "name", name)
	role := validateRole(vErr, "role", params.Role)
	if err = vErr.orNil(); err != nil {
		return
	}

	user, err = s.create(ctx, email, name, role, params.Password)
	return
}

// BootstrapAdmin creates the first administrator. It refuses once any
// administrator exists.
func (s *AccountService) BootstrapAdmin(ctx context.Context, params BootstrapAdminParams) (user User, err error) {
	if err = s.check(); err != nil {
		return
	}

	email := normalizeEmail(params.Email)
	logger := s.loggerWith(ctx, "BootstrapAdmin", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to bootstrap administrator", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "administrator created")
	}()

	name := strings.TrimSpace(params.Name)
	vErr := &ValidationError{}
	validateEmail(vErr, "email", email)
	validatePassword(vErr, "password", params.Password)
	validateName(vErr, "name", name)
	if err = vErr.orNil(); err != nil {
		return
	}

	var existing []User
	existing, err = s.users.ListUsers(ctx)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	for _, u := range existing {
		if u.Role == RoleAdmin {
			err = fmt.Errorf("%w: an administrator already exists", ErrAlreadyExists)
			return
		}
	}

	user, err = s.create(ctx, email, name, RoleAdmin, params.Password)
	return
}

func (s *AccountService) create(ctx context.Context, email, name string, role Role, password string) (User, error) {
	digest, err := s.hashPassword(password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	creds := UserCredentials{
		User: User{
			ID:        s.idGenerator(),
			Email:     email,
			Name:      name,
			Role:      role,
			CreatedAt: now,
			UpdatedAt: now,
		},
		PasswordHash: digest,
	}
	if err := s.users.CreateUser(ctx, creds); err != nil {
		return User{}, mapUserRepoError(err)
	}
	return creds.User, nil
}

// UpdateStaffAccount rewrites another account after re-verifying the acting
// administrator's password. Nothing is written when the step-up fails.
func (s *AccountService) UpdateStaffAccount(ctx context.Context, params UpdateStaffAccountParams) (user User, err error) {
	if err = s.check(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdateStaffAccount",
		"principal_id", params.Principal.UserID,
		"admin_id", params.AdminID,
		"target_user_id", params.TargetUserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update account", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("role", user.Role).InfoContext(ctx, "account updated")
	}()

	if err = requireAdmin(params.Principal); err != nil {
		return
	}
	if params.AdminID == "" || params.AdminID != params.Principal.UserID {
		err = ErrForbidden
		return
	}

	var admin UserCredentials
	admin, err = s.users.GetUser(ctx, params.AdminID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if admin.User.Role != RoleAdmin {
		err = ErrForbidden
		return
	}
	if verifyErr := s.verifyPassword(admin.PasswordHash, params.AdminPassword); verifyErr != nil {
		err = ErrStepUpFailed
		return
	}

	email := normalizeEmail(params.Email)
	name := strings.TrimSpace(params.Name)

	vErr := &ValidationError{}
	if strings.TrimSpace(params.TargetUserID) == "" {
		vErr.add("targetUserId", "target user is required")
	}
	validateEmail(vErr, "email", email)
	validateName(vErr, "name", name)
	role := validateRole(vErr, "role", params.Role)
	if params.NewPassword != nil {
		validatePassword(vErr, "newPassword", *params.NewPassword)
	}
	if err = vErr.orNil(); err != nil {
		return
	}

	var target UserCredentials
	target, err = s.users.GetUser(ctx, params.TargetUserID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	target.User.Email = email
	target.User.Name = name
	target.User.Role = role
	target.User.UpdatedAt = s.now()
	if params.NewPassword != nil {
		target.PasswordHash, err = s.hashPassword(*params.NewPassword)
		if err != nil {
			err = fmt.Errorf("hash password: %w", err)
			return
		}
	}

	if err = s.users.UpdateUser(ctx, target); err != nil {
		err = mapUserRepoError(err)
		return
	}

	user = target.User
	return
}

// DeleteAccount removes an account after verifying its password. Accounts
// still referenced by reservations or inquiries are kept.
func (s *AccountService) DeleteAccount(ctx context.Context, params DeleteAccountParams) (err error) {
	if err = s.check(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "DeleteAccount",
		"principal_id", params.Principal.UserID,
		"user_id", params.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete account", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "account deleted")
	}()

	if err = requireAuthenticated(params.Principal); err != nil {
		return
	}
	if params.Principal.UserID != params.UserID && !params.Principal.IsAdmin() {
		err = ErrForbidden
		return
	}

	var creds UserCredentials
	creds, err = s.users.GetUser(ctx, params.UserID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if verifyErr := s.verifyPassword(creds.PasswordHash, params.Password); verifyErr != nil {
		err = ErrInvalidCredentials
		return
	}

	err = mapRepoError(s.users.DeleteUser(ctx, params.UserID))
	return
}

// UpdatePassword replaces the caller's own password.
func (s *AccountService) UpdatePassword(ctx context.Context, params UpdatePasswordParams) (err error) {
	if err = s.check(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdatePassword",
		"principal_id", params.Principal.UserID,
		"user_id", params.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update password", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "password updated")
	}()

	if err = requireAuthenticated(params.Principal); err != nil {
		return
	}
	if params.Principal.UserID != params.UserID {
		err = ErrForbidden
		return
	}

	vErr := &ValidationError{}
	validatePassword(vErr, "newPassword", params.NewPassword)
	if err = vErr.orNil(); err != nil {
		return
	}

	var creds UserCredentials
	creds, err = s.users.GetUser(ctx, params.UserID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if verifyErr := s.verifyPassword(creds.PasswordHash, params.OldPassword); verifyErr != nil {
		err = ErrInvalidCredentials
		return
	}

	creds.PasswordHash, err = s.hashPassword(params.NewPassword)
	if err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}
	creds.User.UpdatedAt = s.now()

	err = mapUserRepoError(s.users.UpdateUser(ctx, creds))
	return
}

// GetUser returns an account to its owner or an administrator.
func (s *AccountService) GetUser(ctx context.Context, principal Principal, userID string) (User, error) {
	if err := s.check(); err != nil {
		return User{}, err
	}
	if err := requireAuthenticated(principal); err != nil {
		return User{}, err
	}
	if principal.UserID != userID && !principal.IsAdmin() {
		return User{}, ErrForbidden
	}

	creds, err := s.users.GetUser(ctx, userID)
	if err != nil {
		err = mapRepoError(err)
		s.loggerWith(ctx, "GetUser", "principal_id", principal.UserID, "user_id", userID).
			ErrorContext(ctx, "failed to load account", "error", err, "error_kind", ErrorKind(err))
		return User{}, err
	}
	return creds.User, nil
}

// ListUsers returns every account ordered by email. Administrators only.
func (s *AccountService) ListUsers(ctx context.Context, principal Principal) (users []User, err error) {
	if err = s.check(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ListUsers", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list users", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(users)).InfoContext(ctx, "users listed")
	}()

	if err = requireAdmin(principal); err != nil {
		return
	}

	users, err = s.users.ListUsers(ctx)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(vErr *ValidationError, field, email string) {
	if email == "" {
		vErr.add(field, "email is required")
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		vErr.add(field, "email must be a valid address")
	}
}

func validateName(vErr *ValidationError, field, name string) {
	if name == "" {
		vErr.add(field, "name is required")
	}
}

func validateRole(vErr *ValidationError, field, value string) Role {
	role, ok := ParseRole(strings.ToLower(strings.TrimSpace(value)))
	if !ok {
		vErr.add(field, "role must be one of guest, operator, admin")
	}
	return role
}

func mapUserRepoError(err error) error {
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrEmailTaken
	}
	return mapRepoError(err)
}
