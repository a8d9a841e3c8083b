package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/hotel-booking/internal/persistence"
	"github.com/example/hotel-booking/internal/token"
)

type authFixture struct {
	svc      *AuthService
	users    *userRepoStub
	sessions *sessionRepoStub
	now      *time.Time
}

func newAuthFixture(t *testing.T, users ...UserCredentials) authFixture {
	t.Helper()

	now := testNow
	clock := func() time.Time { return now }
	issuer, err := token.NewIssuer("test-secret-0123456789", time.Hour, clock)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}

	repo := newUserRepoStub(users...)
	sessions := newSessionRepoStub()
	svc := NewAuthService(repo, sessions, issuer, fastHasher, nil, sequentialIDs("user"), clock)
	return authFixture{svc: svc, users: repo, sessions: sessions, now: &now}
}

func TestAuthService_Register(t *testing.T) {
	t.Parallel()

	t.Run("creates a guest and signs it in", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t)

		result, err := f.svc.Register(context.Background(), RegisterParams{Email: " A@B.com ", Password: "secret1", Name: "Ana"})
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if result.User.Role != RoleGuest || result.User.Email != "a@b.com" || result.User.Name != "Ana" {
			t.Fatalf("unexpected user %+v", result.User)
		}
		if result.Token == "" {
			t.Fatalf("expected a token")
		}
		if !result.ExpiresAt.Equal(testNow.Add(time.Hour)) {
			t.Fatalf("expected expiry one hour ahead, got %v", result.ExpiresAt)
		}
		stored := f.users.users[result.User.ID]
		if err := VerifyPassword(stored.PasswordHash, "secret1"); err != nil {
			t.Fatalf("stored digest does not verify: %v", err)
		}
		if len(f.sessions.sessions) != 1 {
			t.Fatalf("expected one session, got %d", len(f.sessions.sessions))
		}

		principal, err := f.svc.ValidateSession(context.Background(), result.Token)
		if err != nil {
			t.Fatalf("ValidateSession failed: %v", err)
		}
		if principal.UserID != result.User.ID || principal.Role != RoleGuest {
			t.Fatalf("unexpected principal %+v", principal)
		}
	})

	t.Run("rejects a second registration of the same email", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t)

		if _, err := f.svc.Register(context.Background(), RegisterParams{Email: "a@b.com", Password: "secret1", Name: "Ana"}); err != nil {
			t.Fatalf("first Register failed: %v", err)
		}
		_, err := f.svc.Register(context.Background(), RegisterParams{Email: "A@b.com", Password: "secret2", Name: "Other"})
		if !errors.Is(err, ErrEmailTaken) {
			t.Fatalf("expected ErrEmailTaken, got %v", err)
		}
		if len(f.users.users) != 1 {
			t.Fatalf("expected one stored user, got %d", len(f.users.users))
		}
	})

	t.Run("maps a racing duplicate insert to ErrEmailTaken", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t)
		f.users.createErr = fmt.Errorf("%w: UNIQUE constraint failed: users.email", persistence.ErrDuplicate)

		_, err := f.svc.Register(context.Background(), RegisterParams{Email: "a@b.com", Password: "secret1", Name: "Ana"})
		if !errors.Is(err, ErrEmailTaken) {
			t.Fatalf("expected ErrEmailTaken, got %v", err)
		}
	})

	t.Run("validates every field", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t)

		_, err := f.svc.Register(context.Background(), RegisterParams{Email: "not-an-email", Password: "123", Name: " "})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		for _, field := range []string{"email", "password", "name"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s field error, got %v", field, vErr.FieldErrors)
			}
		}
		if len(f.users.users) != 0 {
			t.Fatalf("expected nothing stored")
		}
	})
}

func TestAuthService_Login(t *testing.T) {
	t.Parallel()

	existing := UserCredentials{
		User:         User{ID: "user-1", Email: "ana@example.com", Name: "Ana", Role: RoleOperator},
		PasswordHash: mustHash("secret1"),
	}

	t.Run("issues a token for valid credentials", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t, existing)

		result, err := f.svc.Login(context.Background(), LoginParams{Email: "Ana@Example.com", Password: "secret1"})
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if result.User.ID != "user-1" || result.Token == "" {
			t.Fatalf("unexpected result %+v", result)
		}
		if len(f.sessions.deleteCalls) != 1 || !f.sessions.deleteCalls[0].Equal(testNow) {
			t.Fatalf("expected expired sessions to be pruned at now, got %v", f.sessions.deleteCalls)
		}
	})

	t.Run("reports every failure as invalid credentials", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t, existing)

		for _, params := range []LoginParams{
			{Email: "ana@example.com", Password: "wrong-password"},
			{Email: "nobody@example.com", Password: "secret1"},
			{Email: "", Password: "secret1"},
			{Email: "ana@example.com", Password: ""},
		} {
			if _, err := f.svc.Login(context.Background(), params); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("Login(%+v) = %v, want ErrInvalidCredentials", params, err)
			}
		}
		if len(f.sessions.sessions) != 0 {
			t.Fatalf("expected no sessions to be created")
		}
	})

	t.Run("propagates session store failures", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t, existing)
		expected := errors.New("boom")
		f.sessions.createErr = expected

		if _, err := f.svc.Login(context.Background(), LoginParams{Email: "ana@example.com", Password: "secret1"}); !errors.Is(err, expected) {
			t.Fatalf("expected %v, got %v", expected, err)
		}
	})
}

func TestAuthService_Sessions(t *testing.T) {
	t.Parallel()

	existing := UserCredentials{
		User:         User{ID: "user-1", Email: "ana@example.com", Role: RoleGuest},
		PasswordHash: mustHash("secret1"),
	}

	login := func(t *testing.T, f authFixture) string {
		t.Helper()
		result, err := f.svc.Login(context.Background(), LoginParams{Email: "ana@example.com", Password: "secret1"})
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		return result.Token
	}

	t.Run("logout revokes the session", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t, existing)
		raw := login(t, f)

		if err := f.svc.Logout(context.Background(), raw); err != nil {
			t.Fatalf("Logout failed: %v", err)
		}
		if _, err := f.svc.ValidateSession(context.Background(), raw); !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("expected ErrSessionRevoked, got %v", err)
		}
	})

	t.Run("expired tokens are rejected", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t, existing)
		raw := login(t, f)

		*f.now = testNow.Add(2 * time.Hour)
		if _, err := f.svc.ValidateSession(context.Background(), raw); !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
	})

	t.Run("role changes apply to existing sessions", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t, existing)
		raw := login(t, f)

		promoted := f.users.users["user-1"]
		promoted.User.Role = RoleAdmin
		f.users.users["user-1"] = promoted

		principal, err := f.svc.ValidateSession(context.Background(), raw)
		if err != nil {
			t.Fatalf("ValidateSession failed: %v", err)
		}
		if !principal.IsAdmin() {
			t.Fatalf("expected stored role to win, got %+v", principal)
		}
	})

	t.Run("unknown and malformed tokens are unauthorized", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t, existing)
		raw := login(t, f)
		f.sessions.sessions = map[string]Session{}

		for _, candidate := range []string{raw, "", "garbage"} {
			if _, err := f.svc.ValidateSession(context.Background(), candidate); !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("ValidateSession(%q) = %v, want ErrUnauthorized", candidate, err)
			}
		}
	})

	t.Run("deleted users lose access", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t, existing)
		raw := login(t, f)
		delete(f.users.users, "user-1")

		if _, err := f.svc.ValidateSession(context.Background(), raw); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestAuthService_NilReceiver(t *testing.T) {
	t.Parallel()

	var svc *AuthService
	if _, err := svc.Login(context.Background(), LoginParams{}); err == nil {
		t.Fatalf("expected error from nil service")
	}
}
