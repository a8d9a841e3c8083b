package application

import (
	"context"
	"errors"
	"testing"
)

func accountUsers() []UserCredentials {
	return []UserCredentials{
		{User: User{ID: "admin-1", Email: "admin@example.com", Name: "Admin", Role: RoleAdmin}, PasswordHash: mustHash("admin-pass")},
		{User: User{ID: "operator-1", Email: "op@example.com", Name: "Op", Role: RoleOperator}, PasswordHash: mustHash("op-pass")},
		{User: User{ID: "guest-1", Email: "guest@example.com", Name: "Guest", Role: RoleGuest}, PasswordHash: mustHash("guest-pass")},
	}
}

func newAccountFixture() (*AccountService, *userRepoStub) {
	repo := newUserRepoStub(accountUsers()...)
	return NewAccountService(repo, fastHasher, nil, sequentialIDs("user"), fixedNow), repo
}

func TestAccountService_CreateStaffAccount(t *testing.T) {
	t.Parallel()

	t.Run("administrators create accounts with any role", func(t *testing.T) {
		t.Parallel()
		svc, repo := newAccountFixture()

		user, err := svc.CreateStaffAccount(context.Background(), CreateStaffAccountParams{
			Principal: testAdmin,
			Email:     "New.Op@Example.com",
			Password:  "secret1",
			Name:      "New Op",
			Role:      "operator",
		})
		if err != nil {
			t.Fatalf("CreateStaffAccount failed: %v", err)
		}
		if user.Role != RoleOperator || user.Email != "new.op@example.com" {
			t.Fatalf("unexpected user %+v", user)
		}
		if _, ok := repo.users[user.ID]; !ok {
			t.Fatalf("expected user to be stored")
		}
	})

	t.Run("non administrators are forbidden", func(t *testing.T) {
		t.Parallel()
		svc, _ := newAccountFixture()

		for _, principal := range []Principal{testOperator, testGuest} {
			_, err := svc.CreateStaffAccount(context.Background(), CreateStaffAccountParams{Principal: principal, Email: "x@example.com", Password: "secret1", Name: "X", Role: "admin"})
			if !errors.Is(err, ErrForbidden) {
				t.Fatalf("expected ErrForbidden for %s, got %v", principal.Role, err)
			}
		}
		if _, err := svc.CreateStaffAccount(context.Background(), CreateStaffAccountParams{}); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects unknown roles and taken emails", func(t *testing.T) {
		t.Parallel()
		svc, _ := newAccountFixture()

		_, err := svc.CreateStaffAccount(context.Background(), CreateStaffAccountParams{Principal: testAdmin, Email: "x@example.com", Password: "secret1", Name: "X", Role: "owner"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["role"] == "" {
			t.Fatalf("expected role validation error, got %v", err)
		}

		_, err = svc.CreateStaffAccount(context.Background(), CreateStaffAccountParams{Principal: testAdmin, Email: "op@example.com", Password: "secret1", Name: "X", Role: "guest"})
		if !errors.Is(err, ErrEmailTaken) {
			t.Fatalf("expected ErrEmailTaken, got %v", err)
		}
	})
}

func TestAccountService_UpdateStaffAccount(t *testing.T) {
	t.Parallel()

	base := UpdateStaffAccountParams{
		Principal:     testAdmin,
		AdminID:       "admin-1",
		AdminPassword: "admin-pass",
		TargetUserID:  "operator-1",
		Name:          "Promoted",
		Email:         "promoted@example.com",
		Role:          "admin",
	}

	t.Run("updates the target after step-up", func(t *testing.T) {
		t.Parallel()
		svc, repo := newAccountFixture()
		params := base
		params.NewPassword = ptr("fresh-pass")

		user, err := svc.UpdateStaffAccount(context.Background(), params)
		if err != nil {
			t.Fatalf("UpdateStaffAccount failed: %v", err)
		}
		if user.Role != RoleAdmin || user.Name != "Promoted" || user.Email != "promoted@example.com" {
			t.Fatalf("unexpected user %+v", user)
		}
		if err := VerifyPassword(repo.users["operator-1"].PasswordHash, "fresh-pass"); err != nil {
			t.Fatalf("expected new password to be stored: %v", err)
		}
	})

	t.Run("wrong administrator password changes nothing", func(t *testing.T) {
		t.Parallel()
		svc, repo := newAccountFixture()
		before := repo.users["operator-1"]
		params := base
		params.AdminPassword = "guess"

		if _, err := svc.UpdateStaffAccount(context.Background(), params); !errors.Is(err, ErrStepUpFailed) {
			t.Fatalf("expected ErrStepUpFailed, got %v", err)
		}
		if repo.users["operator-1"] != before {
			t.Fatalf("expected target to be unchanged")
		}
	})

	t.Run("acting principal must be the named administrator", func(t *testing.T) {
		t.Parallel()
		svc, _ := newAccountFixture()
		params := base
		params.AdminID = "someone-else"

		if _, err := svc.UpdateStaffAccount(context.Background(), params); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}

		params = base
		params.Principal = testOperator
		params.AdminID = testOperator.UserID
		if _, err := svc.UpdateStaffAccount(context.Background(), params); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden for operator, got %v", err)
		}
	})

	t.Run("unknown target is not found", func(t *testing.T) {
		t.Parallel()
		svc, _ := newAccountFixture()
		params := base
		params.TargetUserID = "missing"

		if _, err := svc.UpdateStaffAccount(context.Background(), params); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestAccountService_DeleteAccount(t *testing.T) {
	t.Parallel()

	t.Run("owner deletes with the right password", func(t *testing.T) {
		t.Parallel()
		svc, repo := newAccountFixture()

		err := svc.DeleteAccount(context.Background(), DeleteAccountParams{Principal: testGuest, UserID: "guest-1", Password: "guest-pass"})
		if err != nil {
			t.Fatalf("DeleteAccount failed: %v", err)
		}
		if len(repo.deleted) != 1 || repo.deleted[0] != "guest-1" {
			t.Fatalf("expected guest-1 to be deleted, got %v", repo.deleted)
		}
	})

	t.Run("accounts with reservations are kept", func(t *testing.T) {
		t.Parallel()
		svc, repo := newAccountFixture()
		repo.inUse["guest-1"] = true

		err := svc.DeleteAccount(context.Background(), DeleteAccountParams{Principal: testGuest, UserID: "guest-1", Password: "guest-pass"})
		if !errors.Is(err, ErrInUse) {
			t.Fatalf("expected ErrInUse, got %v", err)
		}
		if _, ok := repo.users["guest-1"]; !ok {
			t.Fatalf("expected user row to be kept")
		}
	})

	t.Run("password mismatch and foreign accounts are refused", func(t *testing.T) {
		t.Parallel()
		svc, repo := newAccountFixture()

		if err := svc.DeleteAccount(context.Background(), DeleteAccountParams{Principal: testGuest, UserID: "guest-1", Password: "nope"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		if err := svc.DeleteAccount(context.Background(), DeleteAccountParams{Principal: testGuest, UserID: "operator-1", Password: "op-pass"}); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
		if len(repo.deleted) != 0 {
			t.Fatalf("expected nothing deleted, got %v", repo.deleted)
		}
	})
}

func TestAccountService_UpdatePassword(t *testing.T) {
	t.Parallel()

	svc, repo := newAccountFixture()
	ctx := context.Background()

	if err := svc.UpdatePassword(ctx, UpdatePasswordParams{Principal: testGuest, UserID: "guest-1", OldPassword: "wrong", NewPassword: "secret2"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	var vErr *ValidationError
	if err := svc.UpdatePassword(ctx, UpdatePasswordParams{Principal: testGuest, UserID: "guest-1", OldPassword: "guest-pass", NewPassword: "123"}); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := svc.UpdatePassword(ctx, UpdatePasswordParams{Principal: testAdmin, UserID: "guest-1", OldPassword: "guest-pass", NewPassword: "secret2"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if err := svc.UpdatePassword(ctx, UpdatePasswordParams{Principal: testGuest, UserID: "guest-1", OldPassword: "guest-pass", NewPassword: "secret2"}); err != nil {
		t.Fatalf("UpdatePassword failed: %v", err)
	}
	if err := VerifyPassword(repo.users["guest-1"].PasswordHash, "secret2"); err != nil {
		t.Fatalf("expected new password to verify: %v", err)
	}
}

func TestAccountService_BootstrapAdmin(t *testing.T) {
	t.Parallel()

	repo := newUserRepoStub()
	svc := NewAccountService(repo, fastHasher, nil, sequentialIDs("user"), fixedNow)

	user, err := svc.BootstrapAdmin(context.Background(), BootstrapAdminParams{Email: "root@example.com", Password: "secret1", Name: "Root"})
	if err != nil {
		t.Fatalf("BootstrapAdmin failed: %v", err)
	}
	if user.Role != RoleAdmin {
		t.Fatalf("expected admin role, got %s", user.Role)
	}

	if _, err := svc.BootstrapAdmin(context.Background(), BootstrapAdminParams{Email: "other@example.com", Password: "secret1", Name: "Other"}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists once an admin exists, got %v", err)
	}
}

func TestAccountService_ListAndGetUsers(t *testing.T) {
	t.Parallel()

	svc, _ := newAccountFixture()
	ctx := context.Background()

	users, err := svc.ListUsers(ctx, testAdmin)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 3 || users[0].Email != "admin@example.com" {
		t.Fatalf("expected users ordered by email, got %+v", users)
	}
	if _, err := svc.ListUsers(ctx, testOperator); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	me, err := svc.GetUser(ctx, testGuest, "guest-1")
	if err != nil || me.ID != "guest-1" {
		t.Fatalf("GetUser(self) = %+v, %v", me, err)
	}
	if _, err := svc.GetUser(ctx, testGuest, "admin-1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
