package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/hotel-booking/internal/application"
)

type accountService interface {
	CreateStaffAccount(ctx context.Context, params application.CreateStaffAccountParams) (application.User, error)
	UpdateStaffAccount(ctx context.Context, params application.UpdateStaffAccountParams) (application.User, error)
	DeleteAccount(ctx context.Context, params application.DeleteAccountParams) error
	UpdatePassword(ctx context.Context, params application.UpdatePasswordParams) error
	ListUsers(ctx context.Context, principal application.Principal) ([]application.User, error)
}

// AccountHandler serves the account management RPC endpoints.
type AccountHandler struct {
	service   accountService
	responder responder
	logger    *slog.Logger
}

// NewAccountHandler constructs an AccountHandler.
func NewAccountHandler(service accountService, logger *slog.Logger) *AccountHandler {
	base := defaultLogger(logger)
	return &AccountHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AccountHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AccountHandler", operation, attrs...)
}

// CreateStaffAccount handles POST /create-staff-account.
func (h *AccountHandler) CreateStaffAccount(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Role     string `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.responder.badRequest(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "CreateStaffAccount", "principal_id", principal.UserID, "role", req.Role)
	user, err := h.service.CreateStaffAccount(r.Context(), application.CreateStaffAccountParams{
		Principal: principal,
		Email:     req.Email,
		Password:  req.Password,
		Name:      req.Name,
		Role:      req.Role,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "staff account creation failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("user_id", user.ID).InfoContext(r.Context(), "staff account created")
	h.responder.writeData(r.Context(), w, http.StatusCreated, userResponse{User: toUserDTO(user)})
}

// UpdateStaffAccount handles POST /update-staff-account.
func (h *AccountHandler) UpdateStaffAccount(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req struct {
		AdminID       string  `json:"adminId"`
		AdminPassword string  `json:"adminPassword"`
		TargetUserID  string  `json:"targetUserId"`
		Name          string  `json:"name"`
		Email         string  `json:"email"`
		Role          string  `json:"role"`
		NewPassword   *string `json:"newPassword"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.responder.badRequest(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "UpdateStaffAccount", "principal_id", principal.UserID, "target_user_id", req.TargetUserID)
	user, err := h.service.UpdateStaffAccount(r.Context(), application.UpdateStaffAccountParams{
		Principal:     principal,
		AdminID:       req.AdminID,
		AdminPassword: req.AdminPassword,
		TargetUserID:  req.TargetUserID,
		Name:          req.Name,
		Email:         req.Email,
		Role:          req.Role,
		NewPassword:   req.NewPassword,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "staff account update failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "staff account updated")
	h.responder.writeData(r.Context(), w, http.StatusOK, userResponse{User: toUserDTO(user)})
}

// DeleteAccount handles POST /delete-account.
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req struct {
		UserID   string `json:"userId"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.responder.badRequest(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "DeleteAccount", "principal_id", principal.UserID, "user_id", req.UserID)
	err := h.service.DeleteAccount(r.Context(), application.DeleteAccountParams{
		Principal: principal,
		UserID:    req.UserID,
		Password:  req.Password,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "account deletion failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "account deleted")
	h.responder.writeMessage(r.Context(), w, "account deleted")
}

// UpdatePassword handles POST /update-password.
func (h *AccountHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req struct {
		UserID      string `json:"userId"`
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.responder.badRequest(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "UpdatePassword", "principal_id", principal.UserID)
	err := h.service.UpdatePassword(r.Context(), application.UpdatePasswordParams{
		Principal:   principal,
		UserID:      req.UserID,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "password update failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "password updated")
	h.responder.writeMessage(r.Context(), w, "password updated")
}

// ListUsers handles GET /users.
func (h *AccountHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	users, err := h.service.ListUsers(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "ListUsers", "principal_id", principal.UserID).WarnContext(r.Context(), "user list failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, mapSlice(users, toUserDTO))
}
