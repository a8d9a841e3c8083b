package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/example/hotel-booking/internal/application"
)

type inquiryService interface {
	CreateInquiry(ctx context.Context, params application.CreateInquiryParams) (application.Inquiry, error)
	ListInquiries(ctx context.Context, params application.ListInquiriesParams) ([]application.Inquiry, error)
	GetInquiry(ctx context.Context, principal application.Principal, inquiryID string) (application.Inquiry, error)
	ReplyInquiry(ctx context.Context, params application.ReplyInquiryParams) (application.Inquiry, error)
	CloseInquiry(ctx context.Context, principal application.Principal, inquiryID string) (application.Inquiry, error)
}

type changeRequestResolver interface {
	ApproveChangeRequest(ctx context.Context, params application.ResolveChangeRequestParams) (application.Reservation, application.Inquiry, error)
	RejectChangeRequest(ctx context.Context, params application.ResolveChangeRequestParams) (application.Inquiry, error)
}

// InquiryHandler serves support tickets and the staff side of change requests.
type InquiryHandler struct {
	service   inquiryService
	resolver  changeRequestResolver
	responder responder
	logger    *slog.Logger
}

// NewInquiryHandler constructs an InquiryHandler.
func NewInquiryHandler(service inquiryService, resolver changeRequestResolver, logger *slog.Logger) *InquiryHandler {
	base := defaultLogger(logger)
	return &InquiryHandler{service: service, resolver: resolver, responder: newResponder(base), logger: base}
}

func (h *InquiryHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "InquiryHandler", operation, attrs...)
}

// List handles GET /inquiries. ?status filters by status and
// ?changeRequests=true keeps change requests only.
func (h *InquiryHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	changeRequestsOnly := false
	if raw := query.Get("changeRequests"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeValidation, "validation failed",
				map[string]string{"changeRequests": "changeRequests must be true or false"})
			return
		}
		changeRequestsOnly = parsed
	}

	inquiries, err := h.service.ListInquiries(r.Context(), application.ListInquiriesParams{
		Principal:          principal,
		Status:             query.Get("status"),
		ChangeRequestsOnly: changeRequestsOnly,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, mapSlice(inquiries, toInquiryDTO))
}

// Get handles GET /inquiries/{id}.
func (h *InquiryHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	inquiry, err := h.service.GetInquiry(r.Context(), principal, r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, toInquiryDTO(inquiry))
}

// Create handles POST /inquiries.
func (h *InquiryHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req struct {
		Subject string `json:"subject"`
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.responder.badRequest(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)
	inquiry, err := h.service.CreateInquiry(r.Context(), application.CreateInquiryParams{
		Principal: principal,
		Subject:   req.Subject,
		Message:   req.Message,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "inquiry creation failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("inquiry_id", inquiry.ID).InfoContext(r.Context(), "inquiry created")
	h.responder.writeData(r.Context(), w, http.StatusCreated, toInquiryDTO(inquiry))
}

type replyRequest struct {
	Reply *string `json:"reply"`
}

// decodeOptionalReply accepts an empty body as "no reply text".
func decodeOptionalReply(r *http.Request) (*string, error) {
	if r.ContentLength == 0 {
		return nil, nil
	}
	var req replyRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	return req.Reply, nil
}

// Reply handles POST /inquiries/{id}/reply.
func (h *InquiryHandler) Reply(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	inquiryID := r.PathValue("id")

	reply, err := decodeOptionalReply(r)
	if err != nil {
		h.responder.badRequest(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Reply", "principal_id", principal.UserID, "inquiry_id", inquiryID)
	inquiry, err := h.service.ReplyInquiry(r.Context(), application.ReplyInquiryParams{
		Principal: principal,
		InquiryID: inquiryID,
		Reply:     reply,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "inquiry reply failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "inquiry answered")
	h.responder.writeData(r.Context(), w, http.StatusOK, toInquiryDTO(inquiry))
}

// Close handles POST /inquiries/{id}/close.
func (h *InquiryHandler) Close(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	inquiryID := r.PathValue("id")

	logger := h.log(r.Context(), "Close", "principal_id", principal.UserID, "inquiry_id", inquiryID)
	inquiry, err := h.service.CloseInquiry(r.Context(), principal, inquiryID)
	if err != nil {
		logger.WarnContext(r.Context(), "inquiry close failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "inquiry closed")
	h.responder.writeData(r.Context(), w, http.StatusOK, toInquiryDTO(inquiry))
}

type approvalDTO struct {
	Reservation reservationDTO `json:"reservation"`
	Inquiry     inquiryDTO     `json:"inquiry"`
}

// Approve handles POST /inquiries/{id}/approve.
func (h *InquiryHandler) Approve(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	inquiryID := r.PathValue("id")

	reply, err := decodeOptionalReply(r)
	if err != nil {
		h.responder.badRequest(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Approve", "principal_id", principal.UserID, "inquiry_id", inquiryID)
	reservation, inquiry, err := h.resolver.ApproveChangeRequest(r.Context(), application.ResolveChangeRequestParams{
		Principal: principal,
		InquiryID: inquiryID,
		Reply:     reply,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "change request approval failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("reservation_id", reservation.ID).InfoContext(r.Context(), "change request approved")
	h.responder.writeData(r.Context(), w, http.StatusOK, approvalDTO{
		Reservation: toReservationDTO(reservation),
		Inquiry:     toInquiryDTO(inquiry),
	})
}

// Reject handles POST /inquiries/{id}/reject.
func (h *InquiryHandler) Reject(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	inquiryID := r.PathValue("id")

	reply, err := decodeOptionalReply(r)
	if err != nil {
		h.responder.badRequest(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Reject", "principal_id", principal.UserID, "inquiry_id", inquiryID)
	inquiry, err := h.resolver.RejectChangeRequest(r.Context(), application.ResolveChangeRequestParams{
		Principal: principal,
		InquiryID: inquiryID,
		Reply:     reply,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "change request rejection failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "change request rejected")
	h.responder.writeData(r.Context(), w, http.StatusOK, toInquiryDTO(inquiry))
}
