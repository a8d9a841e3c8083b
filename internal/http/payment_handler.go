package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/hotel-booking/internal/application"
)

type paymentService interface {
	ListPayments(ctx context.Context, params application.ListPaymentsParams) ([]application.Payment, error)
	UpdatePaymentStatus(ctx context.Context, params application.UpdatePaymentStatusParams) (application.Payment, error)
}

type statsService interface {
	RevenueStats(ctx context.Context, params application.RevenueStatsParams) (application.RevenueStats, error)
}

// PaymentHandler serves payments and revenue statistics.
type PaymentHandler struct {
	payments  paymentService
	stats     statsService
	responder responder
	logger    *slog.Logger
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(payments paymentService, stats statsService, logger *slog.Logger) *PaymentHandler {
	base := defaultLogger(logger)
	return &PaymentHandler{payments: payments, stats: stats, responder: newResponder(base), logger: base}
}

func (h *PaymentHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "PaymentHandler", operation, attrs...)
}

// List handles GET /payments with optional reservationId and status filters.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	payments, err := h.payments.ListPayments(r.Context(), application.ListPaymentsParams{
		Principal:     principal,
		ReservationID: query.Get("reservationId"),
		Status:        query.Get("status"),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, mapSlice(payments, toPaymentDTO))
}

// UpdateStatus handles PATCH /payments/{id}/status.
func (h *PaymentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	paymentID := r.PathValue("id")

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.badRequest(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "UpdateStatus", "principal_id", principal.UserID, "payment_id", paymentID, "status", req.Status)
	payment, err := h.payments.UpdatePaymentStatus(r.Context(), application.UpdatePaymentStatusParams{
		Principal: principal,
		PaymentID: paymentID,
		Status:    req.Status,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "payment status change failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "payment status changed")
	h.responder.writeData(r.Context(), w, http.StatusOK, toPaymentDTO(payment))
}

type monthlyRevenueDTO struct {
	Month       string `json:"month"`
	AmountCents int64  `json:"amountCents"`
}

type revenueStatsDTO struct {
	CompletedRevenueCents int64               `json:"completedRevenueCents"`
	PendingRevenueCents   int64               `json:"pendingRevenueCents"`
	ReservationsByStatus  map[string]int      `json:"reservationsByStatus"`
	MonthlyRevenue        []monthlyRevenueDTO `json:"monthlyRevenue"`
	RoomsByStatus         map[string]int      `json:"roomsByStatus"`
	TotalRooms            int                 `json:"totalRooms"`
	OccupancyRate         float64             `json:"occupancyRate"`
}

func toRevenueStatsDTO(stats application.RevenueStats) revenueStatsDTO {
	byStatus := stats.ReservationsByStatus
	if byStatus == nil {
		byStatus = map[string]int{}
	}
	rooms := stats.RoomsByStatus
	if rooms == nil {
		rooms = map[string]int{}
	}
	return revenueStatsDTO{
		CompletedRevenueCents: stats.CompletedRevenueCents,
		PendingRevenueCents:   stats.PendingRevenueCents,
		ReservationsByStatus:  byStatus,
		MonthlyRevenue: mapSlice(stats.MonthlyRevenue, func(m application.MonthlyRevenue) monthlyRevenueDTO {
			return monthlyRevenueDTO{Month: m.Month, AmountCents: m.AmountCents}
		}),
		RoomsByStatus: rooms,
		TotalRooms:    stats.TotalRooms,
		OccupancyRate: stats.OccupancyRate,
	}
}

// RevenueStats handles GET /stats/revenue. ?from and ?to are optional
// YYYY-MM-DD bounds.
func (h *PaymentHandler) RevenueStats(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	vErr := &application.ValidationError{}
	from := parseDateField(vErr, "from", query.Get("from"))
	to := parseDateField(vErr, "to", query.Get("to"))
	if err := validationOrNil(vErr); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	stats, err := h.stats.RevenueStats(r.Context(), application.RevenueStatsParams{
		Principal: principal,
		From:      from,
		To:        to,
	})
	if err != nil {
		h.log(r.Context(), "RevenueStats", "principal_id", principal.UserID).WarnContext(r.Context(), "revenue stats failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, toRevenueStatsDTO(stats))
}
