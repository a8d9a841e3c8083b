package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// PaymentRepository reads and updates payments.
type PaymentRepository interface {
	GetPayment(ctx context.Context, id string) (Payment, error)
	ListPayments(ctx context.Context, filter PaymentFilter) ([]Payment, error)
	UpdatePaymentStatus(ctx context.Context, id, from, to string, at time.Time) error
}

// PaymentService exposes payments and their status transitions.
type PaymentService struct {
	payments PaymentRepository
	now      func() time.Time
	logger   *slog.Logger
}

// NewPaymentService constructs a payment service.
func NewPaymentService(payments PaymentRepository, now func() time.Time) *PaymentService {
	return NewPaymentServiceWithLogger(payments, now, nil)
}

// NewPaymentServiceWithLogger constructs a payment service with a specified logger.
func NewPaymentServiceWithLogger(payments PaymentRepository, now func() time.Time, logger *slog.Logger) *PaymentService {
	if now == nil {
		now = time.Now
	}
	return &PaymentService{payments: payments, now: now, logger: defaultLogger(logger)}
}

func (s *PaymentService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "PaymentService", operation, attrs...)
}

func (s *PaymentService) check() error {
	if s == nil {
		return fmt.Errorf("PaymentService is nil")
	}
	if s.payments == nil {
		return fmt.Errorf("payment repository not configured")
	}
	return nil
}

// paymentTransitions lists the allowed status changes. Completed is terminal.
var paymentTransitions = map[string][]string{
	PaymentPending: {PaymentCompleted, PaymentFailed},
	PaymentFailed:  {PaymentPending},
}

func paymentTransitionAllowed(from, to string) bool {
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ListPayments returns payments newest first. Guests only see payments of
// their own reservations.
func (s *PaymentService) ListPayments(ctx context.Context, params ListPaymentsParams) (payments []Payment, err error) {
	if err = s.check(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ListPayments", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list payments", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(payments)).DebugContext(ctx, "payments listed")
	}()

	if err = requireAuthenticated(params.Principal); err != nil {
		return
	}

	filter := PaymentFilter{
		ReservationID: strings.TrimSpace(params.ReservationID),
		Status:        strings.TrimSpace(params.Status),
	}
	if !params.Principal.IsStaff() {
		filter.UserID = params.Principal.UserID
	}
	switch filter.Status {
	case "", PaymentPending, PaymentCompleted, PaymentFailed:
	default:
		err = NewValidationError("status", "status must be one of pending, completed, failed")
		return
	}

	payments, err = s.payments.ListPayments(ctx, filter)
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

// UpdatePaymentStatus moves a payment along pending -> completed|failed and
// failed -> pending. Staff only.
func (s *PaymentService) UpdatePaymentStatus(ctx context.Context, params UpdatePaymentStatusParams) (payment Payment, err error) {
	if err = s.check(); err != nil {
		return
	}

	status := strings.ToLower(strings.TrimSpace(params.Status))
	logger := s.loggerWith(ctx, "UpdatePaymentStatus",
		"principal_id", params.Principal.UserID,
		"payment_id", params.PaymentID,
		"status", status,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update payment", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "payment status updated")
	}()

	if err = requireStaff(params.Principal); err != nil {
		return
	}

	switch status {
	case PaymentPending, PaymentCompleted, PaymentFailed:
	default:
		err = NewValidationError("status", "status must be one of pending, completed, failed")
		return
	}

	payment, err = s.payments.GetPayment(ctx, params.PaymentID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if !paymentTransitionAllowed(payment.Status, status) {
		err = fmt.Errorf("%w: payment cannot move from %s to %s", ErrInvalidTransition, payment.Status, status)
		payment = Payment{}
		return
	}

	now := s.now()
	if err = s.payments.UpdatePaymentStatus(ctx, payment.ID, payment.Status, status, now); err != nil {
		payment = Payment{}
		err = mapRepoError(err)
		return
	}
	payment.Status = status
	payment.UpdatedAt = now
	return
}
