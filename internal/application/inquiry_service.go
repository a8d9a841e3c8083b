package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// InquiryRepository stores support tickets and change requests.
type InquiryRepository interface {
	CreateInquiry(ctx context.Context, inquiry Inquiry) error
	UpdateInquiry(ctx context.Context, inquiry Inquiry) error
	GetInquiry(ctx context.Context, id string) (Inquiry, error)
	ListInquiries(ctx context.Context, filter InquiryFilter) ([]Inquiry, error)
}

// InquiryService handles support tickets.
type InquiryService struct {
	inquiries   InquiryRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewInquiryService constructs an inquiry service.
func NewInquiryService(inquiries InquiryRepository, idGenerator func() string, now func() time.Time) *InquiryService {
	return NewInquiryServiceWithLogger(inquiries, idGenerator, now, nil)
}

// NewInquiryServiceWithLogger constructs an inquiry service with a specified logger.
func NewInquiryServiceWithLogger(inquiries InquiryRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *InquiryService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &InquiryService{inquiries: inquiries, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *InquiryService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "InquiryService", operation, attrs...)
}

func (s *InquiryService) check() error {
	if s == nil {
		return fmt.Errorf("InquiryService is nil")
	}
	if s.inquiries == nil {
		return fmt.Errorf("inquiry repository not configured")
	}
	return nil
}

// CreateInquiry opens a support ticket for the caller.
func (s *InquiryService) CreateInquiry(ctx context.Context, params CreateInquiryParams) (inquiry Inquiry, err error) {
	if err = s.check(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CreateInquiry", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create inquiry", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("inquiry_id", inquiry.ID).InfoContext(ctx, "inquiry created")
	}()

	if err = requireAuthenticated(params.Principal); err != nil {
		return
	}

	subject := strings.TrimSpace(params.Subject)
	message := strings.TrimSpace(params.Message)
	vErr := &ValidationError{}
	if subject == "" {
		vErr.add("subject", "subject is required")
	}
	if message == "" {
		vErr.add("message", "message is required")
	}
	if err = vErr.orNil(); err != nil {
		return
	}

	now := s.now()
	candidate := Inquiry{
		ID:         s.idGenerator(),
		UserID:     params.Principal.UserID,
		Subject:    subject,
		Message:    message,
		Status:     InquiryPending,
		Resolution: ResolutionNone,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err = s.inquiries.CreateInquiry(ctx, candidate); err != nil {
		err = mapRepoError(err)
		return
	}
	inquiry = candidate
	return
}

// ListInquiries returns inquiries newest first. Guests only see their own.
func (s *InquiryService) ListInquiries(ctx context.Context, params ListInquiriesParams) (inquiries []Inquiry, err error) {
	if err = s.check(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ListInquiries", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list inquiries", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(inquiries)).DebugContext(ctx, "inquiries listed")
	}()

	if err = requireAuthenticated(params.Principal); err != nil {
		return
	}

	filter := InquiryFilter{
		Status:             strings.TrimSpace(params.Status),
		ChangeRequestsOnly: params.ChangeRequestsOnly,
	}
	if !params.Principal.IsStaff() {
		filter.UserID = params.Principal.UserID
	}
	switch filter.Status {
	case "", InquiryPending, InquiryAnswered, InquiryClosed:
	default:
		err = NewValidationError("status", "status must be one of pending, answered, closed")
		return
	}

	inquiries, err = s.inquiries.ListInquiries(ctx, filter)
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

// GetInquiry returns an inquiry to its author or staff.
func (s *InquiryService) GetInquiry(ctx context.Context, principal Principal, inquiryID string) (Inquiry, error) {
	if err := s.check(); err != nil {
		return Inquiry{}, err
	}
	if err := requireAuthenticated(principal); err != nil {
		return Inquiry{}, err
	}
	inquiry, err := s.inquiries.GetInquiry(ctx, inquiryID)
	if err != nil {
		return Inquiry{}, mapRepoError(err)
	}
	if !principal.IsStaff() && inquiry.UserID != principal.UserID {
		return Inquiry{}, ErrForbidden
	}
	return inquiry, nil
}

// ReplyInquiry stores the reply and marks the inquiry answered. A nil reply
// sends the one already drafted, such as a change request rejection.
func (s *InquiryService) ReplyInquiry(ctx context.Context, params ReplyInquiryParams) (inquiry Inquiry, err error) {
	if err = s.check(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ReplyInquiry",
		"principal_id", params.Principal.UserID,
		"inquiry_id", params.InquiryID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to reply to inquiry", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "inquiry answered")
	}()

	if err = requireStaff(params.Principal); err != nil {
		return
	}

	inquiry, err = s.inquiries.GetInquiry(ctx, params.InquiryID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if inquiry.Status == InquiryClosed {
		inquiry = Inquiry{}
		err = ErrInvalidTransition
		return
	}
	if inquiry.IsChangeRequest() && inquiry.Resolution == ResolutionNone {
		inquiry = Inquiry{}
		err = fmt.Errorf("%w: approve or reject the change request first", ErrInvalidTransition)
		return
	}

	if params.Reply != nil {
		if text := strings.TrimSpace(*params.Reply); text != "" {
			inquiry.Reply = &text
		}
	}
	if inquiry.Reply == nil || strings.TrimSpace(*inquiry.Reply) == "" {
		inquiry = Inquiry{}
		err = NewValidationError("reply", "reply is required")
		return
	}

	inquiry.Status = InquiryAnswered
	inquiry.UpdatedAt = s.now()
	if err = s.inquiries.UpdateInquiry(ctx, inquiry); err != nil {
		inquiry = Inquiry{}
		err = mapRepoError(err)
	}
	return
}

// CloseInquiry closes an inquiry. Staff or the author only.
func (s *InquiryService) CloseInquiry(ctx context.Context, principal Principal, inquiryID string) (inquiry Inquiry, err error) {
	if err = s.check(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CloseInquiry",
		"principal_id", principal.UserID,
		"inquiry_id", inquiryID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to close inquiry", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "inquiry closed")
	}()

	inquiry, err = s.GetInquiry(ctx, principal, inquiryID)
	if err != nil {
		return
	}
	if inquiry.Status == InquiryClosed {
		inquiry = Inquiry{}
		err = ErrInvalidTransition
		return
	}

	inquiry.Status = InquiryClosed
	inquiry.UpdatedAt = s.now()
	if err = s.inquiries.UpdateInquiry(ctx, inquiry); err != nil {
		inquiry = Inquiry{}
		err = mapRepoError(err)
	}
	return
}
