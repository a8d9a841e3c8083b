package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// AmenityRepository stores the amenity catalog.
type AmenityRepository interface {
	CreateAmenity(ctx context.Context, amenity Amenity) error
	ListAmenities(ctx context.Context) ([]Amenity, error)
}

// ServiceRepository stores the hotel services offered to guests.
type ServiceRepository interface {
	CreateService(ctx context.Context, service Service) error
	UpdateService(ctx context.Context, service Service) error
	GetService(ctx context.Context, id string) (Service, error)
	ListServices(ctx context.Context, onlyAvailable bool) ([]Service, error)
	DeleteService(ctx context.Context, id string) error
}

// CatalogService manages amenities and hotel services.
type CatalogService struct {
	amenities   AmenityRepository
	services    ServiceRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewCatalogService constructs a catalog service.
func NewCatalogService(amenities AmenityRepository, services ServiceRepository, idGenerator func() string, now func() time.Time) *CatalogService {
	return NewCatalogServiceWithLogger(amenities, services, idGenerator, now, nil)
}

// NewCatalogServiceWithLogger constructs a catalog service with a specified logger.
func NewCatalogServiceWithLogger(amenities AmenityRepository, services ServiceRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *CatalogService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &CatalogService{
		amenities:   amenities,
		services:    services,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *CatalogService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CatalogService", operation, attrs...)
}

// CreateAmenity appends a name to the amenity catalog. Names are unique
// regardless of case.
func (s *CatalogService) CreateAmenity(ctx context.Context, principal Principal, name string) (amenity Amenity, err error) {
	if s == nil {
		err = fmt.Errorf("CatalogService is nil")
		return
	}
	if s.amenities == nil {
		err = fmt.Errorf("amenity repository not configured")
		return
	}

	name = strings.TrimSpace(name)
	logger := s.loggerWith(ctx, "CreateAmenity", "principal_id", principal.UserID, "name", name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create amenity", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("amenity_id", amenity.ID).InfoContext(ctx, "amenity created")
	}()

	if err = requireAdmin(principal); err != nil {
		return
	}
	if name == "" {
		err = NewValidationError("name", "name is required")
		return
	}

	candidate := Amenity{ID: s.idGenerator(), Name: name, CreatedAt: s.now()}
	if err = s.amenities.CreateAmenity(ctx, candidate); err != nil {
		err = mapRepoError(err)
		return
	}
	amenity = candidate
	return
}

// ListAmenities returns the catalog ordered by name.
func (s *CatalogService) ListAmenities(ctx context.Context) ([]Amenity, error) {
	if s == nil {
		return nil, fmt.Errorf("CatalogService is nil")
	}
	if s.amenities == nil {
		return nil, nil
	}
	amenities, err := s.amenities.ListAmenities(ctx)
	if err != nil {
		err = mapRepoError(err)
		s.loggerWith(ctx, "ListAmenities").ErrorContext(ctx, "failed to list amenities", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	return amenities, nil
}

// CreateService adds a hotel service. Administrators only.
func (s *CatalogService) CreateService(ctx context.Context, params CreateServiceParams) (service Service, err error) {
	if s == nil {
		err = fmt.Errorf("CatalogService is nil")
		return
	}
	if s.services == nil {
		err = fmt.Errorf("service repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateService", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create service", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("service_id", service.ID).InfoContext(ctx, "service created")
	}()

	if err = requireAdmin(params.Principal); err != nil {
		return
	}

	input := normalizeServiceInput(params.Input)
	if err = validateServiceInput(input).orNil(); err != nil {
		return
	}

	now := s.now()
	candidate := Service{
		ID:          s.idGenerator(),
		Name:        input.Name,
		Description: input.Description,
		PriceCents:  input.PriceCents,
		Available:   input.Available,
		ImageURL:    input.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err = s.services.CreateService(ctx, candidate); err != nil {
		err = mapRepoError(err)
		return
	}
	service = candidate
	return
}

// UpdateService rewrites a hotel service. Administrators only.
func (s *CatalogService) UpdateService(ctx context.Context, params UpdateServiceParams) (service Service, err error) {
	if s == nil {
		err = fmt.Errorf("CatalogService is nil")
		return
	}
	if s.services == nil {
		err = fmt.Errorf("service repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateService",
		"principal_id", params.Principal.UserID,
		"service_id", params.ServiceID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update service", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "service updated")
	}()

	if err = requireAdmin(params.Principal); err != nil {
		return
	}

	input := normalizeServiceInput(params.Input)
	if err = validateServiceInput(input).orNil(); err != nil {
		return
	}

	var existing Service
	existing, err = s.services.GetService(ctx, params.ServiceID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	existing.Name = input.Name
	existing.Description = input.Description
	existing.PriceCents = input.PriceCents
	existing.Available = input.Available
	existing.ImageURL = input.ImageURL
	existing.UpdatedAt = s.now()

	if err = s.services.UpdateService(ctx, existing); err != nil {
		err = mapRepoError(err)
		return
	}
	service = existing
	return
}

// GetService returns a single hotel service.
func (s *CatalogService) GetService(ctx context.Context, serviceID string) (Service, error) {
	if s == nil {
		return Service{}, fmt.Errorf("CatalogService is nil")
	}
	if s.services == nil {
		return Service{}, fmt.Errorf("service repository not configured")
	}
	service, err := s.services.GetService(ctx, serviceID)
	if err != nil {
		return Service{}, mapRepoError(err)
	}
	return service, nil
}

// ListServices returns hotel services ordered by name, optionally only the
// available ones.
func (s *CatalogService) ListServices(ctx context.Context, onlyAvailable bool) ([]Service, error) {
	if s == nil {
		return nil, fmt.Errorf("CatalogService is nil")
	}
	if s.services == nil {
		return nil, nil
	}
	services, err := s.services.ListServices(ctx, onlyAvailable)
	if err != nil {
		err = mapRepoError(err)
		s.loggerWith(ctx, "ListServices").ErrorContext(ctx, "failed to list services", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	return services, nil
}

// DeleteService removes a hotel service. Administrators only.
func (s *CatalogService) DeleteService(ctx context.Context, principal Principal, serviceID string) error {
	if s == nil {
		return fmt.Errorf("CatalogService is nil")
	}
	if err := requireAdmin(principal); err != nil {
		return err
	}
	if s.services == nil {
		return fmt.Errorf("service repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteService",
		"principal_id", principal.UserID,
		"service_id", serviceID,
	)
	if err := s.services.DeleteService(ctx, serviceID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete service", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "service deleted")
	return nil
}

func normalizeServiceInput(input ServiceInput) ServiceInput {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	input.ImageURL = strings.TrimSpace(input.ImageURL)
	return input
}

func validateServiceInput(input ServiceInput) *ValidationError {
	vErr := &ValidationError{}
	if input.Name == "" {
		vErr.add("name", "name is required")
	}
	if input.PriceCents < 0 {
		vErr.add("price", "price cannot be negative")
	}
	return vErr
}
