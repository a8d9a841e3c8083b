package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/hotel-booking/internal/persistence"
)

// AmenityRepository implements persistence.AmenityRepository using SQLite.
type AmenityRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAmenityRepository creates a new SQLite amenity repository.
func NewAmenityRepository(pool *ConnectionPool) *AmenityRepository {
	return &AmenityRepository{helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

// CreateAmenity appends an amenity. Names are unique ignoring case.
func (r *AmenityRepository) CreateAmenity(ctx context.Context, amenity persistence.Amenity) error {
	if amenity.ID == "" || strings.TrimSpace(amenity.Name) == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO amenities (id, name, created_at) VALUES (?, ?, ?)
	`, amenity.ID, amenity.Name, formatTimestamp(amenity.CreatedAt))
	return r.mapper.MapError(err)
}

// ListAmenities returns the catalog ordered by name.
func (r *AmenityRepository) ListAmenities(ctx context.Context) ([]persistence.Amenity, error) {
	rows, err := r.helper.Query(ctx, `SELECT id, name, created_at FROM amenities ORDER BY name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var amenities []persistence.Amenity
	for rows.Next() {
		var amenity persistence.Amenity
		var createdAt string
		if err := rows.Scan(&amenity.ID, &amenity.Name, &createdAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if amenity.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		amenities = append(amenities, amenity)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return amenities, nil
}

// ServiceRepository implements persistence.ServiceRepository using SQLite.
type ServiceRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewServiceRepository creates a new SQLite service repository.
func NewServiceRepository(pool *ConnectionPool) *ServiceRepository {
	return &ServiceRepository{helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

const serviceColumns = `id, name, description, price_cents, available, image_url, created_at, updated_at`

// CreateService inserts a hotel service.
func (r *ServiceRepository) CreateService(ctx context.Context, service persistence.Service) error {
	if service.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO services (`+serviceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		service.ID,
		service.Name,
		service.Description,
		service.PriceCents,
		service.Available,
		service.ImageURL,
		formatTimestamp(service.CreatedAt),
		formatTimestamp(service.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateService rewrites an existing service.
func (r *ServiceRepository) UpdateService(ctx context.Context, service persistence.Service) error {
	result, err := r.helper.Exec(ctx, `
		UPDATE services
		SET name = ?, description = ?, price_cents = ?, available = ?, image_url = ?, updated_at = ?
		WHERE id = ?
	`,
		service.Name,
		service.Description,
		service.PriceCents,
		service.Available,
		service.ImageURL,
		formatTimestamp(service.UpdatedAt),
		service.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetService retrieves a service by ID.
func (r *ServiceRepository) GetService(ctx context.Context, id string) (persistence.Service, error) {
	if id == "" {
		return persistence.Service{}, persistence.ErrNotFound
	}
	return r.scanService(r.helper.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = ?`, id))
}

// ListServices returns services ordered by name, optionally only the
// available ones.
func (r *ServiceRepository) ListServices(ctx context.Context, onlyAvailable bool) ([]persistence.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services`
	if onlyAvailable {
		query += ` WHERE available = 1`
	}
	query += ` ORDER BY name ASC, id ASC`

	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var services []persistence.Service
	for rows.Next() {
		service, err := r.scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, service)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return services, nil
}

// DeleteService removes a service.
func (r *ServiceRepository) DeleteService(ctx context.Context, id string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM services WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func (r *ServiceRepository) scanService(row rowScanner) (persistence.Service, error) {
	var service persistence.Service
	var createdAt, updatedAt string

	err := row.Scan(
		&service.ID,
		&service.Name,
		&service.Description,
		&service.PriceCents,
		&service.Available,
		&service.ImageURL,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Service{}, r.mapper.MapError(err)
	}
	if service.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Service{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if service.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.Service{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return service, nil
}
