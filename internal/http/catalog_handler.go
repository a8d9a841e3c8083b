package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/example/hotel-booking/internal/application"
)

type catalogService interface {
	CreateAmenity(ctx context.Context, principal application.Principal, name string) (application.Amenity, error)
	ListAmenities(ctx context.Context) ([]application.Amenity, error)
	CreateService(ctx context.Context, params application.CreateServiceParams) (application.Service, error)
	UpdateService(ctx context.Context, params application.UpdateServiceParams) (application.Service, error)
	GetService(ctx context.Context, serviceID string) (application.Service, error)
	ListServices(ctx context.Context, onlyAvailable bool) ([]application.Service, error)
	DeleteService(ctx context.Context, principal application.Principal, serviceID string) error
}

// CatalogHandler serves amenities and hotel services.
type CatalogHandler struct {
	service   catalogService
	responder responder
	logger    *slog.Logger
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(service catalogService, logger *slog.Logger) *CatalogHandler {
	base := defaultLogger(logger)
	return &CatalogHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *CatalogHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CatalogHandler", operation, attrs...)
}

// ListAmenities handles GET /amenities.
func (h *CatalogHandler) ListAmenities(w http.ResponseWriter, r *http.Request) {
	amenities, err := h.service.ListAmenities(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, mapSlice(amenities, toAmenityDTO))
}

// CreateAmenity handles POST /amenities.
func (h *CatalogHandler) CreateAmenity(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.responder.badRequest(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "CreateAmenity", "principal_id", principal.UserID)
	amenity, err := h.service.CreateAmenity(r.Context(), principal, req.Name)
	if err != nil {
		logger.WarnContext(r.Context(), "amenity creation failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("amenity_id", amenity.ID).InfoContext(r.Context(), "amenity created")
	h.responder.writeData(r.Context(), w, http.StatusCreated, toAmenityDTO(amenity))
}

// ListServices handles GET /services. ?available=true hides withdrawn services.
func (h *CatalogHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	onlyAvailable := false
	if raw := r.URL.Query().Get("available"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeValidation, "validation failed",
				map[string]string{"available": "available must be true or false"})
			return
		}
		onlyAvailable = parsed
	}

	services, err := h.service.ListServices(r.Context(), onlyAvailable)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, mapSlice(services, toServiceDTO))
}

// GetService handles GET /services/{id}.
func (h *CatalogHandler) GetService(w http.ResponseWriter, r *http.Request) {
	service, err := h.service.GetService(r.Context(), r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, toServiceDTO(service))
}

// CreateService handles POST /services.
func (h *CatalogHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req serviceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.badRequest(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "CreateService", "principal_id", principal.UserID)
	service, err := h.service.CreateService(r.Context(), application.CreateServiceParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "service creation failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("service_id", service.ID).InfoContext(r.Context(), "service created")
	h.responder.writeData(r.Context(), w, http.StatusCreated, toServiceDTO(service))
}

// UpdateService handles PUT /services/{id}.
func (h *CatalogHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	serviceID := r.PathValue("id")

	var req serviceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.badRequest(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "UpdateService", "principal_id", principal.UserID, "service_id", serviceID)
	service, err := h.service.UpdateService(r.Context(), application.UpdateServiceParams{
		Principal: principal,
		ServiceID: serviceID,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "service update failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "service updated")
	h.responder.writeData(r.Context(), w, http.StatusOK, toServiceDTO(service))
}

// DeleteService handles DELETE /services/{id}.
func (h *CatalogHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	serviceID := r.PathValue("id")

	logger := h.log(r.Context(), "DeleteService", "principal_id", principal.UserID, "service_id", serviceID)
	if err := h.service.DeleteService(r.Context(), principal, serviceID); err != nil {
		logger.WarnContext(r.Context(), "service delete failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "service deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type serviceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"priceCents"`
	Available   *bool  `json:"available"`
	ImageURL    string `json:"imageUrl"`
}

// toInput treats a missing available flag as true.
func (r serviceRequest) toInput() application.ServiceInput {
	available := true
	if r.Available != nil {
		available = *r.Available
	}
	return application.ServiceInput{
		Name:        r.Name,
		Description: r.Description,
		PriceCents:  r.PriceCents,
		Available:   available,
		ImageURL:    r.ImageURL,
	}
}

type amenityDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

func toAmenityDTO(a application.Amenity) amenityDTO {
	return amenityDTO{ID: a.ID, Name: a.Name, CreatedAt: formatTimestamp(a.CreatedAt)}
}

type serviceDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"priceCents"`
	Available   bool   `json:"available"`
	ImageURL    string `json:"imageUrl,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func toServiceDTO(s application.Service) serviceDTO {
	return serviceDTO{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		PriceCents:  s.PriceCents,
		Available:   s.Available,
		ImageURL:    s.ImageURL,
		CreatedAt:   formatTimestamp(s.CreatedAt),
		UpdatedAt:   formatTimestamp(s.UpdatedAt),
	}
}
