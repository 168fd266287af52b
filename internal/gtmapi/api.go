// Package gtmapi exposes the registry, the classifier and the lead
// pipeline over HTTP.
package gtmapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/atlasgtm/atlas/internal/classify"
	"github.com/atlasgtm/atlas/internal/leads"
	"github.com/atlasgtm/atlas/internal/vertical"
)

// RegistryService defines the vertical operations the API needs.
type RegistryService interface {
	List(ctx context.Context, includeInactive bool) ([]*vertical.Vertical, error)
	Get(ctx context.Context, slug string, includeInactive bool) (*vertical.Vertical, error)
	Children(ctx context.Context, parentID string) ([]*vertical.Vertical, error)
	Create(ctx context.Context, in vertical.CreateInput, vector []float32) (*vertical.Vertical, error)
	Update(ctx context.Context, slug string, in vertical.UpdateInput) (*vertical.Vertical, error)
	Delete(ctx context.Context, slug string, hard bool) error
	LinkBrain(ctx context.Context, slug, brainID string) (*vertical.Vertical, error)
}

// ClassifyService assigns verticals to lead signals.
type ClassifyService interface {
	Classify(ctx context.Context, in classify.Input) (*classify.Result, error)
}

// LeadService accepts leads for async processing.
type LeadService interface {
	Submit(ctx context.Context, lead *leads.Lead) (*leads.SubmitResult, error)
	Get(ctx context.Context, id string) (*leads.Run, bool, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger     log.Logger
	registry   RegistryService
	classifier ClassifyService
	leads      LeadService
}

// New creates a new API handler.
func New(logger log.Logger, registry RegistryService, classifier ClassifyService, leadSvc LeadService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if registry == nil {
		panic(xerrors.New("registry service is required"))
	}
	return &API{
		logger:     logger,
		registry:   registry,
		classifier: classifier,
		leads:      leadSvc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/verticals", func(r chi.Router) {
			r.Get("/", a.handleListVerticals)
			r.Post("/", a.handleCreateVertical)
			r.Route("/{slug}", func(r chi.Router) {
				r.Get("/", a.handleGetVertical)
				r.Patch("/", a.handleUpdateVertical)
				r.Delete("/", a.handleDeleteVertical)
				r.Get("/children", a.handleChildren)
				r.Post("/brain", a.handleLinkBrain)
			})
		})
		r.Post("/classify", a.handleClassify)
		r.Post("/webhooks/leads", a.handleLeadWebhook)
		r.Get("/leads/{id}", a.handleGetLead)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeRegistryError maps the registry's sentinel errors to status codes.
func (a *API) writeRegistryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, vertical.ErrNotFound):
		writeError(w, http.StatusNotFound, "vertical not found")
	case errors.Is(err, vertical.ErrSlugExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, vertical.ErrBrainLinked):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, vertical.ErrInvalidInput),
		errors.Is(err, vertical.ErrParentNotFound),
		errors.Is(err, vertical.ErrHierarchyCycle):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		a.logger.Error(r.Context(), err, "registry operation failed", "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
