package gtmapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/atlasgtm/atlas/internal/vertical"
)

func (a *API) handleListVerticals(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	vs, err := a.registry.List(r.Context(), includeInactive)
	if err != nil {
		a.writeRegistryError(w, r, err)
		return
	}
	if vs == nil {
		vs = []*vertical.Vertical{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"verticals": vs, "count": len(vs)})
}

func (a *API) handleCreateVertical(w http.ResponseWriter, r *http.Request) {
	var in vertical.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	v, err := a.registry.Create(r.Context(), in, nil)
	if err != nil {
		a.writeRegistryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (a *API) handleGetVertical(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("atlas.vertical.slug", slug))

	v, err := a.registry.Get(r.Context(), slug, includeInactive)
	if err != nil {
		a.writeRegistryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (a *API) handleUpdateVertical(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var in vertical.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	v, err := a.registry.Update(r.Context(), slug, in)
	if err != nil {
		a.writeRegistryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (a *API) handleDeleteVertical(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	hard := r.URL.Query().Get("hard") == "true"

	if err := a.registry.Delete(r.Context(), slug, hard); err != nil {
		a.writeRegistryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": slug, "hard": hard})
}

func (a *API) handleChildren(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	// 404 for unknown parents rather than an empty list.
	if _, err := a.registry.Get(r.Context(), slug, true); err != nil {
		a.writeRegistryError(w, r, err)
		return
	}

	vs, err := a.registry.Children(r.Context(), slug)
	if err != nil {
		a.writeRegistryError(w, r, err)
		return
	}
	if vs == nil {
		vs = []*vertical.Vertical{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"children": vs, "count": len(vs)})
}

func (a *API) handleLinkBrain(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var in struct {
		BrainID string `json:"brain_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	v, err := a.registry.LinkBrain(r.Context(), slug, in.BrainID)
	if err != nil {
		a.writeRegistryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
