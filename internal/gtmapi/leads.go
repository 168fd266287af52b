package gtmapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/atlasgtm/atlas/internal/classify"
	"github.com/atlasgtm/atlas/internal/leads"
)

func (a *API) handleClassify(w http.ResponseWriter, r *http.Request) {
	if a.classifier == nil {
		writeError(w, http.StatusServiceUnavailable, "classifier not configured")
		return
	}

	var in classify.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	res, err := a.classifier.Classify(r.Context(), in)
	if err != nil {
		a.logger.Error(r.Context(), err, "classification failed", "company", in.CompanyName)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("atlas.classify.vertical", res.Vertical),
		attribute.String("atlas.classify.method", string(res.Method)),
	)

	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleLeadWebhook(w http.ResponseWriter, r *http.Request) {
	if a.leads == nil {
		writeError(w, http.StatusServiceUnavailable, "lead pipeline not configured")
		return
	}

	var wh struct {
		Leads []leads.Lead `json:"leads"`
	}
	if err := json.NewDecoder(r.Body).Decode(&wh); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	var accepted []string
	for i := range wh.Leads {
		sr, err := a.leads.Submit(r.Context(), &wh.Leads[i])
		if err != nil {
			a.logger.Warn(r.Context(), "lead rejected", "company", wh.Leads[i].Company, "error", err)
			continue
		}
		if sr.Skipped {
			continue
		}
		accepted = append(accepted, sr.ID)
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"accepted": accepted})
}

func (a *API) handleGetLead(w http.ResponseWriter, r *http.Request) {
	if a.leads == nil {
		writeError(w, http.StatusServiceUnavailable, "lead pipeline not configured")
		return
	}

	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("atlas.lead.id", id))

	run, ok, err := a.leads.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get lead run", "id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	span.SetAttributes(attribute.String("atlas.lead.status", string(run.Status)))
	writeJSON(w, http.StatusOK, run)
}
