package gtmapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"

	"github.com/atlasgtm/atlas/internal/classify"
	"github.com/atlasgtm/atlas/internal/leads"
	leadmem "github.com/atlasgtm/atlas/internal/leads/memstore"
	"github.com/atlasgtm/atlas/internal/vertical"
	"github.com/atlasgtm/atlas/internal/vertical/memstore"
)

func newTestRouter(t *testing.T) (chi.Router, *vertical.Registry, leads.Store) {
	t.Helper()

	registry := vertical.New(memstore.New(), log.Nop(), vertical.Options{})
	classifier := classify.New(registry, nil, log.Nop(), "")
	leadStore := leadmem.New()
	leadSvc := leads.NewService(leadStore, classifier, nil, nil, nil, log.Nop(), nil)

	api := New(nil, registry, classifier, leadSvc)
	r := chi.NewRouter()
	api.RegisterRoutes(r)
	return r, registry, leadStore
}

func doJSON(t *testing.T, r chi.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

const fintechBody = `{
	"slug": "fintech",
	"name": "FinTech",
	"description": "Financial technology companies.",
	"industry_keywords": ["fintech", "payments"],
	"title_keywords": ["cfo"],
	"aliases": ["financial"]
}`

func TestNew_NilRegistry_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("New(nil, nil, nil, nil) did not panic; expected panic for nil registry")
		}
	}()
	New(nil, nil, nil, nil)
}

func TestCreateAndGetVertical(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/verticals", fintechBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var created vertical.Vertical
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.ID == "" || created.Version != 1 {
		t.Errorf("created = %+v, want id and version 1", created)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/v1/verticals/FINTECH", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get = %d, want 200 (case-insensitive slug)", rec.Code)
	}

	var got vertical.Vertical
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode get response: %v", err)
	}
	if got.Slug != "fintech" || got.Name != "FinTech" {
		t.Errorf("got = %q/%q", got.Slug, got.Name)
	}
}

func TestCreateVertical_Validation(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRouter(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{bad`, http.StatusBadRequest},
		{"short slug", `{"slug": "x", "name": "X", "description": "long enough description"}`, http.StatusBadRequest},
		{"bad slug chars", `{"slug": "9bad!", "name": "X", "description": "long enough description"}`, http.StatusBadRequest},
		{"short description", `{"slug": "okay", "name": "X", "description": "short"}`, http.StatusBadRequest},
		{"missing parent", `{"slug": "okay", "name": "X", "description": "long enough description", "parent_slug": "ghost"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := doJSON(t, r, http.MethodPost, "/api/v1/verticals", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestCreateVertical_DuplicateSlug(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRouter(t)

	if rec := doJSON(t, r, http.MethodPost, "/api/v1/verticals", fintechBody); rec.Code != http.StatusCreated {
		t.Fatalf("first create = %d", rec.Code)
	}
	if rec := doJSON(t, r, http.MethodPost, "/api/v1/verticals", fintechBody); rec.Code != http.StatusConflict {
		t.Fatalf("second create = %d, want 409", rec.Code)
	}
}

func TestGetVertical_NotFound(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/v1/verticals/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get = %d, want 404", rec.Code)
	}
}

func TestListVerticals(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRouter(t)

	doJSON(t, r, http.MethodPost, "/api/v1/verticals", fintechBody)

	rec := doJSON(t, r, http.MethodGet, "/api/v1/verticals", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list = %d, want 200", rec.Code)
	}

	var resp struct {
		Verticals []*vertical.Vertical `json:"verticals"`
		Count     int                  `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if resp.Count != 1 || len(resp.Verticals) != 1 {
		t.Errorf("count = %d, verticals = %d, want 1", resp.Count, len(resp.Verticals))
	}
}

func TestUpdateVertical(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/api/v1/verticals", fintechBody)

	rec := doJSON(t, r, http.MethodPatch, "/api/v1/verticals/fintech",
		`{"name": "Financial Technology", "industry_keywords": ["fintech", "banking"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var got vertical.Vertical
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode patch response: %v", err)
	}
	if got.Name != "Financial Technology" {
		t.Errorf("name = %q", got.Name)
	}
	if got.Version != 2 {
		t.Errorf("version = %d, want 2", got.Version)
	}
	if got.Description == "" {
		t.Error("description should be untouched by partial update")
	}
}

func TestDeleteVertical_SoftThenIncludeInactive(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/api/v1/verticals", fintechBody)

	if rec := doJSON(t, r, http.MethodDelete, "/api/v1/verticals/fintech", ""); rec.Code != http.StatusOK {
		t.Fatalf("delete = %d, want 200", rec.Code)
	}

	if rec := doJSON(t, r, http.MethodGet, "/api/v1/verticals/fintech", ""); rec.Code != http.StatusNotFound {
		t.Errorf("get after soft delete = %d, want 404", rec.Code)
	}
	if rec := doJSON(t, r, http.MethodGet, "/api/v1/verticals/fintech?include_inactive=true", ""); rec.Code != http.StatusOK {
		t.Errorf("get with include_inactive = %d, want 200", rec.Code)
	}
}

func TestDeleteVertical_BrainLinked(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/api/v1/verticals", fintechBody)

	if rec := doJSON(t, r, http.MethodPost, "/api/v1/verticals/fintech/brain", `{"brain_id": "brain-7"}`); rec.Code != http.StatusOK {
		t.Fatalf("link brain = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	rec := doJSON(t, r, http.MethodDelete, "/api/v1/verticals/fintech", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("delete with linked brain = %d, want 409", rec.Code)
	}
}

func TestChildren(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/api/v1/verticals", fintechBody)
	doJSON(t, r, http.MethodPost, "/api/v1/verticals",
		`{"slug": "payments", "name": "Payments", "description": "Payments infrastructure.", "parent_slug": "fintech"}`)

	rec := doJSON(t, r, http.MethodGet, "/api/v1/verticals/fintech/children", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("children = %d, want 200", rec.Code)
	}

	var resp struct {
		Children []*vertical.Vertical `json:"children"`
		Count    int                  `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode children: %v", err)
	}
	if resp.Count != 1 || resp.Children[0].Slug != "payments" {
		t.Errorf("children = %+v", resp.Children)
	}
	if resp.Children[0].Level != 1 {
		t.Errorf("child level = %d, want 1", resp.Children[0].Level)
	}

	if rec := doJSON(t, r, http.MethodGet, "/api/v1/verticals/ghost/children", ""); rec.Code != http.StatusNotFound {
		t.Errorf("children of unknown parent = %d, want 404", rec.Code)
	}
}

func TestClassifyEndpoint(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/api/v1/verticals", fintechBody)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/classify", `{"industry": "fintech startup"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("classify = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var res classify.Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode classify response: %v", err)
	}
	if res.Vertical != "fintech" || res.Method != classify.MethodIndustry {
		t.Errorf("result = %q/%q", res.Vertical, res.Method)
	}
}

func TestLeadWebhook(t *testing.T) {
	t.Parallel()

	r, _, leadStore := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/api/v1/verticals", fintechBody)

	body := `{
		"leads": [
			{"email": "jo@acme.com", "company": "Acme", "industry": "fintech"},
			{"email": "", "company": ""}
		]
	}`

	rec := doJSON(t, r, http.MethodPost, "/api/v1/webhooks/leads", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("webhook = %d, want 202: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Accepted []string `json:"accepted"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode webhook response: %v", err)
	}
	if len(resp.Accepted) != 1 {
		t.Fatalf("accepted = %v, want 1 id (invalid lead skipped)", resp.Accepted)
	}

	id := resp.Accepted[0]
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		run, ok, _ := leadStore.Get(context.Background(), id)
		if ok && run.Status == leads.StatusComplete {
			if run.Vertical != "fintech" {
				t.Errorf("vertical = %q, want fintech", run.Vertical)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("lead run did not complete within deadline")
}

func TestLeadWebhook_InvalidJSON(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/webhooks/leads", "{bad")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("webhook = %d, want 400", rec.Code)
	}
}

func TestGetLead_NotFound(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/v1/leads/01JNMISSING", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get lead = %d, want 404", rec.Code)
	}
}

func TestRegisterRoutes_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRouter(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPut, "/api/v1/verticals"},
		{http.MethodGet, "/api/v1/classify"},
		{http.MethodGet, "/api/v1/webhooks/leads"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			t.Parallel()
			rec := doJSON(t, r, tt.method, tt.path, "")
			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("%s %s = %d, want 405", tt.method, tt.path, rec.Code)
			}
		})
	}
}
