package heyreach

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetCampaign(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/campaigns/cmp-42" {
			t.Errorf("path = %q, want /campaigns/cmp-42", r.URL.Path)
		}
		if got := r.Header.Get("X-API-KEY"); got != "test-key" {
			t.Errorf("X-API-KEY = %q, want %q", got, "test-key")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "cmp-42", "name": "Defense Q3", "status": "ACTIVE"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key")
	got, err := c.GetCampaign(context.Background(), "cmp-42")
	if err != nil {
		t.Fatalf("GetCampaign: %v", err)
	}
	if got.Name != "Defense Q3" || got.Status != "ACTIVE" {
		t.Errorf("campaign = %+v", got)
	}
}

func TestGetCampaign_RetriesOn429(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0.01")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"id": "cmp-1", "name": "Outreach", "status": "PAUSED"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "k")
	got, err := c.GetCampaign(context.Background(), "cmp-1")
	if err != nil {
		t.Fatalf("GetCampaign: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if got.Name != "Outreach" {
		t.Errorf("name = %q, want %q", got.Name, "Outreach")
	}
}

func TestGetCampaign_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "campaign not found"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "k")
	_, err := c.GetCampaign(context.Background(), "missing")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", apiErr.StatusCode)
	}
	if apiErr.Message != "campaign not found" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestListCampaigns_StatusFilter(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("status"); got != "ACTIVE" {
			t.Errorf("status query = %q, want ACTIVE", got)
		}
		_, _ = w.Write([]byte(`{"items": [{"id": "1", "name": "A", "status": "ACTIVE"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "k")
	got, err := c.ListCampaigns(context.Background(), "ACTIVE")
	if err != nil {
		t.Fatalf("ListCampaigns: %v", err)
	}
	if len(got) != 1 || got[0].Name != "A" {
		t.Errorf("campaigns = %+v", got)
	}
}
