package pgstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/atlasgtm/atlas/internal/postgres"
	"github.com/atlasgtm/atlas/internal/vertical"
	"github.com/atlasgtm/atlas/internal/vertical/pgstore"
)

func openStore(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("ATLAS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("ATLAS_TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("postgres.NewPool: %v", err)
	}
	t.Cleanup(pool.Close)
	s, err := pgstore.New(ctx, pool)
	if err != nil {
		t.Fatalf("pgstore.New: %v", err)
	}
	return s
}

func testRecord(id, slug string) *vertical.Vertical {
	now := time.Now().Truncate(time.Microsecond).UTC()
	return &vertical.Vertical{
		ID:                  id,
		Slug:                slug,
		Name:                "Financial Technology",
		Description:         "Banks, payments, and financial software",
		IndustryKeywords:    []string{"fintech", "banking"},
		TitleKeywords:       []string{"cfo"},
		CampaignPatterns:    []string{"fin_*"},
		Aliases:             []string{"financial"},
		ExclusionKeywords:   []string{"non-profit"},
		DetectionWeights:    vertical.DefaultWeights(),
		AIFallbackThreshold: 0.5,
		ExampleCompanies:    []string{"Stripe"},
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
		Version:             1,
	}
}

func TestCreateAndGetBySlug(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	rec := testRecord("test-create-get-001", "pgtest-fintech")
	t.Cleanup(func() { _ = s.Delete(ctx, rec.ID) })

	vec := make([]float32, vertical.VectorDim)
	vec[0] = 0.5
	if err := s.Create(ctx, rec, vec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, ok, err := s.GetBySlug(ctx, rec.Slug)
	if err != nil {
		t.Fatalf("GetBySlug: %v", err)
	}
	if !ok {
		t.Fatal("GetBySlug returned ok=false, want true")
	}
	if got.ID != rec.ID || got.Name != rec.Name || got.Version != 1 {
		t.Errorf("got %+v", got)
	}
	if got.DetectionWeights != vertical.DefaultWeights() {
		t.Errorf("weights = %+v, want defaults", got.DetectionWeights)
	}
	if len(got.IndustryKeywords) != 2 || got.IndustryKeywords[0] != "fintech" {
		t.Errorf("industry keywords = %v", got.IndustryKeywords)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, rec.CreatedAt)
	}
}

func TestGetBySlug_Unknown(t *testing.T) {
	s := openStore(t)

	_, ok, err := s.GetBySlug(context.Background(), "pgtest-no-such-slug")
	if err != nil {
		t.Fatalf("GetBySlug: %v", err)
	}
	if ok {
		t.Error("ok = true for unknown slug")
	}
}

func TestUpdate(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	rec := testRecord("test-update-001", "pgtest-update")
	t.Cleanup(func() { _ = s.Delete(ctx, rec.ID) })

	if err := s.Create(ctx, rec, make([]float32, vertical.VectorDim)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	upd := rec.Clone()
	upd.Name = "Renamed"
	upd.IsActive = false
	upd.Version = 2
	upd.UpdatedAt = time.Now().Truncate(time.Microsecond).UTC()
	if err := s.Update(ctx, upd); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, ok, err := s.GetBySlug(ctx, rec.Slug)
	if err != nil || !ok {
		t.Fatalf("GetBySlug = %v, %v", ok, err)
	}
	if got.Name != "Renamed" || got.IsActive || got.Version != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestUpdate_MissingRow(t *testing.T) {
	s := openStore(t)

	rec := testRecord("test-missing-row-001", "pgtest-missing")
	if err := s.Update(context.Background(), rec); err == nil {
		t.Error("Update of a nonexistent row must fail")
	}
}

func TestListFiltersInactive(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	active := testRecord("test-list-001", "pgtest-list-active")
	inactive := testRecord("test-list-002", "pgtest-list-inactive")
	inactive.IsActive = false
	t.Cleanup(func() {
		_ = s.Delete(ctx, active.ID)
		_ = s.Delete(ctx, inactive.ID)
	})

	vec := make([]float32, vertical.VectorDim)
	if err := s.Create(ctx, active, vec); err != nil {
		t.Fatalf("Create active: %v", err)
	}
	if err := s.Create(ctx, inactive, vec); err != nil {
		t.Fatalf("Create inactive: %v", err)
	}

	onlyActive, err := s.List(ctx, false)
	if err != nil {
		t.Fatalf("List active: %v", err)
	}
	for _, v := range onlyActive {
		if v.ID == inactive.ID {
			t.Error("inactive record returned from active list")
		}
	}

	all, err := s.List(ctx, true)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	var sawActive, sawInactive bool
	for _, v := range all {
		switch v.ID {
		case active.ID:
			sawActive = true
		case inactive.ID:
			sawInactive = true
		}
	}
	if !sawActive || !sawInactive {
		t.Errorf("full list missing records: active=%v inactive=%v", sawActive, sawInactive)
	}
}
