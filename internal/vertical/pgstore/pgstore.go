// Package pgstore provides a PostgreSQL implementation of vertical.Store
// for deployments without a Qdrant instance. The embedding vector is
// persisted as a real[] column so records survive a later move to a
// vector-capable backend.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlasgtm/atlas/internal/vertical"
)

var tracer = otel.Tracer("github.com/atlasgtm/atlas/internal/vertical/pgstore")

//go:embed schema.sql
var schema string

// Store persists vertical records in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const verticalColumns = `id, slug, name, description, parent_id, level,
	industry_keywords, title_keywords, campaign_patterns, aliases, exclusion_keywords,
	detection_weights, ai_fallback_threshold, example_companies, classification_prompt,
	default_brain_id, is_active, has_embedding, created_at, updated_at, version`

// List returns all records, or only active ones.
func (s *Store) List(ctx context.Context, includeInactive bool) ([]*vertical.Vertical, error) {
	ctx, span := tracer.Start(ctx, "pgstore.List", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + verticalColumns + ` FROM verticals`
	if !includeInactive {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY slug`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, spanErr(span, err)
	}
	defer rows.Close()

	var out []*vertical.Vertical
	for rows.Next() {
		v, err := scanVertical(rows)
		if err != nil {
			return nil, spanErr(span, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, spanErr(span, err)
	}
	return out, nil
}

// GetBySlug retrieves a record by slug.
func (s *Store) GetBySlug(ctx context.Context, slug string) (*vertical.Vertical, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.GetBySlug", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + verticalColumns + ` FROM verticals WHERE slug = $1`
	v, err := scanVertical(s.pool.QueryRow(ctx, query, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, spanErr(span, err)
	}
	return v, true, nil
}

// Create inserts a new record with its embedding vector.
func (s *Store) Create(ctx context.Context, v *vertical.Vertical, vec []float32) error {
	ctx, span := tracer.Start(ctx, "pgstore.Create", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	weights, err := json.Marshal(v.DetectionWeights)
	if err != nil {
		return spanErr(span, fmt.Errorf("encode detection weights: %w", err))
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO verticals (
			id, slug, name, description, parent_id, level,
			industry_keywords, title_keywords, campaign_patterns, aliases, exclusion_keywords,
			detection_weights, ai_fallback_threshold, example_companies, classification_prompt,
			default_brain_id, is_active, has_embedding, embedding, created_at, updated_at, version
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22
		)`,
		v.ID, v.Slug, v.Name, v.Description, v.ParentID, v.Level,
		v.IndustryKeywords, v.TitleKeywords, v.CampaignPatterns, v.Aliases, v.ExclusionKeywords,
		weights, v.AIFallbackThreshold, v.ExampleCompanies, v.ClassificationPrompt,
		v.DefaultBrainID, v.IsActive, v.HasEmbedding, vec, v.CreatedAt, v.UpdatedAt, v.Version,
	)
	if err != nil {
		return spanErr(span, err)
	}
	return nil
}

// Update rewrites the payload columns of an existing record, leaving the
// embedding untouched.
func (s *Store) Update(ctx context.Context, v *vertical.Vertical) error {
	ctx, span := tracer.Start(ctx, "pgstore.Update", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPDATE"),
	))
	defer span.End()

	weights, err := json.Marshal(v.DetectionWeights)
	if err != nil {
		return spanErr(span, fmt.Errorf("encode detection weights: %w", err))
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE verticals SET
			slug = $2, name = $3, description = $4, parent_id = $5, level = $6,
			industry_keywords = $7, title_keywords = $8, campaign_patterns = $9,
			aliases = $10, exclusion_keywords = $11, detection_weights = $12,
			ai_fallback_threshold = $13, example_companies = $14, classification_prompt = $15,
			default_brain_id = $16, is_active = $17, has_embedding = $18,
			updated_at = $19, version = $20
		WHERE id = $1`,
		v.ID, v.Slug, v.Name, v.Description, v.ParentID, v.Level,
		v.IndustryKeywords, v.TitleKeywords, v.CampaignPatterns,
		v.Aliases, v.ExclusionKeywords, weights,
		v.AIFallbackThreshold, v.ExampleCompanies, v.ClassificationPrompt,
		v.DefaultBrainID, v.IsActive, v.HasEmbedding,
		v.UpdatedAt, v.Version,
	)
	if err != nil {
		return spanErr(span, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update vertical %s: no such row", v.ID)
	}
	return nil
}

// Delete physically removes the record.
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "pgstore.Delete", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "DELETE"),
	))
	defer span.End()

	if _, err := s.pool.Exec(ctx, `DELETE FROM verticals WHERE id = $1`, id); err != nil {
		return spanErr(span, err)
	}
	return nil
}

func scanVertical(row pgx.Row) (*vertical.Vertical, error) {
	var v vertical.Vertical
	var weights []byte
	err := row.Scan(
		&v.ID, &v.Slug, &v.Name, &v.Description, &v.ParentID, &v.Level,
		&v.IndustryKeywords, &v.TitleKeywords, &v.CampaignPatterns, &v.Aliases, &v.ExclusionKeywords,
		&weights, &v.AIFallbackThreshold, &v.ExampleCompanies, &v.ClassificationPrompt,
		&v.DefaultBrainID, &v.IsActive, &v.HasEmbedding, &v.CreatedAt, &v.UpdatedAt, &v.Version,
	)
	if err != nil {
		return nil, err
	}
	if len(weights) > 0 {
		if err := json.Unmarshal(weights, &v.DetectionWeights); err != nil {
			return nil, fmt.Errorf("decode detection weights: %w", err)
		}
	}
	return &v, nil
}

func spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
