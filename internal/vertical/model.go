package vertical

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// VectorDim is the embedding dimensionality stored alongside every record
// (voyage-3.5-lite). The matching engine never reads the vector; it is
// reserved for semantic search.
const VectorDim = 1024

var slugRe = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// DetectionWeights are the per-signal confidence weights consumed by the
// caller's score aggregation. The registry itself never reads them.
type DetectionWeights struct {
	Industry float64 `json:"industry"`
	Title    float64 `json:"title"`
	Campaign float64 `json:"campaign"`
}

// DefaultWeights returns the standard signal weights.
func DefaultWeights() DetectionWeights {
	return DetectionWeights{Industry: 0.9, Title: 0.5, Campaign: 0.7}
}

// Vertical is a named business category used to route leads to
// vertical-specific content, scoring, and messaging.
type Vertical struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`

	// ParentID references another vertical's slug; Level is the depth in
	// the hierarchy (0 for roots).
	ParentID string `json:"parent_id,omitempty"`
	Level    int    `json:"level"`

	IndustryKeywords  []string         `json:"industry_keywords"`
	TitleKeywords     []string         `json:"title_keywords"`
	CampaignPatterns  []string         `json:"campaign_patterns"`
	Aliases           []string         `json:"aliases"`
	ExclusionKeywords []string         `json:"exclusion_keywords"`
	DetectionWeights  DetectionWeights `json:"detection_weights"`

	AIFallbackThreshold  float64  `json:"ai_fallback_threshold"`
	ExampleCompanies     []string `json:"example_companies"`
	ClassificationPrompt string   `json:"classification_prompt,omitempty"`

	// DefaultBrainID is a weak reference to a downstream content/scoring
	// profile. The registry only stores it.
	DefaultBrainID string `json:"default_brain_id,omitempty"`

	IsActive bool `json:"is_active"`

	// HasEmbedding distinguishes a real embedding from the zero
	// placeholder written when no vector was supplied at create time.
	HasEmbedding bool `json:"has_embedding"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// Clone returns a deep copy so cached records can be handed out safely.
func (v *Vertical) Clone() *Vertical {
	if v == nil {
		return nil
	}
	cp := *v
	cp.IndustryKeywords = append([]string(nil), v.IndustryKeywords...)
	cp.TitleKeywords = append([]string(nil), v.TitleKeywords...)
	cp.CampaignPatterns = append([]string(nil), v.CampaignPatterns...)
	cp.Aliases = append([]string(nil), v.Aliases...)
	cp.ExclusionKeywords = append([]string(nil), v.ExclusionKeywords...)
	cp.ExampleCompanies = append([]string(nil), v.ExampleCompanies...)
	return &cp
}

// CreateInput carries the fields a caller may set when creating a vertical.
// Omitted optional fields are filled with defaults by the registry.
type CreateInput struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`

	ParentSlug string `json:"parent_slug,omitempty"`

	IndustryKeywords  []string          `json:"industry_keywords,omitempty"`
	TitleKeywords     []string          `json:"title_keywords,omitempty"`
	CampaignPatterns  []string          `json:"campaign_patterns,omitempty"`
	Aliases           []string          `json:"aliases,omitempty"`
	ExclusionKeywords []string          `json:"exclusion_keywords,omitempty"`
	DetectionWeights  *DetectionWeights `json:"detection_weights,omitempty"`

	AIFallbackThreshold  *float64 `json:"ai_fallback_threshold,omitempty"`
	ExampleCompanies     []string `json:"example_companies,omitempty"`
	ClassificationPrompt string   `json:"classification_prompt,omitempty"`

	IsActive *bool `json:"is_active,omitempty"`
}

// Validate normalizes the slug and checks format constraints.
func (in *CreateInput) Validate() error {
	in.Slug = strings.ToLower(strings.TrimSpace(in.Slug))
	if len(in.Slug) < 2 || len(in.Slug) > 50 {
		return fmt.Errorf("%w: slug must be 2-50 characters", ErrInvalidInput)
	}
	if !slugRe.MatchString(in.Slug) {
		return fmt.Errorf("%w: slug %q must be lowercase, start with a letter, and contain only alphanumerics, hyphens, underscores", ErrInvalidInput, in.Slug)
	}
	if len(in.Name) < 1 || len(in.Name) > 100 {
		return fmt.Errorf("%w: name must be 1-100 characters", ErrInvalidInput)
	}
	if len(in.Description) < 10 {
		return fmt.Errorf("%w: description must be at least 10 characters", ErrInvalidInput)
	}
	if in.AIFallbackThreshold != nil && (*in.AIFallbackThreshold < 0 || *in.AIFallbackThreshold > 1) {
		return fmt.Errorf("%w: ai_fallback_threshold must be in [0,1]", ErrInvalidInput)
	}
	return nil
}

// UpdateInput carries a partial update. Nil fields are left untouched;
// each field is merged individually so an omitted list is never cleared.
type UpdateInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`

	ParentSlug *string `json:"parent_slug,omitempty"`

	IndustryKeywords  *[]string         `json:"industry_keywords,omitempty"`
	TitleKeywords     *[]string         `json:"title_keywords,omitempty"`
	CampaignPatterns  *[]string         `json:"campaign_patterns,omitempty"`
	Aliases           *[]string         `json:"aliases,omitempty"`
	ExclusionKeywords *[]string         `json:"exclusion_keywords,omitempty"`
	DetectionWeights  *DetectionWeights `json:"detection_weights,omitempty"`

	AIFallbackThreshold  *float64 `json:"ai_fallback_threshold,omitempty"`
	ExampleCompanies     *[]string `json:"example_companies,omitempty"`
	ClassificationPrompt *string  `json:"classification_prompt,omitempty"`

	DefaultBrainID *string `json:"default_brain_id,omitempty"`
	IsActive       *bool   `json:"is_active,omitempty"`
}

// Validate checks the provided fields without touching absent ones.
func (in *UpdateInput) Validate() error {
	if in.Name != nil && (len(*in.Name) < 1 || len(*in.Name) > 100) {
		return fmt.Errorf("%w: name must be 1-100 characters", ErrInvalidInput)
	}
	if in.Description != nil && len(*in.Description) < 10 {
		return fmt.Errorf("%w: description must be at least 10 characters", ErrInvalidInput)
	}
	if in.AIFallbackThreshold != nil && (*in.AIFallbackThreshold < 0 || *in.AIFallbackThreshold > 1) {
		return fmt.Errorf("%w: ai_fallback_threshold must be in [0,1]", ErrInvalidInput)
	}
	return nil
}
