package classify

import (
	"context"

	"github.com/atlasgtm/atlas/internal/vertical"
)

// Provider is the interface for the LLM fallback classifier.
type Provider interface {
	// ClassifyCompany picks a vertical for a company given the active
	// catalog. It returns the chosen slug, a confidence in [0,1], and a
	// short reasoning string.
	ClassifyCompany(ctx context.Context, req *LLMRequest) (*LLMResult, error)
}

// LLMRequest is the input to the fallback classifier.
type LLMRequest struct {
	CompanyName string
	Industry    string
	Title       string
	Catalog     []*vertical.Vertical
}

// LLMResult is the fallback classifier's decision.
type LLMResult struct {
	Vertical   string
	Confidence float64
	Reasoning  string
}
