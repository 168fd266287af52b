// Package classify turns raw lead signals (industry string, job title,
// campaign identifier) into a vertical assignment. It is a pure consumer
// of the vertical registry: it reads the detection index, applies the
// matching engine, and owns the aggregation the registry deliberately
// does not do — per-signal weights, the LLM fallback, and the default.
package classify

import (
	"context"
	"errors"
	"strings"

	"github.com/linnemanlabs/go-core/log"

	"github.com/atlasgtm/atlas/internal/vertical"
)

// DefaultVertical is the fallback assignment when no signal matches.
const DefaultVertical = "saas"

const defaultConfidence = 0.1

// Registry defines the read operations the classifier needs.
type Registry interface {
	List(ctx context.Context, includeInactive bool) ([]*vertical.Vertical, error)
	Get(ctx context.Context, slug string, includeInactive bool) (*vertical.Vertical, error)
	DetectionIndex(ctx context.Context) (*vertical.DetectionIndex, error)
}

// Classifier runs the waterfall: explicit field, industry keywords,
// campaign patterns, title keywords, optional LLM fallback, default.
type Classifier struct {
	registry        Registry
	llm             Provider
	logger          log.Logger
	defaultVertical string
}

// New creates a Classifier. llm may be nil, which disables the AI stage.
func New(registry Registry, llm Provider, logger log.Logger, defaultVertical string) *Classifier {
	if logger == nil {
		logger = log.Nop()
	}
	if defaultVertical == "" {
		defaultVertical = DefaultVertical
	}
	return &Classifier{
		registry:        registry,
		llm:             llm,
		logger:          logger,
		defaultVertical: defaultVertical,
	}
}

// Classify assigns a vertical to the given signals.
func (c *Classifier) Classify(ctx context.Context, in Input) (*Result, error) {
	idx, err := c.registry.DetectionIndex(ctx)
	if err != nil {
		return nil, err
	}

	var signals []Signal

	// 1. Explicit vertical field wins outright, alias-resolved.
	if v := strings.ToLower(strings.TrimSpace(in.Vertical)); v != "" {
		matched := v
		if slug, ok := idx.Alias[v]; ok {
			matched = slug
		}
		signals = append(signals, Signal{
			Attribute: "vertical", Value: in.Vertical, MatchedVertical: matched, Weight: 1.0,
		})
		return &Result{Vertical: matched, Confidence: 1.0, Method: MethodExplicit, Signals: signals}, nil
	}

	// 2. Industry keyword match.
	if m, ok := vertical.MatchKeyword(in.Industry, idx.Industry, idx.Exclusions); ok {
		w := c.weights(ctx, m.Slug).Industry
		signals = append(signals, Signal{
			Attribute: "industry", Value: in.Industry, MatchedVertical: m.Slug, Weight: w, MatchedKeyword: m.Keyword,
		})
		return &Result{Vertical: m.Slug, Confidence: w, Method: MethodIndustry, Signals: signals}, nil
	}

	// 3. Campaign pattern match.
	if m, ok := vertical.MatchCampaignPattern(in.CampaignID, idx.Campaign); ok {
		w := c.weights(ctx, m.Slug).Campaign
		signals = append(signals, Signal{
			Attribute: "campaign", Value: in.CampaignID, MatchedVertical: m.Slug, Weight: w, MatchedKeyword: m.Keyword,
		})
		return &Result{Vertical: m.Slug, Confidence: w, Method: MethodCampaign, Signals: signals}, nil
	}

	// 4. Title keyword match.
	if m, ok := vertical.MatchKeyword(in.Title, idx.Title, idx.Exclusions); ok {
		w := c.weights(ctx, m.Slug).Title
		signals = append(signals, Signal{
			Attribute: "title", Value: in.Title, MatchedVertical: m.Slug, Weight: w, MatchedKeyword: m.Keyword,
		})
		return &Result{Vertical: m.Slug, Confidence: w, Method: MethodTitle, Signals: signals}, nil
	}

	// 5. LLM fallback for ambiguous cases.
	if in.UseAIFallback && c.llm != nil {
		if res := c.classifyWithLLM(ctx, in, &signals); res != nil {
			return res, nil
		}
	}

	// 6. Default.
	signals = append(signals, Signal{
		Attribute: "default", Value: "none", MatchedVertical: c.defaultVertical, Weight: defaultConfidence,
	})
	return &Result{Vertical: c.defaultVertical, Confidence: defaultConfidence, Method: MethodDefault, Signals: signals}, nil
}

// classifyWithLLM runs the AI stage. It returns nil when the stage failed
// or the answer did not clear the chosen vertical's fallback threshold,
// letting the waterfall continue to the default.
func (c *Classifier) classifyWithLLM(ctx context.Context, in Input, signals *[]Signal) *Result {
	catalog, err := c.registry.List(ctx, false)
	if err != nil {
		c.logger.Warn(ctx, "ai fallback skipped, catalog fetch failed", "error", err)
		return nil
	}

	res, err := c.llm.ClassifyCompany(ctx, &LLMRequest{
		CompanyName: in.CompanyName,
		Industry:    in.Industry,
		Title:       in.Title,
		Catalog:     catalog,
	})
	if err != nil {
		c.logger.Warn(ctx, "ai fallback failed", "company", in.CompanyName, "error", err)
		return nil
	}

	slug := strings.ToLower(strings.TrimSpace(res.Vertical))
	chosen, err := c.registry.Get(ctx, slug, false)
	if err != nil {
		if !errors.Is(err, vertical.ErrNotFound) {
			c.logger.Warn(ctx, "ai fallback lookup failed", "slug", slug, "error", err)
		}
		return nil
	}
	if res.Confidence < chosen.AIFallbackThreshold {
		c.logger.Info(ctx, "ai fallback below threshold",
			"slug", slug, "confidence", res.Confidence, "threshold", chosen.AIFallbackThreshold)
		return nil
	}

	*signals = append(*signals, Signal{
		Attribute: "ai", Value: in.CompanyName, MatchedVertical: slug, Weight: res.Confidence,
	})
	return &Result{
		Vertical:   slug,
		Confidence: res.Confidence,
		Method:     MethodAI,
		Signals:    *signals,
		Reasoning:  res.Reasoning,
	}
}

// weights returns the matched vertical's detection weights, falling back
// to the defaults when the record cannot be fetched.
func (c *Classifier) weights(ctx context.Context, slug string) vertical.DetectionWeights {
	v, err := c.registry.Get(ctx, slug, false)
	if err != nil {
		return vertical.DefaultWeights()
	}
	return v.DetectionWeights
}
