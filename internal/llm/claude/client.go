// Package claude implements the classify.Provider interface on top of
// the Anthropic SDK. The model receives the active vertical catalog and
// the lead's company signals and must answer with a single JSON object.
package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/atlasgtm/atlas/internal/classify"
	"github.com/atlasgtm/atlas/internal/vertical"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-3-5-haiku-latest"

const maxTokens = 1024

// Client calls the Anthropic Messages API to classify companies.
type Client struct {
	api   anthropic.Client
	model string
}

// New creates a Client with the given API key and model name.
func New(apiKey, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		api:   anthropic.NewClient(option.WithAPIKey(apiKey)),
		model: model,
	}
}

// ClassifyCompany asks the model to pick a vertical from the catalog.
func (c *Client) ClassifyCompany(ctx context.Context, req *classify.LLMRequest) (*classify.LLMResult, error) {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: buildSystemPrompt(req.Catalog)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildUserPrompt(req))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("claude request: %w", err)
	}

	text := textContent(msg)
	if text == "" {
		return nil, fmt.Errorf("claude response contained no text")
	}
	return parseClassification(text)
}

// buildSystemPrompt renders the vertical catalog into classification
// instructions. Per-vertical classification prompts and example companies
// are included when present.
func buildSystemPrompt(catalog []*vertical.Vertical) string {
	var b strings.Builder
	b.WriteString("You classify B2B companies into sales verticals.\n")
	b.WriteString("Choose exactly one vertical slug from the catalog below.\n\n")
	b.WriteString("Catalog:\n")
	for _, v := range catalog {
		fmt.Fprintf(&b, "- %s: %s. %s", v.Slug, v.Name, v.Description)
		if len(v.ExampleCompanies) > 0 {
			fmt.Fprintf(&b, " Examples: %s.", strings.Join(v.ExampleCompanies, ", "))
		}
		if v.ClassificationPrompt != "" {
			fmt.Fprintf(&b, " Hint: %s", v.ClassificationPrompt)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nRespond with only a JSON object of the form ")
	b.WriteString(`{"vertical": "<slug>", "confidence": <0.0-1.0>, "reasoning": "<one sentence>"}.`)
	return b.String()
}

func buildUserPrompt(req *classify.LLMRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\n", req.CompanyName)
	if req.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s\n", req.Industry)
	}
	if req.Title != "" {
		fmt.Fprintf(&b, "Contact title: %s\n", req.Title)
	}
	return b.String()
}

// textContent concatenates the text blocks of a response.
func textContent(msg *anthropic.Message) string {
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

// parseClassification decodes the model's JSON answer, tolerating
// markdown code fences around the object.
func parseClassification(text string) (*classify.LLMResult, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var out struct {
		Vertical   string  `json:"vertical"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("parse classification: %w", err)
	}
	if out.Vertical == "" {
		return nil, fmt.Errorf("parse classification: empty vertical")
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return nil, fmt.Errorf("parse classification: confidence %v out of range", out.Confidence)
	}
	return &classify.LLMResult{
		Vertical:   out.Vertical,
		Confidence: out.Confidence,
		Reasoning:  out.Reasoning,
	}, nil
}
