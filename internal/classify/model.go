package classify

// Method identifies which waterfall stage produced the classification.
type Method string

const (
	MethodExplicit Method = "explicit"
	MethodIndustry Method = "industry"
	MethodCampaign Method = "campaign"
	MethodTitle    Method = "title"
	MethodAI       Method = "ai"
	MethodDefault  Method = "default"
)

// Input carries the raw signals to classify.
type Input struct {
	// Vertical is an explicit vertical field; when present it wins
	// outright (alias-resolved, confidence 1.0).
	Vertical string `json:"vertical,omitempty"`

	Industry   string `json:"industry,omitempty"`
	Title      string `json:"title,omitempty"`
	CampaignID string `json:"campaign_id,omitempty"`

	// CompanyName feeds the AI fallback prompt only.
	CompanyName string `json:"company_name,omitempty"`

	// UseAIFallback enables the LLM stage for ambiguous cases.
	UseAIFallback bool `json:"use_ai_fallback,omitempty"`
}

// Signal records a single matched attribute contributing to the result.
type Signal struct {
	Attribute       string  `json:"attribute"`
	Value           string  `json:"value"`
	MatchedVertical string  `json:"matched_vertical"`
	Weight          float64 `json:"weight"`
	MatchedKeyword  string  `json:"matched_keyword,omitempty"`
}

// Result is the final classification decision.
type Result struct {
	Vertical   string   `json:"vertical"`
	Confidence float64  `json:"confidence"`
	Method     Method   `json:"method"`
	Signals    []Signal `json:"signals"`
	Reasoning  string   `json:"reasoning,omitempty"`
}
