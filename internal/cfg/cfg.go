package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config adds service-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APIToken              string
	QdrantURL             string
	QdrantAPIKey          string
	QdrantCollection      string
	DatabaseURL           string
	CacheTTLSeconds       int
	CacheStaleSeconds     int
	ClaudeAPIKey          string
	ClaudeModel           string
	SlackWebhookURL       string
	HeyReachAPIKey        string
	AttioAPIKey           string
	DefaultVertical       string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "token required on API requests (empty = auth disabled)")
	fs.StringVar(&c.QdrantURL, "qdrant-url", "", "Qdrant REST endpoint for the vertical store (empty = no Qdrant)")
	fs.StringVar(&c.QdrantAPIKey, "qdrant-api-key", "", "Qdrant API key")
	fs.StringVar(&c.QdrantCollection, "qdrant-collection", "verticals", "Qdrant collection holding vertical records")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.IntVar(&c.CacheTTLSeconds, "cache-ttl-seconds", 60, "registry cache freshness window in seconds (1..3600)")
	fs.IntVar(&c.CacheStaleSeconds, "cache-stale-seconds", 300, "registry stale-while-revalidate window in seconds (0..86400)")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for the Claude classification fallback (empty = fallback disabled)")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-3-5-haiku-latest", "Claude model to use")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for notifications")
	fs.StringVar(&c.HeyReachAPIKey, "heyreach-api-key", "", "HeyReach API key for campaign enrichment (empty = disabled)")
	fs.StringVar(&c.AttioAPIKey, "attio-api-key", "", "Attio API key for CRM writeback (empty = disabled)")
	fs.StringVar(&c.DefaultVertical, "default-vertical", "saas", "fallback vertical slug when no signal matches")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// Cache windows
	if c.CacheTTLSeconds <= 0 || c.CacheTTLSeconds > 3600 {
		errs = append(errs, fmt.Errorf("invalid CACHE_TTL_SECONDS %d (must be 1..3600)", c.CacheTTLSeconds))
	}
	if c.CacheStaleSeconds < 0 || c.CacheStaleSeconds > 86400 {
		errs = append(errs, fmt.Errorf("invalid CACHE_STALE_SECONDS %d (must be 0..86400)", c.CacheStaleSeconds))
	}

	// Qdrant and Postgres are alternative backends
	if c.QdrantURL != "" && c.DatabaseURL != "" {
		errs = append(errs, errors.New("QDRANT_URL and DATABASE_URL are mutually exclusive"))
	}
	if c.QdrantURL != "" && c.QdrantCollection == "" {
		errs = append(errs, errors.New("QDRANT_COLLECTION is required when QDRANT_URL is set"))
	}

	// Claude model is required when the fallback is enabled
	if c.ClaudeAPIKey != "" && c.ClaudeModel == "" {
		errs = append(errs, errors.New("CLAUDE_MODEL is required when CLAUDE_API_KEY is set"))
	}

	if c.DefaultVertical == "" {
		errs = append(errs, errors.New("DEFAULT_VERTICAL is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
