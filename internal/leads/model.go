package leads

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Status tracks where a lead run is in its lifecycle.
type Status string

const (
	// StatusPending means created, not yet started
	StatusPending Status = "pending"

	// StatusInProgress means currently being processed
	StatusInProgress Status = "in_progress"

	// StatusComplete means finished successfully
	StatusComplete Status = "complete"

	// StatusFailed means finished with errors
	StatusFailed Status = "failed"
)

// Lead is an inbound webhook payload describing a prospect.
type Lead struct {
	Email         string `json:"email"`
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
	Company       string `json:"company"`
	CompanyDomain string `json:"company_domain,omitempty"`
	Industry      string `json:"industry,omitempty"`
	Title         string `json:"title,omitempty"`
	CampaignID    string `json:"campaign_id,omitempty"`
	Vertical      string `json:"vertical,omitempty"`
}

// Fingerprint identifies a lead for dedup. Two payloads for the same
// email in the same campaign are the same lead.
func (l *Lead) Fingerprint() string {
	key := strings.ToLower(strings.TrimSpace(l.Email)) + "|" + strings.TrimSpace(l.CampaignID)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Run is the outcome of processing one lead.
type Run struct {
	ID           string    `json:"id"`
	Fingerprint  string    `json:"fingerprint"`
	Status       Status    `json:"status"`
	Email        string    `json:"email"`
	Company      string    `json:"company"`
	CampaignID   string    `json:"campaign_id,omitempty"`
	CampaignName string    `json:"campaign_name,omitempty"`
	Vertical     string    `json:"vertical,omitempty"`
	Confidence   float64   `json:"confidence,omitempty"`
	Method       string    `json:"method,omitempty"`
	Reasoning    string    `json:"reasoning,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	CompletedAt  time.Time `json:"completed_at,omitempty"`
	Duration     float64   `json:"duration_seconds,omitempty"`
}
