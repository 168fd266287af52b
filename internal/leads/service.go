// Package leads runs the inbound lead pipeline: dedup, vertical
// classification, campaign enrichment, CRM writeback, notification.
// Classification failure fails the run; the enrichment and writeback
// steps are side effects whose failures are counted and logged but do
// not change the outcome.
package leads

import (
	"context"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/atlasgtm/atlas/internal/classify"
	"github.com/atlasgtm/atlas/internal/heyreach"
)

// Classifier assigns a vertical to lead signals.
type Classifier interface {
	Classify(ctx context.Context, in classify.Input) (*classify.Result, error)
}

// CampaignResolver looks up campaign metadata for enrichment.
type CampaignResolver interface {
	GetCampaign(ctx context.Context, id string) (*heyreach.Campaign, error)
}

// CRMWriter records the detected vertical on the company record.
type CRMWriter interface {
	AssertCompanyVertical(ctx context.Context, domain, verticalSlug string) error
}

// Notifier announces a finished run.
type Notifier interface {
	Send(ctx context.Context, run *Run) error
}

// SubmitResult is the outcome of submitting a lead.
type SubmitResult struct {
	ID      string
	Skipped bool
	Reason  string
}

// Service is the business boundary for lead operations.
type Service struct {
	store      Store
	classifier Classifier
	campaigns  CampaignResolver
	crm        CRMWriter
	notifier   Notifier
	logger     log.Logger
	metrics    *Metrics
}

// NewService creates a new lead service. campaigns, crm, notifier and
// metrics may be nil, which disables the corresponding step.
func NewService(store Store, classifier Classifier, campaigns CampaignResolver, crm CRMWriter, notifier Notifier, logger log.Logger, metrics *Metrics) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:      store,
		classifier: classifier,
		campaigns:  campaigns,
		crm:        crm,
		notifier:   notifier,
		logger:     logger,
		metrics:    metrics,
	}
}

// Submit accepts a lead for processing, handling dedup and lifecycle.
func (s *Service) Submit(ctx context.Context, lead *Lead) (*SubmitResult, error) {
	if lead.Email == "" && lead.Company == "" {
		s.countSubmit("invalid")
		return nil, fmt.Errorf("lead needs an email or a company")
	}

	fp := lead.Fingerprint()

	// dedup: skip if already pending or in progress
	if existing, ok, err := s.store.GetByFingerprint(ctx, fp); err != nil {
		return nil, err
	} else if ok && (existing.Status == StatusPending || existing.Status == StatusInProgress) {
		s.countSubmit("duplicate")
		return &SubmitResult{ID: existing.ID, Skipped: true, Reason: "duplicate"}, nil
	}

	id := ulid.Make().String()
	run := &Run{
		ID:          id,
		Fingerprint: fp,
		Status:      StatusPending,
		Email:       lead.Email,
		Company:     lead.Company,
		CampaignID:  lead.CampaignID,
		CreatedAt:   time.Now(),
	}

	if err := s.store.Put(ctx, run); err != nil {
		return nil, err
	}
	s.countSubmit("accepted")

	// kick off async processing - pass only the ID to avoid sharing the Run pointer.
	go s.runLead(context.WithoutCancel(ctx), id, lead)

	return &SubmitResult{ID: id}, nil
}

// Get retrieves a run by ID.
func (s *Service) Get(ctx context.Context, id string) (*Run, bool, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) runLead(ctx context.Context, id string, lead *Lead) {
	L := s.logger.With("lead_run_id", id, "company", lead.Company)
	start := time.Now()

	run, ok, err := s.store.Get(ctx, id)
	if err != nil || !ok {
		L.Error(ctx, err, "failed to fetch run for processing")
		return
	}

	run.Status = StatusInProgress
	if err := s.store.Put(ctx, run); err != nil {
		L.Error(ctx, err, "failed to update status to in_progress")
		return
	}

	if lead.CampaignID != "" && s.campaigns != nil {
		if cmp, err := s.campaigns.GetCampaign(ctx, lead.CampaignID); err != nil {
			s.countSideEffect("heyreach")
			L.Warn(ctx, "campaign enrichment failed", "campaign_id", lead.CampaignID, "error", err)
		} else {
			run.CampaignName = cmp.Name
		}
	}

	res, err := s.classifier.Classify(ctx, classify.Input{
		Vertical:      lead.Vertical,
		Industry:      lead.Industry,
		Title:         lead.Title,
		CampaignID:    lead.CampaignID,
		CompanyName:   lead.Company,
		UseAIFallback: true,
	})
	if err != nil {
		run.Status = StatusFailed
		run.Error = err.Error()
		s.finish(ctx, L, run, start)
		return
	}

	run.Vertical = res.Vertical
	run.Confidence = res.Confidence
	run.Method = string(res.Method)
	run.Reasoning = res.Reasoning
	if s.metrics != nil {
		s.metrics.ClassifyMethod.WithLabelValues(string(res.Method)).Inc()
	}

	if lead.CompanyDomain != "" && s.crm != nil {
		if err := s.crm.AssertCompanyVertical(ctx, lead.CompanyDomain, res.Vertical); err != nil {
			s.countSideEffect("attio")
			L.Warn(ctx, "crm writeback failed", "domain", lead.CompanyDomain, "error", err)
		}
	}

	run.Status = StatusComplete
	s.finish(ctx, L, run, start)
}

// finish persists the terminal state, emits metrics and notifies.
func (s *Service) finish(ctx context.Context, L log.Logger, run *Run, start time.Time) {
	run.CompletedAt = time.Now()
	run.Duration = time.Since(start).Seconds()

	if err := s.store.Put(ctx, run); err != nil {
		L.Error(ctx, err, "failed to persist run")
	}

	if s.metrics != nil {
		s.metrics.RunsTotal.WithLabelValues(string(run.Status)).Inc()
		s.metrics.RunDuration.WithLabelValues(string(run.Status)).Observe(run.Duration)
	}

	if s.notifier != nil {
		if err := s.notifier.Send(ctx, run); err != nil {
			s.countSideEffect("slack")
			L.Warn(ctx, "notification failed", "error", err)
		}
	}

	L.Info(ctx, "lead run finished",
		"status", run.Status,
		"vertical", run.Vertical,
		"method", run.Method,
		"duration", run.Duration,
	)
}

func (s *Service) countSubmit(result string) {
	if s.metrics != nil {
		s.metrics.SubmitsTotal.WithLabelValues(result).Inc()
	}
}

func (s *Service) countSideEffect(sink string) {
	if s.metrics != nil {
		s.metrics.SideEffectErrs.WithLabelValues(sink).Inc()
	}
}
