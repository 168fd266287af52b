package vertical

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/linnemanlabs/go-core/log"
)

const (
	// DefaultTTL is how long a cache entry is served without any I/O.
	DefaultTTL = 60 * time.Second

	// DefaultStaleWindow is how long past the TTL a stale entry is still
	// served while a background refresh runs.
	DefaultStaleWindow = 5 * time.Minute

	// maxHierarchyDepth bounds the ancestor walk during cycle validation.
	maxHierarchyDepth = 100
)

// Cache keys for the single-entry caches.
const (
	listKey  = "active"
	indexKey = "index"
)

// Options configures a Registry.
type Options struct {
	// TTL and StaleWindow tune the stale-while-revalidate caches. Zero
	// values fall back to the package defaults.
	TTL         time.Duration
	StaleWindow time.Duration

	// Metrics is optional; nil disables instrumentation.
	Metrics *Metrics
}

// Registry is the classification registry: a caching layer over a vertical
// Store plus derived detection indices. One instance is authoritative per
// process; construct it once and inject it, there is no package singleton.
type Registry struct {
	store   Store
	logger  log.Logger
	metrics *Metrics

	list   *swrCache[[]*Vertical]
	bySlug *swrCache[*Vertical]
	index  *swrCache[*DetectionIndex]
}

// New creates a Registry backed by the given store.
func New(store Store, logger log.Logger, opts Options) *Registry {
	if logger == nil {
		logger = log.Nop()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	stale := opts.StaleWindow
	if stale <= 0 {
		stale = DefaultStaleWindow
	}

	r := &Registry{
		store:   store,
		logger:  logger,
		metrics: opts.Metrics,
		list:    newSWRCache[[]*Vertical](ttl, stale),
		bySlug:  newSWRCache[*Vertical](ttl, stale),
		index:   newSWRCache[*DetectionIndex](ttl, stale),
	}

	r.list.onOutcome = r.outcomeHook("list")
	r.list.onRefreshErr = r.refreshErrHook("list")
	r.bySlug.onOutcome = r.outcomeHook("slug")
	r.bySlug.onRefreshErr = r.refreshErrHook("slug")
	r.index.onOutcome = r.outcomeHook("index")
	r.index.onRefreshErr = r.refreshErrHook("index")

	return r
}

func (r *Registry) outcomeHook(cache string) func(string) {
	return func(outcome string) {
		if r.metrics != nil {
			r.metrics.CacheReads.WithLabelValues(cache, outcome).Inc()
		}
	}
}

func (r *Registry) refreshErrHook(cache string) func(string, error) {
	return func(key string, err error) {
		r.logger.Warn(context.Background(), "cache refresh failed, keeping stale value",
			"cache", cache, "key", key, "error", err)
	}
}

// List returns the active verticals through the cache. With
// includeInactive set it bypasses the cache and scans the store directly.
func (r *Registry) List(ctx context.Context, includeInactive bool) ([]*Vertical, error) {
	if includeInactive {
		return r.store.List(ctx, true)
	}

	vs, err := r.list.get(ctx, listKey, func(ctx context.Context) ([]*Vertical, error) {
		return r.fetchActive(ctx)
	})
	if err != nil {
		return nil, err
	}

	out := make([]*Vertical, len(vs))
	for i, v := range vs {
		out[i] = v.Clone()
	}
	return out, nil
}

// Get returns a single vertical by slug, case-insensitive. Inactive
// records are only returned when includeInactive is set.
func (r *Registry) Get(ctx context.Context, slug string, includeInactive bool) (*Vertical, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, ErrNotFound
	}

	v, err := r.bySlug.get(ctx, slug, func(ctx context.Context) (*Vertical, error) {
		return r.fetchSlug(ctx, slug)
	})
	if err != nil {
		return nil, err
	}
	if v == nil || (!v.IsActive && !includeInactive) {
		return nil, ErrNotFound
	}
	return v.Clone(), nil
}

// DetectionIndex returns the detection index, rebuilding it wholesale from
// the cached active list on miss or refresh.
func (r *Registry) DetectionIndex(ctx context.Context) (*DetectionIndex, error) {
	return r.index.get(ctx, indexKey, func(ctx context.Context) (*DetectionIndex, error) {
		return r.rebuildIndex(ctx)
	})
}

// Children returns verticals whose parent is parentID, active or not.
// Derived by a full scan; the catalog is small enough that a dedicated
// index is not worth maintaining.
func (r *Registry) Children(ctx context.Context, parentID string) ([]*Vertical, error) {
	parentID = strings.ToLower(strings.TrimSpace(parentID))
	all, err := r.store.List(ctx, true)
	if err != nil {
		return nil, err
	}
	var out []*Vertical
	for _, v := range all {
		if v.ParentID == parentID {
			out = append(out, v.Clone())
		}
	}
	return out, nil
}

// Create validates the input, fills defaults, and persists a new vertical.
// When no embedding vector is supplied a zero placeholder of the expected
// dimensionality is stored and the record is marked unembedded.
func (r *Registry) Create(ctx context.Context, in CreateInput, vector []float32) (*Vertical, error) {
	if err := in.Validate(); err != nil {
		r.countWrite("create", "invalid")
		return nil, err
	}

	if _, ok, err := r.store.GetBySlug(ctx, in.Slug); err != nil {
		r.countWrite("create", "error")
		return nil, err
	} else if ok {
		r.countWrite("create", "conflict")
		return nil, fmt.Errorf("%w: %s", ErrSlugExists, in.Slug)
	}

	parentID := ""
	level := 0
	if in.ParentSlug != "" {
		parent, ok, err := r.store.GetBySlug(ctx, strings.ToLower(in.ParentSlug))
		if err != nil {
			r.countWrite("create", "error")
			return nil, err
		}
		if !ok {
			r.countWrite("create", "invalid")
			return nil, fmt.Errorf("%w: %s", ErrParentNotFound, in.ParentSlug)
		}
		parentID = parent.Slug
		level = parent.Level + 1
	}

	now := time.Now().UTC()
	v := &Vertical{
		ID:                   uuid.NewString(),
		Slug:                 in.Slug,
		Name:                 in.Name,
		Description:          in.Description,
		ParentID:             parentID,
		Level:                level,
		IndustryKeywords:     emptyIfNil(in.IndustryKeywords),
		TitleKeywords:        emptyIfNil(in.TitleKeywords),
		CampaignPatterns:     emptyIfNil(in.CampaignPatterns),
		Aliases:              emptyIfNil(in.Aliases),
		ExclusionKeywords:    emptyIfNil(in.ExclusionKeywords),
		DetectionWeights:     DefaultWeights(),
		AIFallbackThreshold:  0.5,
		ExampleCompanies:     emptyIfNil(in.ExampleCompanies),
		ClassificationPrompt: in.ClassificationPrompt,
		IsActive:             true,
		CreatedAt:            now,
		UpdatedAt:            now,
		Version:              1,
	}
	if in.DetectionWeights != nil {
		v.DetectionWeights = *in.DetectionWeights
	}
	if in.AIFallbackThreshold != nil {
		v.AIFallbackThreshold = *in.AIFallbackThreshold
	}
	if in.IsActive != nil {
		v.IsActive = *in.IsActive
	}

	if len(vector) == 0 {
		vector = make([]float32, VectorDim)
	} else if len(vector) != VectorDim {
		r.countWrite("create", "invalid")
		return nil, fmt.Errorf("%w: embedding dimension %d, want %d", ErrInvalidInput, len(vector), VectorDim)
	} else {
		v.HasEmbedding = true
	}

	if err := r.store.Create(ctx, v, vector); err != nil {
		r.countWrite("create", "error")
		return nil, err
	}

	r.invalidate()
	r.countWrite("create", "ok")
	r.logger.Info(ctx, "vertical created", "slug", v.Slug, "parent", v.ParentID, "level", v.Level)
	return v.Clone(), nil
}

// Update merges the explicitly provided fields into an existing vertical,
// bumps its version, and persists it. Omitted fields are never touched.
func (r *Registry) Update(ctx context.Context, slug string, in UpdateInput) (*Vertical, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if err := in.Validate(); err != nil {
		r.countWrite("update", "invalid")
		return nil, err
	}

	existing, ok, err := r.store.GetBySlug(ctx, slug)
	if err != nil {
		r.countWrite("update", "error")
		return nil, err
	}
	if !ok {
		r.countWrite("update", "not_found")
		return nil, fmt.Errorf("%w: %s", ErrNotFound, slug)
	}

	v := existing.Clone()
	if in.Name != nil {
		v.Name = *in.Name
	}
	if in.Description != nil {
		v.Description = *in.Description
	}
	if in.ParentSlug != nil {
		if err := r.reparent(ctx, v, *in.ParentSlug); err != nil {
			r.countWrite("update", "invalid")
			return nil, err
		}
	}
	if in.IndustryKeywords != nil {
		v.IndustryKeywords = *in.IndustryKeywords
	}
	if in.TitleKeywords != nil {
		v.TitleKeywords = *in.TitleKeywords
	}
	if in.CampaignPatterns != nil {
		v.CampaignPatterns = *in.CampaignPatterns
	}
	if in.Aliases != nil {
		v.Aliases = *in.Aliases
	}
	if in.ExclusionKeywords != nil {
		v.ExclusionKeywords = *in.ExclusionKeywords
	}
	if in.DetectionWeights != nil {
		v.DetectionWeights = *in.DetectionWeights
	}
	if in.AIFallbackThreshold != nil {
		v.AIFallbackThreshold = *in.AIFallbackThreshold
	}
	if in.ExampleCompanies != nil {
		v.ExampleCompanies = *in.ExampleCompanies
	}
	if in.ClassificationPrompt != nil {
		v.ClassificationPrompt = *in.ClassificationPrompt
	}
	if in.DefaultBrainID != nil {
		v.DefaultBrainID = *in.DefaultBrainID
	}
	if in.IsActive != nil {
		v.IsActive = *in.IsActive
	}

	v.Version++
	v.UpdatedAt = time.Now().UTC()

	if err := r.store.Update(ctx, v); err != nil {
		r.countWrite("update", "error")
		return nil, err
	}

	r.invalidate()
	r.bySlug.purge(slug)
	r.countWrite("update", "ok")
	r.logger.Info(ctx, "vertical updated", "slug", v.Slug, "version", v.Version)
	return v.Clone(), nil
}

// Delete removes a vertical. Soft delete (the default) flips is_active so
// the record drops out of the active listing and the detection index but
// stays retrievable; hard delete physically removes the point. Either way
// the delete is refused while a brain is still linked.
func (r *Registry) Delete(ctx context.Context, slug string, hard bool) error {
	slug = strings.ToLower(strings.TrimSpace(slug))

	existing, ok, err := r.store.GetBySlug(ctx, slug)
	if err != nil {
		r.countWrite("delete", "error")
		return err
	}
	if !ok {
		r.countWrite("delete", "not_found")
		return fmt.Errorf("%w: %s", ErrNotFound, slug)
	}
	if existing.DefaultBrainID != "" {
		r.countWrite("delete", "brain_linked")
		return fmt.Errorf("%w: %s is linked to brain %s, unlink first", ErrBrainLinked, slug, existing.DefaultBrainID)
	}

	if hard {
		if err := r.store.Delete(ctx, existing.ID); err != nil {
			r.countWrite("delete", "error")
			return err
		}
	} else {
		v := existing.Clone()
		v.IsActive = false
		v.UpdatedAt = time.Now().UTC()
		if err := r.store.Update(ctx, v); err != nil {
			r.countWrite("delete", "error")
			return err
		}
	}

	r.invalidate()
	r.countWrite("delete", "ok")
	r.logger.Info(ctx, "vertical deleted", "slug", slug, "hard", hard)
	return nil
}

// LinkBrain points a vertical at a downstream brain profile. It is a
// convenience wrapper around Update.
func (r *Registry) LinkBrain(ctx context.Context, slug, brainID string) (*Vertical, error) {
	return r.Update(ctx, slug, UpdateInput{DefaultBrainID: &brainID})
}

// reparent applies a parent change, recomputing level and rejecting
// hierarchy cycles via an ancestor walk.
func (r *Registry) reparent(ctx context.Context, v *Vertical, parentSlug string) error {
	parentSlug = strings.ToLower(strings.TrimSpace(parentSlug))
	if parentSlug == "" {
		v.ParentID = ""
		v.Level = 0
		return nil
	}
	if parentSlug == v.Slug {
		return fmt.Errorf("%w: %s cannot be its own parent", ErrHierarchyCycle, v.Slug)
	}

	parent, ok, err := r.store.GetBySlug(ctx, parentSlug)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrParentNotFound, parentSlug)
	}

	// Walk the ancestor chain of the proposed parent; finding ourselves
	// there means the change would introduce a cycle.
	cur := parent
	for depth := 0; cur.ParentID != "" && depth < maxHierarchyDepth; depth++ {
		if cur.ParentID == v.Slug {
			return fmt.Errorf("%w: %s is a descendant of %s", ErrHierarchyCycle, parentSlug, v.Slug)
		}
		next, ok, err := r.store.GetBySlug(ctx, cur.ParentID)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		cur = next
	}

	v.ParentID = parent.Slug
	v.Level = parent.Level + 1
	return nil
}

// invalidate eagerly purges all three caches. The detection index is a
// function of the entire active set, so partial invalidation could leave
// keyword maps stale while appearing fresh.
func (r *Registry) invalidate() {
	r.list.purgeAll()
	r.bySlug.purgeAll()
	r.index.purgeAll()
}

func (r *Registry) fetchActive(ctx context.Context) ([]*Vertical, error) {
	start := time.Now()
	vs, err := r.store.List(ctx, false)
	r.observeFetch("list", start, err)
	return vs, err
}

func (r *Registry) fetchSlug(ctx context.Context, slug string) (*Vertical, error) {
	start := time.Now()
	v, ok, err := r.store.GetBySlug(ctx, slug)
	r.observeFetch("get_slug", start, err)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil // negative entry: absence is cached too
	}
	return v, nil
}

func (r *Registry) rebuildIndex(ctx context.Context) (*DetectionIndex, error) {
	start := time.Now()
	active, err := r.List(ctx, false)
	if err != nil {
		r.observeFetch("index_rebuild", start, err)
		return nil, err
	}

	idx, collisions := BuildIndex(active)
	r.observeFetch("index_rebuild", start, nil)

	for _, c := range collisions {
		r.logger.Warn(ctx, "detection index key collision",
			"kind", c.Kind, "key", c.Key, "kept", c.Kept, "lost", c.Lost)
	}
	if r.metrics != nil {
		r.metrics.IndexCollisions.Add(float64(len(collisions)))
		r.metrics.IndexSize.WithLabelValues("industry").Set(float64(len(idx.Industry)))
		r.metrics.IndexSize.WithLabelValues("title").Set(float64(len(idx.Title)))
		r.metrics.IndexSize.WithLabelValues("campaign").Set(float64(len(idx.Campaign)))
		r.metrics.IndexSize.WithLabelValues("alias").Set(float64(len(idx.Alias)))
	}
	return idx, nil
}

func (r *Registry) observeFetch(op string, start time.Time, err error) {
	if r.metrics == nil {
		return
	}
	r.metrics.StoreFetchTime.WithLabelValues(op).Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.metrics.RefreshesTotal.WithLabelValues(op, result).Inc()
}

func (r *Registry) countWrite(op, result string) {
	if r.metrics != nil {
		r.metrics.WritesTotal.WithLabelValues(op, result).Inc()
	}
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
