package vertical

import (
	"sort"
	"strings"
)

// DetectionIndex is a purely derived, stateless view over the active
// vertical set: inverted maps from lowercased signals to vertical slugs,
// plus per-vertical exclusion sets. A vertical with no exclusion keywords
// has no entry in Exclusions.
type DetectionIndex struct {
	Industry  map[string]string
	Title     map[string]string
	Campaign  map[string]string
	Alias     map[string]string
	Exclusions map[string]map[string]struct{}
}

// Collision records two active verticals claiming the same index key. The
// earlier slug in slug-sorted order wins; collisions are surfaced so the
// registry can log them instead of silently overwriting.
type Collision struct {
	Kind string // "industry", "title", "campaign", "alias"
	Key  string
	Kept string
	Lost string
}

// BuildIndex constructs a detection index from the given verticals in a
// single pass. Inactive records are skipped. Iteration is slug-sorted so
// collision precedence is deterministic.
func BuildIndex(verticals []*Vertical) (*DetectionIndex, []Collision) {
	idx := &DetectionIndex{
		Industry:   make(map[string]string),
		Title:      make(map[string]string),
		Campaign:   make(map[string]string),
		Alias:      make(map[string]string),
		Exclusions: make(map[string]map[string]struct{}),
	}

	sorted := make([]*Vertical, 0, len(verticals))
	for _, v := range verticals {
		if v != nil && v.IsActive {
			sorted = append(sorted, v)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Slug < sorted[j].Slug })

	var collisions []Collision
	insert := func(kind string, m map[string]string, key, slug string) {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return
		}
		if kept, exists := m[key]; exists {
			if kept != slug {
				collisions = append(collisions, Collision{Kind: kind, Key: key, Kept: kept, Lost: slug})
			}
			return
		}
		m[key] = slug
	}

	for _, v := range sorted {
		for _, kw := range v.IndustryKeywords {
			insert("industry", idx.Industry, kw, v.Slug)
		}
		for _, kw := range v.TitleKeywords {
			insert("title", idx.Title, kw, v.Slug)
		}
		for _, p := range v.CampaignPatterns {
			insert("campaign", idx.Campaign, p, v.Slug)
		}
		for _, a := range v.Aliases {
			insert("alias", idx.Alias, a, v.Slug)
		}

		if len(v.ExclusionKeywords) > 0 {
			set := make(map[string]struct{}, len(v.ExclusionKeywords))
			for _, kw := range v.ExclusionKeywords {
				kw = strings.ToLower(strings.TrimSpace(kw))
				if kw != "" {
					set[kw] = struct{}{}
				}
			}
			if len(set) > 0 {
				idx.Exclusions[v.Slug] = set
			}
		}
	}

	return idx, collisions
}
