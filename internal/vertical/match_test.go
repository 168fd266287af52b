package vertical

import "testing"

func exclSet(terms ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		s[t] = struct{}{}
	}
	return s
}

func TestMatchKeyword(t *testing.T) {
	t.Parallel()

	keywords := map[string]string{
		"fintech":            "fintech",
		"financial services": "fintech",
		"aerospace":          "defense",
		"saas":               "saas",
	}
	exclusions := map[string]map[string]struct{}{
		"fintech": exclSet("non-profit"),
	}

	tests := []struct {
		name     string
		value    string
		wantSlug string
		wantKW   string
		wantHit  bool
		exact    bool
	}{
		{name: "exact", value: "fintech", wantSlug: "fintech", wantKW: "fintech", wantHit: true, exact: true},
		{name: "exact case insensitive", value: "  FinTech ", wantSlug: "fintech", wantKW: "fintech", wantHit: true, exact: true},
		{name: "partial input contains keyword", value: "fintech startup", wantSlug: "fintech", wantKW: "fintech", wantHit: true},
		{name: "partial keyword contains input", value: "financial service", wantSlug: "fintech", wantKW: "financial services", wantHit: true},
		{name: "exclusion suppresses partial", value: "non-profit fintech", wantHit: false},
		{name: "longer keyword wins", value: "financial services and fintech", wantSlug: "fintech", wantKW: "financial services", wantHit: true},
		{name: "no match", value: "agriculture", wantHit: false},
		{name: "empty value", value: "  ", wantHit: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m, ok := MatchKeyword(tc.value, keywords, exclusions)
			if ok != tc.wantHit {
				t.Fatalf("hit = %v, want %v (match %+v)", ok, tc.wantHit, m)
			}
			if !ok {
				return
			}
			if m.Slug != tc.wantSlug || m.Keyword != tc.wantKW || m.Exact != tc.exact {
				t.Errorf("match = %+v, want slug=%s keyword=%s exact=%v", m, tc.wantSlug, tc.wantKW, tc.exact)
			}
		})
	}
}

func TestMatchKeyword_ExactHitCanBeExcluded(t *testing.T) {
	t.Parallel()

	keywords := map[string]string{"non-profit": "fintech"}
	exclusions := map[string]map[string]struct{}{"fintech": exclSet("non-profit")}

	if _, ok := MatchKeyword("non-profit", keywords, exclusions); ok {
		t.Error("exact hit on an excluded term must not match")
	}
}

func TestMatchCampaignPattern(t *testing.T) {
	t.Parallel()

	patterns := map[string]string{
		"defense_campaign_*": "defense",
		"fin_q?_2026":        "fintech",
		"saas":               "saas",
	}

	tests := []struct {
		name     string
		id       string
		wantSlug string
		wantKW   string
		wantHit  bool
	}{
		{name: "star glob", id: "defense_campaign_007", wantSlug: "defense", wantKW: "defense_campaign_*", wantHit: true},
		{name: "case insensitive", id: "DEFENSE_CAMPAIGN_007", wantSlug: "defense", wantKW: "defense_campaign_*", wantHit: true},
		{name: "question mark single char", id: "fin_q3_2026", wantSlug: "fintech", wantKW: "fin_q?_2026", wantHit: true},
		{name: "question mark needs a char", id: "fin_q_2026", wantHit: false},
		{name: "anchored", id: "my_saas_thing", wantHit: false},
		{name: "literal", id: "saas", wantSlug: "saas", wantKW: "saas", wantHit: true},
		{name: "empty", id: "", wantHit: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m, ok := MatchCampaignPattern(tc.id, patterns)
			if ok != tc.wantHit {
				t.Fatalf("hit = %v, want %v (match %+v)", ok, tc.wantHit, m)
			}
			if ok && (m.Slug != tc.wantSlug || m.Keyword != tc.wantKW) {
				t.Errorf("match = %+v, want slug=%s keyword=%s", m, tc.wantSlug, tc.wantKW)
			}
		})
	}
}

func TestMatchCampaignPattern_LongestPatternWins(t *testing.T) {
	t.Parallel()

	patterns := map[string]string{
		"fin_*":    "fintech",
		"fin_q3_*": "fintech-q3",
	}
	m, ok := MatchCampaignPattern("fin_q3_outbound", patterns)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Slug != "fintech-q3" {
		t.Errorf("slug = %q, want fintech-q3 (more specific pattern first)", m.Slug)
	}
}

func TestSortedKeys(t *testing.T) {
	t.Parallel()

	got := sortedKeys(map[string]string{"bb": "", "aa": "", "ccc": "", "a": ""})
	want := []string{"ccc", "aa", "bb", "a"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sortedKeys[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
