package vertical

import (
	"regexp"
	"sort"
	"strings"
)

// KeywordMatch describes a single keyword hit against the detection index.
type KeywordMatch struct {
	Slug    string
	Keyword string
	Exact   bool
}

// MatchKeyword matches a free-text signal (industry string, job title)
// against an inverted keyword map. It is a pure function over a prebuilt
// index and returns at most one match.
//
// An exact hit is suppressed when the normalized value is itself an
// exclusion term of the matched vertical. Failing an exact hit, candidates
// are scanned by keyword length descending (ties lexicographic) so more
// specific keywords win; a partial hit requires the input to contain the
// keyword or vice versa, and is suppressed when any exclusion term of the
// candidate vertical is contained in the input.
func MatchKeyword(value string, keywords map[string]string, exclusions map[string]map[string]struct{}) (KeywordMatch, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return KeywordMatch{}, false
	}

	if slug, ok := keywords[v]; ok {
		if _, excluded := exclusions[slug][v]; !excluded {
			return KeywordMatch{Slug: slug, Keyword: v, Exact: true}, true
		}
		return KeywordMatch{}, false
	}

	for _, kw := range sortedKeys(keywords) {
		if !strings.Contains(v, kw) && !strings.Contains(kw, v) {
			continue
		}
		slug := keywords[kw]
		if containsAny(v, exclusions[slug]) {
			continue
		}
		return KeywordMatch{Slug: slug, Keyword: kw}, true
	}

	return KeywordMatch{}, false
}

// MatchCampaignPattern matches a campaign identifier against glob-style
// patterns (`*` any sequence, `?` any single character), case-insensitive
// and anchored. Patterns are tried by length descending (ties
// lexicographic); malformed patterns are skipped.
func MatchCampaignPattern(campaignID string, patterns map[string]string) (KeywordMatch, bool) {
	id := strings.ToLower(strings.TrimSpace(campaignID))
	if id == "" {
		return KeywordMatch{}, false
	}

	for _, p := range sortedKeys(patterns) {
		re, err := compileGlob(p)
		if err != nil {
			continue
		}
		if re.MatchString(id) {
			return KeywordMatch{Slug: patterns[p], Keyword: p}, true
		}
	}

	return KeywordMatch{}, false
}

// compileGlob translates a glob pattern into an anchored case-insensitive
// regular expression.
func compileGlob(pattern string) (*regexp.Regexp, error) {
	quoted := regexp.QuoteMeta(pattern)
	quoted = strings.ReplaceAll(quoted, `\*`, `.*`)
	quoted = strings.ReplaceAll(quoted, `\?`, `.`)
	return regexp.Compile(`(?i)^` + quoted + `$`)
}

// sortedKeys orders map keys by length descending, ties lexicographic, so
// scan precedence never depends on map iteration order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

func containsAny(s string, terms map[string]struct{}) bool {
	for term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
