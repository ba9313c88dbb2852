// Package discovery filters the full upstream scheme catalog down to the
// configured AMC × category subset by fuzzy, case-insensitive substring
// matching, mirroring marlonfan-go-stock-collector's stock_search.go symbol
// filters but against fund names instead of stock tickers.
package discovery

import "strings"

// Scheme is one catalog entry to be filtered.
type Scheme struct {
	SchemeCode string
	SchemeName string
}

// Descriptor is a discovered scheme, labeled with the AMC and category the
// rule set matched.
type Descriptor struct {
	SchemeCode string
	SchemeName string
	AMC        string
	Category   string
}

// Rules is the closed, config-seeded matching rule set: recognized AMC names,
// recognized category tokens, and tokens every match must contain.
type Rules struct {
	AMCs            []string
	CategoryTokens  []string
	MandatoryTokens []string
}

// SeedAMCs and SeedCategoryTokens are the compile-time-known AMC and category
// rule sets, per the design note "dynamic object shapes in configuration ...
// replaced by a closed enumeration of options" — these are not environment
// variables, since the set of AMCs and categories this deployment tracks is
// a build-time decision, not a runtime one.
var SeedAMCs = []string{
	"HDFC", "ICICI Prudential", "SBI", "Axis", "Kotak", "Nippon India",
	"Aditya Birla Sun Life", "UTI", "Mirae Asset", "Parag Parikh",
}

var SeedCategoryTokens = []string{
	"Mid Cap", "Small Cap", "Large Cap", "Flexi Cap",
}

// DefaultRules returns the mandatory-token set named in the design
// (Direct/Growth); AMCs and category tokens are left for the caller to
// configure since they are deployment-specific.
func DefaultRules(amcs, categoryTokens []string) Rules {
	return Rules{
		AMCs:            amcs,
		CategoryTokens:  categoryTokens,
		MandatoryTokens: []string{"Direct", "Growth"},
	}
}

// Filter returns the deduplicated, normalized descriptors for every scheme in
// catalog that matches: contains some configured AMC, AND some configured
// category token, AND every mandatory token.
func Filter(catalog []Scheme, rules Rules) []Descriptor {
	seen := make(map[string]bool, len(catalog))
	out := make([]Descriptor, 0)

	for _, s := range catalog {
		lowerName := strings.ToLower(s.SchemeName)

		amc, ok := firstMatch(lowerName, rules.AMCs)
		if !ok {
			continue
		}
		if _, ok := firstMatch(lowerName, rules.CategoryTokens); !ok {
			continue
		}
		if !containsAll(lowerName, rules.MandatoryTokens) {
			continue
		}
		if seen[s.SchemeCode] {
			continue
		}
		seen[s.SchemeCode] = true

		out = append(out, Descriptor{
			SchemeCode: s.SchemeCode,
			SchemeName: s.SchemeName,
			AMC:        amc,
			Category:   categorize(lowerName),
		})
	}
	return out
}

// firstMatch returns the first candidate (in its original casing) that
// appears as a case-insensitive substring of lowerName.
func firstMatch(lowerName string, candidates []string) (string, bool) {
	for _, c := range candidates {
		if strings.Contains(lowerName, strings.ToLower(c)) {
			return c, true
		}
	}
	return "", false
}

// containsAll reports whether lowerName contains every token, case-insensitive.
func containsAll(lowerName string, tokens []string) bool {
	for _, t := range tokens {
		if !strings.Contains(lowerName, strings.ToLower(t)) {
			return false
		}
	}
	return true
}

// categorize derives the display category label from token inspection: mid
// cap, small cap, large cap and flexi cap each map to their own label.
// Schemes matching none of these tokens can still pass the category-token
// filter via a caller-configured generic token (e.g. "Cap"), and fall back to
// a neutral "Direct Growth" label here.
func categorize(lowerName string) string {
	switch {
	case strings.Contains(lowerName, "mid cap"):
		return "Mid Cap Direct Growth"
	case strings.Contains(lowerName, "small cap"):
		return "Small Cap Direct Growth"
	case strings.Contains(lowerName, "large cap"):
		return "Large Cap Direct Growth"
	case strings.Contains(lowerName, "flexi cap"):
		return "Flexi Cap Direct Growth"
	default:
		return "Direct Growth"
	}
}
