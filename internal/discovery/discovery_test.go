package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_MatchesAMCCategoryAndMandatoryTokens(t *testing.T) {
	catalog := []Scheme{
		{SchemeCode: "1", SchemeName: "Example Mutual Fund Mid Cap Direct Growth"},
		{SchemeCode: "2", SchemeName: "Example Mutual Fund Mid Cap Regular Growth"}, // missing "Direct"
		{SchemeCode: "3", SchemeName: "Other Fund House Small Cap Direct Growth"},  // AMC not recognized
		{SchemeCode: "4", SchemeName: "Example Mutual Fund Large Cap Direct Growth"},
	}
	rules := DefaultRules([]string{"Example Mutual Fund"}, []string{"Cap"})

	out := Filter(catalog, rules)

	assert.Len(t, out, 2)
	assert.Equal(t, "1", out[0].SchemeCode)
	assert.Equal(t, "Mid Cap Direct Growth", out[0].Category)
	assert.Equal(t, "Example Mutual Fund", out[0].AMC)
	assert.Equal(t, "4", out[1].SchemeCode)
	assert.Equal(t, "Large Cap Direct Growth", out[1].Category)
}

func TestFilter_Deduplicates(t *testing.T) {
	catalog := []Scheme{
		{SchemeCode: "1", SchemeName: "Example Mutual Fund Mid Cap Direct Growth"},
		{SchemeCode: "1", SchemeName: "Example Mutual Fund Mid Cap Direct Growth"},
	}
	rules := DefaultRules([]string{"Example Mutual Fund"}, []string{"Cap"})

	out := Filter(catalog, rules)
	assert.Len(t, out, 1)
}

func TestFilter_NoMatches(t *testing.T) {
	catalog := []Scheme{
		{SchemeCode: "1", SchemeName: "Unrelated Fund Liquid Direct Growth"},
	}
	rules := DefaultRules([]string{"Example Mutual Fund"}, []string{"Cap"})

	out := Filter(catalog, rules)
	assert.Empty(t, out)
}
