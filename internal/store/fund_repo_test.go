package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertFund_CreatesThenUpdatesAuthoritativeFields(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)

	require.NoError(t, db.UpsertFund(Fund{
		SchemeCode: "100", SchemeName: "Old Name", AMC: "AMC A", Category: "Mid Cap Direct Growth",
	}))
	require.NoError(t, db.UpsertFund(Fund{
		SchemeCode: "100", SchemeName: "New Name", AMC: "AMC A", Category: "Small Cap Direct Growth",
	}))

	f, found, err := db.GetFund("100")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "New Name", f.SchemeName)
	assert.Equal(t, "Small Cap Direct Growth", f.Category)
}

func TestGetFund_NotFoundReturnsFalse(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)

	_, found, err := db.GetFund("does-not-exist")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestListFunds_CaseInsensitiveFilter(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)

	require.NoError(t, db.UpsertFund(Fund{SchemeCode: "1", SchemeName: "A", AMC: "HDFC", Category: "Mid Cap Direct Growth"}))
	require.NoError(t, db.UpsertFund(Fund{SchemeCode: "2", SchemeName: "B", AMC: "ICICI Prudential", Category: "Small Cap Direct Growth"}))

	funds, err := db.ListFunds(ListFundsFilter{AMC: "hdfc"})
	require.NoError(t, err)
	require.Len(t, funds, 1)
	assert.Equal(t, "1", funds[0].SchemeCode)
}

func TestAllSchemeCodes_ReturnsAscending(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)

	require.NoError(t, db.UpsertFund(Fund{SchemeCode: "200", SchemeName: "B", AMC: "X", Category: "Y"}))
	require.NoError(t, db.UpsertFund(Fund{SchemeCode: "100", SchemeName: "A", AMC: "X", Category: "Y"}))

	codes, err := db.AllSchemeCodes()
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "200"}, codes)
}
