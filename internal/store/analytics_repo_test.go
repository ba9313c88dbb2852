package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestReplaceAnalyticsRow_FullyOverwritesOnRecompute(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)

	require.NoError(t, db.ReplaceAnalyticsRow(AnalyticsRow{
		SchemeCode: "1", WindowType: Window1Y, RollingReturnMedian: f(0.10), MaxDrawdown: f(-0.05),
	}))
	require.NoError(t, db.ReplaceAnalyticsRow(AnalyticsRow{
		SchemeCode: "1", WindowType: Window1Y, RollingReturnMedian: f(0.20), MaxDrawdown: nil,
	}))

	rows, err := db.AnalyticsForScheme("1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 0.20, *rows[0].RollingReturnMedian)
	assert.Nil(t, rows[0].MaxDrawdown)
}

func TestAnalyticsForScheme_OrdersByFixedWindowSequence(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)

	require.NoError(t, db.ReplaceAnalyticsRow(AnalyticsRow{SchemeCode: "1", WindowType: Window10Y}))
	require.NoError(t, db.ReplaceAnalyticsRow(AnalyticsRow{SchemeCode: "1", WindowType: Window1Y}))
	require.NoError(t, db.ReplaceAnalyticsRow(AnalyticsRow{SchemeCode: "1", WindowType: Window5Y}))
	require.NoError(t, db.ReplaceAnalyticsRow(AnalyticsRow{SchemeCode: "1", WindowType: Window3Y}))

	rows, err := db.AnalyticsForScheme("1")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []Window{Window1Y, Window3Y, Window5Y, Window10Y},
		[]Window{rows[0].WindowType, rows[1].WindowType, rows[2].WindowType, rows[3].WindowType})
}

func TestRankByWindow_MedianReturnDescendingWithNullsLast(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)

	require.NoError(t, db.UpsertFund(Fund{SchemeCode: "1", SchemeName: "A", AMC: "X", Category: "Mid Cap Direct Growth"}))
	require.NoError(t, db.UpsertFund(Fund{SchemeCode: "2", SchemeName: "B", AMC: "X", Category: "Mid Cap Direct Growth"}))
	require.NoError(t, db.UpsertFund(Fund{SchemeCode: "3", SchemeName: "C", AMC: "X", Category: "Mid Cap Direct Growth"}))

	require.NoError(t, db.ReplaceAnalyticsRow(AnalyticsRow{SchemeCode: "1", WindowType: Window1Y, RollingReturnMedian: f(0.05)}))
	require.NoError(t, db.ReplaceAnalyticsRow(AnalyticsRow{SchemeCode: "2", WindowType: Window1Y, RollingReturnMedian: f(0.15)}))
	require.NoError(t, db.ReplaceAnalyticsRow(AnalyticsRow{SchemeCode: "3", WindowType: Window1Y, RollingReturnMedian: nil}))

	rows, err := db.RankByWindow(Window1Y, "", SortByMedianReturn, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2", rows[0].SchemeCode)
	assert.Equal(t, "1", rows[1].SchemeCode)
	assert.Equal(t, "3", rows[2].SchemeCode)
}

func TestRankByWindow_MaxDrawdownAscendingAndLimited(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)

	require.NoError(t, db.UpsertFund(Fund{SchemeCode: "1", SchemeName: "A", AMC: "X", Category: "Y"}))
	require.NoError(t, db.UpsertFund(Fund{SchemeCode: "2", SchemeName: "B", AMC: "X", Category: "Y"}))

	require.NoError(t, db.ReplaceAnalyticsRow(AnalyticsRow{SchemeCode: "1", WindowType: Window1Y, MaxDrawdown: f(-0.30)}))
	require.NoError(t, db.ReplaceAnalyticsRow(AnalyticsRow{SchemeCode: "2", WindowType: Window1Y, MaxDrawdown: f(-0.05)}))

	rows, err := db.RankByWindow(Window1Y, "", SortByMaxDrawdown, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0].SchemeCode)
}

func TestRankByWindow_FiltersByCategory(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)

	require.NoError(t, db.UpsertFund(Fund{SchemeCode: "1", SchemeName: "A", AMC: "X", Category: "Mid Cap Direct Growth"}))
	require.NoError(t, db.UpsertFund(Fund{SchemeCode: "2", SchemeName: "B", AMC: "X", Category: "Small Cap Direct Growth"}))
	require.NoError(t, db.ReplaceAnalyticsRow(AnalyticsRow{SchemeCode: "1", WindowType: Window1Y, RollingReturnMedian: f(0.1)}))
	require.NoError(t, db.ReplaceAnalyticsRow(AnalyticsRow{SchemeCode: "2", WindowType: Window1Y, RollingReturnMedian: f(0.2)}))

	rows, err := db.RankByWindow(Window1Y, "Mid Cap Direct Growth", SortByMedianReturn, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0].SchemeCode)
}
