package store

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsertNAV_DuplicateDateOverwritesValue(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)

	require.NoError(t, db.BulkUpsertNAV([]NAVPoint{
		{SchemeCode: "1", NAVDate: "2024-01-01", NAV: decimal.NewFromFloat(10.0)},
	}))
	require.NoError(t, db.BulkUpsertNAV([]NAVPoint{
		{SchemeCode: "1", NAVDate: "2024-01-01", NAV: decimal.NewFromFloat(12.5)},
	}))

	series, err := db.NAVSeries("1")
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.True(t, decimal.NewFromFloat(12.5).Equal(series[0].NAV))
}

func TestBulkUpsertNAV_EmptySliceIsNoop(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)
	assert.NoError(t, db.BulkUpsertNAV(nil))
}

func TestNAVSeries_OrdersAscending(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)

	require.NoError(t, db.BulkUpsertNAV([]NAVPoint{
		{SchemeCode: "1", NAVDate: "2024-02-01", NAV: decimal.NewFromFloat(11)},
		{SchemeCode: "1", NAVDate: "2024-01-01", NAV: decimal.NewFromFloat(10)},
	}))

	series, err := db.NAVSeries("1")
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "2024-01-01", series[0].NAVDate)
	assert.Equal(t, "2024-02-01", series[1].NAVDate)
}

func TestNAVOnOrAfter_ProbesWithinGapTolerance(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)

	require.NoError(t, db.BulkUpsertNAV([]NAVPoint{
		{SchemeCode: "1", NAVDate: "2024-01-05", NAV: decimal.NewFromFloat(10)},
	}))

	p, found, err := db.NAVOnOrAfter("1", "2024-01-01", 5)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2024-01-05", p.NAVDate)
}

func TestNAVOnOrAfter_BeyondToleranceReturnsNotFound(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)

	require.NoError(t, db.BulkUpsertNAV([]NAVPoint{
		{SchemeCode: "1", NAVDate: "2024-01-10", NAV: decimal.NewFromFloat(10)},
	}))

	_, found, err := db.NAVOnOrAfter("1", "2024-01-01", 5)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLatestAndFirstNAVDate_EmptyHistoryReturnsFalse(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)

	_, found, err := db.LatestNAVDate("nope")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = db.FirstNAVDate("nope")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLatestAndFirstNAVDate_ReturnCorrectEnds(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)

	require.NoError(t, db.BulkUpsertNAV([]NAVPoint{
		{SchemeCode: "1", NAVDate: "2024-01-01", NAV: decimal.NewFromFloat(10)},
		{SchemeCode: "1", NAVDate: "2024-06-01", NAV: decimal.NewFromFloat(11)},
	}))

	first, found, err := db.FirstNAVDate("1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2024-01-01", first)

	latest, found, err := db.LatestNAVDate("1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2024-06-01", latest)
}
