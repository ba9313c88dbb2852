package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/marlonfan/mfnav/internal/config"
	"github.com/marlonfan/mfnav/internal/discovery"
	"github.com/marlonfan/mfnav/internal/kvstore/memstore"
	"github.com/marlonfan/mfnav/internal/ratelimiter"
	"github.com/marlonfan/mfnav/internal/store"
	"github.com/marlonfan/mfnav/internal/upstream"
)

func testUpstream(t *testing.T, body string) *upstream.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	cfg := config.RateLimitConfig{
		PerSecond: config.BucketConfig{Capacity: 1000, RefillRate: 1000, IntervalMS: 1000},
		PerMinute: config.BucketConfig{Capacity: 1000, RefillRate: 1000, IntervalMS: 60_000},
		PerHour:   config.BucketConfig{Capacity: 1000, RefillRate: 1000, IntervalMS: 3_600_000},
	}
	limiter := ratelimiter.New(memstore.New(), cfg)
	return upstream.New(srv.URL, 5*time.Second, limiter)
}

func TestBackfill_SkipsCompletedScheme(t *testing.T) {
	db, err := store.OpenForTests()
	require.NoError(t, err)

	require.NoError(t, db.UpsertFund(store.Fund{SchemeCode: "1", SchemeName: "Example", AMC: "Example AMC", Category: "Mid Cap Direct Growth"}))
	require.NoError(t, db.StartSyncState("1", store.SyncBackfill))
	require.NoError(t, db.CompleteSyncState("1", store.SyncBackfill, "2024-01-01", 1))

	client := testUpstream(t, `{"meta":{},"data":[]}`)
	schemes := []discovery.Descriptor{{SchemeCode: "1", SchemeName: "Example", AMC: "Example AMC", Category: "Mid Cap Direct Growth"}}

	err = Backfill(context.Background(), db, client, schemes, nil)
	require.NoError(t, err)

	state, found, err := db.GetSyncState("1", store.SyncBackfill)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, store.StatusCompleted, state.Status)
	require.Equal(t, "2024-01-01", state.LastSyncedDate) // untouched, proving the scheme was skipped
}

func TestBackfill_PersistsHistoryAndCompletes(t *testing.T) {
	db, err := store.OpenForTests()
	require.NoError(t, err)

	client := testUpstream(t, `{
		"meta": {"fund_house": "Example AMC", "scheme_type": "Open Ended", "scheme_category": "Mid Cap Direct Growth"},
		"data": [
			{"date": "02-01-2024", "nav": "11.0000"},
			{"date": "01-01-2024", "nav": "10.0000"}
		]
	}`)
	schemes := []discovery.Descriptor{{SchemeCode: "1", SchemeName: "Example", AMC: "Example AMC", Category: "Mid Cap Direct Growth"}}

	err = Backfill(context.Background(), db, client, schemes, nil)
	require.NoError(t, err)

	state, found, err := db.GetSyncState("1", store.SyncBackfill)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, store.StatusCompleted, state.Status)
	require.Equal(t, "2024-01-02", state.LastSyncedDate)
	require.Equal(t, 2, state.TotalRecords)

	series, err := db.NAVSeries("1")
	require.NoError(t, err)
	require.Len(t, series, 2)
}

func TestIncremental_SkipsSchemeWithoutCompletedBackfill(t *testing.T) {
	db, err := store.OpenForTests()
	require.NoError(t, err)
	require.NoError(t, db.UpsertFund(store.Fund{SchemeCode: "1", SchemeName: "Example", AMC: "Example AMC", Category: "Mid Cap Direct Growth"}))

	client := testUpstream(t, `{"meta":{},"data":[]}`)
	freshRows, err := Incremental(context.Background(), db, client, []string{"1"}, nil)
	require.NoError(t, err)
	require.Equal(t, 0, freshRows)

	_, found, err := db.GetSyncState("1", store.SyncIncremental)
	require.NoError(t, err)
	require.False(t, found)
}

func TestIncremental_FetchesOnlyNewerDates(t *testing.T) {
	db, err := store.OpenForTests()
	require.NoError(t, err)
	require.NoError(t, db.UpsertFund(store.Fund{SchemeCode: "1", SchemeName: "Example", AMC: "Example AMC", Category: "Mid Cap Direct Growth"}))
	require.NoError(t, db.StartSyncState("1", store.SyncBackfill))
	require.NoError(t, db.CompleteSyncState("1", store.SyncBackfill, "2024-01-01", 1))
	nav, err := decimal.NewFromString("10.0000")
	require.NoError(t, err)
	require.NoError(t, db.BulkUpsertNAV([]store.NAVPoint{{SchemeCode: "1", NAVDate: "2024-01-01", NAV: nav}}))

	client := testUpstream(t, `{
		"meta": {},
		"data": [
			{"date": "03-01-2024", "nav": "12.0000"},
			{"date": "02-01-2024", "nav": "11.0000"},
			{"date": "01-01-2024", "nav": "10.0000"}
		]
	}`)

	freshRows, err := Incremental(context.Background(), db, client, []string{"1"}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, freshRows) // only the two newer dates counted

	series, err := db.NAVSeries("1")
	require.NoError(t, err)
	require.Len(t, series, 3)

	state, found, err := db.GetSyncState("1", store.SyncIncremental)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "2024-01-03", state.LastSyncedDate)
	require.Equal(t, 2, state.TotalRecords) // only the two newer dates counted
}

func TestOrchestrator_RunIncremental_SkipsAnalyticsWhenNoFreshRows(t *testing.T) {
	db, err := store.OpenForTests()
	require.NoError(t, err)
	require.NoError(t, db.UpsertFund(store.Fund{SchemeCode: "1", SchemeName: "Example", AMC: "Example AMC", Category: "Mid Cap Direct Growth"}))
	require.NoError(t, db.StartSyncState("1", store.SyncBackfill))
	require.NoError(t, db.CompleteSyncState("1", store.SyncBackfill, "2024-01-01", 1))
	nav, err := decimal.NewFromString("10.0000")
	require.NoError(t, err)
	require.NoError(t, db.BulkUpsertNAV([]store.NAVPoint{{SchemeCode: "1", NAVDate: "2024-01-01", NAV: nav}}))

	// Upstream reports the same single date already stored, so the delta is empty.
	client := testUpstream(t, `{"meta":{}, "data": [{"date": "01-01-2024", "nav": "10.0000"}]}`)

	orch, err := New(db, client)
	require.NoError(t, err)

	require.NoError(t, orch.RunIncremental(context.Background()))

	rows, err := db.AnalyticsForScheme("1")
	require.NoError(t, err)
	require.Empty(t, rows, "analytics should not be recomputed when incremental finds no new rows")
}
