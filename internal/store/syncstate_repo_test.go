package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSyncState_IsResumableAcrossRestarts(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)

	require.NoError(t, db.StartSyncState("1", SyncBackfill))
	require.NoError(t, db.FailSyncState("1", SyncBackfill, "boom"))
	require.NoError(t, db.StartSyncState("1", SyncBackfill))

	s, found, err := db.GetSyncState("1", SyncBackfill)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, StatusInProgress, s.Status)
	assert.Empty(t, s.ErrorMessage)
}

func TestCompleteSyncState_RecordsLastSyncedDateAndCount(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)

	require.NoError(t, db.StartSyncState("1", SyncBackfill))
	require.NoError(t, db.CompleteSyncState("1", SyncBackfill, "2024-06-01", 120))

	s, found, err := db.GetSyncState("1", SyncBackfill)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, StatusCompleted, s.Status)
	assert.Equal(t, "2024-06-01", s.LastSyncedDate)
	assert.Equal(t, 120, s.TotalRecords)
	require.NotNil(t, s.CompletedAt)
}

func TestFailSyncState_DoesNotAffectOtherSchemes(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)

	require.NoError(t, db.StartSyncState("1", SyncBackfill))
	require.NoError(t, db.StartSyncState("2", SyncBackfill))
	require.NoError(t, db.FailSyncState("1", SyncBackfill, "upstream 500"))

	failed, found, err := db.GetSyncState("1", SyncBackfill)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "upstream 500", failed.ErrorMessage)

	ok, found, err := db.GetSyncState("2", SyncBackfill)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, StatusInProgress, ok.Status)
}

func TestListSyncStates_FiltersBySyncType(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)

	require.NoError(t, db.StartSyncState("1", SyncBackfill))
	require.NoError(t, db.StartSyncState("1", SyncIncremental))
	require.NoError(t, db.StartSyncState("2", SyncBackfill))

	states, err := db.ListSyncStates(SyncBackfill)
	require.NoError(t, err)
	assert.Len(t, states, 2)
}
