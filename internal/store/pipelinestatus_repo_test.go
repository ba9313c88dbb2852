package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPipelineStatus_SeededIdleByOpenForTests(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)

	s, err := db.GetPipelineStatus()
	require.NoError(t, err)
	assert.Equal(t, PipelineIdle, s.Status)
}

func TestStartPipelineRun_ResetsCountersAndMarksRunning(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)

	require.NoError(t, db.StartPipelineRun(42))

	s, err := db.GetPipelineStatus()
	require.NoError(t, err)
	assert.Equal(t, PipelineRunning, s.Status)
	assert.Equal(t, 42, s.TotalSchemes)
	assert.Equal(t, "discovery", s.CurrentPhase)
	assert.Equal(t, float64(0), s.ProgressPercent)
}

func TestUpdatePipelineProgress_SetsPhaseAndPercentVerbatim(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)

	require.NoError(t, db.StartPipelineRun(10))
	require.NoError(t, db.UpdatePipelineProgress("backfill", 4, 1, 10, 35.5))

	s, err := db.GetPipelineStatus()
	require.NoError(t, err)
	assert.Equal(t, "backfill", s.CurrentPhase)
	assert.Equal(t, 4, s.CompletedSchemes)
	assert.Equal(t, 1, s.FailedSchemes)
	assert.Equal(t, 35.5, s.ProgressPercent)
}

func TestFinishPipelineRun_SuccessMarksIdle(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)

	require.NoError(t, db.StartPipelineRun(1))
	require.NoError(t, db.FinishPipelineRun(nil))

	s, err := db.GetPipelineStatus()
	require.NoError(t, err)
	assert.Equal(t, PipelineIdle, s.Status)
	assert.Empty(t, s.LastError)
	assert.NotNil(t, s.CompletedAt)
}

func TestFinishPipelineRun_FailureMarksFailedAndRecordsError(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)

	require.NoError(t, db.StartPipelineRun(1))
	require.NoError(t, db.FinishPipelineRun(errors.New("upstream unreachable")))

	s, err := db.GetPipelineStatus()
	require.NoError(t, err)
	assert.Equal(t, PipelineFailed, s.Status)
	assert.Equal(t, "upstream unreachable", s.LastError)
}

func TestResetInterruptedRun_OnlyTouchesRunningRows(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)

	require.NoError(t, db.StartPipelineRun(1))
	require.NoError(t, db.ResetInterruptedRun())

	s, err := db.GetPipelineStatus()
	require.NoError(t, err)
	assert.Equal(t, PipelineIdle, s.Status)
	assert.NotEmpty(t, s.LastError)
}

func TestResetInterruptedRun_NoopWhenAlreadyIdle(t *testing.T) {
	db, err := OpenForTests()
	require.NoError(t, err)

	require.NoError(t, db.ResetInterruptedRun())

	s, err := db.GetPipelineStatus()
	require.NoError(t, err)
	assert.Equal(t, PipelineIdle, s.Status)
	assert.Empty(t, s.LastError)
}
