package store

import (
	"fmt"
	"time"

	"gorm.io/gorm/clause"
)

// GetSyncState returns the (scheme, syncType) sync-state row, or (SyncState{},
// false, nil) if the pair has never been started.
func (d *DB) GetSyncState(schemeCode string, syncType SyncType) (SyncState, bool, error) {
	var s SyncState
	err := d.gormDB.
		Where("scheme_code = ? AND sync_type = ?", schemeCode, syncType).
		First(&s).Error
	if err != nil {
		if isNotFound(err) {
			return SyncState{}, false, nil
		}
		return SyncState{}, false, fmt.Errorf("get sync state %s/%s: %w", schemeCode, syncType, err)
	}
	return s, true, nil
}

// ListSyncStates returns every sync-state row for the given syncType, used by
// the incremental orchestrator to find schemes with a completed backfill and
// by the sync-status endpoint's histograms.
func (d *DB) ListSyncStates(syncType SyncType) ([]SyncState, error) {
	var states []SyncState
	err := d.gormDB.
		Where("sync_type = ?", syncType).
		Order("scheme_code ASC").
		Find(&states).Error
	if err != nil {
		return nil, fmt.Errorf("list sync states %s: %w", syncType, err)
	}
	return states, nil
}

// StartSyncState marks (scheme, syncType) in_progress, creating the row on
// first run. Idempotent: re-entering an in_progress row (a restart mid-run)
// simply refreshes started_at, which is what lets the backfill orchestrator
// resume an interrupted scheme instead of skipping it as already-done.
func (d *DB) StartSyncState(schemeCode string, syncType SyncType) error {
	now := time.Now().UTC()
	s := SyncState{
		SchemeCode: schemeCode,
		SyncType:   syncType,
		Status:     StatusInProgress,
		StartedAt:  &now,
	}
	result := d.gormDB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scheme_code"}, {Name: "sync_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "started_at", "error_message"}),
	}).Create(&s)
	if result.Error != nil {
		return fmt.Errorf("start sync state %s/%s: %w", schemeCode, syncType, result.Error)
	}
	return nil
}

// CompleteSyncState marks (scheme, syncType) completed, recording the last
// synced date and the cumulative record count.
func (d *DB) CompleteSyncState(schemeCode string, syncType SyncType, lastSyncedDate string, totalRecords int) error {
	now := time.Now().UTC()
	result := d.gormDB.Model(&SyncState{}).
		Where("scheme_code = ? AND sync_type = ?", schemeCode, syncType).
		Updates(map[string]interface{}{
			"status":           StatusCompleted,
			"last_synced_date": lastSyncedDate,
			"total_records":    totalRecords,
			"completed_at":     &now,
			"error_message":    "",
		})
	if result.Error != nil {
		return fmt.Errorf("complete sync state %s/%s: %w", schemeCode, syncType, result.Error)
	}
	return nil
}

// FailSyncState marks (scheme, syncType) failed and records the error, per
// spec §4.4/§4.5: a single scheme's failure never aborts the orchestrator run.
func (d *DB) FailSyncState(schemeCode string, syncType SyncType, errMsg string) error {
	result := d.gormDB.Model(&SyncState{}).
		Where("scheme_code = ? AND sync_type = ?", schemeCode, syncType).
		Updates(map[string]interface{}{
			"status":        StatusFailed,
			"error_message": errMsg,
		})
	if result.Error != nil {
		return fmt.Errorf("fail sync state %s/%s: %w", schemeCode, syncType, result.Error)
	}
	return nil
}
