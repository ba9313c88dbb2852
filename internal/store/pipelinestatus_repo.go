package store

import (
	"fmt"
	"time"
)

// GetPipelineStatus returns the singleton pipeline_status row, creating it
// idle if the seed migration/seed insert somehow never ran.
func (d *DB) GetPipelineStatus() (PipelineStatus, error) {
	var s PipelineStatus
	err := d.gormDB.Where("id = ?", PipelineStatusID).First(&s).Error
	if err != nil {
		if isNotFound(err) {
			s = PipelineStatus{ID: PipelineStatusID, Status: PipelineIdle}
			if err := d.gormDB.Create(&s).Error; err != nil {
				return PipelineStatus{}, fmt.Errorf("seed pipeline status: %w", err)
			}
			return s, nil
		}
		return PipelineStatus{}, fmt.Errorf("get pipeline status: %w", err)
	}
	return s, nil
}

// StartPipelineRun transitions the singleton to running and resets the
// progress counters, per spec §5/§7. Call only while holding the orchestrator's
// in-process run guard.
func (d *DB) StartPipelineRun(totalSchemes int) error {
	now := time.Now().UTC()
	return d.gormDB.Model(&PipelineStatus{}).Where("id = ?", PipelineStatusID).Updates(map[string]interface{}{
		"status":            PipelineRunning,
		"current_phase":     "discovery",
		"progress_percent":  0,
		"total_schemes":     totalSchemes,
		"completed_schemes": 0,
		"failed_schemes":    0,
		"started_at":        &now,
		"completed_at":      nil,
		"last_error":        "",
	}).Error
}

// UpdatePipelineProgress advances the current phase, per-scheme counters, and
// an already-computed progress percent. The percent is the orchestrator's
// responsibility, not the store's, since it depends on phase boundaries
// (e.g. backfill 10-70%, analytics 70-100%) that are a pipeline concern.
func (d *DB) UpdatePipelineProgress(phase string, completed, failed, total int, percent float64) error {
	return d.gormDB.Model(&PipelineStatus{}).Where("id = ?", PipelineStatusID).Updates(map[string]interface{}{
		"current_phase":     phase,
		"progress_percent":  percent,
		"completed_schemes": completed,
		"failed_schemes":    failed,
	}).Error
}

// FinishPipelineRun marks the singleton idle (or failed, if runErr != nil) and
// stamps completed_at.
func (d *DB) FinishPipelineRun(runErr error) error {
	now := time.Now().UTC()
	status := PipelineIdle
	lastError := ""
	if runErr != nil {
		status = PipelineFailed
		lastError = runErr.Error()
	}
	return d.gormDB.Model(&PipelineStatus{}).Where("id = ?", PipelineStatusID).Updates(map[string]interface{}{
		"status":       status,
		"completed_at": &now,
		"last_error":   lastError,
	}).Error
}

// ResetInterruptedRun clears a running status left behind by a process crash
// back to idle so the pipeline can be re-triggered: a prior "running" row with
// no live in-process guard can only mean the previous process died mid-run.
// Per-scheme resume is then handled by sync-state status, not this row.
func (d *DB) ResetInterruptedRun() error {
	return d.gormDB.Model(&PipelineStatus{}).
		Where("id = ? AND status = ?", PipelineStatusID, PipelineRunning).
		Updates(map[string]interface{}{
			"status":     PipelineIdle,
			"last_error": "process restarted while a run was in progress",
		}).Error
}
