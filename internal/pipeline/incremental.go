package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/marlonfan/mfnav/internal/apperr"
	"github.com/marlonfan/mfnav/internal/store"
	"github.com/marlonfan/mfnav/internal/upstream"
)

// Incremental fetches the delta since each scheme's last persisted NAV date,
// restricted to schemes whose backfill sync-state is completed, per spec
// §4.5. Schemes with no completed backfill are silently skipped — the caller
// is responsible for sequencing incremental after a completed backfill.
// Returns the total number of fresh NAV rows written across every scheme, so
// the orchestrator can skip the analytics phase when nothing changed. A
// per-scheme failure is recorded and the loop goes on, except an upstream 429
// (apperr.ErrRateLimited), which is returned at once and ends the run.
func Incremental(ctx context.Context, db *store.DB, client *upstream.Client, schemeCodes []string, progress func(completed, failed, total int)) (int, error) {
	eligible, err := eligibleSchemes(db, schemeCodes)
	if err != nil {
		return 0, err
	}

	completed, failed, freshRows := 0, 0, 0
	total := len(eligible)

	for _, code := range eligible {
		n, err := incrementalOne(ctx, db, client, code)
		if err != nil {
			if errors.Is(err, apperr.ErrRateLimited) {
				return freshRows, err
			}
			failed++
			log.Printf("[pipeline] incremental %s failed: %v", code, err)
		} else {
			completed++
			freshRows += n
		}
		if progress != nil {
			progress(completed, failed, total)
		}
	}
	return freshRows, nil
}

func eligibleSchemes(db *store.DB, schemeCodes []string) ([]string, error) {
	states, err := db.ListSyncStates(store.SyncBackfill)
	if err != nil {
		return nil, fmt.Errorf("list backfill sync states: %w", err)
	}
	completedBackfill := make(map[string]bool, len(states))
	for _, s := range states {
		if s.Status == store.StatusCompleted {
			completedBackfill[s.SchemeCode] = true
		}
	}

	eligible := make([]string, 0, len(schemeCodes))
	for _, code := range schemeCodes {
		if completedBackfill[code] {
			eligible = append(eligible, code)
		}
	}
	return eligible, nil
}

// incrementalOne returns the number of fresh NAV rows it persisted.
func incrementalOne(ctx context.Context, db *store.DB, client *upstream.Client, schemeCode string) (int, error) {
	if err := db.StartSyncState(schemeCode, store.SyncIncremental); err != nil {
		return 0, fmt.Errorf("start sync state: %w", err)
	}

	lastDate, _, err := db.LatestNAVDate(schemeCode)
	if err != nil {
		_ = db.FailSyncState(schemeCode, store.SyncIncremental, err.Error())
		return 0, fmt.Errorf("latest nav date: %w", err)
	}

	history, err := client.FetchScheme(ctx, schemeCode)
	if err != nil {
		_ = db.FailSyncState(schemeCode, store.SyncIncremental, err.Error())
		return 0, err
	}

	var fresh []upstream.NAVObservation
	for _, obs := range history.History {
		if obs.Date > lastDate {
			fresh = append(fresh, obs)
		}
	}

	if len(fresh) > 0 {
		if err := db.BulkUpsertNAV(toNAVPoints(schemeCode, fresh)); err != nil {
			_ = db.FailSyncState(schemeCode, store.SyncIncremental, err.Error())
			return 0, fmt.Errorf("bulk upsert nav: %w", err)
		}
	}

	newMax := lastDate
	if len(fresh) > 0 {
		newMax = fresh[len(fresh)-1].Date
	}
	if err := db.CompleteSyncState(schemeCode, store.SyncIncremental, newMax, len(fresh)); err != nil {
		return 0, fmt.Errorf("complete sync state: %w", err)
	}
	return len(fresh), nil
}
