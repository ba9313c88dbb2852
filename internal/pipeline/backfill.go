// Package pipeline sequences discovery, backfill/incremental ingestion, and
// analytics recomputation, mirroring the phase-by-phase orchestration of
// marlonfan-go-stock-collector's scheduler.go but against durable sync-state
// rows instead of an in-memory job list.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/dustin/go-humanize"

	"github.com/marlonfan/mfnav/internal/apperr"
	"github.com/marlonfan/mfnav/internal/discovery"
	"github.com/marlonfan/mfnav/internal/store"
	"github.com/marlonfan/mfnav/internal/upstream"
)

// Backfill fetches and persists the full history for every discovered scheme,
// sequentially, per spec §4.4. A single scheme's failure is recorded on its
// own sync-state row and does not abort the run, except an upstream 429
// (apperr.ErrRateLimited), which is returned at once and ends the run.
// progress, if non-nil, is called after every scheme with (completed, failed,
// total).
func Backfill(ctx context.Context, db *store.DB, client *upstream.Client, schemes []discovery.Descriptor, progress func(completed, failed, total int)) error {
	completed, failed := 0, 0
	total := len(schemes)

	for _, scheme := range schemes {
		if err := backfillOne(ctx, db, client, scheme); err != nil {
			if errors.Is(err, apperr.ErrRateLimited) {
				return err
			}
			failed++
			log.Printf("[pipeline] backfill %s failed: %v", scheme.SchemeCode, err)
		} else {
			completed++
		}
		if progress != nil {
			progress(completed, failed, total)
		}
	}
	return nil
}

func backfillOne(ctx context.Context, db *store.DB, client *upstream.Client, scheme discovery.Descriptor) error {
	if err := db.UpsertFund(store.Fund{
		SchemeCode: scheme.SchemeCode,
		SchemeName: scheme.SchemeName,
		AMC:        scheme.AMC,
		Category:   scheme.Category,
	}); err != nil {
		return fmt.Errorf("ensure fund row: %w", err)
	}

	existing, found, err := db.GetSyncState(scheme.SchemeCode, store.SyncBackfill)
	if err != nil {
		return fmt.Errorf("get sync state: %w", err)
	}
	if found && existing.Status == store.StatusCompleted {
		return nil // already backfilled; resume semantics skip completed schemes
	}

	if err := db.StartSyncState(scheme.SchemeCode, store.SyncBackfill); err != nil {
		return fmt.Errorf("start sync state: %w", err)
	}

	history, err := client.FetchScheme(ctx, scheme.SchemeCode)
	if err != nil {
		_ = db.FailSyncState(scheme.SchemeCode, store.SyncBackfill, err.Error())
		return err
	}

	if err := db.UpsertFund(store.Fund{
		SchemeCode: scheme.SchemeCode,
		SchemeName: coalesce(history.SchemeName, scheme.SchemeName),
		AMC:        coalesce(history.FundHouse, scheme.AMC),
		Category:   coalesce(history.Category, scheme.Category),
		SchemeType: history.SchemeType,
	}); err != nil {
		_ = db.FailSyncState(scheme.SchemeCode, store.SyncBackfill, err.Error())
		return fmt.Errorf("upsert fund with upstream metadata: %w", err)
	}

	points := toNAVPoints(scheme.SchemeCode, history.History)
	if err := db.BulkUpsertNAV(points); err != nil {
		_ = db.FailSyncState(scheme.SchemeCode, store.SyncBackfill, err.Error())
		return fmt.Errorf("bulk upsert nav: %w", err)
	}

	lastDate := ""
	if len(history.History) > 0 {
		lastDate = history.History[len(history.History)-1].Date
	}
	if err := db.CompleteSyncState(scheme.SchemeCode, store.SyncBackfill, lastDate, len(history.History)); err != nil {
		return fmt.Errorf("complete sync state: %w", err)
	}
	log.Printf("[pipeline] backfilled %s: %s records through %s",
		scheme.SchemeCode, humanize.Comma(int64(len(history.History))), lastDate)
	return nil
}

func toNAVPoints(schemeCode string, obs []upstream.NAVObservation) []store.NAVPoint {
	points := make([]store.NAVPoint, 0, len(obs))
	for _, o := range obs {
		points = append(points, store.NAVPoint{
			SchemeCode: schemeCode,
			NAVDate:    o.Date,
			NAV:        o.NAV,
		})
	}
	return points
}

func coalesce(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}
