package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/singleflight"

	"github.com/marlonfan/mfnav/internal/apperr"
	"github.com/marlonfan/mfnav/internal/discovery"
	"github.com/marlonfan/mfnav/internal/store"
	"github.com/marlonfan/mfnav/internal/upstream"
)

// Progress-percent phase boundaries, per spec §4.7: backfill spans 10-70%,
// analytics 70-100% for a full run; incremental spans 10-70%, analytics
// 70-100% for a delta run.
const (
	discoveryDoneProgress = 10.0
	ingestionDoneProgress = 70.0
	fullProgress          = 100.0
)

// Orchestrator sequences discovery, ingestion, and analytics, guarding against
// concurrent runs with an in-process singleflight group backed by the durable
// pipeline_status row for cross-restart ambiguity, per the design's "Global
// singleton state" note.
type Orchestrator struct {
	db     *store.DB
	client *upstream.Client
	group  singleflight.Group

	// running implements the literal "in-process mutex-guarded boolean" from
	// the design's "Global singleton state" note: it gives the control plane
	// an instant, non-blocking accept/reject decision for the async trigger
	// endpoint, which singleflight.Do alone cannot (Do blocks a duplicate
	// caller until the in-flight call finishes, instead of rejecting it).
	running atomic.Bool
}

// New builds an Orchestrator and resets any pipeline-status row left
// "running" by a prior process that crashed mid-run.
func New(db *store.DB, client *upstream.Client) (*Orchestrator, error) {
	if err := db.ResetInterruptedRun(); err != nil {
		return nil, fmt.Errorf("reset interrupted run: %w", err)
	}
	return &Orchestrator{db: db, client: client}, nil
}

// RunFull runs discovery -> backfill -> analytics. Returns apperr.ErrConflict
// if a run is already in flight in this process.
func (o *Orchestrator) RunFull(ctx context.Context) error {
	ran := false
	_, err, _ := o.group.Do("run", func() (interface{}, error) {
		ran = true
		return nil, o.runFull(ctx)
	})
	if !ran {
		return fmt.Errorf("%w: a pipeline run is already in progress", apperr.ErrConflict)
	}
	return err
}

// RunIncremental runs incremental -> analytics. Returns apperr.ErrConflict if
// a run is already in flight in this process.
func (o *Orchestrator) RunIncremental(ctx context.Context) error {
	ran := false
	_, err, _ := o.group.Do("run", func() (interface{}, error) {
		ran = true
		return nil, o.runIncremental(ctx)
	})
	if !ran {
		return fmt.Errorf("%w: a pipeline run is already in progress", apperr.ErrConflict)
	}
	return err
}

// TriggerFull attempts to start a full run in the background, returning
// accepted=false immediately (no blocking) if one is already in flight — the
// control plane's POST /sync/trigger?mode=full maps this directly to 202/409.
// The run is given a background context detached from the HTTP request, since
// it must outlive the request that triggered it.
func (o *Orchestrator) TriggerFull() (accepted bool) {
	return o.triggerAsync(o.RunFull)
}

// TriggerIncremental is TriggerFull's counterpart for mode=incremental.
func (o *Orchestrator) TriggerIncremental() (accepted bool) {
	return o.triggerAsync(o.RunIncremental)
}

func (o *Orchestrator) triggerAsync(run func(context.Context) error) bool {
	if !o.running.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		defer o.running.Store(false)
		if err := run(context.Background()); err != nil {
			log.Printf("[pipeline] async run failed: %v", err)
		}
	}()
	return true
}

// phasePercent linearly interpolates progress within [loPercent, hiPercent]
// given completed+failed out of total work items in the current phase.
func phasePercent(loPercent, hiPercent float64, completed, failed, total int) float64 {
	if total <= 0 {
		return loPercent
	}
	frac := float64(completed+failed) / float64(total)
	return loPercent + frac*(hiPercent-loPercent)
}

func (o *Orchestrator) runFull(ctx context.Context) (err error) {
	start := time.Now()
	schemes, err := o.discover(ctx)
	if err != nil {
		return o.fail(err)
	}
	if err := o.db.StartPipelineRun(len(schemes)); err != nil {
		return err
	}
	defer func() {
		_ = o.db.FinishPipelineRun(err)
		log.Printf("[pipeline] full run over %s schemes finished in %s",
			humanize.Comma(int64(len(schemes))), time.Since(start).Round(time.Second))
	}()

	if err = o.db.UpdatePipelineProgress("discovery", 0, 0, len(schemes), discoveryDoneProgress); err != nil {
		return err
	}

	if err = Backfill(ctx, o.db, o.client, schemes, func(completed, failed, total int) {
		_ = o.db.UpdatePipelineProgress("backfill", completed, failed, total,
			phasePercent(discoveryDoneProgress, ingestionDoneProgress, completed, failed, total))
	}); err != nil {
		return err
	}

	codes := make([]string, 0, len(schemes))
	for _, s := range schemes {
		codes = append(codes, s.SchemeCode)
	}

	if err = RunAnalytics(o.db, codes); err != nil {
		return err
	}
	err = o.db.UpdatePipelineProgress("analytics", len(schemes), 0, len(schemes), fullProgress)
	return err
}

func (o *Orchestrator) runIncremental(ctx context.Context) (err error) {
	start := time.Now()
	codes, err := o.db.AllSchemeCodes()
	if err != nil {
		return err
	}
	if err := o.db.StartPipelineRun(len(codes)); err != nil {
		return err
	}
	defer func() {
		_ = o.db.FinishPipelineRun(err)
		log.Printf("[pipeline] incremental run over %s schemes finished in %s",
			humanize.Comma(int64(len(codes))), time.Since(start).Round(time.Second))
	}()

	freshRows, err := Incremental(ctx, o.db, o.client, codes, func(completed, failed, total int) {
		_ = o.db.UpdatePipelineProgress("incremental", completed, failed, total,
			phasePercent(discoveryDoneProgress, ingestionDoneProgress, completed, failed, total))
	})
	if err != nil {
		return err
	}

	if freshRows == 0 {
		log.Printf("[pipeline] incremental run found no new NAV rows, skipping analytics")
		err = o.db.UpdatePipelineProgress("incremental", len(codes), 0, len(codes), fullProgress)
		return err
	}

	if err = RunAnalytics(o.db, codes); err != nil {
		return err
	}
	err = o.db.UpdatePipelineProgress("analytics", len(codes), 0, len(codes), fullProgress)
	return err
}

func (o *Orchestrator) discover(ctx context.Context) ([]discovery.Descriptor, error) {
	catalog, err := o.client.ListSchemes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list schemes: %w", err)
	}
	schemes := make([]discovery.Scheme, 0, len(catalog))
	for _, c := range catalog {
		schemes = append(schemes, discovery.Scheme{SchemeCode: c.SchemeCode, SchemeName: c.SchemeName})
	}
	rules := discovery.DefaultRules(discovery.SeedAMCs, discovery.SeedCategoryTokens)
	return discovery.Filter(schemes, rules), nil
}

func (o *Orchestrator) fail(err error) error {
	_ = o.db.FinishPipelineRun(err)
	return err
}
