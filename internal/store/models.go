// Package store holds the GORM models and repositories for the five relations
// described in the design: Fund, NAVPoint, AnalyticsRow, SyncState, and the
// PipelineStatus singleton. Query patterns (Where/First/
// Clauses(clause.OnConflict)/CreateInBatches) follow marlonfan-go-stock-collector's database.go; the models
// themselves are new, shaped by the spec rather than by the teacher's OHLC bars.
package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// SyncType enumerates the two sync-state lifecycles a scheme can have.
type SyncType string

const (
	SyncBackfill    SyncType = "backfill"
	SyncIncremental SyncType = "incremental"
)

// SyncStatus enumerates the sync-state lifecycle per spec §3.
type SyncStatus string

const (
	StatusPending    SyncStatus = "pending"
	StatusInProgress SyncStatus = "in_progress"
	StatusCompleted  SyncStatus = "completed"
	StatusFailed     SyncStatus = "failed"
)

// PipelineState enumerates pipeline_status.status.
type PipelineState string

const (
	PipelineIdle    PipelineState = "idle"
	PipelineRunning PipelineState = "running"
	PipelineFailed  PipelineState = "failed"
)

// Window enumerates the four fixed analytics windows.
type Window string

const (
	Window1Y  Window = "1Y"
	Window3Y  Window = "3Y"
	Window5Y  Window = "5Y"
	Window10Y Window = "10Y"
)

// Windows lists every supported window in a fixed, deterministic order.
var Windows = []Window{Window1Y, Window3Y, Window5Y, Window10Y}

// Days returns the window's length as 365*years calendar days, per the
// glossary's definition.
func (w Window) Days() int {
	return w.Years() * 365
}

// Years returns the integer year count backing the window.
func (w Window) Years() int {
	switch w {
	case Window1Y:
		return 1
	case Window3Y:
		return 3
	case Window5Y:
		return 5
	case Window10Y:
		return 10
	}
	return 0
}

// Fund is the fund/scheme row. Created on first discovery appearance, updated
// on every subsequent ingestion, never deleted by the core.
type Fund struct {
	SchemeCode string `gorm:"primaryKey;size:20" json:"schemeCode"`
	SchemeName string `gorm:"size:255;not null" json:"schemeName"`
	AMC        string `gorm:"size:120;index;not null" json:"amc"`
	Category   string `gorm:"size:120;index;not null" json:"category"`
	SchemeType string `gorm:"size:120" json:"schemeType"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Fund) TableName() string { return "funds" }

// NAVPoint is one (scheme_code, nav_date) price observation. Insertion-only
// from the core's perspective; duplicate (scheme_code, nav_date) overwrites the
// price.
type NAVPoint struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	SchemeCode string          `gorm:"size:20;not null;uniqueIndex:idx_nav_scheme_date" json:"schemeCode"`
	NAVDate    string          `gorm:"size:10;not null;uniqueIndex:idx_nav_scheme_date" json:"navDate"` // ISO YYYY-MM-DD
	NAV        decimal.Decimal `gorm:"type:decimal(15,4);not null" json:"nav"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (NAVPoint) TableName() string { return "nav_points" }

// AnalyticsRow is the fully-recomputed-per-ingestion analytics summary for one
// (scheme_code, window_type). Nullable fields are left nil when the sample
// they'd summarize is empty (see analytics.Percentile).
type AnalyticsRow struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	SchemeCode         string    `gorm:"size:20;not null;uniqueIndex:idx_analytics_scheme_window" json:"schemeCode"`
	WindowType         Window    `gorm:"size:4;not null;uniqueIndex:idx_analytics_scheme_window" json:"windowType"`
	RollingReturnMin   *float64  `json:"rollingReturnMin"`
	RollingReturnMax   *float64  `json:"rollingReturnMax"`
	RollingReturnMedian *float64 `json:"rollingReturnMedian"`
	RollingReturnP25   *float64  `json:"rollingReturnP25"`
	RollingReturnP75   *float64  `json:"rollingReturnP75"`
	MaxDrawdown        *float64  `json:"maxDrawdown"`
	CAGRMin            *float64  `json:"cagrMin"`
	CAGRMax            *float64  `json:"cagrMax"`
	CAGRMedian         *float64  `json:"cagrMedian"`
	DataStartDate      string    `gorm:"size:10" json:"dataStartDate"`
	DataEndDate        string    `gorm:"size:10" json:"dataEndDate"`
	ComputedAt         time.Time `json:"computedAt"`
}

func (AnalyticsRow) TableName() string { return "analytics_rows" }

// SyncState tracks per-scheme, per-phase ingestion progress.
type SyncState struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	SchemeCode      string     `gorm:"size:20;not null;uniqueIndex:idx_syncstate_scheme_type" json:"schemeCode"`
	SyncType        SyncType   `gorm:"size:20;not null;uniqueIndex:idx_syncstate_scheme_type" json:"syncType"`
	Status          SyncStatus `gorm:"size:20;not null" json:"status"`
	LastSyncedDate  string     `gorm:"size:10" json:"lastSyncedDate"`
	TotalRecords    int        `json:"totalRecords"`
	ErrorMessage    string     `gorm:"size:2000" json:"errorMessage"`
	StartedAt       *time.Time `json:"startedAt"`
	CompletedAt     *time.Time `json:"completedAt"`
}

func (SyncState) TableName() string { return "sync_states" }

// PipelineStatus is the single process-wide pipeline-run row (id=1).
type PipelineStatus struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	Status           PipelineState `gorm:"size:20;not null" json:"status"`
	CurrentPhase     string        `gorm:"size:40" json:"currentPhase"`
	ProgressPercent  float64       `json:"progressPercent"`
	TotalSchemes     int           `json:"totalSchemes"`
	CompletedSchemes int           `json:"completedSchemes"`
	FailedSchemes    int           `json:"failedSchemes"`
	StartedAt        *time.Time    `json:"startedAt"`
	CompletedAt      *time.Time    `json:"completedAt"`
	LastError        string        `gorm:"size:2000" json:"lastError"`
}

func (PipelineStatus) TableName() string { return "pipeline_status" }

// PipelineStatusID is the fixed singleton row id.
const PipelineStatusID = 1

// AllModels lists every GORM model, for reference by tests building an
// in-memory schema without running the goose migrations.
var AllModels = []interface{}{
	&Fund{}, &NAVPoint{}, &AnalyticsRow{}, &SyncState{}, &PipelineStatus{},
}
