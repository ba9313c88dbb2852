package store

import (
	"fmt"
	"time"

	"gorm.io/gorm/clause"
)

// ReplaceAnalyticsRow fully overwrites the (scheme, window) analytics summary,
// per spec §4.6: analytics are always a full recompute from the current NAV
// history, never an incremental patch.
func (d *DB) ReplaceAnalyticsRow(row AnalyticsRow) error {
	row.ComputedAt = time.Now().UTC()
	result := d.gormDB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scheme_code"}, {Name: "window_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"rolling_return_min", "rolling_return_max", "rolling_return_median",
			"rolling_return_p25", "rolling_return_p75", "max_drawdown",
			"cagr_min", "cagr_max", "cagr_median",
			"data_start_date", "data_end_date", "computed_at",
		}),
	}).Create(&row)
	if result.Error != nil {
		return fmt.Errorf("replace analytics row %s/%s: %w", row.SchemeCode, row.WindowType, result.Error)
	}
	return nil
}

// AnalyticsForScheme returns every computed window for a scheme, ordered by
// the fixed Windows sequence (1Y, 3Y, 5Y, 10Y).
func (d *DB) AnalyticsForScheme(schemeCode string) ([]AnalyticsRow, error) {
	var rows []AnalyticsRow
	err := d.gormDB.
		Where("scheme_code = ?", schemeCode).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("analytics for scheme %s: %w", schemeCode, err)
	}
	order := make(map[Window]int, len(Windows))
	for i, w := range Windows {
		order[w] = i
	}
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0 && order[rows[j-1].WindowType] > order[rows[j].WindowType]; j-- {
			rows[j-1], rows[j] = rows[j], rows[j-1]
		}
	}
	return rows, nil
}

// RankSortBy selects the ranking metric for RankByWindow.
type RankSortBy string

const (
	// SortByMedianReturn ranks by rolling_return_median, descending (higher is better).
	SortByMedianReturn RankSortBy = "median_return"
	// SortByMaxDrawdown ranks by max_drawdown, numerically ascending: the most negative (deepest) drawdown comes first.
	SortByMaxDrawdown RankSortBy = "max_drawdown"
)

// RankByWindow returns every scheme's analytics row for a single window,
// ordered per sortBy (descending for returns, ascending for drawdown per the
// design), NULLs sorted last, ties broken by scheme_code. limit <= 0 means
// unlimited. Backs the /funds/rank endpoint.
func (d *DB) RankByWindow(window Window, category string, sortBy RankSortBy, limit int) ([]AnalyticsRow, error) {
	q := d.gormDB.Model(&AnalyticsRow{}).
		Joins("JOIN funds ON funds.scheme_code = analytics_rows.scheme_code").
		Where("analytics_rows.window_type = ?", window)
	if category != "" {
		q = q.Where("funds.category = ?", category)
	}

	switch sortBy {
	case SortByMaxDrawdown:
		q = q.Order("analytics_rows.max_drawdown IS NULL, analytics_rows.max_drawdown ASC, analytics_rows.scheme_code ASC")
	default:
		q = q.Order("analytics_rows.rolling_return_median IS NULL, analytics_rows.rolling_return_median DESC, analytics_rows.scheme_code ASC")
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []AnalyticsRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("rank by window %s: %w", window, err)
	}
	return rows, nil
}
