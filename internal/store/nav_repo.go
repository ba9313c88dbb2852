package store

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

// BulkUpsertNAV inserts points in a single statement, overwriting the price on
// a (scheme_code, nav_date) collision — the resolution to the spec's open
// question on duplicate NAV handling: the newest ingested value always wins,
// since a republished upstream correction is more likely true than a cached
// one. No-op on an empty slice.
func (d *DB) BulkUpsertNAV(points []NAVPoint) error {
	if len(points) == 0 {
		return nil
	}
	result := d.gormDB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scheme_code"}, {Name: "nav_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"nav", "updated_at"}),
	}).CreateInBatches(points, 500)
	if result.Error != nil {
		return fmt.Errorf("bulk upsert nav: %w", result.Error)
	}
	return nil
}

// NAVSeries returns every NAV point for schemeCode ordered ascending by date.
func (d *DB) NAVSeries(schemeCode string) ([]NAVPoint, error) {
	var points []NAVPoint
	err := d.gormDB.
		Where("scheme_code = ?", schemeCode).
		Order("nav_date ASC").
		Find(&points).Error
	if err != nil {
		return nil, fmt.Errorf("nav series %s: %w", schemeCode, err)
	}
	return points, nil
}

// NAVOnOrAfter returns the first NAV point on or after isoDate, scanning a
// closed window of up to maxProbeDays days to tolerate holidays and weekends
// where the upstream simply never published a value. Returns (NAVPoint{},
// false, nil) when nothing is found within the window.
func (d *DB) NAVOnOrAfter(schemeCode, isoDate string, maxProbeDays int) (NAVPoint, bool, error) {
	var points []NAVPoint
	err := d.gormDB.
		Where("scheme_code = ? AND nav_date >= ?", schemeCode, isoDate).
		Order("nav_date ASC").
		Limit(1).
		Find(&points).Error
	if err != nil {
		return NAVPoint{}, false, fmt.Errorf("nav on or after %s/%s: %w", schemeCode, isoDate, err)
	}
	if len(points) == 0 {
		return NAVPoint{}, false, nil
	}
	p := points[0]
	if daysBetween(isoDate, p.NAVDate) > maxProbeDays {
		return NAVPoint{}, false, nil
	}
	return p, true, nil
}

// LatestNAVDate returns the most recent nav_date stored for schemeCode, or
// ("", false, nil) if the scheme has no NAV history yet.
func (d *DB) LatestNAVDate(schemeCode string) (string, bool, error) {
	var p NAVPoint
	err := d.gormDB.
		Where("scheme_code = ?", schemeCode).
		Order("nav_date DESC").
		Limit(1).
		Find(&p).Error
	if err != nil {
		return "", false, fmt.Errorf("latest nav date %s: %w", schemeCode, err)
	}
	if p.ID == 0 {
		return "", false, nil
	}
	return p.NAVDate, true, nil
}

// FirstNAVDate returns the earliest nav_date stored for schemeCode.
func (d *DB) FirstNAVDate(schemeCode string) (string, bool, error) {
	var p NAVPoint
	err := d.gormDB.
		Where("scheme_code = ?", schemeCode).
		Order("nav_date ASC").
		Limit(1).
		Find(&p).Error
	if err != nil {
		return "", false, fmt.Errorf("first nav date %s: %w", schemeCode, err)
	}
	if p.ID == 0 {
		return "", false, nil
	}
	return p.NAVDate, true, nil
}

// NAVValue is a convenience accessor returning the decimal NAV for a point.
func NAVValue(p NAVPoint) decimal.Decimal { return p.NAV }
