package store

import (
	"fmt"
	"strings"

	"gorm.io/gorm/clause"
)

// UpsertFund creates the fund row on first appearance or updates the
// authoritative upstream fields (name/AMC/category/type) on every subsequent
// ingestion, per spec §4.4 step 1/4. Never deletes.
func (d *DB) UpsertFund(f Fund) error {
	result := d.gormDB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scheme_code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"scheme_name", "amc", "category", "scheme_type", "updated_at",
		}),
	}).Create(&f)
	if result.Error != nil {
		return fmt.Errorf("upsert fund %s: %w", f.SchemeCode, result.Error)
	}
	return nil
}

// GetFund returns the fund row, or (Fund{}, false, nil) if absent.
func (d *DB) GetFund(schemeCode string) (Fund, bool, error) {
	var f Fund
	err := d.gormDB.Where("scheme_code = ?", schemeCode).First(&f).Error
	if err != nil {
		if isNotFound(err) {
			return Fund{}, false, nil
		}
		return Fund{}, false, fmt.Errorf("get fund %s: %w", schemeCode, err)
	}
	return f, true, nil
}

// ListFundsFilter narrows ListFunds by case-insensitive LIKE on category/AMC.
type ListFundsFilter struct {
	Category string
	AMC      string
}

// ListFunds returns every fund matching the (optional) category/AMC filters.
func (d *DB) ListFunds(filter ListFundsFilter) ([]Fund, error) {
	q := d.gormDB.Model(&Fund{})
	if filter.Category != "" {
		q = q.Where("LOWER(category) LIKE ?", "%"+strings.ToLower(filter.Category)+"%")
	}
	if filter.AMC != "" {
		q = q.Where("LOWER(amc) LIKE ?", "%"+strings.ToLower(filter.AMC)+"%")
	}
	var funds []Fund
	if err := q.Order("scheme_code ASC").Find(&funds).Error; err != nil {
		return nil, fmt.Errorf("list funds: %w", err)
	}
	return funds, nil
}

// AllSchemeCodes returns every fund's scheme code, ascending.
func (d *DB) AllSchemeCodes() ([]string, error) {
	var codes []string
	if err := d.gormDB.Model(&Fund{}).Order("scheme_code ASC").Pluck("scheme_code", &codes).Error; err != nil {
		return nil, fmt.Errorf("list scheme codes: %w", err)
	}
	return codes, nil
}
