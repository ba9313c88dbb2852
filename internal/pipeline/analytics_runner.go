package pipeline

import (
	"fmt"

	"github.com/marlonfan/mfnav/internal/analytics"
	"github.com/marlonfan/mfnav/internal/store"
)

// RunAnalytics recomputes every fixed window for every scheme in schemeCodes,
// fully replacing each (scheme, window) row, per spec §4.6: analytics are
// always a full recompute from the current NAV history, never an incremental
// patch. A window with insufficient history is simply not written, matching
// the "insufficient history is not an error" rule in §7.
func RunAnalytics(db *store.DB, schemeCodes []string) error {
	for _, code := range schemeCodes {
		if err := runAnalyticsForScheme(db, code); err != nil {
			return fmt.Errorf("analytics %s: %w", code, err)
		}
	}
	return nil
}

func runAnalyticsForScheme(db *store.DB, schemeCode string) error {
	navPoints, err := db.NAVSeries(schemeCode)
	if err != nil {
		return fmt.Errorf("nav series: %w", err)
	}
	if len(navPoints) == 0 {
		return nil
	}

	points := make([]analytics.Point, 0, len(navPoints))
	for _, p := range navPoints {
		nav, _ := p.NAV.Float64()
		points = append(points, analytics.Point{Date: p.NAVDate, NAV: nav})
	}

	for _, window := range store.Windows {
		result := analytics.Compute(points, window.Days(), window.Years())
		if !result.Sufficient {
			continue
		}
		row := store.AnalyticsRow{
			SchemeCode:          schemeCode,
			WindowType:          window,
			RollingReturnMin:    result.RollingReturnMin,
			RollingReturnMax:    result.RollingReturnMax,
			RollingReturnMedian: result.RollingReturnMedian,
			RollingReturnP25:    result.RollingReturnP25,
			RollingReturnP75:    result.RollingReturnP75,
			MaxDrawdown:         result.MaxDrawdown,
			CAGRMin:             result.CAGRMin,
			CAGRMax:             result.CAGRMax,
			CAGRMedian:          result.CAGRMedian,
			DataStartDate:       result.DataStartDate,
			DataEndDate:         result.DataEndDate,
		}
		if err := db.ReplaceAnalyticsRow(row); err != nil {
			return fmt.Errorf("replace analytics row window %s: %w", window, err)
		}
	}
	return nil
}
