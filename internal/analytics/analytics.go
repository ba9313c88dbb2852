// Package analytics computes rolling-return distributions, rolling CAGR
// distributions, and maximum drawdown over an irregular daily NAV series for
// the fixed windows {1Y, 3Y, 5Y, 10Y}. Every function is pure over a
// []Point — no store, no clock — so results are deterministic and trivially
// testable, in the spirit of marlonfan-go-stock-collector's indicator
// calculations kept free of I/O.
package analytics

import (
	"math"
	"sort"
	"time"
)

const isoDateLayout = "2006-01-02"

// maxProbeDays is the gap-tolerance window: a NAV lookup on an absent date
// probes forward this many days before giving up.
const maxProbeDays = 5

// sufficiencyRatio is the minimum fraction of a window's days that must be
// covered by history before the window is computed at all.
const sufficiencyRatio = 0.9

// Point is one (date, nav) observation. Callers must pass points sorted
// ascending by Date; Compute re-sorts defensively.
type Point struct {
	Date string // ISO YYYY-MM-DD
	NAV  float64
}

// Result is the full computed summary for one (scheme, window) pair, or the
// zero value with Sufficient=false when history_days < 0.9*W_days.
type Result struct {
	Sufficient          bool
	RollingReturnMin    *float64
	RollingReturnMax    *float64
	RollingReturnMedian *float64
	RollingReturnP25    *float64
	RollingReturnP75    *float64
	MaxDrawdown         *float64
	CAGRMin             *float64
	CAGRMax             *float64
	CAGRMedian          *float64
	DataStartDate       string
	DataEndDate         string
}

// index is a date->NAV lookup plus the sorted date list, built once per
// Compute call and reused by every probe.
type index struct {
	byDate map[string]float64
	dates  []string // ascending
}

func buildIndex(points []Point) index {
	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	byDate := make(map[string]float64, len(sorted))
	dates := make([]string, len(sorted))
	for i, p := range sorted {
		byDate[p.Date] = p.NAV
		dates[i] = p.Date
	}
	return index{byDate: byDate, dates: dates}
}

// lookup returns the NAV on d, or (probing forward up to maxProbeDays) the
// first NAV on a later date, per the design's gap-tolerance rule.
func (ix index) lookup(d string) (float64, bool) {
	t, err := time.Parse(isoDateLayout, d)
	if err != nil {
		return 0, false
	}
	for offset := 0; offset <= maxProbeDays; offset++ {
		candidate := t.AddDate(0, 0, offset).Format(isoDateLayout)
		if nav, ok := ix.byDate[candidate]; ok {
			return nav, true
		}
	}
	return 0, false
}

func addDays(d string, days int) string {
	t, err := time.Parse(isoDateLayout, d)
	if err != nil {
		return d
	}
	return t.AddDate(0, 0, -days).Format(isoDateLayout)
}

func daysBetween(a, b string) int {
	ta, errA := time.Parse(isoDateLayout, a)
	tb, errB := time.Parse(isoDateLayout, b)
	if errA != nil || errB != nil {
		return 0
	}
	return int(tb.Sub(ta).Hours() / 24)
}

// Compute computes the full Result for one window, windowDays/windowYears
// coming from store.Window's Days()/Years().
func Compute(points []Point, windowDays, windowYears int) Result {
	if len(points) == 0 {
		return Result{Sufficient: false}
	}

	ix := buildIndex(points)
	firstDate, lastDate := ix.dates[0], ix.dates[len(ix.dates)-1]
	historyDays := daysBetween(firstDate, lastDate)

	if float64(historyDays) < sufficiencyRatio*float64(windowDays) {
		return Result{Sufficient: false}
	}

	var returns, cagrs []float64
	for _, d := range ix.dates {
		navNow := ix.byDate[d]
		targetDate := addDays(d, windowDays)
		navPast, ok := ix.lookup(targetDate)
		if !ok || navPast == 0 {
			continue
		}
		simpleReturn := (navNow - navPast) / navPast
		returns = append(returns, simpleReturn)

		if windowYears > 0 && navPast > 0 {
			ratio := navNow / navPast
			if ratio > 0 {
				cagrs = append(cagrs, math.Pow(ratio, 1.0/float64(windowYears))-1)
			}
		}
	}

	result := Result{
		Sufficient:    true,
		DataStartDate: firstDate,
		DataEndDate:   lastDate,
	}
	result.MaxDrawdown = ptr(MaxDrawdown(navSeries(ix.dates, ix.byDate)))

	if len(returns) > 0 {
		sort.Float64s(returns)
		result.RollingReturnMin = ptr(returns[0])
		result.RollingReturnMax = ptr(returns[len(returns)-1])
		result.RollingReturnMedian = ptr(Percentile(returns, 50))
		result.RollingReturnP25 = ptr(Percentile(returns, 25))
		result.RollingReturnP75 = ptr(Percentile(returns, 75))
	}
	if len(cagrs) > 0 {
		sort.Float64s(cagrs)
		result.CAGRMin = ptr(cagrs[0])
		result.CAGRMax = ptr(cagrs[len(cagrs)-1])
		result.CAGRMedian = ptr(Percentile(cagrs, 50))
	}
	return result
}

func navSeries(dates []string, byDate map[string]float64) []float64 {
	out := make([]float64, len(dates))
	for i, d := range dates {
		out[i] = byDate[d]
	}
	return out
}

// MaxDrawdown performs a single left-to-right sweep over an ascending NAV
// series, tracking the running peak and the most negative (nav-peak)/peak
// seen. Returns 0 for an empty or monotonically non-decreasing series.
// Per the design's open question, this deliberately considers the entire
// series passed in, not a window-scoped slice — the source behavior is
// preserved (see DESIGN.md).
func MaxDrawdown(navs []float64) float64 {
	if len(navs) == 0 {
		return 0
	}
	peak := navs[0]
	worst := 0.0
	for _, nav := range navs {
		if nav > peak {
			peak = nav
		}
		if peak <= 0 {
			continue
		}
		dd := (nav - peak) / peak
		if dd < worst {
			worst = dd
		}
	}
	return worst
}

// Percentile computes the p-th percentile of a pre-sorted (ascending) sample
// via linear interpolation: index = p/100*(n-1). For n=1 returns the single
// value; callers must not call this with an empty sample.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	idx := p / 100 * float64(n-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	frac := idx - float64(lo)
	if hi >= n {
		hi = n - 1
	}
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// CAGR computes the compound annual growth rate from start to end value over
// years years, per the glossary definition: (end/start)^(1/years) - 1.
func CAGR(start, end float64, years int) float64 {
	if start <= 0 || years <= 0 {
		return 0
	}
	return math.Pow(end/start, 1.0/float64(years)) - 1
}

func ptr(v float64) *float64 { return &v }
