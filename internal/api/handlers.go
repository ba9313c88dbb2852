package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/marlonfan/mfnav/internal/apperr"
	"github.com/marlonfan/mfnav/internal/store"
)

// maxRankLimit bounds /funds/rank's limit query param to keep response size
// predictable regardless of what a caller asks for.
const maxRankLimit = 50

func (s *Server) triggerSync(c *gin.Context) {
	mode := c.Query("mode")
	var accepted bool
	switch mode {
	case "full":
		accepted = s.orchestrator.TriggerFull()
	case "incremental":
		accepted = s.orchestrator.TriggerIncremental()
	default:
		writeAppErr(c, fmt.Errorf("%w: mode must be \"full\" or \"incremental\"", apperr.ErrValidation))
		return
	}

	if !accepted {
		writeAppErr(c, fmt.Errorf("%w: a pipeline run is already in progress", apperr.ErrConflict))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"mode": mode, "status": "accepted"})
}

func (s *Server) syncStatus(c *gin.Context) {
	pipelineStatus, err := s.db.GetPipelineStatus()
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}

	backfillStates, err := s.db.ListSyncStates(store.SyncBackfill)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	incrementalStates, err := s.db.ListSyncStates(store.SyncIncremental)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}

	bucketStatus, err := s.limiter.Status(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pipeline":          pipelineStatus,
		"backfillHistogram": histogram(backfillStates),
		"incrementalHistogram": histogram(incrementalStates),
		"limiterBuckets":    bucketStatus,
	})
}

func histogram(states []store.SyncState) map[store.SyncStatus]int {
	h := make(map[store.SyncStatus]int)
	for _, s := range states {
		h[s.Status]++
	}
	return h
}

func (s *Server) listFunds(c *gin.Context) {
	funds, err := s.db.ListFunds(store.ListFundsFilter{
		Category: c.Query("category"),
		AMC:      c.Query("amc"),
	})
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, funds)
}

func (s *Server) getFund(c *gin.Context) {
	code := c.Param("code")
	fund, found, err := s.db.GetFund(code)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeAppErr(c, fmt.Errorf("%w: fund %q", apperr.ErrNotFound, code))
		return
	}

	navDate, navFound, err := s.db.LatestNAVDate(code)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}

	resp := gin.H{"fund": fund}
	if navFound {
		resp["latestNavDate"] = navDate
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getFundAnalytics(c *gin.Context) {
	code := c.Param("code")
	windowParam := c.Query("window")
	if windowParam == "" {
		writeAppErr(c, fmt.Errorf("%w: window is required", apperr.ErrValidation))
		return
	}
	window, ok := parseWindow(windowParam)
	if !ok {
		writeAppErr(c, fmt.Errorf("%w: window must be one of 1Y, 3Y, 5Y, 10Y", apperr.ErrValidation))
		return
	}

	rows, err := s.db.AnalyticsForScheme(code)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	for _, row := range rows {
		if row.WindowType == window {
			c.JSON(http.StatusOK, scaleAnalyticsRow(row))
			return
		}
	}
	writeAppErr(c, fmt.Errorf("%w: analytics not available for %s/%s", apperr.ErrNotFound, code, window))
}

func (s *Server) rankFunds(c *gin.Context) {
	windowParam := c.Query("window")
	window, ok := parseWindow(windowParam)
	if !ok {
		writeAppErr(c, fmt.Errorf("%w: window must be one of 1Y, 3Y, 5Y, 10Y", apperr.ErrValidation))
		return
	}

	sortBy := store.RankSortBy(c.DefaultQuery("sort_by", string(store.SortByMedianReturn)))
	if sortBy != store.SortByMedianReturn && sortBy != store.SortByMaxDrawdown {
		writeAppErr(c, fmt.Errorf("%w: sort_by must be \"median_return\" or \"max_drawdown\"", apperr.ErrValidation))
		return
	}

	limit := 5
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeAppErr(c, fmt.Errorf("%w: limit must be a positive integer", apperr.ErrValidation))
			return
		}
		limit = n
	}
	if limit > maxRankLimit {
		limit = maxRankLimit
	}

	rows, err := s.db.RankByWindow(window, c.Query("category"), sortBy, limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}

	scaled := make([]gin.H, 0, len(rows))
	for _, r := range rows {
		scaled = append(scaled, scaleAnalyticsRow(r))
	}
	c.JSON(http.StatusOK, scaled)
}

func (s *Server) health(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if version, err := s.db.MigrationVersion(); err == nil {
		resp["schemaVersion"] = version
	}
	if bucketStatus, err := s.limiter.Status(c.Request.Context()); err == nil {
		resp["limiterBuckets"] = bucketStatus
	}
	c.JSON(http.StatusOK, resp)
}

func parseWindow(raw string) (store.Window, bool) {
	w := store.Window(raw)
	for _, candidate := range store.Windows {
		if candidate == w {
			return w, true
		}
	}
	return "", false
}

// scaleAnalyticsRow renders percentages scaled and rounded to one decimal
// place, per the design's /funds/:code/analytics contract.
func scaleAnalyticsRow(row store.AnalyticsRow) gin.H {
	return gin.H{
		"schemeCode":          row.SchemeCode,
		"windowType":          row.WindowType,
		"rollingReturnMin":    scalePercent(row.RollingReturnMin),
		"rollingReturnMax":    scalePercent(row.RollingReturnMax),
		"rollingReturnMedian": scalePercent(row.RollingReturnMedian),
		"rollingReturnP25":    scalePercent(row.RollingReturnP25),
		"rollingReturnP75":    scalePercent(row.RollingReturnP75),
		"maxDrawdown":         scalePercent(row.MaxDrawdown),
		"cagrMin":             scalePercent(row.CAGRMin),
		"cagrMax":             scalePercent(row.CAGRMax),
		"cagrMedian":          scalePercent(row.CAGRMedian),
		"dataStartDate":       row.DataStartDate,
		"dataEndDate":         row.DataEndDate,
		"computedAt":          row.ComputedAt,
	}
}

func scalePercent(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return math.Round(*v*100*10) / 10
}

func writeError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// writeAppErr translates an apperr sentinel into its HTTP status code,
// falling back to 500 for anything unrecognized.
func writeAppErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrValidation):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, err.Error())
	}
}
