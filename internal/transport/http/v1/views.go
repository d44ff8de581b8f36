package v1

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/nexus/internal/domain"
	"github.com/xiaot623/gogo/nexus/internal/logger"
	"github.com/xiaot623/gogo/nexus/internal/view"
)

// journalViewLimit bounds the audit trail shown in the governance view.
const journalViewLimit = 50

// GetView renders one dashboard projection of the current state.
// GET /v1/views/:view
func (h *Handler) GetView(c echo.Context) error {
	snap := h.service.Store().Snapshot()

	switch c.Param("view") {
	case "workflow":
		return c.JSON(http.StatusOK, view.Workflow(snap))
	case "report":
		return c.JSON(http.StatusOK, view.Report(snap, h.config.BackendURL))
	case "trends":
		return c.JSON(http.StatusOK, view.Trends(snap.Trends))
	case "history":
		return c.JSON(http.StatusOK, view.History(snap.History))
	case "simulation":
		return c.JSON(http.StatusOK, view.Simulation(snap))
	case "governance":
		ctx := c.Request().Context()
		entries, err := h.service.RecentJournal(ctx, journalViewLimit)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		overrides, err := h.service.CountJournal(ctx, domain.JournalOverrideSubmitted)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		v := view.Governance(snap, entries)
		v.OverridesLogged = overrides
		return c.JSON(http.StatusOK, v)
	default:
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown view: " + c.Param("view")})
	}
}

// GetJournal lists local journal entries, oldest first.
// GET /v1/journal
func (h *Handler) GetJournal(c echo.Context) error {
	runID := c.QueryParam("run_id")
	limit := 100
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}

	entries, err := h.service.Journal(c.Request().Context(), runID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"entries": entries,
	})
}

// GetReport proxies the active run's report artifact from the backend.
// GET /v1/report
func (h *Handler) GetReport(c echo.Context) error {
	run := h.service.Store().Run()
	if run == nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": "no completed run"})
	}
	if run.Result.ReportPath == "" {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run has no report"})
	}

	art, err := h.service.Backend().FetchReport(c.Request().Context(), run.Result.ReportPath)
	if err != nil {
		return errorResponse(c, err)
	}
	defer art.Body.Close()

	contentType := art.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, contentType)
	if art.ContentLength >= 0 {
		resp.Header().Set(echo.HeaderContentLength, strconv.FormatInt(art.ContentLength, 10))
	}
	resp.WriteHeader(http.StatusOK)
	if _, err := io.Copy(resp, art.Body); err != nil {
		logger.Log.WithError(err).WithField("run_id", run.RunID).Warn("report stream interrupted")
	}
	return nil
}
