package handlers

import (
	"bytes"
	"net/http"
	"strings"

	"nursecall_bridge/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportFilename  = "call-history.xlsx"
)

// parseStatusFilter accepts "", "active" or "completed".
func parseStatusFilter(c *gin.Context) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(c.Query("status")))
	switch s {
	case "", models.StatusActive, models.StatusCompleted:
		return s, true
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'status'; use active or completed"})
	return "", false
}

// @Summary      Call history
// @Tags         calls
// @Produce      json
// @Param        status  query     string  false  "Filter by status"  Enums(active,completed)
// @Success      200     {object}  map[string]interface{}  "count, calls"
// @Failure      400     {object}  map[string]string
// @Failure      500     {object}  map[string]string
// @Router       /api/v1/calls [get]
func (h *Handler) listCalls(c *gin.Context) {
	status, ok := parseStatusFilter(c)
	if !ok {
		return
	}
	calls, err := h.services.Calls.History(c.Request.Context(), status)
	if err != nil {
		h.storeError(c, "calls_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(calls), "calls": calls})
}

// @Summary      Export call history
// @Tags         calls
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        status  query  string  false  "Filter by status"  Enums(active,completed)
// @Success      200
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/calls/export [get]
func (h *Handler) exportCalls(c *gin.Context) {
	status, ok := parseStatusFilter(c)
	if !ok {
		return
	}
	// Buffer the workbook so a store failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := h.services.Calls.Export(c.Request.Context(), status, &buf); err != nil {
		h.storeError(c, "calls_export_failed", err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+exportFilename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// @Summary      Resolve the latest pending call
// @Tags         calls
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, call"
// @Failure      404  {object}  map[string]string  "no pending calls"
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/calls/enclose-latest [post]
func (h *Handler) encloseLatest(c *gin.Context) {
	rec, err := h.services.Calls.EncloseLatest(c.Request.Context())
	if err != nil {
		h.storeError(c, "calls_enclose_latest_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.StatusCompleted, "call": rec})
}

// @Summary      Resolve all pending calls
// @Tags         calls
// @Produce      json
// @Success      200  {object}  map[string]int  "updated"
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/calls/enclose-all [post]
func (h *Handler) encloseAll(c *gin.Context) {
	n, err := h.services.Calls.EncloseAll(c.Request.Context())
	if err != nil {
		h.storeError(c, "calls_enclose_all_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
