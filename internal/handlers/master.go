package handlers

import (
	"errors"
	"io"
	"net/http"

	"nursecall_bridge/internal/repository"

	"github.com/gin-gonic/gin"
)

// maxDocumentBytes caps PUT /api/v1/config bodies.
const maxDocumentBytes = 8 << 20

// @Summary      Master directory
// @Tags         master
// @Produce      json
// @Success      200  {object}  service.MasterView
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/master [get]
func (h *Handler) getMaster(c *gin.Context) {
	view, err := h.services.Master.Directory(c.Request.Context())
	if err != nil {
		h.storeError(c, "master_load_failed", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// @Summary      Replace the application document
// @Description  Overwrites masterSettings, masterData and callHistoryStorage in one write.
// @Tags         master
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/config [put]
func (h *Handler) putConfig(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDocumentBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	if len(body) > maxDocumentBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "document too large"})
		return
	}
	if err := h.services.Master.ReplaceDocument(c.Request.Context(), body); err != nil {
		if errors.Is(err, repository.ErrStoreParse) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + "document must be a JSON object"})
			return
		}
		h.storeError(c, "config_replace_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}
