package handlers

import (
	"errors"
	"net/http"

	"nursecall_bridge/internal/repository"
	"nursecall_bridge/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK           = "ok"
	statusConnecting   = "connecting"
	statusDisconnected = "disconnected"

	errConnect         = "failed to connect"
	errBridgeClosed    = "bridge is shutting down"
	errStoreFailed     = "configuration store unavailable"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// storeError maps document store failures to a response.
func (h *Handler) storeError(c *gin.Context, logKey string, err error) {
	switch {
	case errors.Is(err, repository.ErrNoPendingCalls):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrStoreParse):
		h.logAndJSONError(c, http.StatusInternalServerError, errStoreFailed+": unparsable document", logKey, err)
	case errors.Is(err, repository.ErrStoreRead):
		h.logAndJSONError(c, http.StatusInternalServerError, errStoreFailed+": unreadable document", logKey, err)
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errStoreFailed, logKey, err)
	}
}

// ConnectRequest is the body of POST /api/v1/connect.
type ConnectRequest struct {
	// Serial device identifier, e.g. COM3 or /dev/ttyUSB0
	Port string `json:"port" binding:"required" example:"COM3"`
}

// @Summary      Health check
// @Description  Liveness plus the number of stream clients and the MQTT connection state, when configured.
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	resp := gin.H{"status": statusOK}
	if h.services.Diagnostics != nil {
		r := h.services.Diagnostics.Report()
		resp["stream_clients"] = r.StreamClients
		if r.MQTT != "" {
			resp["mqtt"] = r.MQTT
		}
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary      List serial ports
// @Tags         bridge
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ports"
// @Router       /api/v1/ports [get]
func (h *Handler) listPorts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ports": h.services.Bridge.ListPorts()})
}

// @Summary      Connect to a serial port
// @Description  Replaces any running connection. Open failures are retried in the background and reported as device-error events.
// @Tags         bridge
// @Accept       json
// @Produce      json
// @Param        body  body      ConnectRequest  true  "Port"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/connect [post]
func (h *Handler) connect(c *gin.Context) {
	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	if err := h.services.Bridge.Connect(c.Request.Context(), req.Port); err != nil {
		switch {
		case errors.Is(err, service.ErrPortRequired):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrBridgeClosed):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": errBridgeClosed})
		default:
			h.logAndJSONError(c, http.StatusInternalServerError, errConnect, "bridge_connect_failed", err, "port", req.Port)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusConnecting, "link": h.services.Bridge.Status()})
}

// @Summary      Disconnect the serial port
// @Tags         bridge
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/v1/disconnect [post]
func (h *Handler) disconnect(c *gin.Context) {
	if err := h.services.Bridge.Disconnect(c.Request.Context()); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to disconnect", "bridge_disconnect_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusDisconnected, "link": h.services.Bridge.Status()})
}

// @Summary      Link status
// @Tags         bridge
// @Produce      json
// @Success      200  {object}  models.LinkStatus
// @Router       /api/v1/status [get]
func (h *Handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Bridge.Status())
}
