package handlers

import (
	"nursecall_bridge/internal/logger"
	"nursecall_bridge/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)

	h.registerAPIRoutes(router)

	// Event stream (HTTP upgrade) on the same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		h.registerBridgeRoutes(api)
		h.registerCallRoutes(api)
		h.registerMasterRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerBridgeRoutes(api *gin.RouterGroup) {
	api.GET("/ports", h.listPorts)
	// Body example: {"port":"COM3"}
	api.POST("/connect", h.connect)
	api.POST("/disconnect", h.disconnect)
	api.GET("/status", h.status)
}

func (h *Handler) registerCallRoutes(api *gin.RouterGroup) {
	calls := api.Group("/calls")
	{
		calls.GET("", h.listCalls)
		calls.GET("/export", h.exportCalls)
		calls.POST("/enclose-latest", h.encloseLatest)
		calls.POST("/enclose-all", h.encloseAll)
	}
}

func (h *Handler) registerMasterRoutes(api *gin.RouterGroup) {
	api.GET("/master", h.getMaster)
	api.PUT("/config", h.putConfig)
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	api.GET("/logs", h.getLogs)
}
