package api

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, h *Handler) {
	api := r.Group("/api")
	{
		api.GET("/health", health)
		api.GET("/sizes", sizes)
		api.GET("/state", h.state)
		api.POST("/template", h.uploadTemplate)
		api.POST("/visuals", h.uploadVisuals)
		api.PUT("/size/:id", h.selectSize)
		api.GET("/preview/:index", h.preview)
		api.GET("/download", h.download)
		api.POST("/reset", h.reset)
	}
}

// NewRouter builds the gin engine with request logging, panic recovery and
// the API routes.
func NewRouter(h *Handler, logger *log.Logger) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = 32 << 20
	r.Use(requestLogger(logger), gin.Recovery())
	RegisterRoutes(r, h)
	return r
}

func requestLogger(logger *log.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = log.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"took", time.Since(start).Round(time.Millisecond),
		)
	}
}
