// Package router wires the search API routes.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/mediasearch/internal/apiserver/handler"
)

// Register mounts the search API on engine.
func Register(engine *gin.Engine, h *handler.SearchHandler) {
	engine.GET("/healthz", h.Healthz)

	v1 := engine.Group("/v1")
	{
		v1.GET("/search", h.Search)
		v1.POST("/search/file", h.SearchByFile)
		v1.GET("/stats", h.Stats)
	}
}
