package v1

import (
	"github.com/gin-gonic/gin"

	"mediavault/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches the v1 API under /v1 and blob serving under /uploads.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/v1")
	group.POST("/media", r.handlers.Media.Upload)
	group.GET("/media", r.handlers.Media.List)
	group.GET("/media/:id", r.handlers.Media.Get)
	group.DELETE("/media/:id", r.handlers.Media.Delete)

	router.GET("/uploads/:name", r.handlers.Media.Serve)
}
