// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
)

// CRUDRouteHandler defines the handlers every catalog and ledger resource exposes.
type CRUDRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

// RegisterCRUDRoutes registers standard CRUD routes for a resource. Extra
// routes with static segments must be registered on the same group before
// or after; gin resolves them ahead of /:id.
//
// Usage:
//
//	handler := handlers.NewItemHandler(base, services.Items)
//	RegisterCRUDRoutes(api.Group("/items"), handler)
func RegisterCRUDRoutes(group *gin.RouterGroup, handler CRUDRouteHandler) {
	group.GET("", handler.List)
	group.POST("", handler.Create)
	group.GET("/:id", handler.Get)
	group.PUT("/:id", handler.Update)
	group.DELETE("/:id", handler.Delete)
}
