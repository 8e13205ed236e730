// Package api 将各业务路由组绑定到 gin 引擎.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/internal/router"
)

// RegisterGroup 注册全部业务路由到 /api/v1.
func RegisterGroup(e *gin.Engine) *gin.Engine {
	v1 := e.Group("/api/v1")

	router.RegisterHealthRoutes(v1)
	router.RegisterDocumentRoutes(v1)
	router.RegisterRegistryRoutes(v1)
	router.RegisterSchedulerRoutes(v1)

	return e
}
