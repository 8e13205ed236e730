package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/internal/handle"
)

// RegisterRegistryRoutes 注册组织与代理管理路由.
func RegisterRegistryRoutes(g *gin.RouterGroup) {
	orgRoutes := g.Group("/organizations")
	{
		orgRoutes.POST("", handle.RegisterOrganization)

		singleGroup := orgRoutes.Group("/:id")
		{
			singleGroup.GET("", handle.GetOrganization)
			// 删除组织（?force=true 级联清除文档与代理）
			singleGroup.DELETE("", handle.DeleteOrganization)
			// 组织下的代理列表
			singleGroup.GET("/agents", handle.ListAgents)
		}
	}

	agentRoutes := g.Group("/agents")
	{
		agentRoutes.POST("", handle.RegisterAgent)

		singleGroup := agentRoutes.Group("/:id")
		{
			singleGroup.GET("", handle.GetAgent)
			singleGroup.PATCH("", handle.UpdateAgent)
			// 移除代理（撤销授权并停用，?force=true 跳过持有检查）
			singleGroup.DELETE("", handle.RemoveAgent)
		}
	}
}
