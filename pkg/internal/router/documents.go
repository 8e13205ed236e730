package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/internal/handle"
)

// RegisterDocumentRoutes 注册文档操作相关路由.
func RegisterDocumentRoutes(g *gin.RouterGroup) {
	docRoutes := g.Group("/documents")
	{
		// 创建文档（multipart 上传）
		docRoutes.POST("", handle.CreateDocument)
		// 前缀列举
		docRoutes.GET("", handle.ListDocuments)
		// 名称/描述/标签搜索
		docRoutes.GET("/search", handle.SearchDocuments)

		// 单个文档操作
		singleGroup := docRoutes.Group("/:id")
		{
			// 详情（含版本历史）
			singleGroup.GET("", handle.GetDocument)
			// 更新元数据
			singleGroup.PATCH("", handle.UpdateMetadata)
			// 删除（?hard=true 物理清除）
			singleGroup.DELETE("", handle.DeleteDocument)
			// 下载内容（?version=n 取历史版本）
			singleGroup.GET("/download", handle.DownloadDocument)
			// 替换内容
			singleGroup.PUT("/content", handle.ReplaceContent)

			// 版本管理
			versionGroup := singleGroup.Group("/versions")
			{
				versionGroup.GET("", handle.ListVersions)
				versionGroup.POST("/:vid/restore", handle.RestoreVersion)
			}

			// 授权管理
			grantGroup := singleGroup.Group("/grants")
			{
				grantGroup.GET("", handle.ListGrants)
				grantGroup.PUT("", handle.SetGrants)
			}

			// 所有权转移
			singleGroup.POST("/transfer", handle.TransferOwnership)
		}
	}
}
