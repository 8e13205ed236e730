package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/internal/service"
	"github.com/yeisme/docvault/pkg/internal/types"
	"github.com/yeisme/docvault/pkg/log"
)

// ListDocuments 按前缀列举代理可见的文档，支持递归、过滤与分页.
func ListDocuments(c *gin.Context) {
	agentID, err := currentAgent(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing agent"})
		return
	}

	var req types.ListDocumentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		log.Logger().Warn().Err(err).Msg("invalid list query")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	req.AgentID = agentID

	result, err := service.NewVaultService(c.Request.Context()).ListDocuments(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SearchDocuments 在代理可见的文档内做名称/描述/标签搜索.
func SearchDocuments(c *gin.Context) {
	agentID, err := currentAgent(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing agent"})
		return
	}

	var req types.SearchDocumentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		log.Logger().Warn().Err(err).Msg("invalid search query")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	req.AgentID = agentID

	result, err := service.NewVaultService(c.Request.Context()).SearchDocuments(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
