package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/internal/service"
	"github.com/yeisme/docvault/pkg/internal/types"
	"github.com/yeisme/docvault/pkg/log"
)

// RegisterOrganization 注册组织.组织 ID 由外部系统（租户平面）提供.
func RegisterOrganization(c *gin.Context) {
	var req types.RegisterOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Logger().Warn().Err(err).Msg("invalid organization payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	org, err := service.NewVaultService(c.Request.Context()).RegisterOrganization(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, org)
}

// GetOrganization 返回组织信息.
func GetOrganization(c *gin.Context) {
	org, err := service.NewVaultService(c.Request.Context()).
		GetOrganization(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, org)
}

// DeleteOrganization 删除组织.query 参数 force=true 时级联清除
// 组织下的全部文档、授权与代理.
func DeleteOrganization(c *gin.Context) {
	force := c.Query("force") == "true"

	result, err := service.NewVaultService(c.Request.Context()).
		DeleteOrganization(c.Request.Context(), c.Param("id"), force)
	if err != nil {
		if result != nil && !result.Completed {
			// 级联中途失败：返回已完成的部分，便于调用方重试
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "result": result})
			return
		}

		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, result)
}

// RegisterAgent 在组织下注册代理.
func RegisterAgent(c *gin.Context) {
	var req types.RegisterAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Logger().Warn().Err(err).Msg("invalid agent payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	agent, err := service.NewVaultService(c.Request.Context()).RegisterAgent(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, agent)
}

// GetAgent 返回代理信息.
func GetAgent(c *gin.Context) {
	agent, err := service.NewVaultService(c.Request.Context()).
		GetAgent(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, agent)
}

// UpdateAgent 更新代理元数据或启停状态.
func UpdateAgent(c *gin.Context) {
	var req types.UpdateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.AgentID = c.Param("id")

	agent, err := service.NewVaultService(c.Request.Context()).UpdateAgent(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, agent)
}

// RemoveAgent 移除代理：撤销其全部授权并停用.query 参数 force=true
// 时即使代理仍持有文档授权也继续.
func RemoveAgent(c *gin.Context) {
	force := c.Query("force") == "true"

	result, err := service.NewVaultService(c.Request.Context()).
		RemoveAgent(c.Request.Context(), c.Param("id"), force)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListAgents 列举组织下的代理.
func ListAgents(c *gin.Context) {
	var req types.ListAgentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.OrganizationID = c.Param("id")

	agents, total, err := service.NewVaultService(c.Request.Context()).ListAgents(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"agents": agents, "total": total})
}
