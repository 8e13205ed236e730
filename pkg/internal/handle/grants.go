package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/internal/service"
	"github.com/yeisme/docvault/pkg/internal/types"
)

// ListGrants 返回文档当前有效的授权集合，仅 ADMIN 可见.
func ListGrants(c *gin.Context) {
	agentID, err := currentAgent(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing agent"})
		return
	}

	grants, err := service.NewVaultService(c.Request.Context()).
		ListGrants(c.Request.Context(), c.Param("id"), agentID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"grants": grants})
}

// SetGrants 整体替换文档的授权集合.
func SetGrants(c *gin.Context) {
	agentID, err := currentAgent(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing agent"})
		return
	}

	var body struct {
		Grants []types.GrantSpec `json:"grants"`
	}

	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := &types.SetGrantsRequest{
		DocumentID: c.Param("id"),
		GrantedBy:  agentID,
		Grants:     body.Grants,
	}

	grants, err := service.NewVaultService(c.Request.Context()).SetGrants(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"grants": grants})
}

// TransferOwnership 将文档所有权转移给另一代理.
func TransferOwnership(c *gin.Context) {
	agentID, err := currentAgent(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing agent"})
		return
	}

	var body struct {
		NewOwnerID string `json:"new_owner_id"`
	}

	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := &types.TransferOwnershipRequest{
		DocumentID: c.Param("id"),
		NewOwnerID: body.NewOwnerID,
		By:         agentID,
	}

	if err := service.NewVaultService(c.Request.Context()).TransferOwnership(c.Request.Context(), req); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "ownership transferred", "new_owner_id": body.NewOwnerID})
}
