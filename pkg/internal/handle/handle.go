// Package handle 提供请求处理器的实现，将 HTTP 请求映射到 service 层.
package handle

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/configs"
	ctxPkg "github.com/yeisme/docvault/pkg/context"
	"github.com/yeisme/docvault/pkg/rule"
)

func DefaultHandler(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{"message": "Not Implemented"})
}

// currentAgent 提取请求方代理 UUID：AgentMiddleware 注入的 context 优先，
// 请求头与 query 参数兜底（便于测试）.
func currentAgent(c *gin.Context) (string, error) {
	agent := ctxPkg.GetAgentID(c.Request.Context())
	if agent == "" {
		agent = strings.TrimSpace(c.GetHeader(configs.DefaultAgentHeader))
	}

	if agent == "" {
		agent = strings.TrimSpace(c.Query("agent"))
	}

	if err := rule.ValidateVar(agent, "required,uuid"); err != nil {
		return "", err
	}

	return agent, nil
}
