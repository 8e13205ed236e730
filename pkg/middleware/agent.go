// Package middleware 提供中间件
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yeisme/docvault/pkg/configs"
	ctxPkg "github.com/yeisme/docvault/pkg/context"
)

// AgentMiddleware 提取请求方代理标识并注入 context.
//   - 代理 UUID 由上游网关写入请求头（默认 X-Agent-ID），这里只做提取与格式校验
//   - 支持通过配置跳过某些路径（如 /metrics, /health）
//   - 开发模式可允许 query agent 兜底（由 configs.agent.dev_allow_query 控制）.
func AgentMiddleware(conf configs.AgentConfig) gin.HandlerFunc {
	header := conf.Header
	if header == "" {
		header = configs.DefaultAgentHeader
	}

	return func(c *gin.Context) {
		if isSkippedPath(c.Request.URL.Path, conf.SkipPaths) {
			c.Next()
			return
		}

		agentID := strings.TrimSpace(c.GetHeader(header))
		if agentID == "" && conf.DevAllowQuery {
			agentID = strings.TrimSpace(c.Query("agent"))
		}

		if agentID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing agent identity"})
			return
		}

		id, err := uuid.Parse(agentID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "agent identity must be a UUID"})
			return
		}

		ctx := ctxPkg.WithAgentID(c.Request.Context(), id.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func isSkippedPath(path string, skips []string) bool {
	if path == "" || len(skips) == 0 {
		return false
	}

	for _, p := range skips {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
