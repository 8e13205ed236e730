package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/docvault/pkg/context"
)

// Health 进程存活探针.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HealthDB 检查数据库连通性.
func HealthDB(c *gin.Context) {
	client := ctxPkg.GetDBClient(c.Request.Context())
	if client == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "db client not initialized"})
		return
	}

	sqlDB, err := client.GetDB().DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HealthBlob 检查对象存储连通性.
func HealthBlob(c *gin.Context) {
	client := ctxPkg.GetBlobClient(c.Request.Context())
	if client == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "blob client not initialized"})
		return
	}

	if err := client.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HealthMQ 检查消息队列客户端是否可用.
func HealthMQ(c *gin.Context) {
	client := ctxPkg.GetMQClient(c.Request.Context())
	if client == nil || client.Publisher() == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "mq client not initialized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
