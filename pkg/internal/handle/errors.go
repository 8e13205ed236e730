package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/internal/service"
	"github.com/yeisme/docvault/pkg/log"
)

// writeError 将 service 层错误映射为 HTTP 状态码.
func writeError(c *gin.Context, err error) {
	var (
		notFound   *service.NotFoundError
		validation *service.ValidationError
		denied     *service.PermissionDeniedError
		conflict   *service.ConflictError
		storage    *service.StorageFailureError
	)

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &denied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &storage):
		log.Logger().Error().Err(err).Msg("blob store operation failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "storage backend unavailable"})
	default:
		log.Logger().Error().Err(err).Msg("unhandled service error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
