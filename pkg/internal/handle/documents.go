package handle

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/internal/service"
	"github.com/yeisme/docvault/pkg/internal/types"
	"github.com/yeisme/docvault/pkg/log"
)

// CreateDocument 创建文档.multipart 表单：file 为内容本体，
// 其余字段（organization_id, name, prefix, ...）为普通表单项.
func CreateDocument(c *gin.Context) {
	l := log.Logger()

	agentID, err := currentAgent(c)
	if err != nil {
		l.Warn().Err(err).Msg("missing or invalid agent")
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing agent"})

		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		l.Warn().Err(err).Msg("no file provided")
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided"})

		return
	}

	content, err := readMultipartFile(file)
	if err != nil {
		l.Error().Err(err).Msg("failed to read uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process file"})

		return
	}

	name := c.PostForm("name")
	if name == "" {
		name = file.Filename
	}

	req := &types.CreateDocumentRequest{
		OrganizationID: c.PostForm("organization_id"),
		AgentID:        agentID,
		Name:           name,
		Prefix:         c.PostForm("prefix"),
		Description:    c.PostForm("description"),
		Filename:       file.Filename,
		ContentType:    c.PostForm("content_type"),
		Tags:           parseTags(c.PostForm("tags")),
		Metadata:       parseMetadata(c.PostForm("metadata")),
		IdempotencyKey: c.PostForm("idempotency_key"),
		Content:        content,
	}

	doc, err := service.NewVaultService(c.Request.Context()).CreateDocument(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

// GetDocument 返回文档详情与版本历史.
func GetDocument(c *gin.Context) {
	agentID, err := currentAgent(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing agent"})
		return
	}

	detail, err := service.NewVaultService(c.Request.Context()).
		GetDocument(c.Request.Context(), c.Param("id"), agentID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// DownloadDocument 下载文档内容，query 参数 version 指定历史版本.
func DownloadDocument(c *gin.Context) {
	agentID, err := currentAgent(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing agent"})
		return
	}

	var version *int

	if v := c.Query("version"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "version must be an integer"})
			return
		}

		version = &n
	}

	content, info, err := service.NewVaultService(c.Request.Context()).
		DownloadDocument(c.Request.Context(), c.Param("id"), agentID, version)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("X-Document-Version", strconv.Itoa(info.Version))
	c.Header("Content-Disposition", `attachment; filename="`+info.Filename+`"`)
	c.Data(http.StatusOK, info.ContentType, content)
}

// ReplaceContent 替换文档内容.versioned=true 产生新版本，否则原位覆盖.
func ReplaceContent(c *gin.Context) {
	l := log.Logger()

	agentID, err := currentAgent(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing agent"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided"})
		return
	}

	content, err := readMultipartFile(file)
	if err != nil {
		l.Error().Err(err).Msg("failed to read uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process file"})

		return
	}

	versioned := true
	if v := c.PostForm("versioned"); v != "" {
		versioned = v == "true"
	}

	req := &types.ReplaceContentRequest{
		DocumentID:     c.Param("id"),
		AgentID:        agentID,
		Filename:       file.Filename,
		ContentType:    c.PostForm("content_type"),
		ChangeNote:     c.PostForm("change_note"),
		Versioned:      versioned,
		IdempotencyKey: c.PostForm("idempotency_key"),
		Content:        content,
	}

	doc, err := service.NewVaultService(c.Request.Context()).ReplaceContent(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// UpdateMetadata 更新文档元数据，body 为 JSON.
func UpdateMetadata(c *gin.Context) {
	agentID, err := currentAgent(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing agent"})
		return
	}

	var req types.UpdateMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.DocumentID = c.Param("id")
	req.AgentID = agentID

	doc, err := service.NewVaultService(c.Request.Context()).UpdateMetadata(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// DeleteDocument 删除文档.query 参数 hard=true 时物理清除.
func DeleteDocument(c *gin.Context) {
	agentID, err := currentAgent(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing agent"})
		return
	}

	hard := c.Query("hard") == "true"

	err = service.NewVaultService(c.Request.Context()).
		DeleteDocument(c.Request.Context(), c.Param("id"), agentID, hard)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted", "hard": hard})
}

// ListVersions 返回文档的版本历史.
func ListVersions(c *gin.Context) {
	agentID, err := currentAgent(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing agent"})
		return
	}

	versions, err := service.NewVaultService(c.Request.Context()).
		ListVersions(c.Request.Context(), c.Param("id"), agentID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

// RestoreVersion 将指定历史版本恢复为新的当前版本.
func RestoreVersion(c *gin.Context) {
	agentID, err := currentAgent(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing agent"})
		return
	}

	version, err := strconv.Atoi(c.Param("vid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "version must be an integer"})
		return
	}

	doc, err := service.NewVaultService(c.Request.Context()).
		RestoreVersion(c.Request.Context(), c.Param("id"), version, agentID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// readMultipartFile 读出 multipart 文件的全部内容.
func readMultipartFile(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	return io.ReadAll(src)
}

// parseTags 解析逗号分隔的标签串.
func parseTags(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}

	return tags
}

// parseMetadata 解析 JSON 对象格式的元数据，解析失败返回 nil.
func parseMetadata(raw string) map[string]string {
	if raw == "" {
		return nil
	}

	meta := map[string]string{}
	if err := sonic.UnmarshalString(raw, &meta); err != nil {
		return nil
	}

	return meta
}
