package service

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/oklog/ulid"
	"gorm.io/gorm"

	ctxPkg "github.com/yeisme/docvault/pkg/context"
	"github.com/yeisme/docvault/pkg/internal/model"
	nlog "github.com/yeisme/docvault/pkg/log"
)

// idempotencyTTL 幂等令牌的保留窗口.
const idempotencyTTL = 24 * time.Hour

// NewIdempotencyToken 生成 ULID 幂等令牌，供客户端在 create/replace 重试时复用.
func NewIdempotencyToken() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), crand.Reader).String()
}

// ensureUUID 校验并规范化 UUID 字符串.
func ensureUUID(field, value string) (string, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return "", invalid("%s must be a valid UUID, got %q", field, value)
	}

	return id.String(), nil
}

// validateName 校验文档名：非空且不含路径分隔符.
func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid("name must not be empty")
	}

	if strings.Contains(name, "/") {
		return invalid("name must not contain '/': %q", name)
	}

	return nil
}

// validatePrefix 校验层级前缀：以 / 开始和结束，不含空段.
func validatePrefix(prefix string) error {
	if prefix == "" || prefix == "/" {
		return nil
	}

	if !strings.HasPrefix(prefix, "/") || !strings.HasSuffix(prefix, "/") {
		return invalid("prefix must start and end with '/', got %q", prefix)
	}

	if strings.Contains(prefix, "//") {
		return invalid("prefix must not contain empty segments: %q", prefix)
	}

	return nil
}

// normalizePrefix 空前缀归一为根 "/".
func normalizePrefix(prefix string) string {
	if prefix == "" {
		return "/"
	}

	return prefix
}

// detectContentType 按显式值、文件扩展名、兜底顺序推断内容类型.
func detectContentType(explicit, filename string) string {
	if explicit != "" {
		return explicit
	}

	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}

	return "application/octet-stream"
}

// buildLocator 生成版本对象键：docID/v{n}/filename.
func buildLocator(documentID string, version int, filename string) string {
	return fmt.Sprintf("%s/v%d/%s", documentID, version, filename)
}

// marshalMeta 元数据映射序列化为 JSON 文本，空映射得到空串.
func marshalMeta(meta map[string]string) string {
	if len(meta) == 0 {
		return ""
	}

	s, err := sonic.MarshalString(meta)
	if err != nil {
		return ""
	}

	return s
}

// unmarshalMeta 解析 JSON 元数据文本，解析失败得到空映射.
func unmarshalMeta(raw string) map[string]string {
	meta := map[string]string{}
	if raw == "" {
		return meta
	}

	if err := sonic.UnmarshalString(raw, &meta); err != nil {
		return map[string]string{}
	}

	return meta
}

// mergeMeta 将 updates 按键合并进 raw：空值删除键，其余覆盖.
func mergeMeta(raw string, updates map[string]string) string {
	meta := unmarshalMeta(raw)
	for k, v := range updates {
		if v == "" {
			delete(meta, k)
			continue
		}

		meta[k] = v
	}

	return marshalMeta(meta)
}

// getOrganization 查询组织，缺失时返回 NotFound.
func (s *VaultService) getOrganization(ctx context.Context, id string) (*model.Organization, error) {
	var org model.Organization
	if err := s.dbClient.WithContext(ctx).Take(&org, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("organization", id)
		}

		return nil, fmt.Errorf("query organization %s: %w", id, err)
	}

	return &org, nil
}

// getAgent 查询代理，缺失时返回 NotFound.
func (s *VaultService) getAgent(ctx context.Context, id string) (*model.Agent, error) {
	var agent model.Agent
	if err := s.dbClient.WithContext(ctx).Take(&agent, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("agent", id)
		}

		return nil, fmt.Errorf("query agent %s: %w", id, err)
	}

	return &agent, nil
}

// getDocument 查询文档（不过滤状态），缺失时返回 NotFound.
func (s *VaultService) getDocument(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	if err := s.dbClient.WithContext(ctx).Take(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("document", id)
		}

		return nil, fmt.Errorf("query document %s: %w", id, err)
	}

	return &doc, nil
}

// getLiveDocument 查询文档，软删除的文档对调用者表现为 NotFound.
func (s *VaultService) getLiveDocument(ctx context.Context, id string) (*model.Document, error) {
	doc, err := s.getDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	if doc.Status == model.StatusDeleted {
		return nil, notFound("document", id)
	}

	return doc, nil
}

// idempotencyKey 组装 KV 键.
func idempotencyKey(scope, token string) string {
	return "idem:" + scope + ":" + token
}

// idempotencyGet 查询幂等令牌对应的结果 ID.KV 不可用或未命中时返回 false.
func (s *VaultService) idempotencyGet(ctx context.Context, scope, token string) (string, bool) {
	if s.kvStore == nil || token == "" {
		return "", false
	}

	val, err := s.kvStore.Get(ctx, idempotencyKey(scope, token))
	if err != nil || len(val) == 0 {
		return "", false
	}

	return string(val), true
}

// idempotencySet 记录幂等令牌的结果 ID.写入失败只记日志，不影响主流程.
func (s *VaultService) idempotencySet(ctx context.Context, scope, token, resultID string) {
	if s.kvStore == nil || token == "" {
		return
	}

	if err := s.kvStore.Set(ctx, idempotencyKey(scope, token), []byte(resultID), idempotencyTTL); err != nil {
		nlog.Logger().Debug().Err(err).Str("scope", scope).Msg("record idempotency token failed")
	}
}

// publishEvent 在 MQ 可用且开关开启时发布事件，失败只记日志.
// 事件发布在事务提交之后，属于尽力而为的通知通道.
func (s *VaultService) publishEvent(ctx context.Context, enabled bool, publish func() error) {
	if s.mqClient == nil || s.mqClient.Publisher() == nil {
		return
	}

	if !s.events.Enabled || !enabled {
		return
	}

	if err := publish(); err != nil {
		logger := ctxPkg.WithTraceContext(ctx, nlog.Logger())
		logger.Warn().Err(err).Msg("publish lifecycle event failed")
	}
}
