// Package queue 定义消息主题常量与通配模式，供发布/订阅使用.
package queue

// 主题命名规范：dv.<域>.<动作>[.<状态>]，尽量稳定且向后兼容.
// 域：document(文档生命周期)、grant(授权)、org(组织)、agent(代理)
// 动作：created/replaced/restored/deleted 等，均为完成时事件

const (
	// 文档生命周期领域.
	TopicDocumentCreated     = "dv.document.created"      // 文档创建完成（含首版本与初始 ADMIN 授权）
	TopicDocumentReplaced    = "dv.document.replaced"     // 文档内容替换（含是否产生新版本）
	TopicDocumentRestored    = "dv.document.restored"     // 文档从历史版本恢复（产生新版本）
	TopicDocumentMetaUpdated = "dv.document.meta.updated" // 文档元数据更新（名称/描述/标签/路径）
	TopicDocumentDeleted     = "dv.document.deleted"      // 文档软删除
	TopicDocumentPurged      = "dv.document.purged"       // 文档物理清除（行与对象一并移除）

	// 授权领域.
	TopicGrantsReplaced       = "dv.grant.replaced"              // 文档授权集合被整体替换
	TopicOwnershipTransferred = "dv.grant.ownership.transferred" // ADMIN 所有权转移

	// 组织/代理领域.
	TopicOrganizationDeleted = "dv.org.deleted"   // 组织级联删除完成
	TopicAgentRemoved        = "dv.agent.removed" // 代理移除（软移除或级联清除）
)

// 主题分组，用于批量订阅或权限控制.
var (
	// 文档相关主题集合.
	DocumentTopics = []string{
		TopicDocumentCreated, TopicDocumentReplaced, TopicDocumentRestored,
		TopicDocumentMetaUpdated, TopicDocumentDeleted, TopicDocumentPurged,
	}

	// 授权相关主题集合.
	GrantTopics = []string{
		TopicGrantsReplaced, TopicOwnershipTransferred,
	}

	// 组织/代理相关主题集合.
	RegistryTopics = []string{
		TopicOrganizationDeleted, TopicAgentRemoved,
	}
)
