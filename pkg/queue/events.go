package queue

import "github.com/ThreeDotsLabs/watermill/message"

// -------------------------- 基于业务封装 events --------------------------

// PublishDocumentCreated 发布 dv.document.created 事件。
// 文档行、首版本与初始 ADMIN 授权提交成功后调用，通知下游流程（审计、索引等）。
// 可通过可选项 opts 注入 TraceID、Producer 等头部信息。
func PublishDocumentCreated(pub message.Publisher, payload DocumentCreatedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicDocumentCreated, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicDocumentCreated, msg)
}

// ParseDocumentCreated 将 Watermill 消息解析为强类型 Envelope（DocumentCreatedPayload）。
func ParseDocumentCreated(msg *message.Message) (Message[DocumentCreatedPayload], error) {
	return ParseWatermillMessage[DocumentCreatedPayload](msg)
}

// PublishDocumentReplaced 发布 dv.document.replaced 事件。
func PublishDocumentReplaced(pub message.Publisher, payload DocumentReplacedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicDocumentReplaced, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicDocumentReplaced, msg)
}

// PublishDocumentRestored 发布 dv.document.restored 事件。
func PublishDocumentRestored(pub message.Publisher, payload DocumentRestoredPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicDocumentRestored, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicDocumentRestored, msg)
}

// PublishDocumentMetaUpdated 发布 dv.document.meta.updated 事件。
func PublishDocumentMetaUpdated(pub message.Publisher, payload DocumentMetaUpdatedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicDocumentMetaUpdated, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicDocumentMetaUpdated, msg)
}

// PublishDocumentDeleted 发布软删除/物理清除事件，hard 由 payload 区分，
// 物理清除使用 dv.document.purged 主题。
func PublishDocumentDeleted(pub message.Publisher, payload DocumentDeletedPayload, opts ...func(*EventHeader)) error {
	topic := TopicDocumentDeleted
	if payload.Hard {
		topic = TopicDocumentPurged
	}

	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(topic, msg)
}

// PublishGrantsReplaced 发布 dv.grant.replaced 事件。
func PublishGrantsReplaced(pub message.Publisher, payload GrantsReplacedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicGrantsReplaced, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicGrantsReplaced, msg)
}

// PublishOwnershipTransferred 发布 dv.grant.ownership.transferred 事件。
func PublishOwnershipTransferred(pub message.Publisher, payload OwnershipTransferredPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicOwnershipTransferred, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicOwnershipTransferred, msg)
}

// PublishOrganizationDeleted 发布 dv.org.deleted 事件。
func PublishOrganizationDeleted(pub message.Publisher, payload OrganizationDeletedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicOrganizationDeleted, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicOrganizationDeleted, msg)
}

// PublishAgentRemoved 发布 dv.agent.removed 事件。
func PublishAgentRemoved(pub message.Publisher, payload AgentRemovedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicAgentRemoved, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicAgentRemoved, msg)
}
