package mq

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/yeisme/docvault/pkg/configs"
)

// init 注册内存（进程内）工厂.
func init() {
	RegisterFactory(configs.MQTypeMemory, memoryFactory)
}

// memoryFactory 基于 watermill gochannel 的进程内实现，
// Publisher 与 Subscriber 共享同一通道，用于测试与单机部署.
func memoryFactory(_ context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(cfg.Common.BufferSize),
	}, logger)

	return ch, ch, nil
}
