package mq

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/docvault/pkg/configs"
)

func TestRegisteredMQTypes(t *testing.T) {
	registered := map[configs.MQType]bool{}
	for _, mt := range GetRegisteredMQTypes() {
		registered[mt] = true
	}

	for _, want := range []configs.MQType{configs.MQTypeNATS, configs.MQTypeRedis, configs.MQTypeMemory} {
		if !registered[want] {
			t.Errorf("mq type %s not registered", want)
		}
	}
}

func TestMemoryFactoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := &configs.MQConfig{
		Type:   configs.MQTypeMemory,
		Common: configs.MQCommonConfig{BufferSize: 8},
	}

	pub, sub, err := memoryFactory(ctx, cfg, watermill.NopLogger{})
	if err != nil {
		t.Fatalf("memory factory: %v", err)
	}

	client := NewFromPubSub(pub, sub)
	defer func() { _ = client.Close() }()

	ch, err := client.Subscribe(ctx, "mq.test")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), []byte("ping"))
	if err := client.Publish(ctx, "mq.test", msg); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-ch:
		if string(got.Payload) != "ping" {
			t.Errorf("payload = %q, want ping", got.Payload)
		}

		got.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}
