package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/signatur/rms-go-pkg/mq"
	"github.com/signatur/rms-go-pkg/scope"
)

type capturingProducer struct {
	messages []*mq.Message
	err      error
}

func (p *capturingProducer) SendSync(ctx context.Context, msg *mq.Message) (*mq.SendResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.messages = append(p.messages, msg)
	return &mq.SendResult{MsgID: "1", Topic: msg.Topic}, nil
}

func (p *capturingProducer) SendAsync(ctx context.Context, msg *mq.Message, callback mq.SendCallback) error {
	result, err := p.SendSync(ctx, msg)
	if callback != nil {
		callback(result, err)
	}
	return err
}

func (p *capturingProducer) Close() error { return nil }

func TestHookPublishesViolation(t *testing.T) {
	producer := &capturingProducer{}
	pub := NewPublisher(producer, WithTopic("audit.test"))

	hook := pub.Hook()
	hook(context.Background(), scope.Violation{
		Table:     "activities",
		Column:    "client_id",
		StagedID:  int64(20),
		AmbientID: 10,
		Operation: "create",
	})

	if len(producer.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(producer.messages))
	}
	msg := producer.messages[0]
	if msg.Topic != "audit.test" || msg.Key != "activities" || msg.Tag != "create" {
		t.Fatalf("unexpected message envelope: %+v", msg)
	}

	var event ViolationEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if event.StagedID != "20" || event.AmbientID != 10 || event.Operation != "create" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.OccurredAt.IsZero() {
		t.Fatal("occurred_at not stamped")
	}
}

func TestHookSurvivesProducerFailure(t *testing.T) {
	producer := &capturingProducer{err: errors.New("broker down")}
	pub := NewPublisher(producer)

	// 发送失败只能记日志, 不能 panic 也不能返回错误
	pub.Hook()(context.Background(), scope.Violation{
		Table:     "candidates",
		Column:    "client_id",
		StagedID:  int64(1),
		AmbientID: 2,
		Operation: "update",
	})

	if len(producer.messages) != 0 {
		t.Fatalf("expected no delivered messages, got %d", len(producer.messages))
	}
}
