package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/signatur/rms-go-pkg/logger"
	"github.com/signatur/rms-go-pkg/metrics"
	"github.com/signatur/rms-go-pkg/mq"
	"github.com/signatur/rms-go-pkg/scope"
)

/* ========================================================================
 * Audit Publisher - 越权写入审计
 * ========================================================================
 * 职责: 把写入守卫的拒绝事件异步发到审计主题, 并计入指标
 * 使用: db.Use(scope.NewPlugin(reg, scope.WithViolationHook(pub.Hook())))
 * ======================================================================== */

const DefaultTopic = "rms.audit.scope-violation"

// ViolationEvent 审计事件（JSON 落入消息体）
type ViolationEvent struct {
	OperationID string `json:"operation_id,omitempty"`

	Table      string    `json:"table"`
	Column     string    `json:"column"`
	StagedID   string    `json:"staged_id"`
	AmbientID  int64     `json:"ambient_id,string"`
	Operation  string    `json:"operation"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher 审计事件发布器
type Publisher struct {
	producer mq.Producer
	topic    string
	log      *logger.Logger
}

// PublisherOption 发布器可选项
type PublisherOption func(*Publisher)

// WithTopic 指定审计主题
func WithTopic(topic string) PublisherOption {
	return func(p *Publisher) { p.topic = topic }
}

// WithLogger 指定日志器
func WithLogger(log *logger.Logger) PublisherOption {
	return func(p *Publisher) { p.log = log }
}

// NewPublisher 创建审计发布器
func NewPublisher(producer mq.Producer, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		producer: producer,
		topic:    DefaultTopic,
		log:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Hook 返回挂到 scope 插件上的回调。
// 发送为异步, 永不阻塞也永不影响写入请求本身的失败响应。
func (p *Publisher) Hook() func(ctx context.Context, v scope.Violation) {
	return func(ctx context.Context, v scope.Violation) {
		metrics.ScopeViolationTotal.WithLabelValues(v.Table).Inc()

		event := ViolationEvent{
			Table:      v.Table,
			Column:     v.Column,
			StagedID:   fmt.Sprintf("%v", v.StagedID),
			AmbientID:  v.AmbientID,
			Operation:  v.Operation,
			OccurredAt: time.Now(),
		}
		if ac, ok := scope.AccessFromContext(ctx); ok {
			event.OperationID = ac.Operation.String()
		}
		body, err := json.Marshal(event)
		if err != nil {
			p.log.Error("marshal audit event", zap.Error(err))
			return
		}

		msg := mq.NewMessage(p.topic, body).
			WithKey(v.Table).
			WithTag(v.Operation)
		if err := p.producer.SendAsync(ctx, msg, p.onSent); err != nil {
			p.log.Error("publish audit event",
				zap.Error(err),
				zap.String("table", v.Table),
			)
		}
	}
}

func (p *Publisher) onSent(result *mq.SendResult, err error) {
	if err != nil {
		p.log.Error("audit event delivery failed", zap.Error(err))
		return
	}
	p.log.Debug("audit event delivered",
		zap.String("msg_id", result.MsgID),
		zap.String("topic", result.Topic),
	)
}
