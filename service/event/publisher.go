/*
 * @module service/event/publisher
 * @description 看板事件发布器，将采集完成/失败事件写入Kafka供下游消费
 * @architecture 适配器模式 - 封装kafka-go生产者，未配置broker时降级为空操作
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 采集tick结束 -> 构造事件 -> 异步写入Kafka
 * @rules 事件发布失败只记日志，绝不影响采集主流程
 * @dependencies github.com/segmentio/kafka-go, github.com/google/uuid
 * @refs service/dashboard/dashboard_service.go
 */

package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// 事件类型
const (
	EventRefreshCompleted = "refresh_completed"
	EventIngestionFailed  = "ingestion_failed"
)

// defaultTopic 默认事件主题
const defaultTopic = "prodboard.refresh_events"

// RefreshEvent 一次采集tick的结果事件
type RefreshEvent struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	TickID      string    `json:"tick_id"`
	SourceType  string    `json:"source_type"`
	LineCount   int       `json:"line_count"`
	RowsIn      int       `json:"rows_in"`
	RowsSkipped int       `json:"rows_skipped"`
	ErrorMsg    string    `json:"error_msg,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher 看板事件发布器
type Publisher struct {
	writer *kafka.Writer
	topic  string
}

// NewPublisher 按环境变量创建事件发布器
// KAFKA_BROKERS未配置时返回nil，调用方对nil接收者做空操作处理
func NewPublisher() *Publisher {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		return nil
	}
	topic := os.Getenv("KAFKA_EVENT_TOPIC")
	if topic == "" {
		topic = defaultTopic
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 100 * time.Millisecond,
		Async:        true,
	}

	slog.Info("看板事件发布已启用", "brokers", brokers, "topic", topic)
	return &Publisher{writer: writer, topic: topic}
}

// Publish 发布一条采集结果事件
func (p *Publisher) Publish(ctx context.Context, event RefreshEvent) {
	if p == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("事件序列化失败", "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.TickID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		slog.Warn("事件发布失败", "type", event.Type, "error", err)
	}
}

// Close 关闭底层生产者
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
