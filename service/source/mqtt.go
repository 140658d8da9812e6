/*
 * @module service/source/mqtt
 * @description MQTT推送数据源，订阅车间上报主题并保留最近一份完整表格
 * @architecture 常驻订阅模式 - 连接保活、断线重连由paho客户端处理
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 连接broker -> 订阅主题 -> 消息到达替换快照 -> 下一次tick的Fetch读取
 * @rules 消息体为RawTable的JSON编码；无法解析的消息记录日志后丢弃
 * @dependencies github.com/eclipse/paho.mqtt.golang
 * @refs service/source/push.go
 */

package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"prodboard-service/service/meta"
	"prodboard-service/service/models"
)

// MQTTConfig MQTT数据源连接配置
type MQTTConfig struct {
	Broker   string // host或host:port
	Port     int
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
}

// MQTTSource MQTT推送数据源
type MQTTSource struct {
	config MQTTConfig
	client mqtt.Client

	mu         sync.RWMutex
	table      *models.RawTable
	receivedAt time.Time
}

// NewMQTTSource 创建MQTT数据源，不立即连接
func NewMQTTSource(config MQTTConfig) *MQTTSource {
	if config.ClientID == "" {
		config.ClientID = "prodboard-service"
	}
	return &MQTTSource{config: config}
}

// Type 数据源类型标识
func (s *MQTTSource) Type() string {
	return meta.SourceTypeMQTT
}

// Start 连接broker并订阅上报主题
func (s *MQTTSource) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", s.config.Broker, s.config.Port))
	opts.SetClientID(s.config.ClientID)
	if s.config.Username != "" {
		opts.SetUsername(s.config.Username)
		opts.SetPassword(s.config.Password)
	}
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		token := client.Subscribe(s.config.Topic, s.config.QoS, s.handleMessage)
		if token.Wait() && token.Error() != nil {
			slog.Error("MQTT主题订阅失败", "topic", s.config.Topic, "error", token.Error())
			return
		}
		slog.Info("MQTT主题订阅成功", "topic", s.config.Topic)
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		slog.Warn("MQTT连接断开", "error", err)
	})

	s.client = mqtt.NewClient(opts)
	token := s.client.Connect()
	if !token.WaitTimeout(15 * time.Second) {
		return fmt.Errorf("MQTT连接超时: %s", s.config.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT连接失败: %w", err)
	}
	return nil
}

// Stop 断开连接
func (s *MQTTSource) Stop() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
}

// handleMessage 处理上报消息，消息体为RawTable的JSON编码
func (s *MQTTSource) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var table models.RawTable
	if err := json.Unmarshal(msg.Payload(), &table); err != nil {
		slog.Warn("丢弃无法解析的MQTT消息", "topic", msg.Topic(), "error", err)
		return
	}

	s.mu.Lock()
	s.table = &table
	s.receivedAt = time.Now()
	s.mu.Unlock()

	slog.Debug("收到MQTT生产数据", "topic", msg.Topic(), "rows", len(table.Rows))
}

// Fetch 返回最近一次收到的表格
func (s *MQTTSource) Fetch(_ context.Context) (*models.RawTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.table == nil {
		return nil, &models.SourceUnavailableError{
			Source: meta.SourceTypeMQTT,
			Err:    errors.New("尚未收到MQTT上报数据"),
		}
	}
	return s.table, nil
}
