/*
 * @module service/source/push
 * @description Webhook推送数据源，接收JSON格式的整表推送并保留最近一份
 * @architecture 分层架构 - 数据源实现层，被动接收模式
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 推送接口收到批次 -> Receive替换快照 -> 下一次tick的Fetch读取
 * @rules 只保留最近一次完整推送，不做增量合并，与文件上传语义一致
 * @refs api/controllers/ingest_controller.go
 */

package source

import (
	"context"
	"errors"
	"sync"
	"time"

	"prodboard-service/service/meta"
	"prodboard-service/service/models"
)

// PushSource Webhook推送数据源
type PushSource struct {
	mu         sync.RWMutex
	table      *models.RawTable
	receivedAt time.Time
}

// NewPushSource 创建推送数据源
func NewPushSource() *PushSource {
	return &PushSource{}
}

// Type 数据源类型标识
func (s *PushSource) Type() string {
	return meta.SourceTypePush
}

// Receive 接收一份完整表格，整体替换上一份
func (s *PushSource) Receive(table *models.RawTable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = table
	s.receivedAt = time.Now()
}

// ReceivedAt 最近一次推送时间，零值表示尚未收到推送
func (s *PushSource) ReceivedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.receivedAt
}

// Fetch 返回最近一次推送的表格
func (s *PushSource) Fetch(_ context.Context) (*models.RawTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.table == nil {
		return nil, &models.SourceUnavailableError{
			Source: meta.SourceTypePush,
			Err:    errors.New("尚未收到推送数据"),
		}
	}
	return s.table, nil
}
