/*
 * @module service/models/dashboard
 * @description 看板持久化模型：看板配置、采集运行记录、推送密钥
 * @architecture 数据模型层
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 配置存储 -> 配置读取 -> 配置更新；采集运行逐次追加
 * @rules 规范化记录本身不落库，每次采集整体重建；落库的只有配置与审计
 * @dependencies gorm.io/gorm, github.com/lib/pq
 * @refs service/dashboard, testutil
 */

package models

import (
	"time"

	"github.com/lib/pq"
)

// DashboardConfig 看板配置，单行表（ID固定为"default"）
// 布尔开关不挂数据库默认值：零值false必须原样落库，默认值由写入方提供
type DashboardConfig struct {
	ID              string    `gorm:"type:varchar(50);primaryKey" json:"id"`
	ShowOnTarget    bool      `json:"show_on_target"`
	ShowInProgress  bool      `json:"show_in_progress"`
	ShowAttention   bool      `json:"show_attention"`
	Search          string    `gorm:"type:varchar(200)" json:"search"`
	RefreshInterval int       `json:"refresh_interval"` // 秒
	CronExpression  string    `gorm:"type:varchar(100)" json:"cron_expression"`
	SourceType      string    `gorm:"type:varchar(20)" json:"source_type"`
	SourceURL       string    `gorm:"type:text" json:"source_url"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName 指定表名
func (DashboardConfig) TableName() string {
	return "dashboard_configs"
}

// Filters 转换为内存过滤配置
func (c *DashboardConfig) Filters() FilterOptions {
	return FilterOptions{
		ShowOnTarget:   c.ShowOnTarget,
		ShowInProgress: c.ShowInProgress,
		ShowAttention:  c.ShowAttention,
		Search:         c.Search,
	}
}

// IngestionRun 一次采集运行的审计记录
type IngestionRun struct {
	ID          string         `gorm:"type:varchar(50);primaryKey" json:"id"`
	TickID      string         `gorm:"type:varchar(50);index" json:"tick_id"`
	SourceType  string         `gorm:"type:varchar(20)" json:"source_type"`
	Status      string         `gorm:"type:varchar(20);index" json:"status"` // success, schema_error, source_error, no_change
	RowsIn      int            `json:"rows_in"`
	RowsSkipped int            `json:"rows_skipped"`
	LineCount   int            `json:"line_count"`
	Warnings    pq.StringArray `gorm:"type:text[]" json:"warnings"`
	ErrorMsg    string         `gorm:"type:text" json:"error_msg,omitempty"`
	Duration    int64          `json:"duration_ms"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TableName 指定表名
func (IngestionRun) TableName() string {
	return "ingestion_runs"
}

// PushAPIKey 推送端点的访问密钥，密钥本体只保存bcrypt哈希
type PushAPIKey struct {
	ID         string     `gorm:"type:varchar(50);primaryKey" json:"id"`
	Name       string     `gorm:"type:varchar(100);not null" json:"name"`
	KeyHash    string     `gorm:"type:varchar(200);not null" json:"-"`
	KeyPrefix  string     `gorm:"type:varchar(20);index" json:"key_prefix"`
	IsActive   bool       `gorm:"default:true" json:"is_active"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TableName 指定表名
func (PushAPIKey) TableName() string {
	return "push_api_keys"
}
